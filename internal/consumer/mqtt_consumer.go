package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"wisefido-posture/internal/geometry"
	"wisefido-posture/internal/models"
	"wisefido-posture/internal/mqtt"
	"wisefido-posture/internal/tracker"

	"go.uber.org/zap"
)

// Subscriber MQTT 订阅能力（*mqtt.Client 实现）
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// FrameProcessor 单帧处理（*tracker.Registry 实现）
type FrameProcessor interface {
	Process(frame models.PoseFrame) tracker.Result
}

// ResultHandler 处理结果的下游（状态缓存、事件交付）
type ResultHandler interface {
	HandleResult(ctx context.Context, result tracker.Result) error
}

// MQTTConsumer 姿态帧消费者
// 主题格式: pose/{camera_id}/frames
type MQTTConsumer struct {
	topic      string
	qos        byte
	subscriber Subscriber
	processor  FrameProcessor
	handler    ResultHandler
	metrics    *Metrics
	logger     *zap.Logger

	ctx context.Context
}

// NewMQTTConsumer 创建消费者
func NewMQTTConsumer(
	topic string,
	qos byte,
	subscriber Subscriber,
	processor FrameProcessor,
	handler ResultHandler,
	logger *zap.Logger,
) *MQTTConsumer {
	return &MQTTConsumer{
		topic:      topic,
		qos:        qos,
		subscriber: subscriber,
		processor:  processor,
		handler:    handler,
		metrics:    &Metrics{},
		logger:     logger,
		ctx:        context.Background(),
	}
}

// Start 订阅帧主题（非阻塞）
func (c *MQTTConsumer) Start(ctx context.Context) error {
	c.ctx = ctx
	if err := c.subscriber.Subscribe(c.topic, c.qos, c.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to frames topic: %w", err)
	}

	c.logger.Info("MQTT consumer started",
		zap.String("topic", c.topic),
	)
	return nil
}

// Stop 取消订阅并输出统计
func (c *MQTTConsumer) Stop() {
	if err := c.subscriber.Unsubscribe(c.topic); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}

	s := c.metrics.Snapshot()
	c.logger.Info("MQTT consumer stopped",
		zap.Int64("frames_received", s.FramesReceived),
		zap.Int64("frames_processed", s.FramesProcessed),
		zap.Int64("frames_failed", s.FramesFailed),
		zap.Int64("parse_errors", s.ParseErrors),
		zap.Int64("events_emitted", s.EventsEmitted),
	)
}

// Metrics 处理统计
func (c *MQTTConsumer) Metrics() *Metrics {
	return c.metrics
}

// ParseFrame 解析主题与负载为内部帧
func ParseFrame(topic string, payload []byte) (models.PoseFrame, error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 || parts[1] == "" {
		return models.PoseFrame{}, fmt.Errorf("invalid topic format: %s", topic)
	}
	cameraID := parts[1]

	var msg models.PoseFrameMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return models.PoseFrame{}, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	if msg.SubjectID == "" {
		return models.PoseFrame{}, fmt.Errorf("subject_id is required")
	}

	frame := msg.ToPoseFrame(cameraID)
	if !msg.DepthNormalized && frame.Landmarks != nil && frame.BBox != nil {
		frame.Landmarks = geometry.NormalizeDepth(frame.Landmarks, *frame.BBox)
	}
	return frame, nil
}

// handleMessage 处理一条 MQTT 消息；单帧错误不影响后续消息
// 返回的错误由 mqtt.Client 统一记录日志
func (c *MQTTConsumer) handleMessage(topic string, payload []byte) error {
	c.metrics.received()

	frame, err := ParseFrame(topic, payload)
	if err != nil {
		c.metrics.parseError()
		return fmt.Errorf("dropping malformed pose frame (%d bytes): %w", len(payload), err)
	}

	result := c.processor.Process(frame)

	for _, e := range result.Events {
		c.logger.Info("Posture event",
			zap.String("camera_id", result.CameraID),
			zap.String("subject_id", result.SubjectID),
			zap.String("event_type", string(e.Type)),
			zap.String("timestamp", e.Timestamp),
			zap.String("message", e.Message),
		)
	}

	if err := c.handler.HandleResult(c.ctx, result); err != nil {
		c.metrics.failed()
		return fmt.Errorf("failed to handle result: %w", err)
	}

	c.metrics.processed(len(result.Events), time.Now())
	return nil
}
