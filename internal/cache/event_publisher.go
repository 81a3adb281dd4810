package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// EventPublisher 把报警事件发布到 Redis Streams，供下游报警/通知服务消费
type EventPublisher struct {
	client *redis.Client
	stream string
	logger *zap.Logger
}

// NewEventPublisher 创建事件发布器
func NewEventPublisher(client *redis.Client, stream string, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{
		client: client,
		stream: stream,
		logger: logger,
	}
}

// PublishJSON 序列化后 XADD 到事件流，返回消息 ID
func (p *EventPublisher) PublishJSON(ctx context.Context, eventType string, data interface{}) (string, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal stream payload: %w", err)
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"event_type": eventType,
			"data":       string(jsonBytes),
			"timestamp":  fmt.Sprintf("%d", time.Now().Unix()),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to publish to stream %s: %w", p.stream, err)
	}

	p.logger.Debug("Event published to stream",
		zap.String("stream", p.stream),
		zap.String("message_id", id),
		zap.String("event_type", eventType),
	)
	return id, nil
}
