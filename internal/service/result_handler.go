package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"wisefido-posture/internal/cache"
	"wisefido-posture/internal/models"
	"wisefido-posture/internal/repository"
	"wisefido-posture/internal/tracker"

	"go.uber.org/zap"
)

// StateStore 主体状态缓存（*cache.StateCache 实现）
type StateStore interface {
	GetSubjectState(ctx context.Context, cameraID, subjectID string) (*models.SubjectState, error)
	UpdateSubjectState(ctx context.Context, state *models.SubjectState) error
}

// EventStore 报警事件持久化（*repository.PostureEventsRepository 实现）
type EventStore interface {
	CreateAlarmEvent(ctx context.Context, tenantID string, event *models.PostureAlarmEvent) error
	GetRecentAlarmEvent(ctx context.Context, tenantID, deviceID, subjectID, eventType string, within time.Duration) (*models.PostureAlarmEvent, error)
}

// DeviceResolver 摄像头标识 → devices.device_id（*repository.DeviceRepository 实现）
type DeviceResolver interface {
	ResolveDeviceID(ctx context.Context, tenantID, identifier string) (string, error)
}

// StreamPublisher 事件流发布（*cache.EventPublisher 实现）
type StreamPublisher interface {
	PublishJSON(ctx context.Context, eventType string, data interface{}) (string, error)
}

// ResultHandler 每帧结果交付：刷新状态缓存，事件落库并发布到流
// 任一步失败只记录日志，不影响其他交付
type ResultHandler struct {
	tenantID  string
	states    StateStore
	events    EventStore
	devices   DeviceResolver
	publisher StreamPublisher
	builder   *AlarmEventBuilder
	cooldown  time.Duration
	logger    *zap.Logger

	mu        sync.Mutex
	deviceIDs map[string]string // camera_id → device_id，只缓存解析成功的
}

// NewResultHandler 创建结果处理器
// cooldown 为跨进程的事件去重窗口（同一设备、主体、类型）
func NewResultHandler(
	tenantID string,
	states StateStore,
	events EventStore,
	devices DeviceResolver,
	publisher StreamPublisher,
	cooldown time.Duration,
	logger *zap.Logger,
) *ResultHandler {
	return &ResultHandler{
		tenantID:  tenantID,
		states:    states,
		events:    events,
		devices:   devices,
		publisher: publisher,
		builder:   NewAlarmEventBuilder(tenantID),
		cooldown:  cooldown,
		logger:    logger,
		deviceIDs: make(map[string]string),
	}
}

// HandleResult 交付单帧结果；返回状态缓存的错误（事件交付错误只记录）
func (h *ResultHandler) HandleResult(ctx context.Context, result tracker.Result) error {
	if len(result.Events) > 0 {
		deviceID := h.resolveDevice(ctx, result.CameraID)
		for _, e := range result.Events {
			h.deliverEvent(ctx, result, e, deviceID)
		}
	}

	h.logStateChange(ctx, result)

	state := &models.SubjectState{
		SubjectID: result.SubjectID,
		CameraID:  result.CameraID,
		Label:     result.Label,
		State:     result.State,
		UpdatedAt: time.Now().Unix(),
	}
	if err := h.states.UpdateSubjectState(ctx, state); err != nil {
		return fmt.Errorf("failed to cache subject state: %w", err)
	}
	return nil
}

// logStateChange 与缓存中的上一状态比较，变化时记录
func (h *ResultHandler) logStateChange(ctx context.Context, result tracker.Result) {
	prev, err := h.states.GetSubjectState(ctx, result.CameraID, result.SubjectID)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			h.logger.Debug("Failed to read previous subject state",
				zap.String("subject_id", result.SubjectID),
				zap.Error(err),
			)
		}
		return
	}
	if prev.State != result.State {
		h.logger.Info("Subject state changed",
			zap.String("camera_id", result.CameraID),
			zap.String("subject_id", result.SubjectID),
			zap.String("from", string(prev.State)),
			zap.String("to", string(result.State)),
		)
	}
}

// resolveDevice 查找摄像头对应的设备 ID；未登记或查询失败返回空串
func (h *ResultHandler) resolveDevice(ctx context.Context, cameraID string) string {
	h.mu.Lock()
	deviceID, ok := h.deviceIDs[cameraID]
	h.mu.Unlock()
	if ok {
		return deviceID
	}

	deviceID, err := h.devices.ResolveDeviceID(ctx, h.tenantID, cameraID)
	if err != nil {
		if errors.Is(err, repository.ErrDeviceNotFound) {
			h.logger.Warn("Camera is not registered as a device, alarm events will not be saved",
				zap.String("camera_id", cameraID),
			)
		} else {
			h.logger.Error("Failed to resolve device",
				zap.String("camera_id", cameraID),
				zap.Error(err),
			)
		}
		return ""
	}

	h.mu.Lock()
	h.deviceIDs[cameraID] = deviceID
	h.mu.Unlock()
	return deviceID
}

func (h *ResultHandler) deliverEvent(ctx context.Context, result tracker.Result, e models.Event, deviceID string) {
	if deviceID != "" && h.isDuplicate(ctx, deviceID, result.SubjectID, e.Type) {
		h.logger.Debug("Skipping duplicate alarm event",
			zap.String("device_id", deviceID),
			zap.String("subject_id", result.SubjectID),
			zap.String("event_type", string(e.Type)),
		)
		return
	}

	alarm, err := h.builder.BuildAlarmEvent(result, e, deviceID)
	if err != nil {
		h.logger.Error("Failed to build alarm event",
			zap.String("event_type", string(e.Type)),
			zap.Error(err),
		)
		return
	}

	if deviceID != "" {
		if err := h.events.CreateAlarmEvent(ctx, h.tenantID, alarm); err != nil {
			h.logger.Error("Failed to save alarm event",
				zap.String("event_id", alarm.EventID),
				zap.String("event_type", alarm.EventType),
				zap.Error(err),
			)
		}
	}

	if _, err := h.publisher.PublishJSON(ctx, alarm.EventType, alarm); err != nil {
		h.logger.Error("Failed to publish alarm event",
			zap.String("event_id", alarm.EventID),
			zap.String("event_type", alarm.EventType),
			zap.Error(err),
		)
	}
}

// isDuplicate 冷却期内已有同类活跃报警（含进程重启前写入的）；查询失败按不重复处理
func (h *ResultHandler) isDuplicate(ctx context.Context, deviceID, subjectID string, eventType models.EventType) bool {
	recent, err := h.events.GetRecentAlarmEvent(ctx, h.tenantID, deviceID, subjectID, string(eventType), h.cooldown)
	if err != nil {
		h.logger.Warn("Failed to query recent alarm event",
			zap.String("device_id", deviceID),
			zap.String("event_type", string(eventType)),
			zap.Error(err),
		)
		return false
	}
	return recent != nil
}
