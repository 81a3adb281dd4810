package service

import (
	"encoding/json"
	"fmt"
	"time"

	"wisefido-posture/internal/geometry"
	"wisefido-posture/internal/models"
	"wisefido-posture/internal/tracker"

	"github.com/google/uuid"
)

const (
	categorySafety    = "safety"
	alarmStatusActive = "active"
	triggerSource     = "Camera"
)

// AlarmEventBuilder 姿态事件 → alarm_events 行
type AlarmEventBuilder struct {
	tenantID string
}

// NewAlarmEventBuilder 创建报警事件构建器
func NewAlarmEventBuilder(tenantID string) *AlarmEventBuilder {
	return &AlarmEventBuilder{tenantID: tenantID}
}

// BuildAlarmEvent 构建报警事件；triggered_at 取事件自身时间戳
// deviceID 为 devices 表中的设备 ID，摄像头未登记时为空，摄像头标识始终写入 metadata
func (b *AlarmEventBuilder) BuildAlarmEvent(result tracker.Result, event models.Event, deviceID string) (*models.PostureAlarmEvent, error) {
	now := time.Now()

	triggeredAt, err := time.ParseInLocation(geometry.TimestampLayout, event.Timestamp, time.Local)
	if err != nil {
		triggeredAt = now
	}

	triggerData, err := json.Marshal(models.TriggerData{
		EventType: string(event.Type),
		Posture:   result.Label,
		Message:   event.Message,
		Timestamp: event.Timestamp,
		Source:    triggerSource,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal trigger data: %w", err)
	}

	metadata, err := json.Marshal(map[string]interface{}{
		"subject_id": result.SubjectID,
		"camera_id":  result.CameraID,
		"state":      result.State,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	return &models.PostureAlarmEvent{
		EventID:     uuid.New().String(),
		TenantID:    b.tenantID,
		DeviceID:    deviceID,
		SubjectID:   result.SubjectID,
		EventType:   string(event.Type),
		Category:    categorySafety,
		AlarmLevel:  event.Type.AlarmLevel(),
		AlarmStatus: alarmStatusActive,
		TriggeredAt: triggeredAt,
		TriggerData: string(triggerData),
		Metadata:    string(metadata),
		CreatedAt:   now,
	}, nil
}
