package models

import (
	"time"
)

// PostureAlarmEvent 姿态报警事件（对应 alarm_events 表）
type PostureAlarmEvent struct {
	EventID     string    `json:"event_id" db:"event_id"`
	TenantID    string    `json:"tenant_id" db:"tenant_id"`
	DeviceID    string    `json:"device_id" db:"device_id"` // devices.device_id，摄像头未登记时为空
	SubjectID   string    `json:"subject_id" db:"subject_id"`
	EventType   string    `json:"event_type" db:"event_type"`
	Category    string    `json:"category" db:"category"`         // safety
	AlarmLevel  string    `json:"alarm_level" db:"alarm_level"`   // ALERT, CRIT, WARNING
	AlarmStatus string    `json:"alarm_status" db:"alarm_status"` // active, acknowledged
	TriggeredAt time.Time `json:"triggered_at" db:"triggered_at"`
	TriggerData string    `json:"trigger_data" db:"trigger_data"` // JSONB
	Metadata    string    `json:"metadata" db:"metadata"`         // JSONB
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// TriggerData 触发数据快照（JSONB 结构）
type TriggerData struct {
	EventType string       `json:"event_type"`
	Posture   PostureLabel `json:"posture"`
	Message   string       `json:"message"`
	Timestamp string       `json:"timestamp"`
	Source    string       `json:"source"` // "Camera"
}
