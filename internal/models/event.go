package models

// EventType 事件类型（固定词表）
type EventType string

const (
	EventFallDetected      EventType = "fall_detected"
	EventProneWarning      EventType = "prone_warning"
	EventDangerMotionless  EventType = "danger_motionless"
	EventIrregularMovement EventType = "irregular_movement"
	EventTiltSustained     EventType = "tilt_sustained"
)

// Event 分析器输出给告警/日志协作方的事件记录
type Event struct {
	Type      EventType `json:"type"`
	Timestamp string    `json:"timestamp"` // 格式化后的墙上时间
	Message   string    `json:"message"`
}

// AlarmLevel 事件对应的报警级别
func (t EventType) AlarmLevel() string {
	switch t {
	case EventFallDetected, EventDangerMotionless:
		return "ALERT"
	case EventProneWarning:
		return "CRIT"
	default:
		return "WARNING"
	}
}
