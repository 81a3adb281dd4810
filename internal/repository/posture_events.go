package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"wisefido-posture/internal/models"

	"go.uber.org/zap"
)

// PostureEventsRepository 姿态报警事件仓库（alarm_events 表）
type PostureEventsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostureEventsRepository 创建姿态报警事件仓库
func NewPostureEventsRepository(db *sql.DB, logger *zap.Logger) *PostureEventsRepository {
	return &PostureEventsRepository{
		db:     db,
		logger: logger,
	}
}

// CreateAlarmEvent 写入报警事件（需验证 tenant_id）
// subject_id 不是 alarm_events 的列，随 metadata 一起保存
func (r *PostureEventsRepository) CreateAlarmEvent(ctx context.Context, tenantID string, event *models.PostureAlarmEvent) error {
	if tenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}
	if event == nil {
		return fmt.Errorf("event is required")
	}
	if event.TenantID != tenantID {
		return fmt.Errorf("event.tenant_id must match tenant_id parameter")
	}
	if event.DeviceID == "" {
		return fmt.Errorf("device_id is required")
	}

	query := `
		INSERT INTO alarm_events (
			event_id,
			tenant_id,
			device_id,
			event_type,
			category,
			alarm_level,
			alarm_status,
			triggered_at,
			trigger_data,
			metadata,
			created_at,
			updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`

	_, err := r.db.ExecContext(ctx,
		query,
		event.EventID,
		event.TenantID,
		event.DeviceID,
		event.EventType,
		event.Category,
		event.AlarmLevel,
		event.AlarmStatus,
		event.TriggeredAt,
		event.TriggerData,
		event.Metadata,
		event.CreatedAt,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create alarm event: %w", err)
	}

	r.logger.Debug("Posture alarm event created",
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.EventType),
		zap.String("subject_id", event.SubjectID),
	)
	return nil
}

// GetRecentAlarmEvent 最近 within 时间内同一主体、同类型的活跃报警；没有时返回 nil, nil
func (r *PostureEventsRepository) GetRecentAlarmEvent(ctx context.Context, tenantID, deviceID, subjectID, eventType string, within time.Duration) (*models.PostureAlarmEvent, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}
	if deviceID == "" {
		return nil, fmt.Errorf("device_id is required")
	}
	if eventType == "" {
		return nil, fmt.Errorf("event_type is required")
	}

	thresholdTime := time.Now().Add(-within)

	query := `
		SELECT
			event_id,
			tenant_id,
			device_id,
			event_type,
			category,
			alarm_level,
			alarm_status,
			triggered_at,
			trigger_data,
			metadata,
			created_at
		FROM alarm_events
		WHERE tenant_id = $1
		  AND device_id = $2
		  AND metadata->>'subject_id' = $3
		  AND event_type = $4
		  AND triggered_at > $5
		  AND alarm_status = 'active'
		  AND (metadata->>'deleted_at' IS NULL)
		ORDER BY triggered_at DESC
		LIMIT 1
	`

	var event models.PostureAlarmEvent
	var triggerData, metadata []byte

	err := r.db.QueryRowContext(ctx, query, tenantID, deviceID, subjectID, eventType, thresholdTime).Scan(
		&event.EventID,
		&event.TenantID,
		&event.DeviceID,
		&event.EventType,
		&event.Category,
		&event.AlarmLevel,
		&event.AlarmStatus,
		&event.TriggeredAt,
		&triggerData,
		&metadata,
		&event.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query recent alarm event: %w", err)
	}

	event.SubjectID = subjectID
	event.TriggerData = jsonOrDefault(triggerData, "{}")
	event.Metadata = jsonOrDefault(metadata, "{}")

	return &event, nil
}

func jsonOrDefault(b []byte, def string) string {
	if len(b) == 0 {
		return def
	}
	return string(b)
}
