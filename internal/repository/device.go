package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrDeviceNotFound 摄像头未在 devices 表登记
var ErrDeviceNotFound = errors.New("device not found")

// DeviceRepository 设备仓库：摄像头标识（序列号或 UID）→ devices.device_id
type DeviceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDeviceRepository 创建设备仓库
func NewDeviceRepository(db *sql.DB, logger *zap.Logger) *DeviceRepository {
	return &DeviceRepository{
		db:     db,
		logger: logger,
	}
}

// ResolveDeviceID 按序列号或 UID 查找设备 ID
func (r *DeviceRepository) ResolveDeviceID(ctx context.Context, tenantID, identifier string) (string, error) {
	if tenantID == "" {
		return "", fmt.Errorf("tenant_id is required")
	}
	if identifier == "" {
		return "", fmt.Errorf("identifier is required")
	}

	query := `
		SELECT d.device_id
		FROM devices d
		WHERE d.tenant_id = $1
		  AND (d.serial_number = $2 OR d.uid = $2)
		LIMIT 1
	`

	var deviceID string
	err := r.db.QueryRowContext(ctx, query, tenantID, identifier).Scan(&deviceID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("%w: %s", ErrDeviceNotFound, identifier)
		}
		return "", fmt.Errorf("failed to query device: %w", err)
	}
	return deviceID, nil
}
