package repository

import (
	"context"
	"database/sql"
	"fmt"

	"wisefido-posture/internal/roi"

	"go.uber.org/zap"
)

// ROIRepository 关注区域仓库（roi_regions 表）
type ROIRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewROIRepository 创建关注区域仓库
func NewROIRepository(db *sql.DB, logger *zap.Logger) *ROIRepository {
	return &ROIRepository{
		db:     db,
		logger: logger,
	}
}

// ListRegions 获取摄像头启用中的关注区域
func (r *ROIRepository) ListRegions(ctx context.Context, tenantID, cameraID string) ([]roi.Region, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}
	if cameraID == "" {
		return nil, fmt.Errorf("camera_id is required")
	}

	query := `
		SELECT x1, y1, x2, y2
		FROM roi_regions
		WHERE tenant_id = $1
		  AND camera_id = $2
		  AND enabled = true
		ORDER BY region_id
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, cameraID)
	if err != nil {
		return nil, fmt.Errorf("failed to query roi regions: %w", err)
	}
	defer rows.Close()

	var regions []roi.Region
	for rows.Next() {
		var reg roi.Region
		if err := rows.Scan(&reg.X1, &reg.Y1, &reg.X2, &reg.Y2); err != nil {
			return nil, fmt.Errorf("failed to scan roi region: %w", err)
		}
		if reg.X1 > reg.X2 || reg.Y1 > reg.Y2 {
			r.logger.Warn("Skipping malformed roi region",
				zap.String("camera_id", cameraID),
				zap.Int("x1", reg.X1), zap.Int("y1", reg.Y1),
				zap.Int("x2", reg.X2), zap.Int("y2", reg.Y2),
			)
			continue
		}
		regions = append(regions, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate roi regions: %w", err)
	}

	return regions, nil
}
