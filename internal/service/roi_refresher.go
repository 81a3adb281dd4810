package service

import (
	"context"
	"time"

	"wisefido-posture/internal/roi"

	"go.uber.org/zap"
)

// RegionSource 关注区域来源（*repository.ROIRepository 实现）
type RegionSource interface {
	ListRegions(ctx context.Context, tenantID, cameraID string) ([]roi.Region, error)
}

// ROIRefresher 定期从数据库刷新关注区域
// 查询失败保留上一次的区域；数据库没有配置时使用默认区域
type ROIRefresher struct {
	tenantID   string
	cameraID   string
	defaultROI roi.Region
	source     RegionSource
	manager    *roi.Manager
	logger     *zap.Logger
}

// NewROIRefresher 创建刷新器
func NewROIRefresher(tenantID, cameraID string, defaultROI roi.Region, source RegionSource, manager *roi.Manager, logger *zap.Logger) *ROIRefresher {
	return &ROIRefresher{
		tenantID:   tenantID,
		cameraID:   cameraID,
		defaultROI: defaultROI,
		source:     source,
		manager:    manager,
		logger:     logger,
	}
}

// Refresh 刷新一次
func (r *ROIRefresher) Refresh(ctx context.Context) {
	regions, err := r.source.ListRegions(ctx, r.tenantID, r.cameraID)
	if err != nil {
		r.logger.Warn("Failed to refresh roi regions, keeping previous set",
			zap.String("camera_id", r.cameraID),
			zap.Error(err),
		)
		return
	}

	// 没有配置时回退到默认区域而不是空集合：空集合会把所有位置判为区域外
	if len(regions) == 0 {
		r.manager.Update(r.defaultROI)
	} else {
		r.manager.Set(regions)
	}
	r.logger.Debug("ROI regions refreshed",
		zap.String("camera_id", r.cameraID),
		zap.Int("count", len(r.manager.Regions())),
		zap.Bool("default", len(regions) == 0),
	)
}

// Run 按间隔刷新，直到 ctx 取消
func (r *ROIRefresher) Run(ctx context.Context, interval time.Duration) {
	r.Refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Refresh(ctx)
		}
	}
}
