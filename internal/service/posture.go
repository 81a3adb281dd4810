package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"wisefido-posture/internal/analyzer"
	"wisefido-posture/internal/cache"
	"wisefido-posture/internal/config"
	"wisefido-posture/internal/consumer"
	"wisefido-posture/internal/database"
	"wisefido-posture/internal/mqtt"
	"wisefido-posture/internal/repository"
	"wisefido-posture/internal/roi"
	"wisefido-posture/internal/tracker"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// PostureService 姿态服务（整合各层）
type PostureService struct {
	config   *config.Config
	db       *sql.DB
	redis    *redis.Client
	mqtt     *mqtt.Client
	logger   *zap.Logger
	tenantID string

	rois       *roi.Manager
	refresher  *ROIRefresher
	registry   *tracker.Registry
	stateCache *cache.StateCache
	consumer   *consumer.MQTTConsumer

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPostureService 创建姿态服务
func NewPostureService(cfg *config.Config, logger *zap.Logger, tenantID string) (*PostureService, error) {
	// 1. 连接数据库
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 2. 连接 Redis
	redisClient := cache.NewRedisClient(&cfg.Redis)
	if err := cache.Ping(context.Background(), redisClient); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	// 3. 连接 MQTT
	mqttClient, err := mqtt.NewClient(&cfg.MQTT, logger)
	if err != nil {
		db.Close()
		redisClient.Close()
		return nil, fmt.Errorf("failed to connect to MQTT: %w", err)
	}

	// 4. Repository / 缓存
	roiRepo := repository.NewROIRepository(db, logger)
	eventsRepo := repository.NewPostureEventsRepository(db, logger)
	deviceRepo := repository.NewDeviceRepository(db, logger)
	stateCache := cache.NewStateCache(redisClient, cfg.Posture.Cache.StateKeyPrefix, cfg.Posture.Cache.StateTTL, logger)
	publisher := cache.NewEventPublisher(redisClient, cfg.Posture.Cache.EventsStream, logger)

	// 5. 关注区域与主体流水线
	rois := roi.NewManager(cfg.Posture.Camera.DefaultROI)
	refresher := NewROIRefresher(tenantID, cfg.Posture.Camera.ID, cfg.Posture.Camera.DefaultROI, roiRepo, rois, logger)

	registry := tracker.NewRegistry(tracker.Options{
		Thresholds:          cfg.ClassifierThresholds(),
		WindowSize:          cfg.Posture.Classifier.WindowSize,
		VisibilityThreshold: cfg.Posture.Classifier.VisibilityThreshold,
		Analyzer:            cfg.AnalyzerConfig(),
		IdleTimeout:         cfg.Posture.SubjectIdleTimeout,
	}, analyzer.NewSystemClock(), rois, logger)

	// 6. Consumer
	handler := NewResultHandler(tenantID, stateCache, eventsRepo, deviceRepo, publisher, cfg.Posture.Analyzer.Cooldown, logger)
	mqttConsumer := consumer.NewMQTTConsumer(cfg.Posture.Topics.Frames, cfg.MQTT.QoS, mqttClient, registry, handler, logger)

	return &PostureService{
		config:     cfg,
		db:         db,
		redis:      redisClient,
		mqtt:       mqttClient,
		logger:     logger,
		tenantID:   tenantID,
		rois:       rois,
		refresher:  refresher,
		registry:   registry,
		stateCache: stateCache,
		consumer:   mqttConsumer,
	}, nil
}

// Start 启动服务：关注区域刷新、空闲主体清理、MQTT 消费
func (s *PostureService) Start(ctx context.Context) error {
	s.logger.Info("Starting posture service",
		zap.String("tenant_id", s.tenantID),
		zap.String("camera_id", s.config.Posture.Camera.ID),
		zap.String("topic", s.config.Posture.Topics.Frames),
	)

	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.refresher.Run(ctx, s.config.Posture.ROIRefreshInterval)
	}()
	go func() {
		defer s.wg.Done()
		runSweeper(ctx, s.registry, s.stateCache, s.config.Posture.SubjectIdleTimeout, s.logger)
	}()

	if err := s.consumer.Start(ctx); err != nil {
		s.cancel()
		s.wg.Wait()
		return fmt.Errorf("failed to start MQTT consumer: %w", err)
	}
	return nil
}

// SubjectStateDeleter 主体状态删除（*cache.StateCache 实现）
type SubjectStateDeleter interface {
	DeleteSubjectState(ctx context.Context, cameraID, subjectID string) error
}

// runSweeper 定期丢弃空闲主体
func runSweeper(ctx context.Context, registry *tracker.Registry, states SubjectStateDeleter, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepIdle(ctx, registry, states, logger)
		}
	}
}

// sweepIdle 丢弃空闲主体并删除其缓存状态；删除失败只记录（状态有 TTL）
func sweepIdle(ctx context.Context, registry *tracker.Registry, states SubjectStateDeleter, logger *zap.Logger) {
	for _, key := range registry.Sweep() {
		if err := states.DeleteSubjectState(ctx, key.CameraID, key.SubjectID); err != nil {
			logger.Warn("Failed to delete subject state",
				zap.String("camera_id", key.CameraID),
				zap.String("subject_id", key.SubjectID),
				zap.Error(err),
			)
		}
	}
}

// Stop 停止服务
func (s *PostureService) Stop() error {
	s.logger.Info("Stopping posture service")

	s.consumer.Stop()
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	s.mqtt.Disconnect()

	if err := s.redis.Close(); err != nil {
		s.logger.Error("Failed to close redis", zap.Error(err))
	}
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database", zap.Error(err))
	}

	s.logger.Info("Posture service stopped")
	return nil
}
