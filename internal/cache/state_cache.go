package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wisefido-posture/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = errors.New("cache miss")

// StateCache 主体姿态状态缓存
// 键格式: {prefix}{camera_id}:{subject_id}
type StateCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewStateCache 创建状态缓存
func NewStateCache(client *redis.Client, keyPrefix string, ttl time.Duration, logger *zap.Logger) *StateCache {
	return &StateCache{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		logger:    logger,
	}
}

func (c *StateCache) key(cameraID, subjectID string) string {
	return fmt.Sprintf("%s%s:%s", c.keyPrefix, cameraID, subjectID)
}

// UpdateSubjectState 写入主体状态（带 TTL）
func (c *StateCache) UpdateSubjectState(ctx context.Context, state *models.SubjectState) error {
	jsonData, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal subject state: %w", err)
	}

	key := c.key(state.CameraID, state.SubjectID)
	if err := c.client.Set(ctx, key, jsonData, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set subject state: %w", err)
	}
	return nil
}

// GetSubjectState 读取主体状态；不存在时返回 ErrCacheMiss
func (c *StateCache) GetSubjectState(ctx context.Context, cameraID, subjectID string) (*models.SubjectState, error) {
	val, err := c.client.Get(ctx, c.key(cameraID, subjectID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get subject state: %w", err)
	}

	var state models.SubjectState
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal subject state: %w", err)
	}
	return &state, nil
}

// DeleteSubjectState 删除主体状态（主体被丢弃时）
func (c *StateCache) DeleteSubjectState(ctx context.Context, cameraID, subjectID string) error {
	if err := c.client.Del(ctx, c.key(cameraID, subjectID)).Err(); err != nil {
		return fmt.Errorf("failed to delete subject state: %w", err)
	}
	return nil
}
