package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"wisefido-posture/internal/analyzer"
	"wisefido-posture/internal/cache"
	"wisefido-posture/internal/classifier"
	"wisefido-posture/internal/models"
	"wisefido-posture/internal/roi"
	"wisefido-posture/internal/tracker"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stepClock struct {
	mono time.Duration
}

func (c *stepClock) Monotonic() time.Duration { return c.mono }
func (c *stepClock) Wall() time.Time          { return time.Date(2025, 1, 1, 8, 0, 0, 0, time.Local).Add(c.mono) }

type failingDeleter struct {
	calls int
}

func (f *failingDeleter) DeleteSubjectState(context.Context, string, string) error {
	f.calls++
	return errors.New("redis down")
}

func newSweepRegistry(clock analyzer.Clock) *tracker.Registry {
	return tracker.NewRegistry(tracker.Options{
		Thresholds:          classifier.DefaultThresholds(),
		WindowSize:          5,
		VisibilityThreshold: 0.5,
		Analyzer:            analyzer.DefaultConfig(),
		IdleTimeout:         10 * time.Second,
	}, clock, roi.NewManager(defaultRegion), zap.NewNop())
}

func TestSweepIdle_DeletesCachedState(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()
	states := cache.NewStateCache(client, "posture:subject:", 0, zap.NewNop())

	clock := &stepClock{}
	registry := newSweepRegistry(clock)

	for _, subject := range []string{"a", "b"} {
		registry.Process(models.PoseFrame{CameraID: "cam-1", SubjectID: subject})
		require.NoError(t, states.UpdateSubjectState(ctx, &models.SubjectState{CameraID: "cam-1", SubjectID: subject}))
		clock.mono += 6 * time.Second
	}

	// a 空闲 12 秒，b 空闲 6 秒
	sweepIdle(ctx, registry, states, zap.NewNop())

	_, err := states.GetSubjectState(ctx, "cam-1", "a")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
	_, err = states.GetSubjectState(ctx, "cam-1", "b")
	assert.NoError(t, err)
	assert.Equal(t, 1, registry.Len())
}

func TestSweepIdle_DeleteErrorDoesNotStop(t *testing.T) {
	clock := &stepClock{}
	registry := newSweepRegistry(clock)
	registry.Process(models.PoseFrame{CameraID: "cam-1", SubjectID: "a"})
	registry.Process(models.PoseFrame{CameraID: "cam-1", SubjectID: "b"})
	clock.mono += 11 * time.Second

	deleter := &failingDeleter{}
	sweepIdle(context.Background(), registry, deleter, zap.NewNop())

	assert.Equal(t, 2, deleter.calls)
	assert.Equal(t, 0, registry.Len())
}
