package tracker

import (
	"testing"
	"time"

	"wisefido-posture/internal/analyzer"
	"wisefido-posture/internal/classifier"
	"wisefido-posture/internal/models"
	"wisefido-posture/internal/roi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type manualClock struct {
	mono time.Duration
	wall time.Time
}

func (c *manualClock) Monotonic() time.Duration { return c.mono }
func (c *manualClock) Wall() time.Time          { return c.wall }

func (c *manualClock) Advance(d time.Duration) {
	c.mono += d
	c.wall = c.wall.Add(d)
}

func testOptions(windowSize int) Options {
	return Options{
		Thresholds:          classifier.DefaultThresholds(),
		WindowSize:          windowSize,
		VisibilityThreshold: 0.5,
		Analyzer:            analyzer.DefaultConfig(),
		IdleTimeout:         10 * time.Second,
	}
}

func newTestRegistry(windowSize int) (*Registry, *manualClock) {
	clock := &manualClock{wall: time.Date(2025, 1, 1, 8, 0, 0, 0, time.Local)}
	// 关注区域在画面右上角，测试 bbox 落在区域外
	rois := roi.NewManager(roi.Region{X1: 500, Y1: 0, X2: 640, Y2: 100})
	return NewRegistry(testOptions(windowSize), clock, rois, zap.NewNop()), clock
}

func standingBody() models.Landmarks {
	lms := make(models.Landmarks, models.NumLandmarks)
	for i := range lms {
		lms[i] = models.Landmark{X: 0.5, Y: 0.4, Visibility: 0.9}
	}
	set := func(idx int, x, y float64) { lms[idx].X, lms[idx].Y = x, y }
	set(models.Nose, 0.5, 0.1)
	set(models.LeftShoulder, 0.45, 0.25)
	set(models.RightShoulder, 0.55, 0.25)
	set(models.LeftHip, 0.47, 0.5)
	set(models.RightHip, 0.53, 0.5)
	set(models.LeftKnee, 0.47, 0.7)
	set(models.RightKnee, 0.53, 0.7)
	set(models.LeftAnkle, 0.47, 0.9)
	set(models.RightAnkle, 0.53, 0.9)
	for i := models.LeftHeel; i <= models.RightFootIndex; i++ {
		set(i, 0.5, 0.92)
	}
	return lms
}

func lyingBody() models.Landmarks {
	lms := make(models.Landmarks, models.NumLandmarks)
	for i := range lms {
		lms[i] = models.Landmark{X: 0.5, Y: 0.5, Visibility: 0.9}
	}
	set := func(idx int, x, y float64) { lms[idx].X, lms[idx].Y = x, y }
	set(models.Nose, 0.1, 0.5)
	set(models.LeftShoulder, 0.2, 0.48)
	set(models.RightShoulder, 0.2, 0.52)
	set(models.LeftHip, 0.5, 0.48)
	set(models.RightHip, 0.5, 0.52)
	set(models.LeftKnee, 0.7, 0.48)
	set(models.RightKnee, 0.7, 0.52)
	set(models.LeftAnkle, 0.9, 0.48)
	set(models.RightAnkle, 0.9, 0.52)
	return lms
}

func frame(subject string, lms models.Landmarks) models.PoseFrame {
	return models.PoseFrame{
		CameraID:  "cam-1",
		SubjectID: subject,
		BBox:      &models.BoundingBox{X1: 100, Y1: 300, X2: 300, Y2: 450},
		Landmarks: lms,
	}
}

func TestProcess_CreatesPipelinePerSubject(t *testing.T) {
	r, _ := newTestRegistry(5)

	res := r.Process(frame("a", standingBody()))
	assert.Equal(t, "a", res.SubjectID)
	assert.Equal(t, "cam-1", res.CameraID)
	assert.Equal(t, models.PostureStanding, res.Label)
	assert.Equal(t, models.PostureStanding, res.State)

	r.Process(frame("b", lyingBody()))
	r.Process(frame("a", standingBody()))
	assert.Equal(t, 2, r.Len())
}

func TestProcess_FallDetected(t *testing.T) {
	r, clock := newTestRegistry(1)

	r.Process(frame("a", standingBody()))
	clock.Advance(time.Second)
	res := r.Process(frame("a", lyingBody()))

	assert.Equal(t, models.PostureLyingSupine, res.Label)
	require.NotEmpty(t, res.Events)
	assert.Equal(t, models.EventFallDetected, res.Events[0].Type)
	assert.Equal(t, "2025-01-01 08:00:01", res.Events[0].Timestamp)
}

func TestProcess_SubjectsAreIndependent(t *testing.T) {
	r, clock := newTestRegistry(1)

	r.Process(frame("a", standingBody()))
	clock.Advance(time.Second)
	// b 之前没有站立帧，不算跌倒
	res := r.Process(frame("b", lyingBody()))
	assert.Empty(t, res.Events)
}

func TestProcess_AbsentLandmarksReuseCurrentLabel(t *testing.T) {
	r, clock := newTestRegistry(5)

	r.Process(frame("a", standingBody()))
	clock.Advance(100 * time.Millisecond)
	res := r.Process(frame("a", nil))
	assert.Equal(t, models.PostureStanding, res.Label)

	r2, _ := newTestRegistry(5)
	res = r2.Process(frame("x", nil))
	assert.Equal(t, models.PostureUnknown, res.Label)
	assert.Equal(t, models.PostureUnknown, res.State)
}

func TestProcess_SmoothingAcrossFrames(t *testing.T) {
	r, _ := newTestRegistry(5)

	r.Process(frame("a", standingBody()))
	r.Process(frame("a", standingBody()))
	res := r.Process(frame("a", lyingBody()))
	assert.Equal(t, models.PostureStanding, res.Label)
}

func TestSweep_RemovesIdleSubjects(t *testing.T) {
	r, clock := newTestRegistry(5)

	r.Process(frame("a", standingBody()))
	clock.Advance(5 * time.Second)
	r.Process(frame("b", standingBody()))

	clock.Advance(6 * time.Second)
	assert.Equal(t, []SubjectKey{{CameraID: "cam-1", SubjectID: "a"}}, r.Sweep())
	assert.Equal(t, 1, r.Len())

	clock.Advance(5 * time.Second)
	assert.Equal(t, []SubjectKey{{CameraID: "cam-1", SubjectID: "b"}}, r.Sweep())
	assert.Equal(t, 0, r.Len())

	assert.Empty(t, r.Sweep())
}

func TestProcess_LeadingAbsentFrameIsNotATransition(t *testing.T) {
	r, clock := newTestRegistry(1)

	res := r.Process(frame("a", nil))
	assert.Equal(t, models.PostureUnknown, res.Label)
	assert.Empty(t, res.Events)

	bodies := []models.Landmarks{standingBody(), lyingBody(), standingBody()}
	for _, lms := range bodies {
		clock.Advance(5 * time.Second)
		res = r.Process(frame("a", lms))
		for _, e := range res.Events {
			assert.NotEqual(t, models.EventIrregularMovement, e.Type)
		}
	}
	assert.Equal(t, models.PostureStanding, res.Label)
}
