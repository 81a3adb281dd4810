package tracker

import (
	"sync"
	"time"

	"wisefido-posture/internal/analyzer"
	"wisefido-posture/internal/classifier"
	"wisefido-posture/internal/models"

	"go.uber.org/zap"
)

// Options 每个主体流水线的构造参数
type Options struct {
	Thresholds          classifier.Thresholds
	WindowSize          int
	VisibilityThreshold float64
	Analyzer            analyzer.Config
	IdleTimeout         time.Duration
}

// Result 单帧处理结果
type Result struct {
	CameraID  string
	SubjectID string
	Label     models.PostureLabel // 平滑后的分类标签
	State     models.PostureLabel // 分析器状态
	Events    []models.Event
}

// SubjectKey 主体标识（摄像头 + 主体 ID）
type SubjectKey struct {
	CameraID  string
	SubjectID string
}

// pipeline 单个主体的 wrapper + analyzer，同一时刻只允许一个调用方
type pipeline struct {
	mu       sync.Mutex
	subject  SubjectKey
	wrapper  *classifier.Wrapper
	analyzer *analyzer.Analyzer
	lastSeen time.Duration
}

// Registry 主体 → 流水线，首帧时创建，空闲超时后丢弃
type Registry struct {
	opts       Options
	classifier *classifier.Classifier
	clock      analyzer.Clock
	roi        analyzer.ROIChecker
	logger     *zap.Logger

	mu        sync.Mutex
	pipelines map[string]*pipeline
}

// NewRegistry 创建注册表；roi 在所有主体之间共享
func NewRegistry(opts Options, clock analyzer.Clock, roi analyzer.ROIChecker, logger *zap.Logger) *Registry {
	return &Registry{
		opts:       opts,
		classifier: classifier.NewClassifier(opts.Thresholds),
		clock:      clock,
		roi:        roi,
		logger:     logger,
		pipelines:  make(map[string]*pipeline),
	}
}

func pipelineKey(cameraID, subjectID string) string {
	return cameraID + "/" + subjectID
}

func (r *Registry) get(cameraID, subjectID string) *pipeline {
	key := pipelineKey(cameraID, subjectID)

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pipelines[key]
	if !ok {
		p = &pipeline{
			subject:  SubjectKey{CameraID: cameraID, SubjectID: subjectID},
			wrapper:  classifier.NewWrapper(r.classifier, r.opts.WindowSize, r.opts.VisibilityThreshold, r.logger),
			analyzer: analyzer.NewAnalyzer(r.opts.Analyzer, r.clock, r.roi, r.logger.With(zap.String("subject_id", subjectID))),
		}
		r.pipelines[key] = p
		r.logger.Info("Subject pipeline created",
			zap.String("camera_id", cameraID),
			zap.String("subject_id", subjectID),
		)
	}
	p.lastSeen = r.clock.Monotonic()
	return p
}

// Process 处理一帧：分类 → 更新分析器 → 评估事件
// landmarks 缺失时不喂入投票窗口，沿用当前多数标签；
// 尚无任何有效分类时该帧不进入分析器（unknown 不是姿态标签）
func (r *Registry) Process(frame models.PoseFrame) Result {
	p := r.get(frame.CameraID, frame.SubjectID)

	p.mu.Lock()
	defer p.mu.Unlock()

	var label models.PostureLabel
	if frame.Landmarks.Complete() {
		label = p.wrapper.Classify(frame.Landmarks)
	} else {
		label = p.wrapper.Current()
	}

	if label == models.PostureUnknown {
		return Result{
			CameraID:  frame.CameraID,
			SubjectID: frame.SubjectID,
			Label:     label,
			State:     p.analyzer.State(),
		}
	}

	p.analyzer.Update(label, frame.Landmarks, frame.BBox)

	return Result{
		CameraID:  frame.CameraID,
		SubjectID: frame.SubjectID,
		Label:     label,
		State:     p.analyzer.State(),
		Events:    p.analyzer.Events(),
	}
}

// Sweep 丢弃空闲超过 IdleTimeout 的流水线，返回被丢弃的主体
func (r *Registry) Sweep() []SubjectKey {
	now := r.clock.Monotonic()

	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []SubjectKey
	for key, p := range r.pipelines {
		if now-p.lastSeen > r.opts.IdleTimeout {
			delete(r.pipelines, key)
			removed = append(removed, p.subject)
		}
	}
	if len(removed) > 0 {
		r.logger.Info("Idle subject pipelines removed",
			zap.Int("removed", len(removed)),
			zap.Int("remaining", len(r.pipelines)),
		)
	}
	return removed
}

// Len 当前跟踪的主体数
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pipelines)
}
