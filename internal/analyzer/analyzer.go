package analyzer

import (
	"fmt"
	"time"

	"wisefido-posture/internal/geometry"
	"wisefido-posture/internal/models"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// ROIChecker 关注区域协作方：bbox 中心是否落在任一关注区域内
type ROIChecker interface {
	ContainsBBox(bbox models.BoundingBox) bool
}

// Config 时间分析器配置
type Config struct {
	TiltWindow    time.Duration // 肩部 y 变动的测量窗口
	TiltDuration  time.Duration // 倾斜需持续的时长
	TiltThreshold float64       // 肩部 y 变动阈值（归一化坐标）

	MotionlessWindow   time.Duration // 位移测量窗口
	MotionlessDuration time.Duration // 无动作需持续的时长
	MotionThreshold    float64       // 平均帧间位移阈值（像素）

	FallTransitionTime  time.Duration // standing → lying 的最大允许间隔
	IrregularThreshold  int           // 缓冲区内标签切换次数阈值
	ProneDepthThreshold float64       // nose_z - hip_z 低于此值触发 prone 警告
	Cooldown            time.Duration // 同类事件最小间隔

	FrameWidth  int // 反归一化用帧宽
	FrameHeight int // 反归一化用帧高
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		TiltWindow:    10 * time.Second,
		TiltDuration:  10 * time.Second,
		TiltThreshold: 0.1,

		MotionlessWindow:   30 * time.Second,
		MotionlessDuration: 30 * time.Second,
		MotionThreshold:    5.0,

		FallTransitionTime:  2 * time.Second,
		IrregularThreshold:  3,
		ProneDepthThreshold: -0.3,
		Cooldown:            5 * time.Second,

		FrameWidth:  640,
		FrameHeight: 480,
	}
}

// Analyzer 单个主体的时间窗口姿态分析器
// 非并发安全：同一实例只能由一个调用方顺序使用
type Analyzer struct {
	config Config
	clock  Clock
	roi    ROIChecker
	logger *zap.Logger

	buffer    []models.AnalyzedFrame // 按单调时间有序，尾部追加、头部淘汰
	lastLabel models.PostureLabel

	lastEvent map[models.EventType]time.Duration

	tiltStart       *time.Duration
	motionlessStart *time.Duration
}

// NewAnalyzer 创建分析器；roi 可为 nil（此时始终视为在关注区域内）
func NewAnalyzer(cfg Config, clock Clock, roi ROIChecker, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		config:    cfg,
		clock:     clock,
		roi:       roi,
		logger:    logger,
		lastEvent: make(map[models.EventType]time.Duration),
	}
}

// horizon 缓冲区保留时长
func (a *Analyzer) horizon() time.Duration {
	return max(a.config.TiltWindow, a.config.MotionlessWindow)
}

// Update 记录一帧分类结果；landmarks 或 bbox 缺失时降级处理，不会失败
func (a *Analyzer) Update(label models.PostureLabel, lms models.Landmarks, bbox *models.BoundingBox) {
	now := a.clock.Monotonic()
	wall := a.clock.Wall()

	var shoulderY *float64
	if lms.Complete() {
		y := lms.ShoulderY()
		shoulderY = &y
	} else {
		lms = nil
	}

	inROI := true
	if a.roi != nil && bbox != nil {
		inROI = a.roi.ContainsBBox(*bbox)
	}

	cutoff := now - a.horizon()
	drop := 0
	for drop < len(a.buffer) && a.buffer[drop].Monotonic < cutoff {
		drop++
	}
	if drop > 0 {
		clear(a.buffer[:drop])
		a.buffer = a.buffer[drop:]
	}

	a.buffer = append(a.buffer, models.AnalyzedFrame{
		Monotonic: now,
		Wall:      wall,
		Label:     label,
		ShoulderY: shoulderY,
		Landmarks: lms,
		InROI:     inROI,
	})
	a.lastLabel = label
}

// State 当前状态：tilting > motionless > 最近标签 > unknown
func (a *Analyzer) State() models.PostureLabel {
	now := a.clock.Monotonic()

	if a.checkTilt(now) {
		return models.PostureTilting
	}
	if a.checkMotionless(now) {
		return models.PostureMotionless
	}
	if a.lastLabel == "" {
		return models.PostureUnknown
	}
	return a.lastLabel
}

// checkTilt 倾斜持续判定：窗口内肩部 y 变动超过阈值即为激活，激活中断则计时清零
func (a *Analyzer) checkTilt(now time.Duration) bool {
	var ys []float64
	for i := len(a.buffer) - 1; i >= 0; i-- {
		f := a.buffer[i]
		if now-f.Monotonic > a.config.TiltWindow {
			break
		}
		if f.ShoulderY != nil {
			ys = append(ys, *f.ShoulderY)
		}
	}

	if len(ys) == 0 || floats.Max(ys)-floats.Min(ys) <= a.config.TiltThreshold {
		a.tiltStart = nil
		return false
	}

	return latch(&a.tiltStart, now) >= a.config.TiltDuration
}

// checkMotionless 无动作持续判定：窗口内相邻帧（均有关键点）位移之和的平均值低于阈值
func (a *Analyzer) checkMotionless(now time.Duration) bool {
	var frames []models.AnalyzedFrame
	for _, f := range a.buffer {
		if now-f.Monotonic <= a.config.MotionlessWindow {
			frames = append(frames, f)
		}
	}
	if len(frames) < 2 {
		a.motionlessStart = nil
		return false
	}

	total, pairs := 0.0, 0
	for i := 1; i < len(frames); i++ {
		prev, curr := frames[i-1].Landmarks, frames[i].Landmarks
		if prev == nil || curr == nil {
			continue
		}
		n := min(len(prev), len(curr))
		for j := 0; j < n; j++ {
			total += geometry.PixelDistance(prev[j], curr[j], a.config.FrameWidth, a.config.FrameHeight)
		}
		pairs++
	}

	if pairs == 0 || total/float64(pairs) >= a.config.MotionThreshold {
		a.motionlessStart = nil
		return false
	}

	return latch(&a.motionlessStart, now) >= a.config.MotionlessDuration
}

// latch 首次激活时记录起点，返回已持续时长
func latch(start **time.Duration, now time.Duration) time.Duration {
	if *start == nil {
		t := now
		*start = &t
	}
	return now - **start
}

// HasTransition 最近两帧是否恰好为 from → to
func (a *Analyzer) HasTransition(from, to models.PostureLabel) bool {
	n := len(a.buffer)
	if n < 2 {
		return false
	}
	return a.buffer[n-2].Label == from && a.buffer[n-1].Label == to
}

// IsFallDetected 跌倒：最新帧为 lying 且在关注区域外，
// 向前找到最近的 standing 帧，间隔不超过 FallTransitionTime，且中间没有 sitting
func (a *Analyzer) IsFallDetected() bool {
	n := len(a.buffer)
	if n == 0 {
		return false
	}
	last := a.buffer[n-1]
	if !last.Label.IsLying() || last.InROI {
		return false
	}

	standIdx := -1
	for i := n - 2; i >= 0; i-- {
		if a.buffer[i].Label == models.PostureStanding {
			standIdx = i
			break
		}
	}
	if standIdx < 0 {
		return false
	}

	if last.Monotonic-a.buffer[standIdx].Monotonic > a.config.FallTransitionTime {
		return false
	}

	for _, f := range a.buffer[standIdx+1:] {
		if f.Label == models.PostureSitting {
			return false
		}
	}
	return true
}

// IsProneWarning 俯卧风险：最新帧为 lying 且面部深度明显低于髋部
func (a *Analyzer) IsProneWarning() bool {
	n := len(a.buffer)
	if n == 0 {
		return false
	}
	last := a.buffer[n-1]
	if !last.Label.IsLying() || last.Landmarks == nil {
		return false
	}
	return last.Landmarks.NoseHipDepth() < a.config.ProneDepthThreshold
}

// IsIrregularMovement 整个缓冲区内标签切换次数达到阈值
func (a *Analyzer) IsIrregularMovement() bool {
	changes := 0
	for i := 1; i < len(a.buffer); i++ {
		if a.buffer[i].Label != a.buffer[i-1].Label {
			changes++
		}
	}
	return changes >= a.config.IrregularThreshold
}

// Events 按固定顺序评估事件，经冷却过滤后返回本次实际发出的事件
func (a *Analyzer) Events() []models.Event {
	var events []models.Event

	if a.IsFallDetected() {
		events = a.appendEvent(events, models.EventFallDetected,
			"Fall detected: rapid standing to lying transition outside safe area")
	}
	if a.IsProneWarning() {
		events = a.appendEvent(events, models.EventProneWarning,
			"Prone posture detected: risk of breathing obstruction")
	}
	if a.checkMotionless(a.clock.Monotonic()) {
		events = a.appendEvent(events, models.EventDangerMotionless,
			fmt.Sprintf("Dangerous motionlessness: no movement for %.0f seconds or more", a.config.MotionlessDuration.Seconds()))
	}
	if a.IsIrregularMovement() {
		events = a.appendEvent(events, models.EventIrregularMovement,
			"Frequent irregular posture changes")
	}
	if a.checkTilt(a.clock.Monotonic()) {
		events = a.appendEvent(events, models.EventTiltSustained,
			fmt.Sprintf("Tilted posture sustained for %.0f seconds or more", a.config.TiltDuration.Seconds()))
	}

	return events
}

// appendEvent 同类事件在冷却时间内只发出一次（以单调时钟计）
func (a *Analyzer) appendEvent(events []models.Event, eventType models.EventType, message string) []models.Event {
	now := a.clock.Monotonic()
	if last, ok := a.lastEvent[eventType]; ok && now-last < a.config.Cooldown {
		a.logger.Debug("Event suppressed by cooldown",
			zap.String("event_type", string(eventType)),
			zap.Duration("since_last", now-last),
		)
		return events
	}

	a.lastEvent[eventType] = now
	return append(events, models.Event{
		Type:      eventType,
		Timestamp: geometry.FormatTimestamp(a.clock.Wall()),
		Message:   message,
	})
}

// Len 缓冲区帧数
func (a *Analyzer) Len() int {
	return len(a.buffer)
}
