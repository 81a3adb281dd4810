package classifier

import (
	"math"

	"wisefido-posture/internal/geometry"
	"wisefido-posture/internal/models"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

const (
	// 视角判断：明显可见 / 明显遮挡
	sideVisibleMin  = 0.6
	sideOccludedMax = 0.3

	// 侧视角启发式
	sideSitHipKneeY = 0.15
	sideStandLegMin = 160
	sideStandTorso  = 150
)

var (
	leftSideIndexes  = []int{models.LeftShoulder, models.LeftHip, models.LeftKnee, models.LeftAnkle}
	rightSideIndexes = []int{models.RightShoulder, models.RightHip, models.RightKnee, models.RightAnkle}
)

// SlidingWindow 固定容量的标签 FIFO 窗口，读取时多数表决
type SlidingWindow struct {
	size   int
	labels []models.PostureLabel
}

// NewSlidingWindow 创建窗口；size < 1 时按 1 处理
func NewSlidingWindow(size int) *SlidingWindow {
	if size < 1 {
		size = 1
	}
	return &SlidingWindow{
		size:   size,
		labels: make([]models.PostureLabel, 0, size),
	}
}

// Add 追加标签，超出容量时淘汰最旧的
func (w *SlidingWindow) Add(label models.PostureLabel) {
	if len(w.labels) == w.size {
		copy(w.labels, w.labels[1:])
		w.labels = w.labels[:w.size-1]
	}
	w.labels = append(w.labels, label)
}

// Majority 窗口内出现次数最多的标签；并列时取最先出现者；空窗口返回 unknown
func (w *SlidingWindow) Majority() models.PostureLabel {
	if len(w.labels) == 0 {
		return models.PostureUnknown
	}

	counts := make(map[models.PostureLabel]int, len(w.labels))
	var order []models.PostureLabel
	for _, l := range w.labels {
		if _, seen := counts[l]; !seen {
			order = append(order, l)
		}
		counts[l]++
	}

	best := order[0]
	for _, l := range order[1:] {
		if counts[l] > counts[best] {
			best = l
		}
	}
	return best
}

// Len 当前窗口内标签数量
func (w *SlidingWindow) Len() int {
	return len(w.labels)
}

// Wrapper 视角感知的分类器包装：低可见度时切换到侧视角启发式，再经多数表决平滑
type Wrapper struct {
	primary             *Classifier
	window              *SlidingWindow
	visibilityThreshold float64
	logger              *zap.Logger
}

// NewWrapper 创建包装器
func NewWrapper(primary *Classifier, windowSize int, visibilityThreshold float64, logger *zap.Logger) *Wrapper {
	return &Wrapper{
		primary:             primary,
		window:              NewSlidingWindow(windowSize),
		visibilityThreshold: visibilityThreshold,
		logger:              logger,
	}
}

// AverageVisibility 全部关键点的平均可见度，空列表为 0
func AverageVisibility(lms models.Landmarks) float64 {
	if len(lms) == 0 {
		return 0.0
	}
	vis := make([]float64, len(lms))
	for i, lm := range lms {
		vis[i] = lm.Visibility
	}
	return stat.Mean(vis, nil)
}

// DetermineViewSide 根据左右肢体平均可见度判断视角
func DetermineViewSide(lms models.Landmarks) models.ViewSide {
	if !lms.Complete() {
		return models.ViewUncertain
	}

	left := sideVisibility(lms, leftSideIndexes)
	right := sideVisibility(lms, rightSideIndexes)

	switch {
	case left > sideVisibleMin && right < sideOccludedMax:
		return models.ViewLeftSide
	case right > sideVisibleMin && left < sideOccludedMax:
		return models.ViewRightSide
	case left > sideVisibleMin && right > sideVisibleMin:
		return models.ViewFront
	default:
		return models.ViewUncertain
	}
}

func sideVisibility(lms models.Landmarks, idxs []int) float64 {
	vis := make([]float64, len(idxs))
	for i, idx := range idxs {
		vis[i] = lms[idx].Visibility
	}
	return stat.Mean(vis, nil)
}

// SidePosture 侧视角简化启发式；计算失败一律返回 irregular
func (w *Wrapper) SidePosture(lms models.Landmarks, view models.ViewSide) models.PostureLabel {
	idxs := rightSideIndexes
	if view == models.ViewLeftSide {
		idxs = leftSideIndexes
	}
	if len(lms) <= idxs[len(idxs)-1] {
		w.logger.Debug("Side posture fallback: incomplete landmarks",
			zap.Int("landmark_count", len(lms)),
			zap.String("view", string(view)),
		)
		return models.PostureIrregular
	}

	sh := geometry.PointOf(lms[idxs[0]])
	hip := geometry.PointOf(lms[idxs[1]])
	knee := geometry.PointOf(lms[idxs[2]])
	ankle := geometry.PointOf(lms[idxs[3]])

	yDiff := hip.Y - knee.Y
	if yDiff > 0 && yDiff < sideSitHipKneeY {
		return models.PostureSitting
	}
	if knee.Y < hip.Y {
		return models.PostureKneeling
	}

	legAngle := geometry.Angle(hip, knee, ankle)
	torsoAngle := geometry.Angle(sh, hip, knee)
	if math.IsNaN(legAngle) || math.IsNaN(torsoAngle) {
		w.logger.Debug("Side posture fallback: undefined angle",
			zap.String("view", string(view)),
		)
		return models.PostureIrregular
	}
	if legAngle > sideStandLegMin && torsoAngle > sideStandTorso {
		return models.PostureStanding
	}
	return models.PostureIrregular
}

// Classify 单帧分类并返回平滑后的多数标签
func (w *Wrapper) Classify(lms models.Landmarks) models.PostureLabel {
	avgVis := AverageVisibility(lms)
	view := DetermineViewSide(lms)

	var label models.PostureLabel
	if avgVis < w.visibilityThreshold {
		switch view {
		case models.ViewLeftSide, models.ViewRightSide:
			label = w.SidePosture(lms, view)
		default:
			label = models.PostureIrregular
		}
	} else {
		label = w.primary.Classify(lms)
	}

	w.logger.Debug("Posture classified",
		zap.String("view", string(view)),
		zap.Float64("avg_visibility", avgVis),
		zap.String("raw_label", string(label)),
	)

	w.window.Add(label)
	return w.window.Majority()
}

// Current 当前窗口多数标签（不追加新标签）
func (w *Wrapper) Current() models.PostureLabel {
	return w.window.Majority()
}
