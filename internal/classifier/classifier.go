package classifier

import (
	"math"

	"wisefido-posture/internal/geometry"
	"wisefido-posture/internal/models"

	"gonum.org/v1/gonum/floats"
)

// Thresholds 规则分类器的可调阈值
type Thresholds struct {
	// Sitting
	SitRatioMin    float64 // (髋-肩) / (膝-髋) 纵向比例下限
	SitHipKneeNear float64 // 髋膝近似同高

	// Lying
	LyingXRange     float64 // 横向展开阈值
	LyingYRange     float64 // 纵向平坦度阈值
	LyingNoseAnkleY float64 // 鼻-踝纵向差上限
	LyingMinVisible int     // 平坦度路径最少可见点数
	LyingVisibility float64 // 可见点判定
	ZProneThreshold float64 // nose_z - hip_z 低于此值为 prone

	// Kneeling
	KneelLegMin     float64
	KneelLegMax     float64
	KneelTorsoMin   float64
	KneelTorsoMax   float64
	KneelAnkleKneeY float64

	// Standing
	StandLegMin       float64
	StandTorsoMin     float64
	StandHipKneeSlack float64
}

// DefaultThresholds 默认阈值
func DefaultThresholds() Thresholds {
	return Thresholds{
		SitRatioMin:    1.6,
		SitHipKneeNear: 0.05,

		LyingXRange:     0.30,
		LyingYRange:     0.05,
		LyingNoseAnkleY: 0.15,
		LyingMinVisible: 5,
		LyingVisibility: 0.5,
		ZProneThreshold: 0.0,

		KneelLegMin:     80,
		KneelLegMax:     130,
		KneelTorsoMin:   120,
		KneelTorsoMax:   160,
		KneelAnkleKneeY: 0.1,

		StandLegMin:       155,
		StandTorsoMin:     150,
		StandHipKneeSlack: 0.02,
	}
}

// lyingXIndexes 横向展开检查使用的躯干/四肢关键点
var lyingXIndexes = []int{
	models.LeftShoulder, models.RightShoulder,
	models.LeftHip, models.RightHip,
	models.LeftKnee, models.RightKnee,
	models.LeftAnkle, models.RightAnkle,
}

type angles struct {
	leg   float64 // hip-knee-ankle 左右平均
	torso float64 // shoulder-hip-knee 左右平均
}

type heights struct {
	nose     float64
	shoulder float64
	hip      float64
	knee     float64
	ankle    float64
}

// Classifier 基于几何规则的单帧姿态分类器（无状态）
type Classifier struct {
	th Thresholds
}

// NewClassifier 创建分类器
func NewClassifier(th Thresholds) *Classifier {
	return &Classifier{th: th}
}

// Classify 按 sitting → lying → kneeling → standing 顺序判定，首个命中即返回
func (c *Classifier) Classify(lms models.Landmarks) models.PostureLabel {
	if !lms.Complete() {
		return models.PostureIrregular
	}

	a := legTorsoAngles(lms)
	h := bodyHeights(lms)

	if c.isSitting(h) {
		return models.PostureSitting
	}
	if lying, ok := c.lying(lms); ok {
		return lying
	}
	if c.isKneeling(a, h) {
		return models.PostureKneeling
	}
	if c.isStanding(a, h) {
		return models.PostureStanding
	}
	return models.PostureIrregular
}

func legTorsoAngles(lms models.Landmarks) angles {
	return angles{
		leg: (geometry.LandmarkAngle(lms, models.LeftHip, models.LeftKnee, models.LeftAnkle) +
			geometry.LandmarkAngle(lms, models.RightHip, models.RightKnee, models.RightAnkle)) / 2,
		torso: (geometry.LandmarkAngle(lms, models.LeftShoulder, models.LeftHip, models.LeftKnee) +
			geometry.LandmarkAngle(lms, models.RightShoulder, models.RightHip, models.RightKnee)) / 2,
	}
}

func bodyHeights(lms models.Landmarks) heights {
	return heights{
		nose:     lms[models.Nose].Y,
		shoulder: (lms[models.LeftShoulder].Y + lms[models.RightShoulder].Y) / 2,
		hip:      (lms[models.LeftHip].Y + lms[models.RightHip].Y) / 2,
		knee:     (lms[models.LeftKnee].Y + lms[models.RightKnee].Y) / 2,
		ankle:    (lms[models.LeftAnkle].Y + lms[models.RightAnkle].Y) / 2,
	}
}

// isSitting 躯干竖直、大腿水平的纵向比例检查，与膝角无关
func (c *Classifier) isSitting(h heights) bool {
	dyShoulderHip := h.hip - h.shoulder
	dyHipKnee := h.knee - h.hip
	ratio := dyShoulderHip / (dyHipKnee + 1e-6)
	if ratio < c.th.SitRatioMin {
		return false
	}

	ordered := h.shoulder < h.hip && h.hip < h.knee
	return ordered || math.Abs(h.hip-h.knee) < c.th.SitHipKneeNear
}

// lying 横向展开路径优先，其次是纵向平坦度路径；均不满足时 ok=false
func (c *Classifier) lying(lms models.Landmarks) (models.PostureLabel, bool) {
	var xs []float64
	for _, i := range lyingXIndexes {
		if lms[i].Visibility > c.th.LyingVisibility {
			xs = append(xs, lms[i].X)
		}
	}
	if spread(xs) > c.th.LyingXRange {
		return c.proneOrSupine(lms), true
	}

	var ys []float64
	for _, lm := range lms[models.LeftShoulder : models.RightAnkle+1] {
		if lm.Visibility > c.th.LyingVisibility {
			ys = append(ys, lm.Y)
		}
	}
	if len(ys) < c.th.LyingMinVisible || spread(ys) > c.th.LyingYRange {
		return "", false
	}

	ankleY := (lms[models.LeftAnkle].Y + lms[models.RightAnkle].Y) / 2
	if math.Abs(lms[models.Nose].Y-ankleY) > c.th.LyingNoseAnkleY {
		return "", false
	}

	return c.proneOrSupine(lms), true
}

func (c *Classifier) proneOrSupine(lms models.Landmarks) models.PostureLabel {
	if lms.NoseHipDepth() < c.th.ZProneThreshold {
		return models.PostureLyingProne
	}
	return models.PostureLyingSupine
}

func (c *Classifier) isKneeling(a angles, h heights) bool {
	if a.leg < c.th.KneelLegMin || a.leg > c.th.KneelLegMax {
		return false
	}
	if a.torso < c.th.KneelTorsoMin || a.torso > c.th.KneelTorsoMax {
		return false
	}
	// y 轴向下增长：髋必须在膝之下
	if h.hip <= h.knee {
		return false
	}
	return math.Abs(h.ankle-h.knee) <= c.th.KneelAnkleKneeY
}

func (c *Classifier) isStanding(a angles, h heights) bool {
	if a.leg < c.th.StandLegMin || a.torso < c.th.StandTorsoMin {
		return false
	}
	if h.hip >= h.knee+c.th.StandHipKneeSlack {
		return false
	}
	return h.nose < h.hip
}

// spread max-min，空切片为 0
func spread(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	return floats.Max(vals) - floats.Min(vals)
}
