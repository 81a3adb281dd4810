package classifier

import (
	"math"

	"wisefido-posture/internal/models"
)

// 测试用姿态构造器

func filledLandmarks(x, y, vis float64) models.Landmarks {
	lms := make(models.Landmarks, models.NumLandmarks)
	for i := range lms {
		lms[i] = models.Landmark{X: x, Y: y, Visibility: vis}
	}
	return lms
}

func setPair(lms models.Landmarks, left, right int, lx, rx, y float64) {
	lms[left].X, lms[left].Y = lx, y
	lms[right].X, lms[right].Y = rx, y
}

func setRange(lms models.Landmarks, from, to int, x, y float64) {
	for i := from; i <= to; i++ {
		lms[i].X, lms[i].Y = x, y
	}
}

func polar(x, y, angleDeg, length float64) (float64, float64) {
	rad := angleDeg * math.Pi / 180
	return x + length*math.Cos(rad), y + length*math.Sin(rad)
}

// standingPose 竖直身体柱
func standingPose() models.Landmarks {
	lms := filledLandmarks(0.5, 0.1, 0.9)
	lms[models.Nose].X, lms[models.Nose].Y = 0.5, 0.1
	setPair(lms, models.LeftShoulder, models.RightShoulder, 0.45, 0.55, 0.25)
	setRange(lms, models.LeftElbow, models.RightThumb, 0.5, 0.4)
	setPair(lms, models.LeftHip, models.RightHip, 0.47, 0.53, 0.5)
	setPair(lms, models.LeftKnee, models.RightKnee, 0.47, 0.53, 0.7)
	setPair(lms, models.LeftAnkle, models.RightAnkle, 0.47, 0.53, 0.9)
	setRange(lms, models.LeftHeel, models.RightFootIndex, 0.5, 0.92)
	return lms
}

// sittingPose 躯干竖直、大腿水平
func sittingPose() models.Landmarks {
	lms := standingPose()
	setPair(lms, models.LeftShoulder, models.RightShoulder, 0.45, 0.55, 0.2)
	setPair(lms, models.LeftHip, models.RightHip, 0.47, 0.53, 0.6)
	setPair(lms, models.LeftKnee, models.RightKnee, 0.47, 0.53, 0.65)
	setPair(lms, models.LeftAnkle, models.RightAnkle, 0.47, 0.53, 0.9)
	return lms
}

// horizontalLyingPose 沿 x 轴展开的躺姿
func horizontalLyingPose(noseZ, hipZ float64) models.Landmarks {
	lms := filledLandmarks(0.5, 0.5, 0.9)
	lms[models.Nose].X, lms[models.Nose].Y = 0.1, 0.5
	lms[models.LeftShoulder].X, lms[models.LeftShoulder].Y = 0.2, 0.48
	lms[models.RightShoulder].X, lms[models.RightShoulder].Y = 0.2, 0.52
	lms[models.LeftHip].X, lms[models.LeftHip].Y = 0.5, 0.48
	lms[models.RightHip].X, lms[models.RightHip].Y = 0.5, 0.52
	lms[models.LeftKnee].X, lms[models.LeftKnee].Y = 0.7, 0.48
	lms[models.RightKnee].X, lms[models.RightKnee].Y = 0.7, 0.52
	lms[models.LeftAnkle].X, lms[models.LeftAnkle].Y = 0.9, 0.48
	lms[models.RightAnkle].X, lms[models.RightAnkle].Y = 0.9, 0.52

	lms[models.Nose].Z = noseZ
	lms[models.LeftHip].Z = hipZ
	lms[models.RightHip].Z = hipZ
	return lms
}

// flatLyingPose 朝向镜头的躺姿：横向展开不足，但纵向平坦
func flatLyingPose() models.Landmarks {
	lms := filledLandmarks(0.5, 0.5, 0.9)
	lms[models.Nose].X, lms[models.Nose].Y = 0.5, 0.49
	setPair(lms, models.LeftShoulder, models.RightShoulder, 0.4, 0.6, 0.50)
	setRange(lms, models.LeftElbow, models.RightThumb, 0.5, 0.50)
	setPair(lms, models.LeftHip, models.RightHip, 0.42, 0.58, 0.51)
	setPair(lms, models.LeftKnee, models.RightKnee, 0.43, 0.57, 0.505)
	setPair(lms, models.LeftAnkle, models.RightAnkle, 0.44, 0.56, 0.52)
	lms[models.Nose].Z = 0.2
	return lms
}

// kneelingPose 膝角约 100°、躯干角约 140°
func kneelingPose() models.Landmarks {
	lms := filledLandmarks(0.5, 0.5, 0.9)

	hipX, hipY := 0.5, 0.6
	kneeX, kneeY := polar(hipX, hipY, -30, 0.1)
	shX, shY := polar(hipX, hipY, -170, 0.12)
	ankleX, ankleY := polar(kneeX, kneeY, 50, 0.1)

	for _, side := range [][4]int{
		{models.LeftShoulder, models.LeftHip, models.LeftKnee, models.LeftAnkle},
		{models.RightShoulder, models.RightHip, models.RightKnee, models.RightAnkle},
	} {
		lms[side[0]].X, lms[side[0]].Y = shX, shY
		lms[side[1]].X, lms[side[1]].Y = hipX, hipY
		lms[side[2]].X, lms[side[2]].Y = kneeX, kneeY
		lms[side[3]].X, lms[side[3]].Y = ankleX, ankleY
	}
	setRange(lms, models.LeftElbow, models.RightThumb, shX, shY)
	lms[models.Nose].X, lms[models.Nose].Y = shX, shY-0.05
	return lms
}

// withVisibility 覆盖指定索引的可见度
func withVisibility(lms models.Landmarks, vis float64, idxs ...int) models.Landmarks {
	for _, i := range idxs {
		lms[i].Visibility = vis
	}
	return lms
}
