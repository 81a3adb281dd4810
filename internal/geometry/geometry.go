package geometry

import (
	"math"
	"time"

	"wisefido-posture/internal/models"
)

// TimestampLayout 事件时间戳格式
const TimestampLayout = "2006-01-02 15:04:05"

// Point 二维点
type Point struct {
	X float64
	Y float64
}

// PointOf 取关键点的平面坐标
func PointOf(lm models.Landmark) Point {
	return Point{X: lm.X, Y: lm.Y}
}

// Angle 计算角 ABC（单位：度）
// 任一向量长度为 0 时返回 0
func Angle(a, b, c Point) float64 {
	baX, baY := a.X-b.X, a.Y-b.Y
	bcX, bcY := c.X-b.X, c.Y-b.Y

	dot := baX*bcX + baY*bcY
	magBA := math.Hypot(baX, baY)
	magBC := math.Hypot(bcX, bcY)
	if magBA*magBC == 0 {
		return 0.0
	}

	cos := math.Max(math.Min(dot/(magBA*magBC), 1.0), -1.0)
	return math.Acos(cos) * 180 / math.Pi
}

// LandmarkAngle 按关键点索引计算角度
func LandmarkAngle(lms models.Landmarks, a, b, c int) float64 {
	return Angle(PointOf(lms[a]), PointOf(lms[b]), PointOf(lms[c]))
}

// PixelDistance 两个关键点按帧尺寸反归一化后的像素距离
func PixelDistance(a, b models.Landmark, frameWidth, frameHeight int) float64 {
	dx := (a.X - b.X) * float64(frameWidth)
	dy := (a.Y - b.Y) * float64(frameHeight)
	return math.Hypot(dx, dy)
}

// FormatTimestamp 格式化墙上时间（本地时区）
func FormatTimestamp(t time.Time) string {
	return t.Local().Format(TimestampLayout)
}

// NormalizeDepth z 值归一化：先除以 bbox 高度，再减去双肩平均 z
// 返回新切片，不修改入参
func NormalizeDepth(lms models.Landmarks, bbox models.BoundingBox) models.Landmarks {
	if !lms.Complete() {
		return lms
	}

	height := float64(bbox.Height())
	if height == 0 {
		height = 1
	}

	out := make(models.Landmarks, len(lms))
	for i, lm := range lms {
		lm.Z = lm.Z / height
		out[i] = lm
	}

	ref := (out[models.LeftShoulder].Z + out[models.RightShoulder].Z) / 2
	for i := range out {
		out[i].Z -= ref
	}
	return out
}
