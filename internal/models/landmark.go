package models

// 姿态关键点索引（MediaPipe Pose 33 点约定，上游模型的外部契约，不可改动）
const (
	Nose           = 0
	LeftEyeInner   = 1
	LeftEye        = 2
	LeftEyeOuter   = 3
	RightEyeInner  = 4
	RightEye       = 5
	RightEyeOuter  = 6
	LeftEar        = 7
	RightEar       = 8
	MouthLeft      = 9
	MouthRight     = 10
	LeftShoulder   = 11
	RightShoulder  = 12
	LeftElbow      = 13
	RightElbow     = 14
	LeftWrist      = 15
	RightWrist     = 16
	LeftPinky      = 17
	RightPinky     = 18
	LeftIndex      = 19
	RightIndex     = 20
	LeftThumb      = 21
	RightThumb     = 22
	LeftHip        = 23
	RightHip       = 24
	LeftKnee       = 25
	RightKnee      = 26
	LeftAnkle      = 27
	RightAnkle     = 28
	LeftHeel       = 29
	RightHeel      = 30
	LeftFootIndex  = 31
	RightFootIndex = 32
	NumLandmarks   = 33
)

// Landmark 单个关键点
// X, Y: 相对 ROI 的归一化坐标 [0,1]
// Z: 深度（先按 ROI 高度归一化，再减去双肩平均 z）
// Visibility: 可见度置信度 [0,1]
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Landmarks 一帧的关键点列表；nil 表示本帧缺失
type Landmarks []Landmark

// Complete 是否包含全部 33 个关键点
func (l Landmarks) Complete() bool {
	return len(l) == NumLandmarks
}

// ShoulderY 双肩平均 y
func (l Landmarks) ShoulderY() float64 {
	return (l[LeftShoulder].Y + l[RightShoulder].Y) / 2
}

// NoseHipDepth 鼻子 z 减去双髋平均 z（越负表示面部越靠前/向下）
func (l Landmarks) NoseHipDepth() float64 {
	hipZ := (l[LeftHip].Z + l[RightHip].Z) / 2
	return l[Nose].Z - hipZ
}

// BoundingBox 单帧中一个人的像素矩形 (x1, y1, x2, y2)
type BoundingBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Center 整数中心点（向下取整）
func (b BoundingBox) Center() (int, int) {
	return floorDiv(b.X1+b.X2, 2), floorDiv(b.Y1+b.Y2, 2)
}

// Height 像素高度
func (b BoundingBox) Height() int {
	return b.Y2 - b.Y1
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
