package models

import "time"

// PostureLabel 姿态标签
type PostureLabel string

const (
	PostureSitting     PostureLabel = "sitting"
	PostureLyingProne  PostureLabel = "lying_prone"
	PostureLyingSupine PostureLabel = "lying_supine"
	PostureKneeling    PostureLabel = "kneeling"
	PostureStanding    PostureLabel = "standing"
	PostureIrregular   PostureLabel = "irregular"

	// 分析器默认值
	PostureUnknown PostureLabel = "unknown"

	// 分析器派生状态（持续成立时覆盖原始标签）
	PostureTilting    PostureLabel = "tilting"
	PostureMotionless PostureLabel = "motionless"
)

// IsLying 是否是 lying 系列标签
func (p PostureLabel) IsLying() bool {
	return p == PostureLyingProne || p == PostureLyingSupine
}

// ViewSide 视角判断结果
type ViewSide string

const (
	ViewLeftSide  ViewSide = "left_side_view"
	ViewRightSide ViewSide = "right_side_view"
	ViewFront     ViewSide = "front_view"
	ViewUncertain ViewSide = "uncertain"
)

// AnalyzedFrame 分析器缓冲区中的一帧快照（创建后不可修改）
type AnalyzedFrame struct {
	Monotonic time.Duration // 单调时钟读数，用于时长计算
	Wall      time.Time     // 墙上时钟，仅用于事件时间戳
	Label     PostureLabel
	ShoulderY *float64  // 双肩平均 y，无关键点时为 nil
	Landmarks Landmarks // 无关键点时为 nil
	InROI     bool      // bbox 中心是否在关注区域内
}
