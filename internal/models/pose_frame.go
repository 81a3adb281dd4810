package models

// PoseFrameMessage 上游姿态源通过 MQTT 推送的单人单帧数据
// 主题格式: pose/{camera_id}/frames
type PoseFrameMessage struct {
	SubjectID       string       `json:"subject_id"`
	BBox            *[4]int      `json:"bbox,omitempty"`      // x1, y1, x2, y2
	Landmarks       [][4]float64 `json:"landmarks"`           // 33 x (x, y, z, visibility)，null 表示缺失
	DepthNormalized bool         `json:"depth_normalized"`    // false 时由消费者做 z 归一化
	Timestamp       int64        `json:"timestamp,omitempty"` // 上游 Unix 时间戳（仅记录，不参与时长计算）
}

// PoseFrame 解析后的帧
type PoseFrame struct {
	CameraID  string
	SubjectID string
	BBox      *BoundingBox
	Landmarks Landmarks // 长度不为 33 时视为缺失（nil）
}

// ToPoseFrame 转换为内部帧结构
func (m *PoseFrameMessage) ToPoseFrame(cameraID string) PoseFrame {
	frame := PoseFrame{
		CameraID:  cameraID,
		SubjectID: m.SubjectID,
	}

	if m.BBox != nil {
		frame.BBox = &BoundingBox{X1: m.BBox[0], Y1: m.BBox[1], X2: m.BBox[2], Y2: m.BBox[3]}
	}

	if len(m.Landmarks) == NumLandmarks {
		lms := make(Landmarks, NumLandmarks)
		for i, v := range m.Landmarks {
			lms[i] = Landmark{X: v[0], Y: v[1], Z: v[2], Visibility: v[3]}
		}
		frame.Landmarks = lms
	}

	return frame
}

// SubjectState 主体当前状态（写入 Redis 缓存）
type SubjectState struct {
	SubjectID string       `json:"subject_id"`
	CameraID  string       `json:"camera_id"`
	Label     PostureLabel `json:"label"` // 平滑后的分类标签
	State     PostureLabel `json:"state"` // 分析器状态（tilting / motionless / 标签 / unknown）
	UpdatedAt int64        `json:"updated_at"`
}
