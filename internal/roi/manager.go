package roi

import (
	"sync"

	"wisefido-posture/internal/models"
)

// Region 关注区域（床、椅子等），像素坐标 (x1, y1, x2, y2)
type Region struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Contains 点是否在区域内（含边界）
func (r Region) Contains(x, y int) bool {
	return r.X1 <= x && x <= r.X2 && r.Y1 <= y && y <= r.Y2
}

// Manager 关注区域集合，供多个主体的分析器共享（并发安全）
type Manager struct {
	mu      sync.RWMutex
	regions []Region
}

// NewManager 创建管理器，可传入初始区域
func NewManager(initial ...Region) *Manager {
	m := &Manager{}
	m.Set(initial)
	return m
}

// Regions 当前区域列表（副本）
func (m *Manager) Regions() []Region {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Region, len(m.regions))
	copy(out, m.regions)
	return out
}

// Update 手动设置单个区域
func (m *Manager) Update(r Region) {
	m.Set([]Region{r})
}

// Set 替换全部区域；空列表表示当前没有关注区域
func (m *Manager) Set(regions []Region) {
	cp := make([]Region, len(regions))
	copy(cp, regions)

	m.mu.Lock()
	m.regions = cp
	m.mu.Unlock()
}

// ContainsBBox bbox 中心是否落在任一区域内；没有区域时返回 false
func (m *Manager) ContainsBBox(bbox models.BoundingBox) bool {
	cx, cy := bbox.Center()

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.regions {
		if r.Contains(cx, cy) {
			return true
		}
	}
	return false
}
