package analyzer

import "time"

// Clock 分析器使用的两个时钟源
// Monotonic: 单调时钟，所有时长/阈值计算只用它
// Wall: 墙上时钟，仅用于事件时间戳
type Clock interface {
	Monotonic() time.Duration
	Wall() time.Time
}

// SystemClock 基于进程时钟的实现
type SystemClock struct {
	origin time.Time
}

// NewSystemClock 创建系统时钟
func NewSystemClock() *SystemClock {
	return &SystemClock{origin: time.Now()}
}

// Monotonic 自创建以来经过的单调时间
func (c *SystemClock) Monotonic() time.Duration {
	return time.Since(c.origin)
}

// Wall 当前墙上时间
func (c *SystemClock) Wall() time.Time {
	return time.Now()
}
