package consumer

import (
	"sync"
	"time"
)

// Metrics 帧处理统计
type Metrics struct {
	mu              sync.Mutex
	framesReceived  int64
	framesProcessed int64
	framesFailed    int64
	parseErrors     int64
	eventsEmitted   int64
	lastProcessedAt time.Time
}

// MetricsSnapshot 统计快照
type MetricsSnapshot struct {
	FramesReceived  int64     `json:"frames_received"`
	FramesProcessed int64     `json:"frames_processed"`
	FramesFailed    int64     `json:"frames_failed"`
	ParseErrors     int64     `json:"parse_errors"`
	EventsEmitted   int64     `json:"events_emitted"`
	LastProcessedAt time.Time `json:"last_processed_at"`
}

func (m *Metrics) received() {
	m.mu.Lock()
	m.framesReceived++
	m.mu.Unlock()
}

func (m *Metrics) parseError() {
	m.mu.Lock()
	m.parseErrors++
	m.framesFailed++
	m.mu.Unlock()
}

func (m *Metrics) failed() {
	m.mu.Lock()
	m.framesFailed++
	m.mu.Unlock()
}

func (m *Metrics) processed(events int, at time.Time) {
	m.mu.Lock()
	m.framesProcessed++
	m.eventsEmitted += int64(events)
	m.lastProcessedAt = at
	m.mu.Unlock()
}

// Snapshot 返回当前统计
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MetricsSnapshot{
		FramesReceived:  m.framesReceived,
		FramesProcessed: m.framesProcessed,
		FramesFailed:    m.framesFailed,
		ParseErrors:     m.parseErrors,
		EventsEmitted:   m.eventsEmitted,
		LastProcessedAt: m.lastProcessedAt,
	}
}
