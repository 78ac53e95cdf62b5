// Package perf samples frame cadence, render durations and memory usage
// and condenses them into a 0-100 health score the renderer uses to adapt
// its workload.
package perf

import (
	"runtime"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultWindowSize bounds every sample history.
	DefaultWindowSize = 60

	// ReferenceRenderTime is the frame budget; average render times above
	// it cost score.
	ReferenceRenderTime = 16 * time.Millisecond

	// ReferenceFrameRate is the lowest comfortable frame rate; averages
	// below it cost score.
	ReferenceFrameRate = 30.0

	// memoryComfortPercent is the used-memory share above which score is
	// deducted.
	memoryComfortPercent = 50.0
)

// clampPenalty bounds a score deduction to [0, max].
func clampPenalty(penalty, max float64) float64 {
	if penalty < 0 {
		return 0
	}
	if penalty > max {
		return max
	}
	return penalty
}

// window is a bounded rolling sample buffer; the oldest sample drops once
// the cap is reached.
type window struct {
	values []float64
	cap    int
}

func newWindow(cap int) *window {
	return &window{values: make([]float64, 0, cap), cap: cap}
}

func (w *window) push(v float64) {
	if len(w.values) == w.cap {
		copy(w.values, w.values[1:])
		w.values = w.values[:len(w.values)-1]
	}
	w.values = append(w.values, v)
}

func (w *window) mean() float64 {
	if len(w.values) == 0 {
		return 0
	}
	return stat.Mean(w.values, nil)
}

// MemoryReader returns used and total bytes. The default reads the Go
// runtime heap.
type MemoryReader func() (used, total uint64)

func runtimeMemory() (uint64, uint64) {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.HeapAlloc, stats.Sys
}

// Monitor collects performance samples. All histories are bounded, so a
// monitor never grows regardless of uptime.
type Monitor struct {
	mu             sync.Mutex
	frameIntervals *window // milliseconds
	renderTimes    *window // milliseconds
	memoryPercent  *window
	lastFrame      time.Time
	readMemory     MemoryReader
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithMemoryReader replaces the runtime memory source, mainly for tests.
func WithMemoryReader(reader MemoryReader) Option {
	return func(m *Monitor) {
		m.readMemory = reader
	}
}

// WithWindowSize bounds the sample histories to size entries.
func WithWindowSize(size int) Option {
	return func(m *Monitor) {
		if size > 0 {
			m.frameIntervals = newWindow(size)
			m.renderTimes = newWindow(size)
			m.memoryPercent = newWindow(size)
		}
	}
}

// NewMonitor creates a monitor with bounded default windows.
func NewMonitor(options ...Option) *Monitor {
	monitor := &Monitor{
		frameIntervals: newWindow(DefaultWindowSize),
		renderTimes:    newWindow(DefaultWindowSize),
		memoryPercent:  newWindow(DefaultWindowSize),
		readMemory:     runtimeMemory,
	}
	for _, option := range options {
		option(monitor)
	}
	return monitor
}

// RecordFrame notes a frame boundary; the interval to the previous frame
// feeds the frame-rate average.
func (m *Monitor) RecordFrame(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.lastFrame.IsZero() {
		interval := now.Sub(m.lastFrame)
		if interval > 0 {
			m.frameIntervals.push(float64(interval) / float64(time.Millisecond))
		}
	}
	m.lastFrame = now
}

// RecordRenderDuration notes how long one full render pass took.
func (m *Monitor) RecordRenderDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d >= 0 {
		m.renderTimes.push(float64(d) / float64(time.Millisecond))
	}
}

// RecordMemory snapshots current memory usage.
func (m *Monitor) RecordMemory() {
	used, total := m.readMemory()
	m.mu.Lock()
	defer m.mu.Unlock()
	if total == 0 {
		return
	}
	m.memoryPercent.push(float64(used) / float64(total) * 100)
}

// Report is a point-in-time performance summary.
type Report struct {
	AvgFrameRate  float64
	AvgRenderTime time.Duration
	MemoryPercent float64
	Score         float64
	FrameSamples  []float64
	RenderSamples []float64
}

// GetPerformanceReport derives the averages and the score. The score
// starts at 100 and loses points proportionally for average render time
// over the 16ms budget, frame rate under 30fps, and memory use over the
// comfort threshold; each factor is penalized independently and the result
// is clamped to [0,100].
func (m *Monitor) GetPerformanceReport() Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	avgInterval := m.frameIntervals.mean()
	avgRender := m.renderTimes.mean()
	memPercent := m.memoryPercent.mean()

	frameRate := 0.0
	if avgInterval > 0 {
		frameRate = 1000 / avgInterval
	}

	score := 100.0
	if budget := float64(ReferenceRenderTime) / float64(time.Millisecond); avgRender > budget {
		score -= clampPenalty((avgRender-budget)/budget*20, 40)
	}
	if frameRate > 0 && frameRate < ReferenceFrameRate {
		score -= clampPenalty((ReferenceFrameRate-frameRate)/ReferenceFrameRate*40, 40)
	}
	if memPercent > memoryComfortPercent {
		score -= clampPenalty((memPercent-memoryComfortPercent)/memoryComfortPercent*20, 20)
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return Report{
		AvgFrameRate:  frameRate,
		AvgRenderTime: time.Duration(avgRender * float64(time.Millisecond)),
		MemoryPercent: memPercent,
		Score:         score,
		FrameSamples:  append([]float64(nil), m.frameIntervals.values...),
		RenderSamples: append([]float64(nil), m.renderTimes.values...),
	}
}
