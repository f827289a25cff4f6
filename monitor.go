// Package main - monitor.go
//
// Rolling performance sample window for the fishing cycle. Keeps the most
// recent 100 cycle outcomes and derives success rate and mean catch
// duration from whatever is currently in the window.
package main

import (
	"fmt"
	"sync"
	"time"
)

const monitorWindowSize = 100

// cycleSample is one completed fishing attempt.
type cycleSample struct {
	success  bool
	duration time.Duration
}

// PerformanceMonitor aggregates recent cycle outcomes.
type PerformanceMonitor struct {
	mu      sync.Mutex
	samples []cycleSample
}

// NewPerformanceMonitor creates an empty monitor.
func NewPerformanceMonitor() *PerformanceMonitor {
	return &PerformanceMonitor{
		samples: make([]cycleSample, 0, monitorWindowSize),
	}
}

// RecordCycle adds one cycle outcome, evicting the oldest sample once the
// window is full.
func (m *PerformanceMonitor) RecordCycle(success bool, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.samples) >= monitorWindowSize {
		m.samples = m.samples[1:]
	}
	m.samples = append(m.samples, cycleSample{success: success, duration: duration})
}

// SampleCount returns the number of samples currently in the window.
func (m *PerformanceMonitor) SampleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.samples)
}

// SuccessRate returns the window success percentage. An empty window is
// optimistically 100 so a fresh session does not start in the red.
func (m *PerformanceMonitor) SuccessRate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.samples) == 0 {
		return 100.0
	}
	successes := 0
	for _, s := range m.samples {
		if s.success {
			successes++
		}
	}
	return float64(successes) / float64(len(m.samples)) * 100.0
}

// AverageCatchTime returns the mean duration of successful cycles in the
// window, zero when there are none.
func (m *PerformanceMonitor) AverageCatchTime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total time.Duration
	successes := 0
	for _, s := range m.samples {
		if s.success {
			total += s.duration
			successes++
		}
	}
	if successes == 0 {
		return 0
	}
	return total / time.Duration(successes)
}

// Summary returns a one-line report for logs and webhook messages.
func (m *PerformanceMonitor) Summary() string {
	return fmt.Sprintf("success %.1f%%, avg catch %s",
		m.SuccessRate(), FormatDuration(m.AverageCatchTime()))
}
