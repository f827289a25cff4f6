package main

import (
	"testing"
	"time"
)

func TestMonitorEmptyDefaults(t *testing.T) {
	m := NewPerformanceMonitor()
	if rate := m.SuccessRate(); rate != 100.0 {
		t.Errorf("empty SuccessRate = %.1f, want 100", rate)
	}
	if avg := m.AverageCatchTime(); avg != 0 {
		t.Errorf("empty AverageCatchTime = %v, want 0", avg)
	}
}

func TestMonitorSuccessRate(t *testing.T) {
	m := NewPerformanceMonitor()
	m.RecordCycle(true, 10*time.Second)
	m.RecordCycle(true, 20*time.Second)
	m.RecordCycle(false, 25*time.Second)
	m.RecordCycle(false, 25*time.Second)

	if rate := m.SuccessRate(); rate != 50.0 {
		t.Errorf("SuccessRate = %.1f, want 50", rate)
	}
	// Only successful cycles contribute to the mean.
	if avg := m.AverageCatchTime(); avg != 15*time.Second {
		t.Errorf("AverageCatchTime = %v, want 15s", avg)
	}
}

func TestMonitorEvictsPastWindow(t *testing.T) {
	m := NewPerformanceMonitor()
	// Fill the window with failures, then push successes until the
	// failures are fully evicted.
	for i := 0; i < monitorWindowSize; i++ {
		m.RecordCycle(false, time.Second)
	}
	if m.SampleCount() != monitorWindowSize {
		t.Fatalf("count = %d, want %d", m.SampleCount(), monitorWindowSize)
	}
	for i := 0; i < monitorWindowSize; i++ {
		m.RecordCycle(true, time.Second)
	}
	if m.SampleCount() != monitorWindowSize {
		t.Errorf("count = %d after overflow, want %d", m.SampleCount(), monitorWindowSize)
	}
	if rate := m.SuccessRate(); rate != 100.0 {
		t.Errorf("SuccessRate = %.1f after failures evicted, want 100", rate)
	}
}
