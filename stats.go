// Package main - stats.go
//
// Lifetime statistics that survive restarts: totals across all sessions
// plus the best single session. Persisted as JSON by persistence.go at
// catch, feed, and session-end time.
package main

import (
	"fmt"
	"sync"
	"time"
)

// LifetimeStats accumulates across every session on this machine.
type LifetimeStats struct {
	TotalFishCaught  uint64 `json:"total_fish_caught"`
	TotalRuntimeSecs uint64 `json:"total_runtime_secs"`
	TotalSessions    uint64 `json:"total_sessions"`
	TotalFeeds       uint64 `json:"total_feeds"`
	BestSessionFish  uint64 `json:"best_session_fish"`
}

// FishPerHour returns the lifetime catch rate.
func (s LifetimeStats) FishPerHour() float64 {
	if s.TotalRuntimeSecs == 0 {
		return 0
	}
	return float64(s.TotalFishCaught) / (float64(s.TotalRuntimeSecs) / 3600.0)
}

// Summary returns a one-line lifetime report.
func (s LifetimeStats) Summary() string {
	return fmt.Sprintf("%d fish over %d sessions (%s runtime, best session %d, %.1f fish/h)",
		s.TotalFishCaught, s.TotalSessions,
		FormatDuration(time.Duration(s.TotalRuntimeSecs)*time.Second),
		s.BestSessionFish, s.FishPerHour())
}

// StatsStore is the shared lifetime stats handle.
type StatsStore struct {
	mu    sync.Mutex
	stats LifetimeStats
}

// NewStatsStore creates a store seeded with loaded stats.
func NewStatsStore(stats LifetimeStats) *StatsStore {
	return &StatsStore{stats: stats}
}

// Get returns a copy of the current stats.
func (s *StatsStore) Get() LifetimeStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// RecordCatch adds one caught fish.
func (s *StatsStore) RecordCatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.TotalFishCaught++
}

// RecordFeed adds one feed action.
func (s *StatsStore) RecordFeed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.TotalFeeds++
}

// CompleteSession folds a finished session into the lifetime totals.
func (s *StatsStore) CompleteSession(sessionFish uint64, runtime time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.TotalSessions++
	s.stats.TotalRuntimeSecs += uint64(runtime.Seconds())
	if sessionFish > s.stats.BestSessionFish {
		s.stats.BestSessionFish = sessionFish
	}
}
