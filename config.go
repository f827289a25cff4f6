// Package main - config.go
//
// Bot configuration: defaults, resolution presets, the lure-dependent bite
// timeout formula, and the shared ConfigStore handle.
//
// The store hands out value copies so callers never hold the lock across a
// blocking operation. Components that need live settings keep a *ConfigStore
// and snapshot it at the top of each cycle.
package main

import (
	"fmt"
	"sync"
	"time"
)

// BotConfig holds all user-tunable settings.
type BotConfig struct {
	ColorTolerance        uint8   `json:"color_tolerance"`
	AutoclickIntervalMs   uint64  `json:"autoclick_interval_ms"`
	FishPerFeed           uint32  `json:"fish_per_feed"`
	WebhookURL            string  `json:"webhook_url"`
	ScreenshotIntervalMin uint32  `json:"screenshot_interval_mins"`
	ScreenshotEnabled     bool    `json:"screenshot_enabled"`
	RedRegion             Region  `json:"red_region"`
	YellowRegion          Region  `json:"yellow_region"`
	HungerRegion          Region  `json:"hunger_region"`
	RegionPreset          string  `json:"region_preset"`
	StartupDelayMs        uint64  `json:"startup_delay_ms"`
	DetectionIntervalMs   uint64  `json:"detection_interval_ms"`
	MaxFishingTimeoutMs   uint64  `json:"max_fishing_timeout_ms"`
	RodLureValue          float64 `json:"rod_lure_value"`
	AlwaysOnTop           bool    `json:"always_on_top"`
	AutoSaveEnabled       bool    `json:"auto_save_enabled"`
	FailsafeEnabled       bool    `json:"failsafe_enabled"`
	AdvancedDetection     bool    `json:"advanced_detection"`
}

// DefaultConfig returns the stock configuration for a 3440x1440 client.
func DefaultConfig() BotConfig {
	cfg := BotConfig{
		ColorTolerance:        10,
		AutoclickIntervalMs:   70,
		FishPerFeed:           5,
		WebhookURL:            "",
		ScreenshotIntervalMin: 60,
		ScreenshotEnabled:     true,
		StartupDelayMs:        3000,
		DetectionIntervalMs:   50,
		MaxFishingTimeoutMs:   25000,
		RodLureValue:          1.0,
		AlwaysOnTop:           false,
		AutoSaveEnabled:       true,
		FailsafeEnabled:       true,
		AdvancedDetection:     false,
	}
	cfg.ApplyResolutionPreset("3440x1440")
	return cfg
}

// CalculateMaxBiteTime converts the rod lure value into the wait-for-bite
// timeout. Low lure means a long patient wait, high lure a short aggressive
// one. The result is clamped to [10s, 180s].
func (c BotConfig) CalculateMaxBiteTime() time.Duration {
	lure := c.RodLureValue
	var multiplier float64
	if lure <= 1.0 {
		multiplier = 3.0 - 2.0*lure
	} else {
		multiplier = 1.25 - lure/3.0
	}

	seconds := ClampFloat(multiplier*60.0+5.0, 10.0, 180.0)
	return time.Duration(seconds * float64(time.Second))
}

// TimeoutDescription returns a short human-readable timeout summary.
func (c BotConfig) TimeoutDescription() string {
	timeout := c.CalculateMaxBiteTime()
	return fmt.Sprintf("Lure %.1f: ~%.0fs timeout", c.RodLureValue, timeout.Seconds())
}

// ApplyResolutionPreset sets the three capture regions for a known client
// resolution. Unknown presets leave the regions untouched.
func (c *BotConfig) ApplyResolutionPreset(preset string) {
	switch preset {
	case "3440x1440":
		c.RedRegion = NewRegion(1321, 99, 768, 546)
		c.YellowRegion = NewRegion(3097, 1234, 342, 205)
		c.HungerRegion = NewRegion(274, 1301, 43, 36)
	case "1920x1080":
		c.RedRegion = NewRegion(598, 29, 901, 477)
		c.YellowRegion = NewRegion(1649, 632, 270, 447)
		c.HungerRegion = NewRegion(212, 984, 21, 18)
	default:
		return
	}
	c.RegionPreset = preset
}

// ConfigStore is the shared configuration handle. Readers get value copies;
// the lock is never held across a blocking call.
type ConfigStore struct {
	mu  sync.RWMutex
	cfg BotConfig
}

// NewConfigStore creates a store seeded with the given configuration.
func NewConfigStore(cfg BotConfig) *ConfigStore {
	return &ConfigStore{cfg: cfg}
}

// Get returns a copy of the current configuration.
func (s *ConfigStore) Get() BotConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Set replaces the configuration.
func (s *ConfigStore) Set(cfg BotConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

// Update applies fn to the configuration under the write lock.
// fn must not block.
func (s *ConfigStore) Update(fn func(*BotConfig)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.cfg)
}
