// Package main - persistence.go
//
// JSON persistence for configuration and lifetime statistics. Files live
// next to the binary. A missing or corrupt file falls back to defaults so
// the bot always starts; the bad file is overwritten on the next save.
package main

import (
	"encoding/json"
	"fmt"
	"os"
)

const (
	configFile = "config.json"
	statsFile  = "stats.json"
)

// LoadConfig reads the saved configuration, returning defaults when the
// file is absent or unreadable.
func LoadConfig() BotConfig {
	data, err := os.ReadFile(configFile)
	if err != nil {
		if !os.IsNotExist(err) {
			LogWarn("Config: read failed, using defaults: %v", err)
		}
		return DefaultConfig()
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		LogWarn("Config: parse failed, using defaults: %v", err)
		return DefaultConfig()
	}

	// Saved regions may predate a preset change; keep them as-is but make
	// sure they are usable.
	if !cfg.RedRegion.Valid() || !cfg.YellowRegion.Valid() || !cfg.HungerRegion.Valid() {
		LogWarn("Config: invalid regions in saved file, reapplying preset")
		preset := cfg.RegionPreset
		if preset == "" {
			preset = "3440x1440"
		}
		cfg.ApplyResolutionPreset(preset)
	}
	return cfg
}

// SaveConfig writes the configuration with stable 2-space indentation.
func SaveConfig(cfg BotConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(configFile, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// LoadStats reads the saved lifetime statistics, zeroed when absent or
// unreadable.
func LoadStats() LifetimeStats {
	data, err := os.ReadFile(statsFile)
	if err != nil {
		if !os.IsNotExist(err) {
			LogWarn("Stats: read failed, starting fresh: %v", err)
		}
		return LifetimeStats{}
	}

	var stats LifetimeStats
	if err := json.Unmarshal(data, &stats); err != nil {
		LogWarn("Stats: parse failed, starting fresh: %v", err)
		return LifetimeStats{}
	}
	return stats
}

// SaveStats writes the lifetime statistics.
func SaveStats(stats LifetimeStats) error {
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	if err := os.WriteFile(statsFile, data, 0644); err != nil {
		return fmt.Errorf("write stats: %w", err)
	}
	return nil
}
