// Package main - tray.go
//
// System tray control surface built on getlantern/systray.
//
// Menu Structure:
//   Arcane Fishing Bot
//   ├─ Status: phase | fish | fish/h | uptime (read-only, 1s refresh)
//   ├─ Start Fishing
//   ├─ Pause / Resume
//   ├─ Stop
//   ├─ Detection Mode
//   │  ├─ Basic (Manhattan threshold)
//   │  └─ Advanced (clustering)
//   ├─ Resolution Preset
//   │  ├─ 3440x1440
//   │  └─ 1920x1080
//   ├─ Failsafe (checkbox toggle)
//   ├─ Lifetime Stats (read-only)
//   └─ Quit (graceful shutdown)
//
// Configuration changes save immediately to config.json.
package main

import (
	"fmt"
	"time"

	"github.com/getlantern/systray"
)

// TrayApp manages the system tray menu and drives the bot from it.
type TrayApp struct {
	bot      *FishingBot
	config   *ConfigStore
	stats    *StatsStore
	webhook  *WebhookManager
	detector *Detector
	input    *InputController

	statusItem *systray.MenuItem
	startItem  *systray.MenuItem
	pauseItem  *systray.MenuItem
	stopItem   *systray.MenuItem

	basicItem    *systray.MenuItem
	advancedItem *systray.MenuItem

	presetItems map[string]*systray.MenuItem

	failsafeItem *systray.MenuItem
	statsItem    *systray.MenuItem
}

// NewTrayApp creates a new tray application
func NewTrayApp(bot *FishingBot, config *ConfigStore, stats *StatsStore,
	webhook *WebhookManager, detector *Detector, input *InputController) *TrayApp {
	return &TrayApp{
		bot:      bot,
		config:   config,
		stats:    stats,
		webhook:  webhook,
		detector: detector,
		input:    input,
	}
}

// Run starts the tray application. Blocks until Quit.
func (t *TrayApp) Run() {
	LogInfo("Starting system tray application")
	systray.Run(t.onReady, func() {
		LogInfo("System tray exiting, stopping bot")
		t.bot.Stop()
		t.webhook.Stop()
		if err := SaveConfig(t.config.Get()); err != nil {
			LogWarn("Config save on exit failed: %v", err)
		}
		LogInfo("System tray exit complete")
	})
}

// onReady is called when the tray is ready
func (t *TrayApp) onReady() {
	systray.SetTitle("Arcane Fishing Bot")
	systray.SetTooltip("Arcane Odyssey Fishing Bot")

	cfg := t.config.Get()

	t.statusItem = systray.AddMenuItem("Status: Ready", "Current bot status")
	t.statusItem.Disable()

	systray.AddSeparator()

	t.startItem = systray.AddMenuItem("Start Fishing", "Begin the fishing session")
	t.pauseItem = systray.AddMenuItem("Pause", "Pause or resume the session")
	t.stopItem = systray.AddMenuItem("Stop", "End the fishing session")
	t.pauseItem.Disable()
	t.stopItem.Disable()

	systray.AddSeparator()

	modeMenu := systray.AddMenuItem("Detection Mode", "Select color detection mode")
	t.basicItem = modeMenu.AddSubMenuItemCheckbox("Basic", "Fast threshold matching", !cfg.AdvancedDetection)
	t.advancedItem = modeMenu.AddSubMenuItemCheckbox("Advanced", "Clustering, rejects single-pixel noise", cfg.AdvancedDetection)

	presetMenu := systray.AddMenuItem("Resolution Preset", "Apply capture regions for a client resolution")
	t.presetItems = map[string]*systray.MenuItem{
		"3440x1440": presetMenu.AddSubMenuItemCheckbox("3440x1440", "", cfg.RegionPreset == "3440x1440"),
		"1920x1080": presetMenu.AddSubMenuItemCheckbox("1920x1080", "", cfg.RegionPreset == "1920x1080"),
	}

	t.failsafeItem = systray.AddMenuItemCheckbox("Failsafe", "Abort input when mouse is in top-left corner", cfg.FailsafeEnabled)

	systray.AddSeparator()

	t.statsItem = systray.AddMenuItem("Lifetime: "+t.stats.Get().Summary(), "Lifetime statistics")
	t.statsItem.Disable()

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit the application")

	go t.handleEvents(quitItem)
	go t.refreshStatus()

	LogInfo("System tray initialized")
}

// handleEvents listens for menu interactions.
func (t *TrayApp) handleEvents(quitItem *systray.MenuItem) {
	for {
		select {
		case <-t.startItem.ClickedCh:
			t.bot.Start()
			t.startItem.Disable()
			t.pauseItem.Enable()
			t.stopItem.Enable()

		case <-t.pauseItem.ClickedCh:
			if t.bot.Snapshot().Paused {
				t.bot.Resume()
				t.pauseItem.SetTitle("Pause")
			} else {
				t.bot.Pause()
				t.pauseItem.SetTitle("Resume")
			}

		case <-t.stopItem.ClickedCh:
			t.bot.Stop()
			t.startItem.Enable()
			t.pauseItem.Disable()
			t.pauseItem.SetTitle("Pause")
			t.stopItem.Disable()

		case <-t.basicItem.ClickedCh:
			t.setDetectionMode(false)

		case <-t.advancedItem.ClickedCh:
			t.setDetectionMode(true)

		case <-t.presetItems["3440x1440"].ClickedCh:
			t.applyPreset("3440x1440")

		case <-t.presetItems["1920x1080"].ClickedCh:
			t.applyPreset("1920x1080")

		case <-t.failsafeItem.ClickedCh:
			t.toggleFailsafe()

		case <-quitItem.ClickedCh:
			LogInfo("Quit requested from tray")
			systray.Quit()
			return
		}
	}
}

func (t *TrayApp) setDetectionMode(advanced bool) {
	t.config.Update(func(cfg *BotConfig) {
		cfg.AdvancedDetection = advanced
	})
	t.detector.SetAdvanced(advanced)
	if advanced {
		t.basicItem.Uncheck()
		t.advancedItem.Check()
	} else {
		t.basicItem.Check()
		t.advancedItem.Uncheck()
	}
	t.saveConfig()
	LogInfo("Detection mode set: advanced=%v", advanced)
}

func (t *TrayApp) applyPreset(preset string) {
	t.config.Update(func(cfg *BotConfig) {
		cfg.ApplyResolutionPreset(preset)
	})
	for name, item := range t.presetItems {
		if name == preset {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
	t.saveConfig()
	LogInfo("Resolution preset applied: %s", preset)
}

func (t *TrayApp) toggleFailsafe() {
	enabled := !t.config.Get().FailsafeEnabled
	t.config.Update(func(cfg *BotConfig) {
		cfg.FailsafeEnabled = enabled
	})
	t.input.SetFailsafe(enabled)
	if enabled {
		t.failsafeItem.Check()
	} else {
		t.failsafeItem.Uncheck()
	}
	t.saveConfig()
	LogInfo("Failsafe enabled=%v", enabled)
}

func (t *TrayApp) saveConfig() {
	if err := SaveConfig(t.config.Get()); err != nil {
		LogWarn("Config save failed: %v", err)
	}
}

// refreshStatus redraws the status and lifetime lines once a second.
func (t *TrayApp) refreshStatus() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for range ticker.C {
		s := t.bot.Snapshot()
		if s.Running {
			t.statusItem.SetTitle(fmt.Sprintf("Status: %s | %d fish | %.1f/h | %.0f%% uptime",
				s.Phase, s.FishCount, s.FishPerHour, s.UptimePercent))
		} else {
			t.statusItem.SetTitle("Status: " + s.Status)
			t.startItem.Enable()
		}
		t.statsItem.SetTitle("Lifetime: " + t.stats.Get().Summary())
	}
}
