// Package main - main.go
//
// Application entry point: initializes logging, loads configuration and
// lifetime statistics, wires the detector/OCR/input/webhook stack into the
// fishing bot, and hands control to the system tray. SIGINT/SIGTERM quit
// the tray, which stops the bot and flushes state on the way out.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/getlantern/systray"
)

func main() {
	if err := InitLogger(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer CloseLogger()

	LogInfo("Arcane Fishing Bot starting")

	config := NewConfigStore(LoadConfig())
	stats := NewStatsStore(LoadStats())

	cfg := config.Get()
	LogInfo("Config loaded: preset=%s tolerance=%d advanced=%v %s",
		cfg.RegionPreset, cfg.ColorTolerance, cfg.AdvancedDetection, cfg.TimeoutDescription())
	LogInfo("Lifetime stats: %s", stats.Get().Summary())

	detector := NewDetector(cfg.DetectionIntervalMs, cfg.ColorTolerance, cfg.AdvancedDetection)
	input := NewInputController(cfg.FailsafeEnabled)
	ocr := NewHungerOCR()

	webhook := NewWebhookManager(config)
	webhook.Start()

	bot := NewFishingBot(config, detector, input, ocr, webhook, stats)

	// Ctrl-C quits the tray; its exit callback stops the bot and saves.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	SafeGo("signal-handler", func() {
		sig := <-sigCh
		LogInfo("Received signal %v, shutting down", sig)
		systray.Quit()
	})

	tray := NewTrayApp(bot, config, stats, webhook, detector, input)
	tray.Run()

	LogInfo("Arcane Fishing Bot stopped")
}
