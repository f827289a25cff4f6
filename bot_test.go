package main

import (
	"errors"
	"image"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeDetector struct {
	mu          sync.Mutex
	redFound    bool
	yellowFound bool
	detectErr   error
}

func (f *fakeDetector) DetectColor(region Region, target Color) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.detectErr != nil {
		return false, f.detectErr
	}
	if target == RedExclamation {
		return f.redFound, nil
	}
	return f.yellowFound, nil
}

func (f *fakeDetector) GetScreenshot(Region) (*image.RGBA, error) {
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

func (f *fakeDetector) TakeFullScreenshot() (*image.RGBA, error) {
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

type fakeInput struct {
	clicks atomic.Int64
	resets atomic.Int64
	eats   atomic.Int64
}

func (f *fakeInput) Click() error    { f.clicks.Add(1); return nil }
func (f *fakeInput) ResetRod() error { f.resets.Add(1); return nil }
func (f *fakeInput) EatFood() error  { f.eats.Add(1); return nil }

type fakeOCR struct {
	value int
	ok    bool
}

func (f *fakeOCR) ReadHunger(*image.RGBA) (int, bool) { return f.value, f.ok }

type fakeNotifier struct {
	mu    sync.Mutex
	texts []string
	shots int
}

func (f *fakeNotifier) SendText(content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, content)
}

func (f *fakeNotifier) SendScreenshot(string, []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shots++
}

func (f *fakeNotifier) CheckPeriodicScreenshot(func() ([]byte, error)) {}

func (f *fakeNotifier) contains(substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, text := range f.texts {
		if strings.Contains(text, substr) {
			return true
		}
	}
	return false
}

func fastTestConfig() *ConfigStore {
	cfg := DefaultConfig()
	cfg.StartupDelayMs = 1
	cfg.DetectionIntervalMs = 1
	cfg.AutoclickIntervalMs = 1
	cfg.MaxFishingTimeoutMs = 30
	cfg.FishPerFeed = 2
	cfg.AutoSaveEnabled = false
	cfg.ScreenshotEnabled = false
	return NewConfigStore(cfg)
}

func newTestBot(detector *fakeDetector, input *fakeInput, ocr *fakeOCR, notifier *fakeNotifier) *FishingBot {
	bot := NewFishingBot(fastTestConfig(), detector, input, ocr, notifier, NewStatsStore(LifetimeStats{}))
	bot.backoffBase = time.Millisecond
	bot.settleDelay = time.Millisecond
	return bot
}

func TestBotCatchesAndFeeds(t *testing.T) {
	detector := &fakeDetector{redFound: true, yellowFound: true}
	input := &fakeInput{}
	notifier := &fakeNotifier{}
	bot := newTestBot(detector, input, &fakeOCR{value: 50, ok: true}, notifier)

	bot.Start()
	waitFor(t, 5*time.Second, func() bool {
		return bot.Snapshot().FishCount >= 10
	})
	bot.Stop()

	s := bot.Snapshot()
	if s.Running || s.Phase != PhaseIdle {
		t.Errorf("after Stop: running=%v phase=%v, want stopped Idle", s.Running, s.Phase)
	}
	if eats := input.eats.Load(); eats < 4 {
		t.Errorf("eats = %d, want a feed every 2 fish over 10 catches", eats)
	}
	if !notifier.contains("Fed at 50% hunger") {
		t.Error("missing feed notification with OCR value")
	}
	if !notifier.contains("Milestone: 10 fish") {
		t.Error("missing 10-fish milestone notification")
	}
	if !notifier.contains("Session ended") {
		t.Error("missing session summary notification")
	}
	if bot.Monitor().SampleCount() == 0 {
		t.Error("no cycles recorded in the performance monitor")
	}
}

func TestBotFeedsDefensivelyOnOCRFailure(t *testing.T) {
	detector := &fakeDetector{redFound: true, yellowFound: true}
	input := &fakeInput{}
	notifier := &fakeNotifier{}
	bot := newTestBot(detector, input, &fakeOCR{value: HungerUnknown, ok: false}, notifier)

	bot.Start()
	waitFor(t, 5*time.Second, func() bool {
		return input.eats.Load() >= 1
	})
	bot.Stop()

	if !notifier.contains("Fed defensively") {
		t.Error("missing defensive-feed notification")
	}
	if bot.Snapshot().LastHunger != HungerUnknown {
		t.Error("failed OCR overwrote the last hunger reading")
	}
	// OCR misses never count toward the error ceiling.
	if bot.Snapshot().ErrorsCount != 0 {
		t.Errorf("errors = %d, want 0", bot.Snapshot().ErrorsCount)
	}
}

func TestBotStopsAfterConsecutiveErrors(t *testing.T) {
	detector := &fakeDetector{detectErr: errors.New("capture broke")}
	notifier := &fakeNotifier{}
	bot := newTestBot(detector, &fakeInput{}, &fakeOCR{}, notifier)

	bot.Start()
	waitFor(t, 5*time.Second, func() bool {
		return !bot.Snapshot().Running
	})

	s := bot.Snapshot()
	if s.Phase != PhaseIdle {
		t.Errorf("phase = %v after error shutdown, want Idle", s.Phase)
	}
	if s.ErrorsCount != maxConsecutiveErrors {
		t.Errorf("errors = %d, want %d", s.ErrorsCount, maxConsecutiveErrors)
	}
	if !notifier.contains("Too many consecutive errors") {
		t.Error("missing error-shutdown notification")
	}
}

func TestWaitForBiteTimesOut(t *testing.T) {
	bot := newTestBot(&fakeDetector{}, &fakeInput{}, &fakeOCR{}, &fakeNotifier{})
	bot.stop = make(chan struct{})

	phase, err := bot.waitForBite(10*time.Millisecond, time.Millisecond)
	if err != nil {
		t.Fatalf("waitForBite: %v", err)
	}
	if phase != PhaseCasting {
		t.Errorf("phase after timeout = %v, want Casting (recast)", phase)
	}
}

func TestWaitForBiteDetectsIndicator(t *testing.T) {
	bot := newTestBot(&fakeDetector{redFound: true}, &fakeInput{}, &fakeOCR{}, &fakeNotifier{})
	bot.stop = make(chan struct{})

	phase, err := bot.waitForBite(time.Second, time.Millisecond)
	if err != nil {
		t.Fatalf("waitForBite: %v", err)
	}
	if phase != PhaseReeling {
		t.Errorf("phase on bite = %v, want Reeling", phase)
	}
}

func TestBotStopIsPrompt(t *testing.T) {
	// No bite ever: the worker sits in the long bite wait.
	bot := newTestBot(&fakeDetector{}, &fakeInput{}, &fakeOCR{}, &fakeNotifier{})

	bot.Start()
	waitFor(t, 2*time.Second, func() bool {
		return bot.Snapshot().Phase == PhaseWaitingForBite
	})

	start := time.Now()
	bot.Stop()
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Stop took %v, want prompt shutdown", elapsed)
	}
	if bot.Snapshot().Running {
		t.Error("still running after Stop")
	}
}

func TestBotPauseAndResume(t *testing.T) {
	detector := &fakeDetector{}
	bot := newTestBot(detector, &fakeInput{}, &fakeOCR{}, &fakeNotifier{})

	bot.Start()
	defer bot.Stop()
	waitFor(t, 2*time.Second, func() bool {
		return bot.Snapshot().Phase == PhaseWaitingForBite
	})

	bot.Pause()
	if s := bot.Snapshot(); !s.Paused || s.Status != "Paused" {
		t.Errorf("after Pause: paused=%v status=%q", s.Paused, s.Status)
	}

	// A bite appearing while paused is not acted on.
	detector.mu.Lock()
	detector.redFound = true
	detector.mu.Unlock()
	time.Sleep(20 * time.Millisecond)
	if bot.Snapshot().FishCount != 0 {
		t.Error("caught fish while paused")
	}

	bot.Resume()
	if bot.Snapshot().Paused {
		t.Error("still paused after Resume")
	}
}

func TestSecondStartIsNoOp(t *testing.T) {
	bot := newTestBot(&fakeDetector{}, &fakeInput{}, &fakeOCR{}, &fakeNotifier{})
	bot.Start()
	defer bot.Stop()
	waitFor(t, 2*time.Second, func() bool {
		return bot.Snapshot().Phase == PhaseWaitingForBite
	})

	bot.Start() // must not reset the session
	if bot.Snapshot().Phase != PhaseWaitingForBite {
		t.Error("second Start reset the session state")
	}
}
