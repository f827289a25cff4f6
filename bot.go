// Package main - bot.go
//
// The fishing state machine and its session worker.
//
// Phases: Idle -> Casting -> WaitingForBite -> Reeling -> Caught -> Feeding
// -> Casting, with Error as the recovery phase for capture and input
// failures. Exactly one phase is current; each handler returns the next
// phase. The worker goroutine owns all state transitions; the public
// surface (Start/Pause/Resume/Stop/Snapshot) only flips flags and copies
// state out under the lock.
//
// Error policy: capture and input errors back off linearly (1s per
// consecutive error, capped at 5s) and five in a row end the session. A
// bite-wait timeout is a normal recast, a reel timeout is a failed cycle,
// and an OCR miss feeds defensively; none of these touch the error ceiling.
package main

import (
	"fmt"
	"image"
	"sync"
	"time"
)

// maxConsecutiveErrors ends the session when reached.
const maxConsecutiveErrors = 5

// backoffCapMultiple caps the linear error backoff at this many base units.
const backoffCapMultiple = 5

// errorTimePenalty is the downtime charged per error when deriving the
// session uptime percentage.
const errorTimePenalty = 2 * time.Second

// fishMilestoneInterval is the catch count between milestone notifications.
const fishMilestoneInterval = 10

// castSettleDelay lets the cast animation land before bite polling starts.
const castSettleDelay = 500 * time.Millisecond

type colorDetector interface {
	DetectColor(region Region, target Color) (bool, error)
	GetScreenshot(region Region) (*image.RGBA, error)
	TakeFullScreenshot() (*image.RGBA, error)
}

type inputDriver interface {
	Click() error
	ResetRod() error
	EatFood() error
}

type hungerReader interface {
	ReadHunger(img *image.RGBA) (int, bool)
}

type notifier interface {
	SendText(content string)
	SendScreenshot(caption string, jpegData []byte)
	CheckPeriodicScreenshot(capture func() ([]byte, error))
}

// FishingBot runs the cast/bite/reel cycle.
type FishingBot struct {
	mu    sync.Mutex
	state BotState

	config   *ConfigStore
	detector colorDetector
	input    inputDriver
	ocr      hungerReader
	webhook  notifier
	stats    *StatsStore
	monitor  *PerformanceMonitor

	// backoffBase and settleDelay scale recovery and pacing sleeps;
	// shrunk in tests.
	backoffBase time.Duration
	settleDelay time.Duration

	consecutiveErrors int
	castStartedAt     time.Time

	stopping bool
	stop     chan struct{}
	done     chan struct{}
}

// NewFishingBot wires the bot to its collaborators.
func NewFishingBot(config *ConfigStore, detector colorDetector, input inputDriver,
	ocr hungerReader, webhook notifier, stats *StatsStore) *FishingBot {
	return &FishingBot{
		state:       NewBotState(),
		config:      config,
		detector:    detector,
		input:       input,
		ocr:         ocr,
		webhook:     webhook,
		stats:       stats,
		monitor:     NewPerformanceMonitor(),
		backoffBase: time.Second,
		settleDelay: castSettleDelay,
	}
}

// Start launches the session worker. A second Start while running is a no-op.
func (b *FishingBot) Start() {
	b.mu.Lock()
	if b.state.Running {
		b.mu.Unlock()
		return
	}
	b.state = NewBotState()
	b.state.Running = true
	b.state.StartTime = time.Now()
	b.state.Status = "Starting..."
	b.consecutiveErrors = 0
	b.stopping = false
	b.stop = make(chan struct{})
	b.done = make(chan struct{})
	b.mu.Unlock()

	LogInfo("Session starting")
	SafeGo("fishing-worker", b.run)
}

// Stop requests session shutdown and waits for the worker to finish its
// finalize pass.
func (b *FishingBot) Stop() {
	b.mu.Lock()
	if !b.state.Running {
		b.mu.Unlock()
		return
	}
	done := b.done
	if !b.stopping {
		b.stopping = true
		close(b.stop)
	}
	b.mu.Unlock()
	<-done
}

// Pause suspends the cycle without ending the session.
func (b *FishingBot) Pause() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.state.Running || b.state.Paused {
		return
	}
	b.state.Paused = true
	b.state.Status = "Paused"
	LogInfo("Session paused")
}

// Resume continues a paused session.
func (b *FishingBot) Resume() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.state.Running || !b.state.Paused {
		return
	}
	b.state.Paused = false
	b.state.Status = "Resumed"
	LogInfo("Session resumed")
}

// Snapshot returns a copy of the current state with derived rates filled in.
func (b *FishingBot) Snapshot() BotState {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.state
	if !s.StartTime.IsZero() && s.Running {
		elapsed := time.Since(s.StartTime)
		if elapsed > 0 {
			downtime := time.Duration(s.ErrorsCount) * errorTimePenalty
			if downtime > elapsed {
				downtime = elapsed
			}
			s.UptimePercent = float64(elapsed-downtime) / float64(elapsed) * 100.0
			s.FishPerHour = float64(s.FishCount) / elapsed.Hours()
		}
	}
	return s
}

// Monitor exposes the rolling cycle statistics.
func (b *FishingBot) Monitor() *PerformanceMonitor {
	return b.monitor
}

// run is the session worker. It owns every phase transition and performs
// the single finalize pass on exit, whatever caused the loop to end.
func (b *FishingBot) run() {
	defer b.finalize()

	cfg := b.config.Get()
	b.setStatus("Waiting for game focus...")
	if b.sleep(time.Duration(cfg.StartupDelayMs) * time.Millisecond) {
		return
	}

	b.sendStartupScreenshot()

	if err := b.input.ResetRod(); err != nil {
		LogError("Startup rod reset failed: %v", err)
		b.recordError(err)
	}

	b.setPhase(PhaseCasting, "Casting...")

	for {
		select {
		case <-b.stop:
			return
		default:
		}

		if b.isPaused() {
			if b.sleep(250 * time.Millisecond) {
				return
			}
			continue
		}

		b.webhook.CheckPeriodicScreenshot(b.captureJPEG)

		phase := b.currentPhase()
		next, err := b.handlePhase(phase)
		if err != nil {
			if !b.recordError(err) {
				return
			}
			// Retry the phase that failed. Recasting here would reset
			// the consecutive count on the cast click and mask a
			// persistent capture failure.
			b.setPhase(phase, "Retrying after error...")
			continue
		}
		b.clearErrors()
		b.setPhase(next, "")
	}
}

// handlePhase dispatches one phase handler and returns the next phase.
func (b *FishingBot) handlePhase(phase FishingPhase) (FishingPhase, error) {
	switch phase {
	case PhaseCasting:
		return b.handleCasting()
	case PhaseWaitingForBite:
		return b.handleWaitingForBite()
	case PhaseReeling:
		return b.handleReeling()
	case PhaseCaught:
		return b.handleCaught()
	case PhaseFeeding:
		return b.handleFeeding()
	default:
		// Idle and Error never reach the dispatcher; recover by casting.
		return PhaseCasting, nil
	}
}

// handleCasting throws the line with a single click.
func (b *FishingBot) handleCasting() (FishingPhase, error) {
	b.setStatus("Casting...")
	if err := b.input.Click(); err != nil {
		return PhaseError, err
	}
	b.mu.Lock()
	b.castStartedAt = time.Now()
	b.mu.Unlock()
	LogDebug("Cast thrown")
	b.sleep(b.settleDelay)
	return PhaseWaitingForBite, nil
}

// handleWaitingForBite polls the bite region for the red indicator until
// the lure-derived timeout. A timeout recasts; it is not an error.
func (b *FishingBot) handleWaitingForBite() (FishingPhase, error) {
	cfg := b.config.Get()
	return b.waitForBite(cfg.CalculateMaxBiteTime(),
		time.Duration(cfg.DetectionIntervalMs)*time.Millisecond)
}

func (b *FishingBot) waitForBite(timeout, interval time.Duration) (FishingPhase, error) {
	cfg := b.config.Get()
	b.setStatus(fmt.Sprintf("Waiting for bite (up to %s)...", FormatDuration(timeout)))

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if b.stopped() || b.isPaused() {
			return PhaseWaitingForBite, nil
		}

		found, err := b.detector.DetectColor(cfg.RedRegion, RedExclamation)
		if err != nil {
			return PhaseError, err
		}
		if found {
			LogInfo("Bite detected")
			return PhaseReeling, nil
		}
		if b.sleep(interval) {
			return PhaseWaitingForBite, nil
		}
	}

	LogInfo("No bite within %s, recasting", FormatDuration(timeout))
	return PhaseCasting, nil
}

// handleReeling clicks rapidly while watching the catch region for the
// yellow banner. A timeout is a failed cycle, not an error.
func (b *FishingBot) handleReeling() (FishingPhase, error) {
	cfg := b.config.Get()
	clickInterval := time.Duration(cfg.AutoclickIntervalMs) * time.Millisecond
	timeout := time.Duration(cfg.MaxFishingTimeoutMs) * time.Millisecond
	b.setStatus("Reeling in...")

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if b.stopped() || b.isPaused() {
			return PhaseReeling, nil
		}

		if err := b.input.Click(); err != nil {
			return PhaseError, err
		}

		found, err := b.detector.DetectColor(cfg.YellowRegion, YellowCaught)
		if err != nil {
			return PhaseError, err
		}
		if found {
			return PhaseCaught, nil
		}
		if b.sleep(clickInterval) {
			return PhaseReeling, nil
		}
	}

	LogWarn("Reel timed out after %s, recasting", FormatDuration(timeout))
	b.monitor.RecordCycle(false, timeout)
	b.mu.Lock()
	b.state.CurrentStreak = 0
	b.mu.Unlock()
	return PhaseCasting, nil
}

// handleCaught double-checks the catch banner one detection interval later
// to reject a single-frame flash, then books the fish.
func (b *FishingBot) handleCaught() (FishingPhase, error) {
	cfg := b.config.Get()
	if b.sleep(time.Duration(cfg.DetectionIntervalMs) * time.Millisecond) {
		return PhaseCaught, nil
	}

	confirmed, err := b.detector.DetectColor(cfg.YellowRegion, YellowCaught)
	if err != nil {
		return PhaseError, err
	}
	if !confirmed {
		LogDebug("Catch banner vanished on confirmation, still reeling")
		return PhaseReeling, nil
	}

	b.mu.Lock()
	b.state.FishCount++
	b.state.CurrentStreak++
	if b.state.CurrentStreak > b.state.BestStreak {
		b.state.BestStreak = b.state.CurrentStreak
	}
	fishCount := b.state.FishCount
	castDuration := time.Since(b.castStartedAt)
	b.mu.Unlock()

	LogInfo("Fish #%d caught in %s", fishCount, FormatDuration(castDuration))
	b.monitor.RecordCycle(true, castDuration)
	b.stats.RecordCatch()
	b.saveStats()

	if fishCount%fishMilestoneInterval == 0 {
		b.webhook.SendText(fmt.Sprintf("Milestone: %d fish caught this session (%s)",
			fishCount, b.monitor.Summary()))
	}

	if err := b.input.ResetRod(); err != nil {
		return PhaseError, err
	}

	if cfg.FishPerFeed > 0 && fishCount%uint64(cfg.FishPerFeed) == 0 {
		return PhaseFeeding, nil
	}
	return PhaseCasting, nil
}

// handleFeeding reads the hunger label and eats. An unreadable label still
// feeds, defensively, since starving loses more fish than a wasted meal.
func (b *FishingBot) handleFeeding() (FishingPhase, error) {
	cfg := b.config.Get()
	b.setStatus("Feeding...")

	hunger := HungerUnknown
	hungerKnown := false
	img, err := b.detector.GetScreenshot(cfg.HungerRegion)
	if err != nil {
		LogWarn("Hunger capture failed, feeding defensively: %v", err)
	} else {
		hunger, hungerKnown = b.ocr.ReadHunger(img)
		if !hungerKnown {
			LogWarn("Hunger OCR failed, feeding defensively")
		}
	}

	if err := b.input.EatFood(); err != nil {
		return PhaseError, err
	}

	b.stats.RecordFeed()
	b.saveStats()

	b.mu.Lock()
	if hungerKnown {
		b.state.LastHunger = hunger
	}
	b.mu.Unlock()

	if hungerKnown {
		b.webhook.SendText(fmt.Sprintf("Fed at %d%% hunger", hunger))
	} else {
		b.webhook.SendText("Fed defensively (hunger unreadable)")
	}
	return PhaseCasting, nil
}

// recordError books one consecutive capture/input error and sleeps the
// linear backoff. Returns false when the error ceiling is reached and the
// session must end.
func (b *FishingBot) recordError(err error) bool {
	b.mu.Lock()
	b.consecutiveErrors++
	b.state.ErrorsCount++
	b.state.CurrentStreak = 0
	n := b.consecutiveErrors
	b.state.Phase = PhaseError
	b.state.Status = fmt.Sprintf("Error (%d/%d): %v", n, maxConsecutiveErrors, err)
	b.mu.Unlock()

	LogError("Cycle error %d/%d: %v", n, maxConsecutiveErrors, err)
	b.webhook.SendText(fmt.Sprintf("Error %d/%d: %v", n, maxConsecutiveErrors, err))

	if n >= maxConsecutiveErrors {
		LogError("Error ceiling reached, ending session")
		b.webhook.SendText("Too many consecutive errors, bot stopped")
		return false
	}

	backoff := time.Duration(n) * b.backoffBase
	if limit := backoffCapMultiple * b.backoffBase; backoff > limit {
		backoff = limit
	}
	b.sleep(backoff)
	return true
}

func (b *FishingBot) clearErrors() {
	b.mu.Lock()
	b.consecutiveErrors = 0
	b.mu.Unlock()
}

// finalize runs exactly once per session, in the worker goroutine, whatever
// ended the loop. It books the session into lifetime stats and notifies.
func (b *FishingBot) finalize() {
	b.mu.Lock()
	fishCount := b.state.FishCount
	runtime := b.state.SessionDuration()
	b.state.Running = false
	b.state.Paused = false
	b.state.Phase = PhaseIdle
	b.state.Status = "Stopped"
	done := b.done
	b.mu.Unlock()

	b.stats.CompleteSession(fishCount, runtime)
	b.saveStats()

	summary := fmt.Sprintf("Session ended: %d fish in %s (%s). Lifetime: %s",
		fishCount, FormatDuration(runtime), b.monitor.Summary(), b.stats.Get().Summary())
	LogInfo("%s", summary)
	b.webhook.SendText(summary)

	close(done)
}

func (b *FishingBot) sendStartupScreenshot() {
	data, err := b.captureJPEG()
	if err != nil {
		LogWarn("Startup screenshot failed: %v", err)
		b.webhook.SendText("Fishing session started (screenshot unavailable)")
		return
	}
	b.webhook.SendScreenshot("Fishing session started", data)
}

// captureJPEG grabs the full screen as JPEG bytes for webhook delivery.
func (b *FishingBot) captureJPEG() ([]byte, error) {
	img, err := b.detector.TakeFullScreenshot()
	if err != nil {
		return nil, err
	}
	return EncodeJPEG(img)
}

func (b *FishingBot) saveStats() {
	if !b.config.Get().AutoSaveEnabled {
		return
	}
	if err := SaveStats(b.stats.Get()); err != nil {
		LogWarn("Stats save failed: %v", err)
	}
}

func (b *FishingBot) currentPhase() FishingPhase {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.Phase
}

// setPhase updates the phase and optionally the status line. An empty
// status keeps the handler-set text.
func (b *FishingBot) setPhase(phase FishingPhase, status string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.Phase = phase
	if status != "" {
		b.state.Status = status
	}
}

func (b *FishingBot) setStatus(status string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.Status = status
}

func (b *FishingBot) isPaused() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.Paused
}

func (b *FishingBot) stopped() bool {
	select {
	case <-b.stop:
		return true
	default:
		return false
	}
}

// sleep waits for d or until Stop, reporting whether the session is ending.
func (b *FishingBot) sleep(d time.Duration) bool {
	select {
	case <-b.stop:
		return true
	case <-time.After(d):
		return false
	}
}
