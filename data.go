// Package main - data.go
//
// Core data structures shared across the bot: capture geometry, RGB colors
// with tolerance math, the fishing phase enumeration, and the session state
// snapshot published to observers.
//
// Thread Safety:
// Everything in this file is a plain value type. Shared instances are owned
// by a single component and copied out under that component's lock.
package main

import (
	"fmt"
	"image"
	"time"
)

// Region is a fixed rectangular capture area on the primary display.
// The offset may be negative on multi-monitor setups; the size may not.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewRegion creates a new Region.
func NewRegion(x, y, width, height int) Region {
	return Region{X: x, Y: y, Width: width, Height: height}
}

// Rect converts the region to a stdlib image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Area returns the number of pixels covered by the region.
func (r Region) Area() int {
	return r.Width * r.Height
}

// Key returns the cache signature for the region.
func (r Region) Key() string {
	return fmt.Sprintf("%d,%d,%d,%d", r.X, r.Y, r.Width, r.Height)
}

// Valid reports whether the region has a positive size.
func (r Region) Valid() bool {
	return r.Width > 0 && r.Height > 0
}

// Color is an RGB reference triplet used for indicator detection.
type Color struct {
	R uint8
	G uint8
	B uint8
}

// Indicator colors observed in the game client.
var (
	// RedExclamation is the bite indicator ("!") color.
	RedExclamation = Color{R: 241, G: 27, B: 28}
	// YellowCaught is the catch banner color.
	YellowCaught = Color{R: 255, G: 255, B: 0}
)

// NewColor creates a new Color.
func NewColor(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b}
}

// Distance returns the Manhattan distance (|dr|+|dg|+|db|) to a pixel.
func (c Color) Distance(r, g, b uint8) int {
	return absInt(int(c.R)-int(r)) + absInt(int(c.G)-int(g)) + absInt(int(c.B)-int(b))
}

// DistanceSquared returns the squared Euclidean distance to a pixel.
func (c Color) DistanceSquared(r, g, b uint8) int {
	dr := int(c.R) - int(r)
	dg := int(c.G) - int(g)
	db := int(c.B) - int(b)
	return dr*dr + dg*dg + db*db
}

// FishingPhase is the current step of the cast/bite/reel cycle.
// Exactly one phase is current at a time; transitions overwrite, never queue.
type FishingPhase int

const (
	PhaseIdle FishingPhase = iota
	PhaseCasting
	PhaseWaitingForBite
	PhaseReeling
	PhaseCaught
	PhaseFeeding
	PhaseError
)

// String returns the phase name.
func (p FishingPhase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseCasting:
		return "Casting"
	case PhaseWaitingForBite:
		return "WaitingForBite"
	case PhaseReeling:
		return "Reeling"
	case PhaseCaught:
		return "Caught"
	case PhaseFeeding:
		return "Feeding"
	case PhaseError:
		return "Error"
	default:
		return "Unknown"
	}
}

// HungerUnknown marks a session that has no valid hunger reading yet.
const HungerUnknown = -1

// BotState is the session state snapshot published on every tick.
// Mutated only by the state machine under its lock; observers receive copies,
// so a snapshot is always internally consistent.
type BotState struct {
	Running       bool
	Paused        bool
	FishCount     uint64
	LastHunger    int // HungerUnknown until the first successful OCR read
	StartTime     time.Time
	Status        string
	Phase         FishingPhase
	ErrorsCount   uint32
	UptimePercent float64
	FishPerHour   float64
	BestStreak    uint32
	CurrentStreak uint32
}

// NewBotState returns the pre-session default state.
func NewBotState() BotState {
	return BotState{
		Status:        "Ready to start fishing",
		Phase:         PhaseIdle,
		LastHunger:    HungerUnknown,
		UptimePercent: 100.0,
	}
}

// SessionDuration returns the elapsed session time, zero before start.
func (s BotState) SessionDuration() time.Duration {
	if s.StartTime.IsZero() {
		return 0
	}
	return time.Since(s.StartTime)
}

// absInt returns the absolute value of an integer.
func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
