// Package main - input.go
//
// Synthetic mouse and keyboard input through robotgo, with a failsafe that
// suppresses all output while the cursor is parked in the top-left screen
// corner. Rod and food actions are fixed key sequences with a small gap
// between steps so the game client registers each event separately.
//
// Only the '5' (rod) and '6' (food) hotbar keys are ever pressed; there is
// no free-form key passthrough.
package main

import (
	"sync/atomic"
	"time"

	"github.com/go-vgo/robotgo"
)

// failsafeCorner is the cursor zone (exclusive) that aborts input.
const failsafeCorner = 5

// defaultSequenceGap separates the steps of a multi-event action.
const defaultSequenceGap = 200 * time.Millisecond

// Hotbar keys the bot is allowed to press.
const (
	keyRod  = "5"
	keyFood = "6"
)

// InputController issues synthetic input events.
type InputController struct {
	failsafeEnabled atomic.Bool
	sequenceGap     time.Duration

	// Backends, replaced in tests.
	click    func()
	keyTap   func(key string)
	mousePos func() (x, y int)
}

// NewInputController creates a controller backed by robotgo.
func NewInputController(failsafeEnabled bool) *InputController {
	c := &InputController{
		sequenceGap: defaultSequenceGap,
		click:       func() { robotgo.Click() },
		keyTap:      func(key string) { robotgo.KeyTap(key) },
		mousePos:    robotgo.GetMousePos,
	}
	c.failsafeEnabled.Store(failsafeEnabled)
	return c
}

// SetFailsafe toggles the corner abort check.
func (c *InputController) SetFailsafe(enabled bool) {
	c.failsafeEnabled.Store(enabled)
}

// checkFailsafe returns ErrFailsafe while the cursor sits inside the
// top-left corner zone.
func (c *InputController) checkFailsafe() error {
	if !c.failsafeEnabled.Load() {
		return nil
	}
	x, y := c.mousePos()
	if x < failsafeCorner && y < failsafeCorner {
		return ErrFailsafe
	}
	return nil
}

// Click presses the left mouse button at the current cursor position.
func (c *InputController) Click() error {
	if err := c.checkFailsafe(); err != nil {
		return &InputError{Op: "click", Err: err}
	}
	c.click()
	return nil
}

// ResetRod unequips and re-equips the rod (double rod-key tap). Used before
// the first cast and after each catch so the client is in a known state.
func (c *InputController) ResetRod() error {
	if err := c.checkFailsafe(); err != nil {
		return &InputError{Op: "reset rod", Err: err}
	}
	c.keyTap(keyRod)
	time.Sleep(c.sequenceGap)
	c.keyTap(keyRod)
	time.Sleep(c.sequenceGap)
	return nil
}

// EatFood runs the feed sequence: select food, consume it, reselect the rod.
func (c *InputController) EatFood() error {
	if err := c.checkFailsafe(); err != nil {
		return &InputError{Op: "eat food", Err: err}
	}
	c.click()
	time.Sleep(c.sequenceGap)
	c.keyTap(keyFood)
	time.Sleep(c.sequenceGap)
	c.click()
	time.Sleep(c.sequenceGap)
	c.keyTap(keyRod)
	time.Sleep(c.sequenceGap)
	return nil
}
