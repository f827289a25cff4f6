// Package main - errors.go
//
// Error taxonomy for the control loop. Capture, input, and failsafe errors
// count toward the consecutive-error ceiling in the state machine; OCR
// failures are absorbed locally and never reach it. The absence of a color
// match is a normal negative result, not an error.
package main

import (
	"errors"
	"fmt"
)

// ErrNoDisplay is returned when no active display can be captured.
// It is surfaced to the caller and never retried internally.
var ErrNoDisplay = errors.New("no active displays found")

// ErrFailsafe is returned when the operator abort condition is active
// (mouse parked in the top-left screen corner). Further synthetic input is
// suppressed until the cursor moves away.
var ErrFailsafe = errors.New("failsafe triggered: mouse in top-left corner")

// CaptureError wraps a failed screen capture with the region that caused it.
type CaptureError struct {
	Region Region
	Err    error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture %s: %v", e.Region.Key(), e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// InputError wraps a failed synthetic mouse/keyboard event.
type InputError struct {
	Op  string
	Err error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("input %s: %v", e.Op, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }
