package ui

import "sync"

// Detector reports whether a fullscreen window is in the foreground.
type Detector interface {
	Active() bool
}

// Action is what the widget should do after a poll.
type Action int

const (
	NoAction Action = iota
	Hide
	Show
)

// AutoHider decides when the floating widget hides for fullscreen apps. It
// never shows a widget the user minimized.
type AutoHider struct {
	detector Detector

	mu        sync.Mutex
	covered   bool
	minimized bool
}

// NewAutoHider returns an AutoHider polling d.
func NewAutoHider(d Detector) *AutoHider {
	return &AutoHider{detector: d}
}

// Poll queries the detector and returns the action for the transition.
func (a *AutoHider) Poll() Action {
	fullscreen := a.detector.Active()

	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case fullscreen && !a.covered:
		a.covered = true
		if a.minimized {
			return NoAction
		}
		return Hide
	case !fullscreen && a.covered:
		a.covered = false
		if a.minimized {
			return NoAction
		}
		return Show
	}
	return NoAction
}

// SetMinimized records a user show or minimize request.
func (a *AutoHider) SetMinimized(on bool) {
	a.mu.Lock()
	a.minimized = on
	a.mu.Unlock()
}

// Covered reports whether the widget is currently hidden for fullscreen.
func (a *AutoHider) Covered() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.covered
}
