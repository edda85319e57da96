// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package widget

import "time"

// DefaultIdleInterval is how long a round stays up without a selection
// before a new pair is requested.
const DefaultIdleInterval = 5 * time.Second

// IdleTimer fires once after the idle interval unless reset, stopped or
// suspended. A zero or negative interval disables it.
//
// IdleTimer is not safe for concurrent use; it belongs to the event loop.
type IdleTimer struct {
	d         time.Duration
	t         *time.Timer
	suspended bool
}

// NewIdleTimer returns a stopped timer.
func NewIdleTimer(d time.Duration) *IdleTimer {
	it := &IdleTimer{d: d}
	if d > 0 {
		it.t = time.NewTimer(d)
		it.t.Stop()
	}
	return it
}

// C delivers the firing time. It is nil when the timer is disabled, so a
// select on it blocks forever.
func (it *IdleTimer) C() <-chan time.Time {
	if it.t == nil {
		return nil
	}
	return it.t.C
}

// Reset restarts the countdown. It does nothing while suspended.
func (it *IdleTimer) Reset() {
	if it.t == nil || it.suspended {
		return
	}
	// Since Go 1.23 Reset discards a pending tick.
	it.t.Reset(it.d)
}

// Stop cancels the countdown until the next Reset.
func (it *IdleTimer) Stop() {
	if it.t != nil {
		it.t.Stop()
	}
}

// Suspend stops the countdown and ignores Reset until Resume.
func (it *IdleTimer) Suspend() {
	it.suspended = true
	it.Stop()
}

// Resume lifts a suspension. The countdown stays stopped; callers Reset when
// a round is ready.
func (it *IdleTimer) Resume() {
	it.suspended = false
}

// Suspended reports whether Reset is currently ignored.
func (it *IdleTimer) Suspended() bool {
	return it.suspended
}
