// Package clock provides the injected event-loop timer handle used in
// place of a global timer singleton (spec §9 design notes), so that
// deferred sends, login/idle timeouts and keep-alives can be driven
// deterministically in tests.
package clock

import "time"

// Clock abstracts wall-clock time and timer scheduling.
type Clock interface {
	Now() time.Time
	// AfterFunc schedules fn to run once after d elapses, returning a
	// handle that can cancel the pending fire.
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a cancellable, one-shot scheduled callback.
type Timer interface {
	// Stop cancels the timer. It reports whether the cancellation
	// happened before the timer fired.
	Stop() bool
}

// Real is the production Clock backed by the standard library.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) AfterFunc(d time.Duration, fn func()) Timer {
	return realTimer{time.AfterFunc(d, fn)}
}

type realTimer struct{ t *time.Timer }

func (r realTimer) Stop() bool { return r.t.Stop() }
