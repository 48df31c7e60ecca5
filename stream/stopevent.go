package stream

import "go.uber.org/atomic"

// StopEvent is the level-triggered cancellation token for long-running
// tasks such as the navigation façade's control loops: rather than
// a monkey-patched stop attribute on each disposable, callers hold one of
// these and re-check IsSet at every loop boundary.
type StopEvent struct {
	stopped atomic.Bool
}

// NewStopEvent returns an unset StopEvent.
func NewStopEvent() *StopEvent {
	return &StopEvent{}
}

// Stop sets the event. Safe to call more than once.
func (s *StopEvent) Stop() {
	s.stopped.Store(true)
}

// IsSet reports whether Stop has been called.
func (s *StopEvent) IsSet() bool {
	return s.stopped.Load()
}
