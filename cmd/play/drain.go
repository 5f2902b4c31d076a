package main

import "time"

// tailHalves is the number of halves sent after the source runs dry before the last decoded samples are out.
// The half refilled with the tail waits behind the half in flight.
const tailHalves = 2

// endOfStream reports the end of playback once the half holding the last decoded samples has been transmitted.
// It is polled from a single goroutine.
type endOfStream struct {
	exhausted func() bool
	halves    func() uint64
	failed    func() bool

	seen bool
	mark uint64
}

func newEndOfStream(exhausted func() bool, halves func() uint64, failed func() bool) *endOfStream {
	return &endOfStream{exhausted: exhausted, halves: halves, failed: failed}
}

// Done implements the finished check of the UI and of waitForEnd.
func (e *endOfStream) Done() bool {
	if e.failed != nil && e.failed() {
		return true
	}

	if !e.exhausted() {
		return false
	}

	if !e.seen {
		e.seen = true
		e.mark = e.halves()
	}

	return e.halves() >= e.mark+tailHalves
}

// waitDrained polls busy until it reports false or timeout passes. It returns false on timeout.
func waitDrained(busy func() bool, poll, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for busy() {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(poll)
	}

	return true
}
