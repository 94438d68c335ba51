package request

import (
	"sync"
	"time"
)

// Timer tracks the current retry sequence: when its first failure happened,
// how many failures were seen and how many retries were issued. One Timer is
// shared by every request sent through a Service. A sequence ends, and the
// timer is cleared, on success and on every way of giving up.
type Timer struct {
	mu       sync.Mutex
	first    time.Time
	failures int
	retries  int

	// now is replaceable in tests
	now func() time.Time
}

// NewTimer creates an idle timer
func NewTimer() *Timer {
	return &Timer{now: time.Now}
}

// Mark records a failure. The first failure of a sequence starts the clock.
// It returns the time elapsed since that first failure and the number of
// failures in the sequence, including this one.
func (t *Timer) Mark() (time.Duration, int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock()
	if t.first.IsZero() {
		t.first = now
	}
	t.failures++
	return now.Sub(t.first), t.failures
}

// Retried records that a retry is being issued
func (t *Timer) Retried() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.retries++
}

// Clear ends the current sequence
func (t *Timer) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.first = time.Time{}
	t.failures = 0
	t.retries = 0
}

// Active reports whether a retry sequence is in progress
func (t *Timer) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.first.IsZero()
}

// Failures returns the number of failures recorded in the current sequence
func (t *Timer) Failures() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failures
}

// Retries returns the number of retries issued in the current sequence
func (t *Timer) Retries() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.retries
}

func (t *Timer) clock() time.Time {
	if t.now == nil {
		return time.Now()
	}
	return t.now()
}
