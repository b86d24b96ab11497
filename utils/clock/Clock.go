// Package clock provides an abstraction over time so that control
// loops with fixed waits can be driven without real delays in tests
package clock

import (
	"context"
	"sync"
	"time"
)

// Clock tells the time and waits
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	Sleep(d time.Duration)
	After(d time.Duration) <-chan time.Time
}

// Real implements Clock with the time package
type Real struct{}

func (Real) Now() time.Time                         { return time.Now() }
func (Real) Since(t time.Time) time.Duration        { return time.Since(t) }
func (Real) Sleep(d time.Duration)                  { time.Sleep(d) }
func (Real) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Wait blocks for d on the clock c, returning early with the context's
// error if ctx is done first.
func Wait(ctx context.Context, c Clock, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.After(d):
		return nil
	}
}

// Fake is a manually driven Clock. Sleep and After advance the fake
// time instantly and record the requested durations.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

// NewFake returns a Fake clock starting at start
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the current fake time
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Since returns the fake time elapsed since t
func (f *Fake) Since(t time.Time) time.Duration {
	return f.Now().Sub(t)
}

// Sleep advances the fake time by d
func (f *Fake) Sleep(d time.Duration) {
	f.Advance(d)
}

// After advances the fake time by d and returns a channel that already
// holds the new time
func (f *Fake) After(d time.Duration) <-chan time.Time {
	now := f.Advance(d)
	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

// Advance moves the fake time forward by d and returns the new time
func (f *Fake) Advance(d time.Duration) time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
	f.sleeps = append(f.sleeps, d)
	return f.now
}

// Sleeps returns every duration the clock has been advanced by, in order
func (f *Fake) Sleeps() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, len(f.sleeps))
	copy(out, f.sleeps)
	return out
}
