package clock

import (
	"sync"
	"time"
)

// Clock supplies the current time. Components take a Clock instead of
// calling time.Now directly so tests can move time deterministically.
type Clock interface {
	Now() time.Time
}

// Real is a Clock backed by the system clock.
type Real struct{}

func (Real) Now() time.Time {
	return time.Now()
}

// Fake is a settable Clock for tests.
type Fake struct {
	mutex sync.Mutex
	now   time.Time
}

func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.now
}

// Set moves the fake clock to the given instant.
func (f *Fake) Set(t time.Time) {
	f.mutex.Lock()
	f.now = t
	f.mutex.Unlock()
}

// Advance moves the fake clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mutex.Lock()
	f.now = f.now.Add(d)
	f.mutex.Unlock()
}
