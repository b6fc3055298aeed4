package voicesession

import "time"

// FrameScheduler holds at most one pending wake-up. Every Schedule replaces the
// previous one and bumps the generation, so a callback that raced a Cancel is
// recognised as stale when its event is handled.
type FrameScheduler struct {
	clock   Clock
	fire    func(gen uint64)
	timer   Timer
	gen     uint64
	pending bool
	due     time.Time
}

func NewFrameScheduler(clock Clock, fire func(gen uint64)) *FrameScheduler {
	if clock == nil {
		clock = SystemClock()
	}
	return &FrameScheduler{
		clock: clock,
		fire:  fire,
	}
}

func (f *FrameScheduler) Schedule(d time.Duration) {
	f.Cancel()
	gen := f.gen
	f.pending = true
	f.due = f.clock.Now().Add(d)
	f.timer = f.clock.AfterFunc(d, func() {
		f.fire(gen)
	})
}

func (f *FrameScheduler) Cancel() {
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.pending = false
	f.gen++
}

// Current reports whether gen belongs to the live wake-up and consumes it.
func (f *FrameScheduler) Current(gen uint64) bool {
	if !f.pending || gen != f.gen {
		return false
	}
	f.pending = false
	f.timer = nil
	return true
}

func (f *FrameScheduler) Pending() bool {
	return f.pending
}

func (f *FrameScheduler) Due() (time.Time, bool) {
	return f.due, f.pending
}
