package voicesession

import "time"

const DefaultHoldThreshold = 500 * time.Millisecond

type Gesture int

const (
	GestureNone Gesture = iota
	GestureToggle
	GestureStartAsk
	GestureStopAsk
)

func (g Gesture) String() string {
	switch g {
	case GestureToggle:
		return "toggle"
	case GestureStartAsk:
		return "start_ask"
	case GestureStopAsk:
		return "stop_ask"
	default:
		return "none"
	}
}

// GestureRecognizer turns raw pointer down/up into intents. A press released
// before the hold threshold is a toggle; holding past it starts a question and
// the matching release stops it.
type GestureRecognizer struct {
	clock     Clock
	threshold time.Duration
	onHold    func(gen uint64)

	timer Timer
	down  bool
	held  bool
	gen   uint64
}

func NewGestureRecognizer(clock Clock, threshold time.Duration, onHold func(gen uint64)) *GestureRecognizer {
	if clock == nil {
		clock = SystemClock()
	}
	if threshold <= 0 {
		threshold = DefaultHoldThreshold
	}
	return &GestureRecognizer{
		clock:     clock,
		threshold: threshold,
		onHold:    onHold,
	}
}

func (r *GestureRecognizer) Down() {
	if r.down {
		return
	}
	r.down = true
	r.held = false
	r.gen++
	gen := r.gen
	r.timer = r.clock.AfterFunc(r.threshold, func() {
		r.onHold(gen)
	})
}

// HoldElapsed is called from the event loop when the hold timer fired.
func (r *GestureRecognizer) HoldElapsed(gen uint64) Gesture {
	if !r.down || r.held || gen != r.gen {
		return GestureNone
	}
	r.held = true
	r.timer = nil
	return GestureStartAsk
}

func (r *GestureRecognizer) Up() Gesture {
	if !r.down {
		return GestureNone
	}
	r.stopTimer()
	r.down = false
	r.gen++
	if r.held {
		r.held = false
		return GestureStopAsk
	}
	return GestureToggle
}

func (r *GestureRecognizer) Reset() {
	r.stopTimer()
	r.down = false
	r.held = false
	r.gen++
}

func (r *GestureRecognizer) Pressed() bool {
	return r.down
}

func (r *GestureRecognizer) stopTimer() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
