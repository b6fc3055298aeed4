package voicesession

import "time"

type Timer interface {
	Stop() bool
}

// Clock lets the session run against a fake time source in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func SystemClock() Clock {
	return realClock{}
}
