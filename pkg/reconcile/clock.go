package reconcile

import "time"

// Timer is a pending AfterFunc call.
type Timer interface {
	// Stop prevents the call from firing. It reports false when the call
	// already fired or was stopped.
	Stop() bool
}

// Clock schedules delayed calls. Tests substitute a clock they advance by
// hand.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock is backed by the time package.
func RealClock() Clock { return realClock{} }
