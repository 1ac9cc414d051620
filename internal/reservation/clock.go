package reservation

import "time"

// Clock abstracts wall time and deferred execution so expiry logic is
// testable without real waits.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a scheduled callback that can be revoked. Stop reports whether
// the call was prevented from running.
type Timer interface {
	Stop() bool
}

type realClock struct{}

// SystemClock is the production clock backed by the time package.
var SystemClock Clock = realClock{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
