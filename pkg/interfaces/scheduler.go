package interfaces

import "time"

// TimerHandle is a cancellable one-shot callback registration.
type TimerHandle interface {
	Cancel()
}

// Scheduler is the cooperative timer service consensus timeouts and pool
// synchronizer polling are built on. Callbacks fire on the same logical
// thread as the caller; they are not reentrant with respect to state
// transitions the caller is mid-way through.
type Scheduler interface {
	After(d time.Duration, fn func()) TimerHandle
	Every(d time.Duration, fn func()) TimerHandle
}
