// Package clock provides the cooperative timer scheduler consensus timeouts
// and pool-sync polling are built on top of.
package clock

import (
	"sync"
	"time"

	"github.com/ledgercore/node/pkg/interfaces"
)

type timerHandle struct {
	timer *time.Timer
	stop  chan struct{}
	once  sync.Once
}

func (h *timerHandle) Cancel() {
	h.once.Do(func() {
		h.timer.Stop()
		close(h.stop)
	})
}

// Scheduler dispatches timer callbacks onto the caller's goroutine via
// time.Timer/time.Ticker; callers are responsible for ensuring callbacks do
// not race with the logical thread that owns consensus state, exactly as
// the concurrency model requires.
type Scheduler struct{}

// New returns a ready Scheduler.
func New() *Scheduler { return &Scheduler{} }

var _ interfaces.Scheduler = (*Scheduler)(nil)

// After schedules fn to run once after d, unless cancelled first.
func (s *Scheduler) After(d time.Duration, fn func()) interfaces.TimerHandle {
	h := &timerHandle{stop: make(chan struct{})}
	h.timer = time.AfterFunc(d, func() {
		select {
		case <-h.stop:
		default:
			fn()
		}
	})
	return h
}

// Every schedules fn to run repeatedly every d, until cancelled.
func (s *Scheduler) Every(d time.Duration, fn func()) interfaces.TimerHandle {
	ticker := time.NewTicker(d)
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				ticker.Stop()
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	return &stopHandle{stop: stop}
}

type stopHandle struct {
	stop chan struct{}
	once sync.Once
}

func (h *stopHandle) Cancel() {
	h.once.Do(func() { close(h.stop) })
}
