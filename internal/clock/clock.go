package clock

import (
	"sync"
	"time"
)

// Timer is a handle to a scheduled task. Stop reports whether the call
// cancelled an active task; stopping twice is a no-op.
type Timer interface {
	Stop() bool
}

// Clock schedules one-shot and recurring tasks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
	Every(d time.Duration, f func()) Timer
}

// Real is backed by the time package.
type Real struct{}

func (Real) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

func (Real) Every(d time.Duration, f func()) Timer {
	t := &ticker{stopCh: make(chan struct{})}
	tk := time.NewTicker(d)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-t.stopCh:
				return
			case <-tk.C:
				// re-check: a stop may race with the tick
				select {
				case <-t.stopCh:
					return
				default:
				}
				f()
			}
		}
	}()
	return t
}

type ticker struct {
	stopCh   chan struct{}
	stopOnce sync.Once
}

func (t *ticker) Stop() bool {
	stopped := false
	t.stopOnce.Do(func() {
		close(t.stopCh)
		stopped = true
	})
	return stopped
}
