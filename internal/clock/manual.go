package clock

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Clock driven by Advance. Tasks run on the goroutine calling
// Advance, never while the clock's lock is held.
type Manual struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	c      *Manual
	id     int
	due    time.Duration
	period time.Duration
	f      func()
	active bool
}

func NewManual() *Manual { return &Manual{} }

func (m *Manual) AfterFunc(d time.Duration, f func()) Timer { return m.add(d, 0, f) }

func (m *Manual) Every(d time.Duration, f func()) Timer {
	if d <= 0 {
		d = time.Nanosecond
	}
	return m.add(d, d, f)
}

func (m *Manual) add(d, period time.Duration, f func()) *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{c: m, id: m.seq, due: m.now + d, period: period, f: f, active: true}
	m.timers = append(m.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if !t.active {
		return false
	}
	t.active = false
	t.c.removeLocked(t)
	return true
}

func (m *Manual) removeLocked(t *manualTimer) {
	for i, x := range m.timers {
		if x == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}

// Advance moves the clock forward by d and runs every task that falls due,
// in due order. Recurring tasks fire once per elapsed period.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()
	for {
		m.mu.Lock()
		next := m.nextDueLocked(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = next.due
		if next.period > 0 {
			next.due += next.period
		} else {
			next.active = false
			m.removeLocked(next)
		}
		f := next.f
		m.mu.Unlock()
		f()
	}
}

func (m *Manual) nextDueLocked(limit time.Duration) *manualTimer {
	if len(m.timers) == 0 {
		return nil
	}
	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].due == m.timers[j].due {
			return m.timers[i].id < m.timers[j].id
		}
		return m.timers[i].due < m.timers[j].due
	})
	if m.timers[0].due > limit {
		return nil
	}
	return m.timers[0]
}

// Pending returns the number of active tasks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}
