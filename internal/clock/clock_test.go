package clock

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestManualAfterFuncFiresOnce(t *testing.T) {
	c := NewManual()
	var n int
	c.AfterFunc(time.Second, func() { n++ })
	c.Advance(500 * time.Millisecond)
	if n != 0 {
		t.Fatalf("fired early")
	}
	c.Advance(time.Second)
	c.Advance(time.Second)
	if n != 1 {
		t.Fatalf("fired %d times", n)
	}
	if c.Pending() != 0 {
		t.Fatalf("pending=%d", c.Pending())
	}
}

func TestManualEveryAndStop(t *testing.T) {
	c := NewManual()
	var n int
	tm := c.Every(time.Second, func() { n++ })
	c.Advance(3500 * time.Millisecond)
	if n != 3 {
		t.Fatalf("ticks=%d", n)
	}
	if !tm.Stop() {
		t.Fatalf("first stop should report active")
	}
	if tm.Stop() {
		t.Fatalf("second stop should be a no-op")
	}
	c.Advance(5 * time.Second)
	if n != 3 {
		t.Fatalf("ticked after stop: %d", n)
	}
}

func TestManualStopFromInsideTask(t *testing.T) {
	c := NewManual()
	var n int
	var tm Timer
	tm = c.Every(time.Second, func() {
		n++
		tm.Stop()
	})
	c.Advance(10 * time.Second)
	if n != 1 {
		t.Fatalf("ticks=%d", n)
	}
}

func TestRealEveryStop(t *testing.T) {
	var n atomic.Int32
	tm := Real{}.Every(5*time.Millisecond, func() { n.Add(1) })
	time.Sleep(40 * time.Millisecond)
	tm.Stop()
	after := n.Load()
	if after == 0 {
		t.Fatalf("expected at least one tick")
	}
	time.Sleep(30 * time.Millisecond)
	if n.Load() != after {
		t.Fatalf("ticked after stop")
	}
}
