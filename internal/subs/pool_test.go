package subs

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsEveryTask(t *testing.T) {
	p := NewPool(4)
	var ran atomic.Int32
	for i := 0; i < 100; i++ {
		p.Submit(func() { ran.Add(1) })
	}
	p.Close()
	if got := ran.Load(); got != 100 {
		t.Errorf("tasks ran = %d, want 100", got)
	}
}

func TestPoolCapsConcurrency(t *testing.T) {
	p := NewPool(2)
	defer p.Close()

	var cur, max atomic.Int32
	var wg sync.WaitGroup
	wg.Add(10)
	for i := 0; i < 10; i++ {
		p.Submit(func() {
			defer wg.Done()
			n := cur.Add(1)
			for {
				m := max.Load()
				if n <= m || max.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			cur.Add(-1)
		})
	}
	wg.Wait()
	if got := max.Load(); got > 2 {
		t.Errorf("peak concurrency = %d, want at most 2", got)
	}
}

func TestPoolSubmitNeverBlocks(t *testing.T) {
	p := NewPool(1)
	defer p.Close()

	block := make(chan struct{})
	p.Submit(func() { <-block })

	// Overfill the queue; Submit must return promptly every time.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 2000; i++ {
			p.Submit(func() { <-block })
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Submit blocked on a full queue")
	}
	close(block)
}

func TestLanePreservesSubmissionOrder(t *testing.T) {
	p := NewPool(4)
	lane := p.NewLane()

	var mu sync.Mutex
	var got []int
	for i := 0; i < 500; i++ {
		n := i
		lane.Submit(func() {
			mu.Lock()
			got = append(got, n)
			mu.Unlock()
		})
	}
	p.Close()

	if len(got) != 500 {
		t.Fatalf("tasks ran = %d, want 500", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("got[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestLanesProceedIndependently(t *testing.T) {
	p := NewPool(2)
	defer p.Close()

	slow := p.NewLane()
	fast := p.NewLane()

	release := make(chan struct{})
	slow.Submit(func() { <-release })

	done := make(chan struct{})
	fast.Submit(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("fast lane stalled behind a slow lane")
	}
	close(release)
}

func TestPoolSubmitAfterCloseIsDropped(t *testing.T) {
	p := NewPool(1)
	p.Close()
	p.Submit(func() { t.Error("task ran after Close") })
	p.Close() // idempotent
	time.Sleep(10 * time.Millisecond)
}
