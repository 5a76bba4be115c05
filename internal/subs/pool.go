package subs

import "sync"

// Pool runs handler invocations on a capped set of worker goroutines so that
// a burst of subscriptions cannot grow the goroutine count without bound.
// Tasks are picked up in submission order; Submit never blocks the caller.
type Pool struct {
	tasks chan func()
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewPool starts a pool with the given number of workers.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 6
	}
	p := &Pool{tasks: make(chan func(), 1024)}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				task()
			}
		}()
	}
	return p
}

// Submit queues fn for execution. When the queue is full the task runs on
// its own goroutine instead, so the submitting receive loop never stalls.
// After Close, tasks are dropped.
func (p *Pool) Submit(fn func()) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	select {
	case p.tasks <- fn:
		p.mu.Unlock()
	default:
		p.mu.Unlock()
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			fn()
		}()
	}
}

// Lane is a serial view of the pool: tasks submitted to one lane run in
// submission order, one at a time, on the pool's capped workers. Separate
// lanes proceed independently, so one slow subscription cannot stall the
// others.
type Lane struct {
	pool *Pool

	mu       sync.Mutex
	queue    []func()
	draining bool
}

// NewLane creates an empty lane on the pool.
func (p *Pool) NewLane() *Lane {
	return &Lane{pool: p}
}

// Submit queues fn behind the lane's earlier tasks. Never blocks. After the
// pool is closed, tasks are dropped.
func (l *Lane) Submit(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	if l.draining {
		l.mu.Unlock()
		return
	}
	l.draining = true
	l.mu.Unlock()
	l.pool.Submit(l.drain)
}

// drain runs the lane's tasks in submission order until the queue empties.
// At most one drain per lane is in flight, which is what makes the lane
// serial.
func (l *Lane) drain() {
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.draining = false
			l.mu.Unlock()
			return
		}
		fn := l.queue[0]
		l.queue = l.queue[1:]
		l.mu.Unlock()
		fn()
	}
}

// Close stops accepting tasks and waits for in-flight ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}
