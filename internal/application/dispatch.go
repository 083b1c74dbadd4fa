package application

import "sync"

// Dispatcher runs work on the context that owns a controller. Controllers
// route every engine callback through it before touching state.
type Dispatcher interface {
	Dispatch(fn func())
}

// Inline runs work immediately on the calling goroutine.
type Inline struct{}

func (Inline) Dispatch(fn func()) { fn() }

// Loop is a single goroutine draining a queue of work. Everything dispatched
// to one Loop runs serially, in order.
type Loop struct {
	work   chan func()
	done   chan struct{}
	mu     sync.RWMutex
	closed bool
}

func NewLoop(queueSize int) *Loop {
	l := &Loop{
		work: make(chan func(), queueSize),
		done: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.done)
	for fn := range l.work {
		fn()
	}
}

// Dispatch queues fn. Work dispatched after Close is dropped.
func (l *Loop) Dispatch(fn func()) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return
	}
	l.work <- fn
}

// Do runs fn on the loop and waits for it. Must not be called from the loop.
func (l *Loop) Do(fn func()) {
	finished := make(chan struct{})
	l.Dispatch(func() {
		defer close(finished)
		fn()
	})
	select {
	case <-finished:
	case <-l.done:
	}
}

// Close drains queued work and stops the loop.
func (l *Loop) Close() {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.work)
	}
	l.mu.Unlock()
	<-l.done
}
