// Package mainloop provides the single goroutine that owns published output.
package mainloop

import (
	"context"
	"sync"
)

// Loop runs posted tasks one at a time, in posting order, on the goroutine
// that called Run.
type Loop struct {
	tasks chan func()
	done  chan struct{}

	mu       sync.RWMutex
	stopped  bool
	stopOnce sync.Once
}

func New(buffer int) *Loop {
	return &Loop{
		tasks: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
}

// Post queues fn. It blocks while the queue is full and reports false once
// the loop has stopped, in which case fn never runs. A task Post accepted
// always runs before Run returns.
func (l *Loop) Post(fn func()) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.stopped {
		return false
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Run drains tasks until ctx is done or Stop is called. Either way, tasks
// that were already queued still run before Run returns.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case fn := <-l.tasks:
			fn()
		case <-l.done:
			l.shutdown()
			return nil
		case <-ctx.Done():
			l.shutdown()
			return ctx.Err()
		}
	}
}

func (l *Loop) shutdown() {
	l.Stop()
	for {
		select {
		case fn := <-l.tasks:
			fn()
		default:
			return
		}
	}
}

// Stop rejects further posts. It returns once no Post can still enqueue.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.done)
		l.mu.Lock()
		l.stopped = true
		l.mu.Unlock()
	})
}

func (l *Loop) Done() <-chan struct{} {
	return l.done
}
