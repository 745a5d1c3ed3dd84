package notifications

import "sync"

// Executor runs observer callbacks on a context distinct from the caller.
type Executor interface {
	// Submit schedules fn. It reports false once the executor is closed.
	Submit(fn func()) bool
	// Close stops accepting work and waits for queued work to finish.
	Close()
}

// SerialExecutor runs submitted functions one at a time, in submission
// order, on a single dedicated goroutine. Its queue is unbounded so Submit
// never blocks.
type SerialExecutor struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
	signal chan struct{}
	done   chan struct{}
}

// NewSerialExecutor starts the executor goroutine.
func NewSerialExecutor() *SerialExecutor {
	e := &SerialExecutor{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go e.run()
	return e
}

// Submit appends fn to the queue.
func (e *SerialExecutor) Submit(fn func()) bool {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false
	}
	e.queue = append(e.queue, fn)
	// signal is closed under mu, so the send must happen under it too
	select {
	case e.signal <- struct{}{}:
	default:
	}
	e.mu.Unlock()
	return true
}

// Sync blocks until everything submitted before the call has run.
func (e *SerialExecutor) Sync() {
	done := make(chan struct{})
	if !e.Submit(func() { close(done) }) {
		<-e.done
		return
	}
	<-done
}

// Close drains the queue and stops the goroutine. It is safe to call twice.
func (e *SerialExecutor) Close() {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.signal)
	}
	e.mu.Unlock()
	<-e.done
}

func (e *SerialExecutor) run() {
	defer close(e.done)
	for {
		e.mu.Lock()
		batch := e.queue
		e.queue = nil
		e.mu.Unlock()

		for _, fn := range batch {
			fn()
		}
		if len(batch) > 0 {
			continue
		}
		if _, ok := <-e.signal; !ok {
			e.mu.Lock()
			remaining := e.queue
			e.queue = nil
			e.mu.Unlock()
			for _, fn := range remaining {
				fn()
			}
			return
		}
	}
}

// InlineExecutor runs fn on the submitting goroutine.
type InlineExecutor struct{}

// Submit runs fn immediately.
func (InlineExecutor) Submit(fn func()) bool {
	fn()
	return true
}

// Close is a no-op.
func (InlineExecutor) Close() {}
