package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"murmur/internal/logging"
)

// Observer receives detailed per-operation events.
type Observer interface {
	OperationChanged(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OperationChanged calls f.
func (f ObserverFunc) OperationChanged(ev Event) { f(ev) }

type observerBox struct {
	observer Observer
}

// Bridge delivers state changes to the observer, the coarse hub and the
// outbound sink.
//
// Events are queued with Enqueue while the registry lock is held, which is
// where their sequence numbers are assigned, and handed out by Flush after
// the lock is released. A single goroutine dispatches at a time so every
// consumer sees events in sequence order.
type Bridge struct {
	exec   Executor
	hub    *Hub
	sink   Sink
	logger *slog.Logger

	observer atomic.Pointer[observerBox]

	mu       sync.Mutex
	seq      uint64
	pending  []Event
	draining bool
}

// NewBridge wires a bridge. A nil executor runs observers inline; a nil sink
// discards outbound events.
func NewBridge(exec Executor, hub *Hub, sink Sink, logger *slog.Logger) *Bridge {
	if exec == nil {
		exec = InlineExecutor{}
	}
	if sink == nil {
		sink = noopSink{}
	}
	if hub == nil {
		hub = NewHub(0)
	}
	return &Bridge{
		exec:   exec,
		hub:    hub,
		sink:   sink,
		logger: logging.NewComponentLogger(logger, "notifications"),
	}
}

// SetObserver installs or replaces the detailed observer. Nil removes it.
// Events already scheduled are delivered to whichever observer is installed
// when they run.
func (b *Bridge) SetObserver(o Observer) {
	if o == nil {
		b.observer.Store(nil)
		return
	}
	b.observer.Store(&observerBox{observer: o})
}

// Hub exposes the coarse event stream.
func (b *Bridge) Hub() *Hub { return b.hub }

// Enqueue stamps ev with the next sequence number and holds it for Flush.
func (b *Bridge) Enqueue(ev Event) Event {
	b.mu.Lock()
	b.seq++
	ev.Seq = b.seq
	b.pending = append(b.pending, ev)
	b.mu.Unlock()
	return ev
}

// Flush dispatches queued events. When another goroutine is already
// dispatching it picks up this caller's events as well.
func (b *Bridge) Flush() {
	b.mu.Lock()
	if b.draining {
		b.mu.Unlock()
		return
	}
	b.draining = true
	for len(b.pending) > 0 {
		batch := b.pending
		b.pending = nil
		b.mu.Unlock()
		for _, ev := range batch {
			b.dispatch(ev)
		}
		b.mu.Lock()
	}
	b.draining = false
	b.mu.Unlock()
}

// Close stops the executor after delivering everything already scheduled,
// then the sink.
func (b *Bridge) Close() {
	b.Flush()
	b.exec.Close()
	b.sink.Close()
}

func (b *Bridge) dispatch(ev Event) {
	b.hub.Publish(ev)
	if !b.exec.Submit(func() { b.notify(ev) }) {
		b.logger.Debug("observer executor closed; event not delivered",
			logging.String(logging.FieldOperationID, ev.OperationID),
			logging.Uint64("seq", ev.Seq),
		)
	}
	b.sink.Deliver(ev)
}

func (b *Bridge) notify(ev Event) {
	box := b.observer.Load()
	if box == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logging.WarnWithContext(b.logger, "observer panicked", "observer_panic",
				logging.String(logging.FieldOperationID, ev.OperationID),
				logging.Uint64("seq", ev.Seq),
				logging.String("panic", fmt.Sprint(r)),
				logging.String(logging.FieldImpact, "observer missed this event"),
			)
		}
	}()
	box.observer.OperationChanged(ev)
}

// TestSink sends a test message through the outbound sink.
func (b *Bridge) TestSink(ctx context.Context) error {
	return b.sink.TestNotification(ctx)
}
