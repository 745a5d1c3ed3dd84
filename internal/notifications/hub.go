package notifications

import (
	"context"
	"sync"
)

// Hub keeps a bounded window of recent events for coarse consumers and wakes
// waiters when new ones arrive. Sequence numbers come from the bridge.
type Hub struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	buffer   []Event
	lastSeq  uint64
	subs     map[int]*subscription
	nextSub  int
}

type subscription struct {
	ch      chan Event
	dropped uint64
}

// NewHub constructs a hub retaining at most capacity events.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 512
	}
	h := &Hub{capacity: capacity, subs: make(map[int]*subscription)}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Publish appends evt and fans it out to subscribers without blocking.
// Subscribers whose channel is full miss the event.
func (h *Hub) Publish(evt Event) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.buffer) == h.capacity {
		copy(h.buffer, h.buffer[1:])
		h.buffer = h.buffer[:h.capacity-1]
	}
	h.buffer = append(h.buffer, evt)
	if evt.Seq > h.lastSeq {
		h.lastSeq = evt.Seq
	}
	for _, sub := range h.subs {
		select {
		case sub.ch <- evt:
		default:
			sub.dropped++
		}
	}
	h.cond.Broadcast()
}

// Subscribe registers a channel receiving events published from now on. The
// returned cancel func closes the channel and reports how many events the
// subscriber missed because it fell behind.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func() uint64) {
	if buffer <= 0 {
		buffer = 64
	}
	sub := &subscription{ch: make(chan Event, buffer)}
	h.mu.Lock()
	id := h.nextSub
	h.nextSub++
	h.subs[id] = sub
	h.mu.Unlock()

	var once sync.Once
	var dropped uint64
	return sub.ch, func() uint64 {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			dropped = sub.dropped
			h.mu.Unlock()
			close(sub.ch)
		})
		return dropped
	}
}

// Since returns up to limit buffered events with sequence greater than since
// along with the latest sequence seen.
func (h *Hub) Since(since uint64, limit int) ([]Event, uint64) {
	events, next, _ := h.Fetch(context.Background(), since, limit, false)
	return events, next
}

// Fetch returns events newer than since. When wait is true it blocks until
// at least one event is available or ctx ends.
func (h *Hub) Fetch(ctx context.Context, since uint64, limit int, wait bool) ([]Event, uint64, error) {
	if h == nil {
		return nil, since, nil
	}
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}

	cancelWait := make(chan struct{})
	if wait && ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				h.mu.Lock()
				h.cond.Broadcast()
				h.mu.Unlock()
			case <-cancelWait:
			}
		}()
	}
	defer close(cancelWait)

	h.mu.Lock()
	defer h.mu.Unlock()
	for {
		events, next := h.snapshotLocked(since, limit)
		if len(events) > 0 || !wait {
			return events, next, contextError(ctx)
		}
		if err := contextError(ctx); err != nil {
			return nil, next, err
		}
		h.cond.Wait()
		if err := contextError(ctx); err != nil {
			return nil, next, err
		}
	}
}

// Tail returns the most recent limit events without blocking.
func (h *Hub) Tail(limit int) ([]Event, uint64) {
	if h == nil {
		return nil, 0
	}
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	start := len(h.buffer) - limit
	if start < 0 {
		start = 0
	}
	out := make([]Event, len(h.buffer)-start)
	copy(out, h.buffer[start:])
	return out, h.lastSeq
}

func (h *Hub) snapshotLocked(since uint64, limit int) ([]Event, uint64) {
	start := -1
	for i, evt := range h.buffer {
		if evt.Seq > since {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, h.lastSeq
	}
	end := start + limit
	if end > len(h.buffer) {
		end = len(h.buffer)
	}
	out := make([]Event, end-start)
	copy(out, h.buffer[start:end])
	return out, h.lastSeq
}

func contextError(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
