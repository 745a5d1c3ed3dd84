package coordinator_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"murmur/internal/config"
	"murmur/internal/coordinator"
	"murmur/internal/logging"
	"murmur/internal/notifications"
	"murmur/internal/operation"
	"murmur/internal/testsupport"
)

type harness struct {
	coord    *coordinator.Coordinator
	clock    *testsupport.FakeClock
	observer *testsupport.RecordingObserver
	ctx      context.Context
}

func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("op-%03d", n.Add(1))
	}
}

func newHarness(t *testing.T, cfg *config.Config, opts ...coordinator.Option) *harness {
	t.Helper()
	if cfg == nil {
		cfg = testsupport.NewConfig(t)
	}
	clock := testsupport.NewFakeClock()
	base := []coordinator.Option{
		coordinator.WithClock(clock),
		coordinator.WithExecutor(notifications.InlineExecutor{}),
		coordinator.WithIDGenerator(sequentialIDs()),
	}
	coord := coordinator.New(cfg, logging.NewNop(), append(base, opts...)...)
	observer := testsupport.NewRecordingObserver()
	coord.SetObserver(observer)
	t.Cleanup(coord.Shutdown)
	return &harness{coord: coord, clock: clock, observer: observer, ctx: context.Background()}
}

func (h *harness) register(t *testing.T, typ operation.Type) string {
	t.Helper()
	id, ok := h.coord.Register(h.ctx, typ)
	if !ok {
		t.Fatalf("register %s rejected", typ)
	}
	return id
}

func (h *harness) status(t *testing.T, id string) operation.Status {
	t.Helper()
	op, ok := h.coord.Get(id)
	if !ok {
		t.Fatalf("operation %s not found", id)
	}
	return op.Status
}

func ids(ops []operation.Operation) []string {
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = op.ID
	}
	return out
}
