// Package persistence adapts record stores to the fire-and-forget hook the
// core notifies on every change.
package persistence

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"simcore/pkg/domain"
)

// DefaultTimeout bounds a single store write.
const DefaultTimeout = 5 * time.Second

// ErrClosed is returned by Flush once an async hook is closed.
var ErrClosed = errors.New("persistence hook closed")

// Hook writes every notification synchronously to a store. Store failures are
// logged and counted; the notifying component never sees them.
type Hook struct {
	store    domain.RecordStore
	logger   domain.Logger
	timeout  time.Duration
	failures atomic.Int64
}

var (
	_ domain.PersistHook = (*Hook)(nil)
	_ domain.PersistHook = (*AsyncHook)(nil)
)

// NewHook wraps store. A nil logger discards failure logs.
func NewHook(store domain.RecordStore, logger domain.Logger) *Hook {
	if logger == nil {
		logger = domain.NopLogger{}
	}
	return &Hook{store: store, logger: logger, timeout: DefaultTimeout}
}

// Upsert implements domain.PersistHook.
func (h *Hook) Upsert(kind domain.RecordKind, id, ownerID string, fields map[string]any) {
	h.apply(op{rec: domain.Record{Kind: kind, ID: id, OwnerID: ownerID, Fields: fields}})
}

// Delete implements domain.PersistHook.
func (h *Hook) Delete(kind domain.RecordKind, id string) {
	h.apply(op{remove: true, rec: domain.Record{Kind: kind, ID: id}})
}

// Failures reports how many writes the store rejected.
func (h *Hook) Failures() int64 { return h.failures.Load() }

func (h *Hook) apply(o op) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	if err := o.write(ctx, h.store); err != nil {
		h.failures.Add(1)
		h.logger.Error("persist record failed", "kind", string(o.rec.Kind), "id", o.rec.ID, "delete", o.remove, "error", err)
	}
}

type op struct {
	remove  bool
	rec     domain.Record
	barrier chan struct{}
}

func (o op) write(ctx context.Context, store domain.RecordStore) error {
	if o.remove {
		return store.Remove(ctx, o.rec.Kind, o.rec.ID)
	}
	return store.Put(ctx, o.rec)
}

// AsyncHook queues notifications and writes them from a single worker, so
// slow stores never hold the system lock. Writes keep their arrival order.
type AsyncHook struct {
	store    domain.RecordStore
	logger   domain.Logger
	timeout  time.Duration
	queue    chan op
	done     chan struct{}
	mu       sync.RWMutex
	closed   bool
	failures atomic.Int64
	dropped  atomic.Int64
}

// NewAsyncHook starts the worker. buffer is the queue length; senders block
// when it is full.
func NewAsyncHook(store domain.RecordStore, logger domain.Logger, buffer int) *AsyncHook {
	if logger == nil {
		logger = domain.NopLogger{}
	}
	if buffer < 1 {
		buffer = 1
	}
	h := &AsyncHook{
		store:   store,
		logger:  logger,
		timeout: DefaultTimeout,
		queue:   make(chan op, buffer),
		done:    make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *AsyncHook) loop() {
	defer close(h.done)
	for o := range h.queue {
		if o.barrier != nil {
			close(o.barrier)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		err := o.write(ctx, h.store)
		cancel()
		if err != nil {
			h.failures.Add(1)
			h.logger.Error("persist record failed", "kind", string(o.rec.Kind), "id", o.rec.ID, "delete", o.remove, "error", err)
		}
	}
}

func (h *AsyncHook) enqueue(o op) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return false
	}
	h.queue <- o
	return true
}

// Upsert implements domain.PersistHook. Notifications after Close are dropped.
func (h *AsyncHook) Upsert(kind domain.RecordKind, id, ownerID string, fields map[string]any) {
	if !h.enqueue(op{rec: domain.Record{Kind: kind, ID: id, OwnerID: ownerID, Fields: fields}}) {
		h.dropped.Add(1)
		h.logger.Warn("persist hook closed, dropping upsert", "kind", string(kind), "id", id)
	}
}

// Delete implements domain.PersistHook.
func (h *AsyncHook) Delete(kind domain.RecordKind, id string) {
	if !h.enqueue(op{remove: true, rec: domain.Record{Kind: kind, ID: id}}) {
		h.dropped.Add(1)
		h.logger.Warn("persist hook closed, dropping delete", "kind", string(kind), "id", id)
	}
}

// Flush waits until every notification queued before the call is written.
func (h *AsyncHook) Flush(ctx context.Context) error {
	barrier := make(chan struct{})
	if !h.enqueue(op{barrier: barrier}) {
		return ErrClosed
	}
	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains the queue and stops the worker. It does not close the store.
func (h *AsyncHook) Close() error {
	h.mu.Lock()
	if !h.closed {
		h.closed = true
		close(h.queue)
	}
	h.mu.Unlock()
	<-h.done
	return nil
}

// Failures reports how many writes the store rejected.
func (h *AsyncHook) Failures() int64 { return h.failures.Load() }

// Dropped reports notifications received after Close.
func (h *AsyncHook) Dropped() int64 { return h.dropped.Load() }
