package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Closer flushes buffered log records and stops background workers.
// The synchronous logger returns a no-op implementation.
type Closer interface {
	Close()
}

type nopCloser struct{}

func (nopCloser) Close() {}

// AsyncHandler decouples request handling from log serialization: Handle
// only enqueues the record, and a fixed pool of workers feeds the wrapped
// handler. When the queue is full the record is dropped and counted
// rather than blocking the request path.
type AsyncHandler struct {
	next    slog.Handler
	queue   chan slog.Record
	workers *sync.WaitGroup
	lost    *atomic.Int64
}

// NewAsyncHandler starts workerCount workers draining a queue of
// queueSize records into next.
func NewAsyncHandler(next slog.Handler, queueSize, workerCount int) *AsyncHandler {
	h := &AsyncHandler{
		next:    next,
		queue:   make(chan slog.Record, queueSize),
		workers: &sync.WaitGroup{},
		lost:    &atomic.Int64{},
	}
	for range workerCount {
		h.workers.Add(1)
		go func() {
			defer h.workers.Done()
			for rec := range h.queue {
				_ = h.next.Handle(context.Background(), rec)
			}
		}()
	}
	return h
}

// Enabled reports whether the wrapped handler would emit at this level.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle enqueues rec without blocking. A full queue drops the record.
func (h *AsyncHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	select {
	case h.queue <- rec:
	default:
		h.lost.Add(1)
	}
	return nil
}

// WithAttrs derives a handler with extra attrs. The queue, worker pool,
// and drop counter are shared with the parent so Close drains everything.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{next: h.next.WithAttrs(attrs), queue: h.queue, workers: h.workers, lost: h.lost}
}

// WithGroup derives a handler with a nested group, sharing the parent's
// queue, worker pool, and drop counter.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{next: h.next.WithGroup(name), queue: h.queue, workers: h.workers, lost: h.lost}
}

// DroppedCount reports how many records were discarded because the
// queue was full.
func (h *AsyncHandler) DroppedCount() int64 {
	return h.lost.Load()
}

// Close stops accepting records and blocks until the workers have
// flushed everything already queued.
func (h *AsyncHandler) Close() {
	close(h.queue)
	h.workers.Wait()
}
