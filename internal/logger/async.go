package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Closer allows flushing and stopping the async handler.
type Closer interface {
	Close()
}

// nopCloser is a no-op Closer for synchronous mode.
type nopCloser struct{}

func (nopCloser) Close() {}

// AsyncHandler decouples log emission from I/O with a buffered channel and
// a single drain goroutine. Records are dropped (and counted) rather than
// blocking the caller when the buffer is full.
type AsyncHandler struct {
	inner   slog.Handler
	records chan slog.Record
	done    *sync.WaitGroup
	dropped *atomic.Int64
}

// NewAsyncHandler creates an AsyncHandler with the given buffer capacity.
func NewAsyncHandler(inner slog.Handler, capacity int) *AsyncHandler {
	h := &AsyncHandler{
		inner:   inner,
		records: make(chan slog.Record, capacity),
		done:    &sync.WaitGroup{},
		dropped: &atomic.Int64{},
	}
	h.done.Add(1)
	go func() {
		defer h.done.Done()
		for rec := range h.records {
			_ = h.inner.Handle(context.Background(), rec)
		}
	}()
	return h
}

// Enabled delegates to the inner handler.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enqueues the record. Drops if the buffer is full.
func (h *AsyncHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	select {
	case h.records <- rec:
	default:
		h.dropped.Add(1)
	}
	return nil
}

// WithAttrs returns a new AsyncHandler sharing the same buffer but wrapping a new inner handler.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithAttrs(attrs), records: h.records, done: h.done, dropped: h.dropped}
}

// WithGroup returns a new AsyncHandler sharing the same buffer but wrapping a new inner handler.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithGroup(name), records: h.records, done: h.done, dropped: h.dropped}
}

// DroppedCount returns the number of dropped records.
func (h *AsyncHandler) DroppedCount() int64 {
	return h.dropped.Load()
}

// Close closes the buffer and waits for the drain goroutine to finish.
func (h *AsyncHandler) Close() {
	close(h.records)
	h.done.Wait()
}
