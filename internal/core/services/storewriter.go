package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lorrc/modmail-backend/internal/core/ports"
)

// AsyncStoreWriter runs persistence tasks in the background so the live
// relay never waits on, or fails because of, the store. Failures are
// logged and swallowed; there is no retry and no rollback of the relay.
//
// Tasks are serialized per key (the ticket ID): each task waits for the
// previous task under the same key, so message appends cannot race ahead
// of the ticket insert they reference. Tasks under different keys run
// concurrently.
type AsyncStoreWriter struct {
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup

	mu    sync.Mutex
	tails map[string]chan struct{}
}

var _ ports.StoreWriter = (*AsyncStoreWriter)(nil)

// NewAsyncStoreWriter creates a writer whose tasks each get an independent
// context with the given timeout.
func NewAsyncStoreWriter(logger *slog.Logger, timeout time.Duration) *AsyncStoreWriter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AsyncStoreWriter{
		logger:  logger.With("component", "store_writer"),
		timeout: timeout,
		tails:   make(map[string]chan struct{}),
	}
}

// Go spawns fn on its own goroutine with a fresh timeout context, behind
// any still-running task under the same key. The op name only labels the
// failure log line.
func (w *AsyncStoreWriter) Go(key, op string, fn func(ctx context.Context) error) {
	w.wg.Add(1)

	w.mu.Lock()
	prev := w.tails[key]
	done := make(chan struct{})
	w.tails[key] = done
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		defer func() {
			close(done)
			w.mu.Lock()
			if w.tails[key] == done {
				delete(w.tails, key)
			}
			w.mu.Unlock()
		}()

		if prev != nil {
			<-prev
		}

		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			w.logger.Error("persistence failed", "op", op, "key", key, "error", err)
		}
	}()
}

// Shutdown waits for in-flight persistence tasks to drain.
func (w *AsyncStoreWriter) Shutdown() {
	w.wg.Wait()
}
