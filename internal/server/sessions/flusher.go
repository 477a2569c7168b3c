package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/polvault/internal/logging"
)

// PersistFunc writes the current set to durable storage. It must take its
// copy of the set inside the same critical section as the write.
type PersistFunc func(ctx context.Context) error

// Flusher periodically persists the session set. Lifecycle events persist
// on their own; the flusher only bounds how stale the durable copy can get.
type Flusher struct {
	persist  PersistFunc
	interval time.Duration
	logger   logging.Logger
}

func NewFlusher(persist PersistFunc, interval time.Duration, logger logging.Logger) *Flusher {
	return &Flusher{
		persist:  persist,
		interval: interval,
		logger:   logger.With("module", "sessions"),
	}
}

// Flush persists the current content once.
func (f *Flusher) Flush(ctx context.Context) error {
	return f.persist(ctx)
}

// Run flushes every interval until ctx is cancelled, then flushes one last
// time with a fresh context so shutdown does not lose revocations.
func (f *Flusher) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			finalCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := f.Flush(finalCtx); err != nil {
				f.logger.Error(finalCtx, "final session flush failed", "error", err)
			}
			cancel()
			return
		case <-ticker.C:
			if err := f.Flush(ctx); err != nil {
				f.logger.Error(ctx, "session flush failed", "error", err)
			}
		}
	}
}
