// Package worker provides background maintenance jobs.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cubbyhole/cubbyhole/internal/metrics"
	"github.com/cubbyhole/cubbyhole/internal/model"
)

const (
	// DefaultInterval is how often the janitor sweeps.
	DefaultInterval = time.Minute

	// DefaultBatchSize is the max records retried per sweep.
	DefaultBatchSize = 50

	// deleteGracePeriod keeps the janitor away from records a live
	// request may still be finishing.
	deleteGracePeriod = 30 * time.Second
)

// ItemSource lists and removes file records stuck mid-delete.
type ItemSource interface {
	ListDeletingFiles(ctx context.Context, olderThan time.Time, limit int) ([]*model.Item, error)
	DeleteItem(ctx context.Context, id string) error
}

// ObjectDeleter removes stored bytes by key.
type ObjectDeleter interface {
	Delete(ctx context.Context, key string) error
}

// Janitor finishes file deletions whose object removal failed: it
// periodically retries the object delete and then drops the record.
// Object deletes are idempotent, so re-running a half-finished delete
// is safe.
type Janitor struct {
	items     ItemSource
	objects   ObjectDeleter
	logger    *slog.Logger
	metrics   metrics.Recorder
	interval  time.Duration
	batchSize int

	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.Mutex
}

// NewJanitor creates a new Janitor.
func NewJanitor(items ItemSource, objects ObjectDeleter, logger *slog.Logger, recorder metrics.Recorder, interval time.Duration, batchSize int) *Janitor {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Janitor{
		items:     items,
		objects:   objects,
		logger:    logger.With("component", "worker.janitor"),
		metrics:   recorder,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Start launches the sweep loop in a goroutine.
func (j *Janitor) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.started {
		return
	}
	j.started = true

	runCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.done = make(chan struct{})

	go j.run(runCtx)

	j.logger.Info("janitor started", slog.Duration("interval", j.interval))
}

// Shutdown stops the loop and waits for the current sweep to finish.
func (j *Janitor) Shutdown(ctx context.Context) error {
	j.mu.Lock()
	if !j.started {
		j.mu.Unlock()
		return nil
	}
	cancel := j.cancel
	done := j.done
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if done != nil {
		select {
		case <-done:
			j.logger.Info("janitor shutdown complete")
			return nil
		case <-ctx.Done():
			j.logger.Warn("janitor shutdown timed out")
			return ctx.Err()
		}
	}
	return nil
}

func (j *Janitor) run(ctx context.Context) {
	defer close(j.done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep retries pending deletions once. Exported so tests and an
// operator endpoint can trigger it directly.
func (j *Janitor) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-deleteGracePeriod)

	items, err := j.items.ListDeletingFiles(ctx, cutoff, j.batchSize)
	if err != nil {
		j.logger.Error("failed to list pending deletions", slog.String("error", err.Error()))
		return
	}

	for _, item := range items {
		if ctx.Err() != nil {
			return
		}

		if err := j.objects.Delete(ctx, item.ObjectKey); err != nil {
			j.logger.Warn("object delete retry failed",
				slog.String("item_id", item.ID),
				slog.String("object_key", item.ObjectKey),
				slog.String("error", err.Error()),
			)
			j.metrics.IncJanitorRetryFailed()
			continue
		}

		if err := j.items.DeleteItem(ctx, item.ID); err != nil {
			j.logger.Warn("record delete retry failed",
				slog.String("item_id", item.ID),
				slog.String("error", err.Error()),
			)
			j.metrics.IncJanitorRetryFailed()
			continue
		}

		j.metrics.IncJanitorCleanup()
		j.logger.Info("cleaned up pending deletion",
			slog.String("item_id", item.ID),
			slog.String("object_key", item.ObjectKey),
		)
	}
}
