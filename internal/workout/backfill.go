package workout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jagreenwood/healthkit-workout-splits/internal/monitoring"
	"github.com/jagreenwood/healthkit-workout-splits/internal/timeutil"
)

// PendingLister lists activities that have no stored split run for the
// given options.
type PendingLister interface {
	PendingActivities(ctx context.Context, opts Options, limit int) ([]string, error)
}

// Backfiller periodically computes and stores splits for activities that
// were imported without them. The Service must have a Store set.
type Backfiller struct {
	Service   *Service
	Pending   PendingLister
	Options   Options
	Workers   int
	BatchSize int
	Interval  time.Duration // how often to run (e.g., 15m)
	Clock     timeutil.Clock

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	done     chan struct{}
}

// NewBackfiller returns a Backfiller running every 15 minutes.
func NewBackfiller(svc *Service, pending PendingLister, opts Options, workers int) *Backfiller {
	return &Backfiller{
		Service:   svc,
		Pending:   pending,
		Options:   opts,
		Workers:   workers,
		BatchSize: 100,
		Interval:  15 * time.Minute,
		Clock:     timeutil.RealClock{},
	}
}

// Start runs the periodic loop in a goroutine. Starting a running
// Backfiller does nothing.
func (b *Backfiller) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return
	}
	b.running = true
	stop := make(chan struct{})
	done := make(chan struct{})
	b.stopChan, b.done = stop, done

	clock := b.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	go func() {
		defer close(done)
		ticker := clock.NewTicker(b.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C():
				if _, err := b.RunOnce(ctx); err != nil {
					monitoring.Logf("split backfill run error: %v", err)
				}
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop requests the loop to exit and waits for it. It returns at once
// when the loop is not running.
func (b *Backfiller) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	close(b.stopChan)
	done := b.done
	b.mu.Unlock()
	<-done
}

// RunOnce computes one batch of pending activities and returns how many
// were stored. Activities whose data cannot be split are logged and
// skipped; they stay pending.
func (b *Backfiller) RunOnce(ctx context.Context) (int, error) {
	if b.Service == nil || b.Service.Store == nil {
		return 0, fmt.Errorf("backfill requires a service with a split store")
	}
	ids, err := b.Pending.PendingActivities(ctx, b.Options, b.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending activities: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	items, err := b.Service.ComputeBatch(ctx, ids, b.Options, b.Workers)
	if err != nil {
		return 0, err
	}
	stored := 0
	for _, it := range items {
		if it.Err != nil {
			monitoring.Logf("split backfill: activity %s skipped (%s): %v", it.ActivityID, Classify(it.Err), it.Err)
			continue
		}
		stored++
	}
	monitoring.Logf("split backfill: stored %d of %d pending activities", stored, len(ids))
	return stored, nil
}
