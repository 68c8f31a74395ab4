package workout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jagreenwood/healthkit-workout-splits/internal/timeutil"
)

type fakePending struct {
	ids   []string
	err   error
	calls chan struct{}
}

func (p *fakePending) PendingActivities(ctx context.Context, opts Options, limit int) ([]string, error) {
	if p.calls != nil {
		p.calls <- struct{}{}
	}
	if len(p.ids) > limit {
		return p.ids[:limit], p.err
	}
	return p.ids, p.err
}

func TestBackfiller_RunOnce(t *testing.T) {
	src := newFakeSource()
	src.addUniform("a", 3, 1000, 300)
	src.addUniform("b", 2, 1000, 300)
	store := &fakeStore{}
	svc := NewService(src, nil)
	svc.Store = store

	pending := &fakePending{ids: []string{"a", "missing", "b"}}
	b := NewBackfiller(svc, pending, Options{TargetMeters: 1000}, 2)

	n, err := b.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, store.runs, 2)
}

func TestBackfiller_RunOnceErrors(t *testing.T) {
	svc := NewService(newFakeSource(), nil)
	b := NewBackfiller(svc, &fakePending{}, Options{TargetMeters: 1000}, 1)
	_, err := b.RunOnce(context.Background())
	assert.Error(t, err, "store is required")

	svc.Store = &fakeStore{}
	b.Pending = &fakePending{err: errors.New("locked")}
	_, err = b.RunOnce(context.Background())
	assert.ErrorContains(t, err, "locked")

	b.Pending = &fakePending{}
	n, err := b.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBackfiller_StartRunsOnTick(t *testing.T) {
	svc := NewService(newFakeSource(), nil)
	svc.Store = &fakeStore{}
	pending := &fakePending{calls: make(chan struct{}, 4)}

	clock := timeutil.NewMockClock(t0)
	b := NewBackfiller(svc, pending, Options{TargetMeters: 1000}, 1)
	b.Clock = clock
	b.Interval = time.Minute

	b.Start(context.Background())
	defer b.Stop()

	// The ticker is registered asynchronously; keep advancing until it fires.
	require.Eventually(t, func() bool {
		clock.Advance(time.Minute)
		select {
		case <-pending.calls:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

// stopsWithin fails the test when b.Stop does not return promptly.
func stopsWithin(t *testing.T, b *Backfiller) {
	t.Helper()
	stopped := make(chan struct{})
	go func() {
		b.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestBackfiller_StopWithoutStart(t *testing.T) {
	svc := NewService(newFakeSource(), nil)
	stopsWithin(t, NewBackfiller(svc, &fakePending{}, Options{TargetMeters: 1000}, 1))
	stopsWithin(t, &Backfiller{})
}

func TestBackfiller_StartStopRepeated(t *testing.T) {
	svc := NewService(newFakeSource(), nil)
	svc.Store = &fakeStore{}
	b := &Backfiller{
		Service:  svc,
		Pending:  &fakePending{},
		Options:  Options{TargetMeters: 1000},
		Interval: time.Hour,
		Clock:    timeutil.NewMockClock(t0),
	}

	b.Start(context.Background())
	b.Start(context.Background())
	stopsWithin(t, b)
	stopsWithin(t, b)

	b.Start(context.Background())
	stopsWithin(t, b)
}
