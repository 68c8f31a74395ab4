package workout

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/jagreenwood/healthkit-workout-splits/internal/monitoring"
	"github.com/jagreenwood/healthkit-workout-splits/internal/splits"
	"github.com/jagreenwood/healthkit-workout-splits/internal/timeutil"
)

const (
	// MinTargetMeters is the smallest split distance the service accepts.
	MinTargetMeters = 1.0
	// MaxSplits bounds how many splits one computation may produce.
	MaxSplits = 10000
)

// Service computes splits for stored activities.
type Service struct {
	Source SampleSource
	Auth   Authorizer // optional
	Store  SplitStore // optional; results are persisted when set
	Clock  timeutil.Clock
}

// NewService returns a Service reading from source. auth may be nil.
func NewService(source SampleSource, auth Authorizer) *Service {
	return &Service{
		Source: source,
		Auth:   auth,
		Clock:  timeutil.RealClock{},
	}
}

// ComputeSplits runs the full pipeline for one activity. Validation and
// retrieval failures are reported as errors from the workout taxonomy;
// an aggregation that yields nothing is ErrInsufficientData.
func (s *Service) ComputeSplits(ctx context.Context, activityID string, opts Options) (*Result, error) {
	if err := validateTarget(opts.TargetMeters); err != nil {
		return nil, err
	}

	if s.Auth != nil {
		if err := s.Auth.Authorize(ctx); err != nil {
			if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrUnavailable) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
		}
	}

	act, err := s.Source.Activity(ctx, activityID)
	if err != nil {
		return nil, sourceError("load activity", err)
	}
	if !(act.TotalDistanceMeters > 0) {
		return nil, fmt.Errorf("%w: activity %s", ErrNoDistance, act.ID)
	}

	segments, err := s.Source.DistanceSegments(ctx, act.ID, act.Start, act.End, act.SourceID)
	if err != nil {
		return nil, sourceError("load distance samples", err)
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: activity %s", ErrNoSamples, act.ID)
	}
	if n := splits.TotalDistance(segments) / opts.TargetMeters; n > MaxSplits {
		return nil, fmt.Errorf("%w: %.0fm target yields %.0f splits, limit is %d",
			ErrInvalidTarget, opts.TargetMeters, n, MaxSplits)
	}

	var pauses []splits.PauseInterval
	if opts.ExcludePausedTime {
		events, err := s.Source.Events(ctx, act.ID)
		if err != nil {
			return nil, sourceError("load workout events", err)
		}
		pauses = splits.ExtractPauseIntervals(events, act.End)
	}

	result := splits.Aggregate(segments, opts.TargetMeters, pauses, act.Start)
	if len(result) == 0 {
		return nil, fmt.Errorf("%w: activity %s (%d samples)", ErrInsufficientData, act.ID, len(segments))
	}

	clock := s.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	res := &Result{
		Activity:       act,
		Options:        opts,
		Splits:         result,
		Pauses:         pauses,
		ActiveSeconds:  splits.ActiveDuration(act.Start, act.End, pauses),
		ElapsedSeconds: act.ElapsedSeconds(),
		ComputedAt:     clock.Now().UTC(),
	}

	if s.Store != nil {
		runID, err := s.Store.SaveSplitRun(ctx, res, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to save split run: %w", err)
		}
		res.RunID = runID
	}

	monitoring.Logf("computed %d splits for activity %s (target %.2fm, exclude paused %t)",
		len(res.Splits), act.ID, opts.TargetMeters, opts.ExcludePausedTime)
	return res, nil
}

// ComputeBatch computes splits for each activity using at most workers
// concurrent computations. Items are returned in input order with their
// own error; the returned error is non-nil only when ctx is done.
func (s *Service) ComputeBatch(ctx context.Context, ids []string, opts Options, workers int) ([]BatchItem, error) {
	if err := validateTarget(opts.TargetMeters); err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}

	items := make([]BatchItem, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, id := range ids {
		items[i].ActivityID = id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				items[i].Err = err
				return err
			}
			res, err := s.ComputeSplits(gctx, id, opts)
			items[i].Result = res
			items[i].Err = err
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return items, err
	}
	return items, ctx.Err()
}

// validateTarget applies the core check plus the service floor.
func validateTarget(targetMeters float64) error {
	if err := splits.ValidateTarget(targetMeters); err != nil {
		return err
	}
	if targetMeters < MinTargetMeters {
		return fmt.Errorf("%w: %vm is below the %vm minimum", ErrInvalidTarget, targetMeters, MinTargetMeters)
	}
	return nil
}

// sourceError keeps not-found errors distinct and folds every other
// retrieval failure into ErrUnavailable.
func sourceError(op string, err error) error {
	switch {
	case errors.Is(err, ErrActivityNotFound), errors.Is(err, ErrUnavailable), errors.Is(err, ErrUnauthorized):
		return fmt.Errorf("failed to %s: %w", op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("failed to %s: %w: %w", op, ErrUnavailable, err)
	}
}
