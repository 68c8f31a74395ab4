// Package workout orchestrates split computation around the pure splits
// core: it authorizes access, loads an activity and its samples from a
// SampleSource, runs the aggregator and optionally persists the result.
package workout

import (
	"context"
	"time"

	"github.com/jagreenwood/healthkit-workout-splits/internal/splits"
)

// Activity is a recorded workout with its primary measurement source.
type Activity struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Kind                string    `json:"kind"`
	SourceID            string    `json:"source_id"`
	Start               time.Time `json:"start"`
	End                 time.Time `json:"end"`
	TotalDistanceMeters float64   `json:"total_distance_meters"`
}

// ElapsedSeconds returns the wall-clock length of the activity.
func (a Activity) ElapsedSeconds() float64 {
	return a.End.Sub(a.Start).Seconds()
}

// SampleSource retrieves activities and their samples.
type SampleSource interface {
	// Activity returns the activity with the given ID, or an error
	// wrapping ErrActivityNotFound.
	Activity(ctx context.Context, id string) (Activity, error)
	// DistanceSegments returns the segments recorded by sourceID within
	// [start, end], sorted ascending by start time.
	DistanceSegments(ctx context.Context, activityID string, start, end time.Time, sourceID string) ([]splits.DistanceSegment, error)
	// Events returns the raw pause/resume events of an activity.
	Events(ctx context.Context, activityID string) ([]splits.RawEvent, error)
}

// Authorizer checks that workout data may be read. It is called once per
// computation, before any retrieval.
type Authorizer interface {
	Authorize(ctx context.Context) error
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context) error

// Authorize calls f(ctx).
func (f AuthorizerFunc) Authorize(ctx context.Context) error { return f(ctx) }

// SplitStore persists computed split runs.
type SplitStore interface {
	// SaveSplitRun stores res and returns the new run ID.
	SaveSplitRun(ctx context.Context, res *Result, opts Options) (string, error)
}

// Options controls a single split computation.
type Options struct {
	TargetMeters      float64 `json:"target_meters"`
	ExcludePausedTime bool    `json:"exclude_paused_time"`
}

// Result is a completed split computation for one activity.
type Result struct {
	RunID          string                 `json:"run_id,omitempty"`
	Activity       Activity               `json:"activity"`
	Options        Options                `json:"options"`
	Splits         []splits.Split         `json:"splits"`
	Pauses         []splits.PauseInterval `json:"pauses"`
	ActiveSeconds  float64                `json:"active_seconds"`
	ElapsedSeconds float64                `json:"elapsed_seconds"`
	ComputedAt     time.Time              `json:"computed_at"`
}

// BatchItem is the outcome of one activity within a batch.
type BatchItem struct {
	ActivityID string
	Result     *Result
	Err        error
}
