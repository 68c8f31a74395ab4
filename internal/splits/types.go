package splits

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// MinPartialSplitMeters is the trailing remainder a partial split must
// exceed to be emitted. Smaller remainders are floating-point residue.
const MinPartialSplitMeters = 0.1

// ErrInvalidTarget is returned when the split target distance is not a
// positive, finite number of meters.
var ErrInvalidTarget = errors.New("split target distance must be positive")

// DistanceSegment is a distance covered over one sample window.
type DistanceSegment struct {
	DistanceMeters float64   `json:"distance_meters"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
}

// DurationSeconds returns the length of the sample window in seconds.
func (s DistanceSegment) DurationSeconds() float64 {
	return s.End.Sub(s.Start).Seconds()
}

// Validate checks the segment's own invariants.
func (s DistanceSegment) Validate() error {
	if math.IsNaN(s.DistanceMeters) || math.IsInf(s.DistanceMeters, 0) || s.DistanceMeters < 0 {
		return fmt.Errorf("distance must be a non-negative number, got %v", s.DistanceMeters)
	}
	if s.End.Before(s.Start) {
		return fmt.Errorf("segment ends before it starts: %s < %s", s.End.Format(time.RFC3339Nano), s.Start.Format(time.RFC3339Nano))
	}
	return nil
}

// PauseInterval is a closed time range excluded from split durations.
type PauseInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// DurationSeconds returns the pause length in seconds.
func (p PauseInterval) DurationSeconds() float64 {
	return p.End.Sub(p.Start).Seconds()
}

// EventKind classifies a raw workout state-change event.
type EventKind string

const (
	EventPause  EventKind = "pause"
	EventResume EventKind = "resume"
	EventOther  EventKind = "other"
)

// ParseEventKind maps a stored kind string to an EventKind. Unknown kinds
// become EventOther.
func ParseEventKind(s string) EventKind {
	switch EventKind(s) {
	case EventPause:
		return EventPause
	case EventResume:
		return EventResume
	default:
		return EventOther
	}
}

// RawEvent is a discrete workout state change.
type RawEvent struct {
	Kind      EventKind `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

// Split is one fixed-distance slice of an activity.
type Split struct {
	Index               int       `json:"index"`
	DistanceMeters      float64   `json:"distance_meters"`
	DurationSeconds     float64   `json:"duration_seconds"`
	PaceMetersPerSecond float64   `json:"pace_mps"`
	EndTimestamp        time.Time `json:"end_timestamp"`
	IsPartial           bool      `json:"is_partial"`
}

// ValidateTarget rejects zero, negative and non-finite split targets.
func ValidateTarget(targetMeters float64) error {
	if math.IsNaN(targetMeters) || math.IsInf(targetMeters, 0) || targetMeters <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidTarget, targetMeters)
	}
	return nil
}

// ValidateSegments checks each segment and that the sequence is sorted
// ascending by start time. Overlap is not checked.
func ValidateSegments(segments []DistanceSegment) error {
	for i, s := range segments {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
		if i > 0 && s.Start.Before(segments[i-1].Start) {
			return fmt.Errorf("segment %d starts before segment %d", i, i-1)
		}
	}
	return nil
}

// TotalDistance sums the distance of all segments.
func TotalDistance(segments []DistanceSegment) float64 {
	var total float64
	for _, s := range segments {
		total += s.DistanceMeters
	}
	return total
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
