package splits

import "time"

// aggregator is the scan state carried across segments.
type aggregator struct {
	target             float64
	pauses             []PauseInterval
	cumulative         float64
	splitStartDistance float64
	splitStartTime     time.Time
	nextIndex          int
	out                []Split
}

// Aggregate converts ordered distance segments into fixed-distance splits.
//
// Segments must be sorted ascending by start time. Time inside a segment is
// apportioned linearly by distance using the segment's total distance as
// the denominator, so one long segment may close several splits. Each
// split's duration is its active time after pause subtraction. A trailing
// remainder larger than MinPartialSplitMeters becomes a final partial
// split ending at the last segment's end; anything smaller is dropped.
//
// Callers validate targetMeters with ValidateTarget; a target that is not
// positive yields nil here. Empty input returns nil.
func Aggregate(segments []DistanceSegment, targetMeters float64, pauses []PauseInterval, activityStart time.Time) []Split {
	if len(segments) == 0 || !(targetMeters > 0) {
		return nil
	}

	a := &aggregator{
		target:         targetMeters,
		pauses:         pauses,
		splitStartTime: activityStart,
		nextIndex:      1,
	}
	for _, seg := range segments {
		a.consume(seg)
	}
	a.finish(segments[len(segments)-1].End)
	return a.out
}

func (a *aggregator) consume(seg DistanceSegment) {
	remaining := seg.DistanceMeters
	segSeconds := seg.DurationSeconds()
	var offset float64

	for remaining > 0 {
		toBoundary := a.target - (a.cumulative - a.splitStartDistance)
		if remaining < toBoundary {
			a.cumulative += remaining
			return
		}

		portion := segSeconds * (toBoundary / seg.DistanceMeters)
		end := seg.Start.Add(secondsToDuration(offset + portion))
		a.emit(a.target, end, false)

		a.cumulative += toBoundary
		a.splitStartDistance = a.cumulative
		a.splitStartTime = end
		remaining -= toBoundary
		offset += portion
	}
}

func (a *aggregator) finish(lastEnd time.Time) {
	remainder := a.cumulative - a.splitStartDistance
	if remainder > MinPartialSplitMeters {
		a.emit(remainder, lastEnd, true)
	}
}

func (a *aggregator) emit(distance float64, end time.Time, partial bool) {
	active := ActiveDuration(a.splitStartTime, end, a.pauses)
	a.out = append(a.out, Split{
		Index:               a.nextIndex,
		DistanceMeters:      distance,
		DurationSeconds:     active,
		PaceMetersPerSecond: Pace(distance, active),
		EndTimestamp:        end,
		IsPartial:           partial,
	})
	a.nextIndex++
}

// Compute validates the target, extracts pause intervals when
// excludePaused is set, and aggregates. It returns the splits together
// with the pause intervals that were applied.
func Compute(segments []DistanceSegment, targetMeters float64, events []RawEvent, activityStart, activityEnd time.Time, excludePaused bool) ([]Split, []PauseInterval, error) {
	if err := ValidateTarget(targetMeters); err != nil {
		return nil, nil, err
	}
	var pauses []PauseInterval
	if excludePaused {
		pauses = ExtractPauseIntervals(events, activityEnd)
	}
	return Aggregate(segments, targetMeters, pauses, activityStart), pauses, nil
}
