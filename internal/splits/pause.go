package splits

import (
	"slices"
	"time"
)

// pauseFold is the accumulator of the pause/resume scan. Only the most
// recent unmatched pause is tracked.
type pauseFold struct {
	pending   time.Time
	isPending bool
	intervals []PauseInterval
}

func (f pauseFold) step(ev RawEvent) pauseFold {
	switch ev.Kind {
	case EventPause:
		f.pending = ev.Timestamp
		f.isPending = true
	case EventResume:
		if f.isPending {
			f.intervals = append(f.intervals, PauseInterval{Start: f.pending, End: ev.Timestamp})
			f.isPending = false
		}
	}
	return f
}

// ExtractPauseIntervals folds pause/resume events into closed pause
// intervals. Events are sorted by timestamp on a copy first. A pause left
// open when the events run out is closed at activityEnd; if activityEnd
// precedes that pause the interval is zero-length.
func ExtractPauseIntervals(events []RawEvent, activityEnd time.Time) []PauseInterval {
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b RawEvent) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	var f pauseFold
	for _, ev := range sorted {
		f = f.step(ev)
	}
	if f.isPending {
		end := activityEnd
		if end.Before(f.pending) {
			end = f.pending
		}
		f.intervals = append(f.intervals, PauseInterval{Start: f.pending, End: end})
	}
	return f.intervals
}

// TotalPausedSeconds sums the pause lengths without merging overlaps.
func TotalPausedSeconds(pauses []PauseInterval) float64 {
	var total float64
	for _, p := range pauses {
		if d := p.DurationSeconds(); d > 0 {
			total += d
		}
	}
	return total
}
