package splits

import "time"

// ActiveDuration returns the seconds in [start, end] not covered by any
// pause. Each pause contributes its intersection with the window; pauses
// are not merged, so overlapping pauses are subtracted twice. The result
// is never negative.
func ActiveDuration(start, end time.Time, pauses []PauseInterval) float64 {
	total := end.Sub(start).Seconds()

	var paused float64
	for _, p := range pauses {
		s := p.Start
		if s.Before(start) {
			s = start
		}
		e := p.End
		if e.After(end) {
			e = end
		}
		if e.After(s) {
			paused += e.Sub(s).Seconds()
		}
	}

	active := total - paused
	if active < 0 {
		return 0
	}
	return active
}

// ActiveTime is ActiveDuration as a time.Duration, for whole-activity
// reporting.
func ActiveTime(start, end time.Time, pauses []PauseInterval) time.Duration {
	return secondsToDuration(ActiveDuration(start, end, pauses))
}
