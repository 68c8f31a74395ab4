// Package fitimport reads FIT activity files into activities, cumulative
// distance segments and timer events.
package fitimport

import (
	"context"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tormoder/fit"

	"github.com/jagreenwood/healthkit-workout-splits/internal/fsutil"
	"github.com/jagreenwood/healthkit-workout-splits/internal/monitoring"
	"github.com/jagreenwood/healthkit-workout-splits/internal/splits"
	"github.com/jagreenwood/healthkit-workout-splits/internal/workout"
)

// Parsed is the content of one FIT activity file.
type Parsed struct {
	Activity workout.Activity
	Segments []splits.DistanceSegment
	Events   []splits.RawEvent
}

// Store persists a decoded activity. ImportActivity must write the
// activity, its samples and its events atomically.
type Store interface {
	ImportActivity(ctx context.Context, a workout.Activity, segments []splits.DistanceSegment, events []splits.RawEvent) (workout.Activity, error)
}

// Decode parses a FIT activity file. The first session supplies the
// activity window and sport.
func Decode(r io.Reader) (*Parsed, error) {
	decoded, err := fit.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode FIT file: %w", err)
	}

	activity, err := decoded.Activity()
	if err != nil {
		return nil, fmt.Errorf("activity FIT expected: %w", err)
	}
	if len(activity.Sessions) == 0 {
		return nil, fmt.Errorf("activity file has no session message")
	}
	session := activity.Sessions[0]

	samples := recordSamples(activity.Records)
	p := &Parsed{
		Activity: workout.Activity{
			Kind:     strings.ToLower(fmt.Sprint(session.Sport)),
			SourceID: fmt.Sprintf("fit-%d", decoded.FileId.SerialNumber),
			Start:    validTimeOrZero(session.StartTime),
			End:      validTimeOrZero(session.Timestamp),
		},
		Events: timerEvents(activity.Events),
	}
	if len(samples) > 0 {
		if p.Activity.Start.IsZero() {
			p.Activity.Start = samples[0].ts
		}
		if p.Activity.End.IsZero() || p.Activity.End.Before(samples[len(samples)-1].ts) {
			p.Activity.End = samples[len(samples)-1].ts
		}
	}
	if p.Activity.End.Before(p.Activity.Start) {
		p.Activity.End = p.Activity.Start
	}

	p.Segments = segmentsFromSamples(samples, p.Activity.Start)

	p.Activity.TotalDistanceMeters = safePositive(session.GetTotalDistanceScaled())
	if p.Activity.TotalDistanceMeters == 0 {
		p.Activity.TotalDistanceMeters = splits.TotalDistance(p.Segments)
	}
	return p, nil
}

// Import decodes the file at path on fsys and stores it. The file name
// without extension becomes the activity name.
func Import(ctx context.Context, store Store, fsys fsutil.FileSystem, path string) (workout.Activity, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return workout.Activity{}, fmt.Errorf("open FIT file: %w", err)
	}
	defer f.Close()

	p, err := Decode(f)
	if err != nil {
		return workout.Activity{}, err
	}
	p.Activity.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	act, err := store.ImportActivity(ctx, p.Activity, p.Segments, p.Events)
	if err != nil {
		return workout.Activity{}, err
	}

	monitoring.Logf("imported %s as activity %s: %.0fm, %d samples, %d events",
		path, act.ID, act.TotalDistanceMeters, len(p.Segments), len(p.Events))
	return act, nil
}

type sample struct {
	ts       time.Time
	distance float64
}

// recordSamples keeps records with a valid timestamp and cumulative
// distance, sorted by time.
func recordSamples(records []*fit.RecordMsg) []sample {
	out := make([]sample, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		ts := validTimeOrZero(rec.Timestamp)
		d := rec.GetDistanceScaled()
		if ts.IsZero() || math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
			continue
		}
		out = append(out, sample{ts: ts, distance: d})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ts.Before(out[j].ts)
	})
	return out
}

// segmentsFromSamples turns cumulative distances into per-interval
// segments. The first interval starts at start when the first record is
// later and already has distance. A cumulative distance that goes
// backwards yields a zero-distance segment.
func segmentsFromSamples(samples []sample, start time.Time) []splits.DistanceSegment {
	if len(samples) == 0 {
		return nil
	}

	var out []splits.DistanceSegment
	prev := samples[0]
	if prev.distance > 0 && !start.IsZero() && start.Before(prev.ts) {
		out = append(out, splits.DistanceSegment{DistanceMeters: prev.distance, Start: start, End: prev.ts})
	}

	for _, s := range samples[1:] {
		delta := s.distance - prev.distance
		if delta < 0 {
			delta = 0
		}
		out = append(out, splits.DistanceSegment{DistanceMeters: delta, Start: prev.ts, End: s.ts})
		if s.distance > prev.distance {
			prev = s
		} else {
			prev.ts = s.ts
		}
	}
	return out
}

// timerEvents maps timer stop/start events to pause/resume.
func timerEvents(events []*fit.EventMsg) []splits.RawEvent {
	var out []splits.RawEvent
	for _, ev := range events {
		if ev == nil || ev.Event != fit.EventTimer {
			continue
		}
		ts := validTimeOrZero(ev.Timestamp)
		if ts.IsZero() {
			continue
		}
		out = append(out, splits.RawEvent{Kind: timerKind(ev.EventType), Timestamp: ts})
	}
	return out
}

func timerKind(t fit.EventType) splits.EventKind {
	switch t {
	case fit.EventTypeStop, fit.EventTypeStopAll, fit.EventTypeStopDisable, fit.EventTypeStopDisableAll:
		return splits.EventPause
	case fit.EventTypeStart:
		return splits.EventResume
	default:
		return splits.EventOther
	}
}

func validTimeOrZero(t time.Time) time.Time {
	if t.IsZero() || fit.IsBaseTime(t) {
		return time.Time{}
	}
	return t.UTC()
}

func safePositive(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0
	}
	return v
}
