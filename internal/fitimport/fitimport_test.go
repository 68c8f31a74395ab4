package fitimport

import (
	"bytes"
	"context"
	"encoding/binary"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tormoder/fit"

	"github.com/jagreenwood/healthkit-workout-splits/internal/db"
	"github.com/jagreenwood/healthkit-workout-splits/internal/fsutil"
	"github.com/jagreenwood/healthkit-workout-splits/internal/splits"
	"github.com/jagreenwood/healthkit-workout-splits/internal/workout"
)

var t0 = time.Date(2025, 4, 12, 8, 0, 0, 0, time.UTC)

func record(offset time.Duration, meters float64) *fit.RecordMsg {
	rec := fit.NewRecordMsg()
	rec.Timestamp = t0.Add(offset)
	rec.Distance = uint32(meters * 100)
	return rec
}

func timer(offset time.Duration, typ fit.EventType) *fit.EventMsg {
	ev := fit.NewEventMsg()
	ev.Timestamp = t0.Add(offset)
	ev.Event = fit.EventTimer
	ev.EventType = typ
	return ev
}

// encodeActivity builds an activity FIT file in memory.
func encodeActivity(t *testing.T, serial uint32, session *fit.SessionMsg, records []*fit.RecordMsg, events []*fit.EventMsg) []byte {
	t.Helper()
	file, err := fit.NewFile(fit.FileTypeActivity, fit.NewHeader(fit.V20, true))
	require.NoError(t, err)
	file.FileId = *fit.NewFileIdMsg()
	file.FileId.Type = fit.FileTypeActivity
	file.FileId.SerialNumber = serial
	file.FileId.TimeCreated = t0

	act, err := file.Activity()
	require.NoError(t, err)
	act.Sessions = []*fit.SessionMsg{session}
	act.Records = records
	act.Events = events

	var buf bytes.Buffer
	require.NoError(t, fit.Encode(&buf, file, binary.LittleEndian))
	return buf.Bytes()
}

// tenMinuteRun is 2 km over ten minutes with a one minute timer stop at
// the four minute mark.
func tenMinuteRun(t *testing.T) []byte {
	t.Helper()
	session := fit.NewSessionMsg()
	session.Sport = fit.SportRunning
	session.StartTime = t0
	session.Timestamp = t0.Add(10 * time.Minute)
	session.TotalDistance = 2000 * 100

	var records []*fit.RecordMsg
	for i := 0; i <= 10; i++ {
		records = append(records, record(time.Duration(i)*time.Minute, float64(i)*200))
	}
	events := []*fit.EventMsg{
		timer(0, fit.EventTypeStart),
		timer(4*time.Minute, fit.EventTypeStop),
		timer(5*time.Minute, fit.EventTypeStart),
		timer(10*time.Minute, fit.EventTypeStopAll),
	}
	return encodeActivity(t, 42, session, records, events)
}

func TestDecode_Activity(t *testing.T) {
	p, err := Decode(bytes.NewReader(tenMinuteRun(t)))
	require.NoError(t, err)

	assert.Equal(t, "running", p.Activity.Kind)
	assert.Equal(t, "fit-42", p.Activity.SourceID)
	assert.Equal(t, t0, p.Activity.Start)
	assert.Equal(t, t0.Add(10*time.Minute), p.Activity.End)
	assert.Equal(t, 2000.0, p.Activity.TotalDistanceMeters)

	require.Len(t, p.Segments, 10)
	for i, seg := range p.Segments {
		assert.Equal(t, 200.0, seg.DistanceMeters, "segment %d", i)
		assert.Equal(t, t0.Add(time.Duration(i)*time.Minute), seg.Start, "segment %d", i)
		assert.Equal(t, 60.0, seg.DurationSeconds(), "segment %d", i)
	}

	want := []splits.RawEvent{
		{Kind: splits.EventResume, Timestamp: t0},
		{Kind: splits.EventPause, Timestamp: t0.Add(4 * time.Minute)},
		{Kind: splits.EventResume, Timestamp: t0.Add(5 * time.Minute)},
		{Kind: splits.EventPause, Timestamp: t0.Add(10 * time.Minute)},
	}
	if diff := cmp.Diff(want, p.Events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

// A session without times or total distance falls back to the records.
func TestDecode_FallsBackToRecords(t *testing.T) {
	session := fit.NewSessionMsg()
	session.Sport = fit.SportCycling

	records := []*fit.RecordMsg{
		record(90*time.Second, 400),
		record(30*time.Second, 100),
		record(60*time.Second, 250),
	}
	p, err := Decode(bytes.NewReader(encodeActivity(t, 7, session, records, nil)))
	require.NoError(t, err)

	assert.Equal(t, "cycling", p.Activity.Kind)
	assert.Equal(t, "fit-7", p.Activity.SourceID)
	assert.Equal(t, t0.Add(30*time.Second), p.Activity.Start)
	assert.Equal(t, t0.Add(90*time.Second), p.Activity.End)

	want := []splits.DistanceSegment{
		{DistanceMeters: 150, Start: t0.Add(30 * time.Second), End: t0.Add(60 * time.Second)},
		{DistanceMeters: 150, Start: t0.Add(60 * time.Second), End: t0.Add(90 * time.Second)},
	}
	if diff := cmp.Diff(want, p.Segments); diff != "" {
		t.Errorf("segments mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 300.0, p.Activity.TotalDistanceMeters)
	assert.Empty(t, p.Events)
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	database, err := db.NewDB(filepath.Join(t.TempDir(), "import.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	mfs := fsutil.NewMemoryFileSystem()
	mfs.WriteFile("/runs/Tempo Tuesday.fit", tenMinuteRun(t))

	act, err := Import(ctx, database, mfs, "/runs/Tempo Tuesday.fit")
	require.NoError(t, err)
	assert.Equal(t, "Tempo Tuesday", act.Name)
	assert.NotEmpty(t, act.ID)

	stored, err := database.Activity(ctx, act.ID)
	require.NoError(t, err)
	assert.Equal(t, act, stored)

	segs, err := database.DistanceSegments(ctx, act.ID, act.Start, act.End, "fit-42")
	require.NoError(t, err)
	assert.Len(t, segs, 10)
	assert.Equal(t, 2000.0, splits.TotalDistance(segs))

	events, err := database.Events(ctx, act.ID)
	require.NoError(t, err)
	assert.Len(t, events, 4)

	res, err := workout.NewService(database, nil).ComputeSplits(ctx, act.ID, workout.Options{TargetMeters: 1000, ExcludePausedTime: true})
	require.NoError(t, err)
	require.Len(t, res.Splits, 2)
	assert.False(t, res.Splits[1].IsPartial)
}

func TestRecordSamples_SkipsInvalidAndSorts(t *testing.T) {
	noDistance := fit.NewRecordMsg()
	noDistance.Timestamp = t0.Add(5 * time.Second)

	records := []*fit.RecordMsg{
		record(20*time.Second, 60),
		nil,
		noDistance,
		record(10*time.Second, 30),
		record(0, 0),
	}

	got := recordSamples(records)
	require.Len(t, got, 3)
	assert.Equal(t, t0, got[0].ts)
	assert.Equal(t, 30.0, got[1].distance)
	assert.Equal(t, 60.0, got[2].distance)
}

func TestSegmentsFromSamples(t *testing.T) {
	samples := []sample{
		{ts: t0.Add(10 * time.Second), distance: 25},
		{ts: t0.Add(20 * time.Second), distance: 55},
		{ts: t0.Add(30 * time.Second), distance: 50}, // GPS correction
		{ts: t0.Add(40 * time.Second), distance: 80},
	}

	got := segmentsFromSamples(samples, t0)
	want := []splits.DistanceSegment{
		{DistanceMeters: 25, Start: t0, End: t0.Add(10 * time.Second)},
		{DistanceMeters: 30, Start: t0.Add(10 * time.Second), End: t0.Add(20 * time.Second)},
		{DistanceMeters: 0, Start: t0.Add(20 * time.Second), End: t0.Add(30 * time.Second)},
		{DistanceMeters: 25, Start: t0.Add(30 * time.Second), End: t0.Add(40 * time.Second)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("segments mismatch (-want +got):\n%s", diff)
	}
	assert.NoError(t, splits.ValidateSegments(got))
	assert.Equal(t, 80.0, splits.TotalDistance(got))
}

func TestSegmentsFromSamples_Empty(t *testing.T) {
	assert.Nil(t, segmentsFromSamples(nil, t0))
	assert.Empty(t, segmentsFromSamples([]sample{{ts: t0, distance: 0}}, t0))
}

func TestTimerEvents(t *testing.T) {
	lap := fit.NewEventMsg()
	lap.Timestamp = t0.Add(time.Minute)
	lap.Event = fit.EventLap
	lap.EventType = fit.EventTypeStop

	events := []*fit.EventMsg{
		timer(0, fit.EventTypeStart),
		timer(2*time.Minute, fit.EventTypeStopAll),
		lap,
		timer(3*time.Minute, fit.EventTypeStart),
		timer(4*time.Minute, fit.EventTypeMarker),
		timer(5*time.Minute, fit.EventTypeStop),
	}

	got := timerEvents(events)
	want := []splits.RawEvent{
		{Kind: splits.EventResume, Timestamp: t0},
		{Kind: splits.EventPause, Timestamp: t0.Add(2 * time.Minute)},
		{Kind: splits.EventResume, Timestamp: t0.Add(3 * time.Minute)},
		{Kind: splits.EventOther, Timestamp: t0.Add(4 * time.Minute)},
		{Kind: splits.EventPause, Timestamp: t0.Add(5 * time.Minute)},
	}
	assert.Equal(t, want, got)

	pauses := splits.ExtractPauseIntervals(got, t0.Add(6*time.Minute))
	require.Len(t, pauses, 2)
	assert.Equal(t, 60.0, pauses[0].DurationSeconds())
	assert.Equal(t, 60.0, pauses[1].DurationSeconds())
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("definitely not a FIT file")))
	assert.Error(t, err)
}

type failingStore struct{ Store }

func TestImport_MissingFile(t *testing.T) {
	_, err := Import(context.Background(), failingStore{}, fsutil.NewMemoryFileSystem(), "/runs/missing.fit")
	assert.ErrorContains(t, err, "open FIT file")
}

func TestImport_CorruptFile(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	mfs.WriteFile("/runs/corrupt.fit", []byte("not a FIT file"))

	// failingStore panics if any write is attempted.
	_, err := Import(context.Background(), failingStore{}, mfs, "/runs/corrupt.fit")
	assert.Error(t, err)
}
