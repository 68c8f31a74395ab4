// Package testutil provides shared test utilities and fixtures.
//
// The fixtures build distance segments and workout events the way a
// sample store returns them: ordered by start time, contiguous, from a
// single source.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jagreenwood/healthkit-workout-splits/internal/splits"
)

// RoundedMile is the rounded mile the literal-value split tests use.
const RoundedMile = 1609.34

// Epoch is a fixed activity start used by fixtures.
var Epoch = time.Date(2025, 5, 3, 7, 0, 0, 0, time.UTC)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// At returns Epoch plus the given number of seconds.
func At(seconds float64) time.Time {
	return Epoch.Add(time.Duration(seconds * float64(time.Second)))
}

// UniformSegments returns n contiguous segments starting at start, each
// covering meters in seconds.
func UniformSegments(start time.Time, n int, meters, seconds float64) []splits.DistanceSegment {
	step := time.Duration(seconds * float64(time.Second))
	out := make([]splits.DistanceSegment, n)
	for i := range out {
		s := start.Add(time.Duration(i) * step)
		out[i] = splits.DistanceSegment{DistanceMeters: meters, Start: s, End: s.Add(step)}
	}
	return out
}

// PauseResume returns pause/resume event pairs. Each pair of offsets is
// seconds after start; an odd trailing offset leaves a pause open.
func PauseResume(start time.Time, offsets ...float64) []splits.RawEvent {
	out := make([]splits.RawEvent, len(offsets))
	for i, off := range offsets {
		kind := splits.EventPause
		if i%2 == 1 {
			kind = splits.EventResume
		}
		out[i] = splits.RawEvent{Kind: kind, Timestamp: start.Add(time.Duration(off * float64(time.Second)))}
	}
	return out
}
