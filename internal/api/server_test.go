package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jagreenwood/healthkit-workout-splits/internal/config"
	"github.com/jagreenwood/healthkit-workout-splits/internal/db"
	"github.com/jagreenwood/healthkit-workout-splits/internal/httputil"
	"github.com/jagreenwood/healthkit-workout-splits/internal/testutil"
	"github.com/jagreenwood/healthkit-workout-splits/internal/workout"
)

func setupTestServer(t *testing.T) (*Server, *db.DB) {
	t.Helper()

	dbInst, err := db.NewDB(cloneAPITestDB(t))
	require.NoError(t, err)
	t.Cleanup(func() { dbInst.Close() })

	svc := workout.NewService(dbInst, dbInst)
	svc.Store = dbInst
	return NewServer(svc, dbInst, config.DefaultSplitConfig()), dbInst
}

// seedRun stores a 5 km run sampled every 250 m / 75 s with one pause.
func seedRun(t *testing.T, dbInst *db.DB) workout.Activity {
	t.Helper()
	ctx := context.Background()
	segs := testutil.UniformSegments(testutil.Epoch, 20, 250, 75)
	a, err := dbInst.CreateActivity(ctx, workout.Activity{
		Name:                "Park 5k",
		Kind:                "running",
		SourceID:            "watch",
		Start:               testutil.Epoch,
		End:                 segs[len(segs)-1].End,
		TotalDistanceMeters: 5000,
	})
	require.NoError(t, err)
	require.NoError(t, dbInst.InsertSamples(ctx, a.ID, "watch", segs))
	require.NoError(t, dbInst.InsertEvents(ctx, a.ID, testutil.PauseResume(testutil.Epoch, 100, 130)))
	return a
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, path))
	return rec
}

func TestListActivities(t *testing.T) {
	s, dbInst := setupTestServer(t)

	rec := get(t, s, "/api/activities")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.JSONEq(t, "[]", rec.Body.String())

	a := seedRun(t, dbInst)
	rec = get(t, s, "/api/activities?limit=5")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var got []workout.Activity
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)

	rec = get(t, s, "/api/activities?limit=zero")
	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
}

func TestShowActivity(t *testing.T) {
	s, dbInst := setupTestServer(t)
	a := seedRun(t, dbInst)

	rec := get(t, s, "/api/activities/"+a.ID)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var got workout.Activity
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "Park 5k", got.Name)

	rec = get(t, s, "/api/activities/nope")
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
}

func TestShowSplits(t *testing.T) {
	s, dbInst := setupTestServer(t)
	a := seedRun(t, dbInst)

	rec := get(t, s, "/api/activities/"+a.ID+"/splits?distance=1&unit=km&units=kph")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var resp SplitsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, 1000.0, resp.TargetMeters)
	assert.True(t, resp.ExcludePaused)
	assert.Equal(t, "km", resp.DistanceUnit)
	require.Len(t, resp.Splits, 5)

	first := resp.Splits[0]
	assert.Equal(t, 1, first.Index)
	assert.InDelta(t, 270, first.DurationSeconds, 1e-9)
	assert.Equal(t, "4:30", first.Pace)
	assert.InDelta(t, 1.0, first.Distance, 1e-12)
	assert.InDelta(t, 1000.0/270*3.6, first.Speed, 1e-9)

	assert.Equal(t, "5:00", resp.Splits[1].Pace)
	require.Len(t, resp.Pauses, 1)
	assert.Equal(t, 5, resp.Summary.CompleteCount)
	assert.InDelta(t, 1470, resp.ActiveSeconds, 1e-9)
	assert.InDelta(t, 1500, resp.ElapsedSeconds, 1e-9)
}

func TestShowSplits_IncludePausedAndCached(t *testing.T) {
	s, dbInst := setupTestServer(t)
	a := seedRun(t, dbInst)

	path := "/api/activities/" + a.ID + "/splits?distance=1000&unit=m&exclude_paused=false"
	rec := get(t, s, path)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	var fresh SplitsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&fresh))
	assert.InDelta(t, 300, fresh.Splits[0].DurationSeconds, 1e-9)
	assert.Empty(t, fresh.Pauses)

	rec = get(t, s, path+"&cached=true")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	var cached SplitsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&cached))
	assert.Equal(t, fresh.RunID, cached.RunID)
	assert.Equal(t, len(fresh.Splits), len(cached.Splits))
}

func TestShowSplits_Errors(t *testing.T) {
	s, dbInst := setupTestServer(t)
	a := seedRun(t, dbInst)

	ctx := context.Background()
	empty, err := dbInst.CreateActivity(ctx, workout.Activity{
		Name: "Indoor", Start: testutil.Epoch, End: testutil.At(600), TotalDistanceMeters: 0,
	})
	require.NoError(t, err)
	nosamples, err := dbInst.CreateActivity(ctx, workout.Activity{
		Name: "Lost data", SourceID: "watch", Start: testutil.Epoch, End: testutil.At(600), TotalDistanceMeters: 800,
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		status int
		code   workout.Code
	}{
		{"zero distance", "/api/activities/" + a.ID + "/splits?distance=0", http.StatusBadRequest, workout.CodeInvalidTarget},
		{"negative distance", "/api/activities/" + a.ID + "/splits?distance=-2", http.StatusBadRequest, workout.CodeInvalidTarget},
		{"tiny target", "/api/activities/" + a.ID + "/splits?distance=0.01&unit=m", http.StatusBadRequest, workout.CodeInvalidTarget},
		{"sub-meter target", "/api/activities/" + a.ID + "/splits?distance=1e-7&unit=m", http.StatusBadRequest, workout.CodeInvalidTarget},
		{"bad unit", "/api/activities/" + a.ID + "/splits?unit=yd", http.StatusBadRequest, ""},
		{"bad units", "/api/activities/" + a.ID + "/splits?units=knots", http.StatusBadRequest, ""},
		{"bad bool", "/api/activities/" + a.ID + "/splits?exclude_paused=maybe", http.StatusBadRequest, ""},
		{"not found", "/api/activities/missing/splits", http.StatusNotFound, workout.CodeNotFound},
		{"no distance", "/api/activities/" + empty.ID + "/splits", http.StatusUnprocessableEntity, workout.CodeNoDistance},
		{"no samples", "/api/activities/" + nosamples.ID + "/splits", http.StatusUnprocessableEntity, workout.CodeNoSamples},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, s, tt.path)
			testutil.AssertStatusCode(t, rec.Code, tt.status)
			var resp httputil.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.NotEmpty(t, resp.Error)
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestShowSplitsChart(t *testing.T) {
	s, dbInst := setupTestServer(t)
	a := seedRun(t, dbInst)

	rec := get(t, s, "/api/activities/"+a.ID+"/splits/chart?unit=km")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Park 5k")

	rec = get(t, s, "/api/activities/missing/splits/chart")
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
}

func TestShowConfig(t *testing.T) {
	s, _ := setupTestServer(t)

	rec := get(t, s, "/api/config")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var cfg config.SplitConfig
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&cfg))
	assert.Equal(t, "mi", cfg.GetSplitUnit())
	require.NotNil(t, cfg.BatchWorkers)
}

func TestMethodNotAllowed(t *testing.T) {
	s, dbInst := setupTestServer(t)
	a := seedRun(t, dbInst)

	for _, path := range []string{
		"/api/activities",
		"/api/activities/" + a.ID,
		"/api/activities/" + a.ID + "/splits",
		"/api/activities/" + a.ID + "/splits/chart",
		"/api/config",
	} {
		rec := httptest.NewRecorder()
		s.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
		testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Millisecond)
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/config?x=1", nil))

	out := buf.String()
	assert.Contains(t, out, "418")
	assert.Contains(t, out, "GET")
	assert.Contains(t, out, "/api/config?x=1")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "ms"))
}

func TestStatusCodeColor(t *testing.T) {
	assert.Equal(t, colorBoldGreen+"200"+colorReset, statusCodeColor(200))
	assert.Equal(t, colorYellow+"304"+colorReset, statusCodeColor(304))
	assert.Equal(t, colorBoldRed+"404"+colorReset, statusCodeColor(404))
	assert.Equal(t, colorBoldRed+"503"+colorReset, statusCodeColor(503))
	assert.Equal(t, "100", statusCodeColor(100))
}
