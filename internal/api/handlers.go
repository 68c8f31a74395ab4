package api

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jagreenwood/healthkit-workout-splits/internal/httputil"
	"github.com/jagreenwood/healthkit-workout-splits/internal/report"
	"github.com/jagreenwood/healthkit-workout-splits/internal/splits"
	"github.com/jagreenwood/healthkit-workout-splits/internal/units"
	"github.com/jagreenwood/healthkit-workout-splits/internal/workout"
)

// splitQuery is the parsed query string of the splits endpoints.
type splitQuery struct {
	opts     workout.Options
	distUnit string // unit of the distance parameter and of paces
	units    string // speed display units
	cached   bool
}

func (s *Server) parseSplitQuery(q url.Values) (splitQuery, error) {
	sq := splitQuery{
		distUnit: s.cfg.GetSplitUnit(),
		units:    s.cfg.GetDisplayUnits(),
	}
	distance := s.cfg.GetSplitDistance()
	sq.opts.ExcludePausedTime = s.cfg.GetExcludePausedTime()

	if v := q.Get("unit"); v != "" {
		if !units.IsValidDistanceUnit(v) {
			return sq, fmt.Errorf("invalid 'unit' parameter %q (valid: m, km, mi)", v)
		}
		sq.distUnit = v
	}
	if v := q.Get("distance"); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return sq, fmt.Errorf("invalid 'distance' parameter %q", v)
		}
		distance = d
	}
	if v := q.Get("exclude_paused"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return sq, fmt.Errorf("invalid 'exclude_paused' parameter %q", v)
		}
		sq.opts.ExcludePausedTime = b
	}
	if v := q.Get("units"); v != "" {
		if !units.IsValid(v) {
			return sq, fmt.Errorf("invalid 'units' parameter %q (valid: %s)", v, units.GetValidUnitsString())
		}
		sq.units = v
	}
	if v := q.Get("cached"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return sq, fmt.Errorf("invalid 'cached' parameter %q", v)
		}
		sq.cached = b
	}

	target, err := units.ToMeters(distance, sq.distUnit)
	if err != nil {
		return sq, err
	}
	sq.opts.TargetMeters = target
	return sq, nil
}

// SplitAPI is a split with display conversions applied.
type SplitAPI struct {
	splits.Split
	Distance float64 `json:"distance"` // in distance_unit
	Speed    float64 `json:"speed"`    // in units
	Pace     string  `json:"pace"`     // M:SS per distance_unit
	Duration string  `json:"duration"`
}

// SplitsResponse is the body of GET /api/activities/{id}/splits.
type SplitsResponse struct {
	RunID          string                 `json:"run_id,omitempty"`
	Activity       workout.Activity       `json:"activity"`
	TargetMeters   float64                `json:"target_meters"`
	ExcludePaused  bool                   `json:"exclude_paused"`
	DistanceUnit   string                 `json:"distance_unit"`
	Units          string                 `json:"units"`
	Splits         []SplitAPI             `json:"splits"`
	Pauses         []splits.PauseInterval `json:"pauses"`
	Summary        report.Summary         `json:"summary"`
	ActiveSeconds  float64                `json:"active_seconds"`
	ElapsedSeconds float64                `json:"elapsed_seconds"`
	ComputedAt     time.Time              `json:"computed_at"`
}

func toSplitsResponse(res *workout.Result, sq splitQuery) SplitsResponse {
	out := SplitsResponse{
		RunID:          res.RunID,
		Activity:       res.Activity,
		TargetMeters:   res.Options.TargetMeters,
		ExcludePaused:  res.Options.ExcludePausedTime,
		DistanceUnit:   sq.distUnit,
		Units:          sq.units,
		Splits:         make([]SplitAPI, len(res.Splits)),
		Pauses:         res.Pauses,
		Summary:        report.Summarize(res.Splits),
		ActiveSeconds:  res.ActiveSeconds,
		ElapsedSeconds: res.ElapsedSeconds,
		ComputedAt:     res.ComputedAt,
	}
	if out.Pauses == nil {
		out.Pauses = []splits.PauseInterval{}
	}
	for i, sp := range res.Splits {
		out.Splits[i] = SplitAPI{
			Split:    sp,
			Distance: units.FromMeters(sp.DistanceMeters, sq.distUnit),
			Speed:    units.ConvertSpeed(sp.PaceMetersPerSecond, sq.units),
			Pace:     units.FormatPace(units.PacePerUnit(sp.PaceMetersPerSecond, sq.distUnit)),
			Duration: units.FormatDuration(sp.DurationSeconds),
		}
	}
	return out
}

// splitsFor returns a stored run when cached is requested and one exists,
// otherwise computes fresh splits.
func (s *Server) splitsFor(r *http.Request, id string, sq splitQuery) (*workout.Result, error) {
	if sq.cached && s.activities != nil {
		res, err := s.activities.LatestSplitRun(r.Context(), id, sq.opts)
		if err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}
	}
	return s.svc.ComputeSplits(r.Context(), id, sq.opts)
}

func (s *Server) listActivities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			httputil.BadRequest(w, "Invalid 'limit' parameter")
			return
		}
		limit = n
	}

	activities, err := s.activities.ListActivities(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if activities == nil {
		activities = []workout.Activity{}
	}
	httputil.WriteJSONOK(w, activities)
}

func (s *Server) showActivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	a, err := s.activities.Activity(r.Context(), r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSONOK(w, a)
}

func (s *Server) showSplits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	sq, err := s.parseSplitQuery(r.URL.Query())
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	res, err := s.splitsFor(r, r.PathValue("id"), sq)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSONOK(w, toSplitsResponse(res, sq))
}

func (s *Server) showSplitsChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	sq, err := s.parseSplitQuery(r.URL.Query())
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	res, err := s.splitsFor(r, r.PathValue("id"), sq)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	title := res.Activity.Name
	if title == "" {
		title = res.Activity.ID
	}
	var buf bytes.Buffer
	if err := report.PaceChart(&buf, title, res.Splits, sq.distUnit, sq.units); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.cfg.Resolved())
}
