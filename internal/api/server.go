// Package api serves activities and their splits over HTTP.
package api

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/jagreenwood/healthkit-workout-splits/internal/config"
	"github.com/jagreenwood/healthkit-workout-splits/internal/workout"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// ActivityStore lists activities and loads stored split runs.
type ActivityStore interface {
	ListActivities(ctx context.Context, limit int) ([]workout.Activity, error)
	Activity(ctx context.Context, id string) (workout.Activity, error)
	LatestSplitRun(ctx context.Context, activityID string, opts workout.Options) (*workout.Result, error)
}

type Server struct {
	svc        *workout.Service
	activities ActivityStore
	cfg        *config.SplitConfig
}

// NewServer returns a Server computing splits with svc. A nil cfg uses
// the defaults.
func NewServer(svc *workout.Service, activities ActivityStore, cfg *config.SplitConfig) *Server {
	if cfg == nil {
		cfg = config.DefaultSplitConfig()
	}
	return &Server{
		svc:        svc,
		activities: activities,
		cfg:        cfg,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/activities", s.listActivities)
	mux.HandleFunc("/api/activities/{id}", s.showActivity)
	mux.HandleFunc("/api/activities/{id}/splits", s.showSplits)
	mux.HandleFunc("/api/activities/{id}/splits/chart", s.showSplitsChart)
	mux.HandleFunc("/api/config", s.showConfig)
	return mux
}
