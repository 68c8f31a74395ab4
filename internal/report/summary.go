// Package report summarises and renders computed splits as text, PNG
// plots and HTML charts.
package report

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/jagreenwood/healthkit-workout-splits/internal/splits"
)

// Summary describes a sequence of splits. Paces are in meters per second.
type Summary struct {
	Count         int     `json:"count"`
	CompleteCount int     `json:"complete_count"`
	TotalMeters   float64 `json:"total_meters"`
	TotalSeconds  float64 `json:"total_seconds"`
	AveragePace   float64 `json:"average_pace_mps"` // total distance over total time
	MeanPace      float64 `json:"mean_pace_mps"`    // distance-weighted mean of split paces
	MedianPace    float64 `json:"median_pace_mps"`
	PaceStdDev    float64 `json:"pace_stddev_mps"`
	Fastest       int     `json:"fastest_index,omitempty"`
	Slowest       int     `json:"slowest_index,omitempty"`
}

// Summarize computes aggregate figures over splits. Fastest and slowest
// consider complete splits only unless there are none. Splits without
// active time are excluded from the pace statistics.
func Summarize(in []splits.Split) Summary {
	s := Summary{Count: len(in)}
	if len(in) == 0 {
		return s
	}

	var paces, weights []float64
	for _, sp := range in {
		s.TotalMeters += sp.DistanceMeters
		s.TotalSeconds += sp.DurationSeconds
		if !sp.IsPartial {
			s.CompleteCount++
		}
		if sp.DurationSeconds > 0 {
			paces = append(paces, sp.PaceMetersPerSecond)
			weights = append(weights, sp.DistanceMeters)
		}
	}
	s.AveragePace = splits.Pace(s.TotalMeters, s.TotalSeconds)

	if len(paces) > 0 {
		s.MeanPace = stat.Mean(paces, weights)
		if len(paces) > 1 {
			s.PaceStdDev = stat.StdDev(paces, weights)
		}
		sorted := append([]float64(nil), paces...)
		sort.Float64s(sorted)
		s.MedianPace = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	}

	s.Fastest, s.Slowest = extremes(in, true)
	if s.Fastest == 0 {
		s.Fastest, s.Slowest = extremes(in, false)
	}
	return s
}

// extremes returns the indices of the highest and lowest pace splits.
func extremes(in []splits.Split, completeOnly bool) (fastest, slowest int) {
	var fast, slow float64
	for _, sp := range in {
		if completeOnly && sp.IsPartial {
			continue
		}
		if sp.DurationSeconds <= 0 {
			continue
		}
		if fastest == 0 || sp.PaceMetersPerSecond > fast {
			fastest, fast = sp.Index, sp.PaceMetersPerSecond
		}
		if slowest == 0 || sp.PaceMetersPerSecond < slow {
			slowest, slow = sp.Index, sp.PaceMetersPerSecond
		}
	}
	return fastest, slowest
}
