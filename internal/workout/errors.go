package workout

import (
	"context"
	"errors"

	"github.com/jagreenwood/healthkit-workout-splits/internal/splits"
)

var (
	// ErrUnavailable means the sample store could not be reached.
	ErrUnavailable = errors.New("workout data unavailable")
	// ErrUnauthorized means the caller may not read workout samples.
	ErrUnauthorized = errors.New("not authorized to read workout data")
	// ErrInvalidTarget is the core's target validation error.
	ErrInvalidTarget = splits.ErrInvalidTarget
	// ErrNoDistance means the activity has no recorded total distance.
	ErrNoDistance = errors.New("activity has no distance to split")
	// ErrNoSamples means retrieval returned no distance segments.
	ErrNoSamples = errors.New("no distance samples found for activity")
	// ErrInsufficientData means the samples produced no splits.
	ErrInsufficientData = errors.New("not enough data to compute splits")
	// ErrActivityNotFound means no activity has the requested ID.
	ErrActivityNotFound = errors.New("activity not found")
)

// Code is a stable identifier for an error class, used in API responses.
type Code string

const (
	CodeOK               Code = "ok"
	CodeUnavailable      Code = "unavailable"
	CodeUnauthorized     Code = "unauthorized"
	CodeInvalidTarget    Code = "invalid_target"
	CodeNoDistance       Code = "no_distance"
	CodeNoSamples        Code = "no_samples"
	CodeInsufficientData Code = "insufficient_data"
	CodeNotFound         Code = "not_found"
	CodeCanceled         Code = "canceled"
	CodeInternal         Code = "internal"
)

// Classify maps err to its Code. A nil error is CodeOK; anything outside
// the taxonomy is CodeInternal.
func Classify(err error) Code {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrInvalidTarget):
		return CodeInvalidTarget
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrActivityNotFound):
		return CodeNotFound
	case errors.Is(err, ErrNoDistance):
		return CodeNoDistance
	case errors.Is(err, ErrNoSamples):
		return CodeNoSamples
	case errors.Is(err, ErrInsufficientData):
		return CodeInsufficientData
	case errors.Is(err, ErrUnavailable):
		return CodeUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCanceled
	default:
		return CodeInternal
	}
}
