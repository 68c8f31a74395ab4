// Package splits turns an ordered series of distance samples into
// fixed-distance splits.
//
// Responsibilities: pause interval extraction from pause/resume events,
// pause-aware active time, pace, and split boundary aggregation with
// proportional time interpolation across boundary-crossing samples.
// Key types: DistanceSegment, PauseInterval, RawEvent, Split.
//
// Dependency rule: this package performs no I/O and holds no shared state.
// Every function is safe to call concurrently with independent inputs.
package splits
