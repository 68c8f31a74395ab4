package splits

// Pace returns distance over time in meters per second. Non-positive time
// yields 0 rather than an infinite or negative pace.
func Pace(distanceMeters, seconds float64) float64 {
	if seconds <= 0 {
		return 0
	}
	return distanceMeters / seconds
}
