package units

import (
	"fmt"
	"math"
)

// Distance unit constants
const (
	Meter     = "m"
	Kilometer = "km"
	Mile      = "mi"
)

// MetersPerMile is the international mile.
const MetersPerMile = 1609.344

// MetersPerKilometer is the number of meters in a kilometer.
const MetersPerKilometer = 1000.0

// ValidDistanceUnits lists the accepted split distance units
var ValidDistanceUnits = []string{Meter, Kilometer, Mile}

// IsValidDistanceUnit reports whether unit is a known distance unit
func IsValidDistanceUnit(unit string) bool {
	for _, u := range ValidDistanceUnits {
		if unit == u {
			return true
		}
	}
	return false
}

// metersPer returns the length of one unit in meters, or 0 if unknown.
func metersPer(unit string) float64 {
	switch unit {
	case Meter:
		return 1
	case Kilometer:
		return MetersPerKilometer
	case Mile:
		return MetersPerMile
	default:
		return 0
	}
}

// ToMeters converts a distance in the given unit to meters. Callers convert
// display distances with this before computing splits.
func ToMeters(value float64, unit string) (float64, error) {
	per := metersPer(unit)
	if per == 0 {
		return 0, fmt.Errorf("unknown distance unit %q (valid: m, km, mi)", unit)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("distance must be finite, got %v", value)
	}
	return value * per, nil
}

// FromMeters converts meters to the given unit. Unknown units return meters.
func FromMeters(meters float64, unit string) float64 {
	per := metersPer(unit)
	if per == 0 {
		return meters
	}
	return meters / per
}
