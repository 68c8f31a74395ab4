package units

import (
	"fmt"
	"math"
)

// PacePerUnit converts a speed in m/s into seconds per distance unit.
// Zero or negative speeds yield 0.
func PacePerUnit(speedMPS float64, unit string) float64 {
	if speedMPS <= 0 {
		return 0
	}
	per := metersPer(unit)
	if per == 0 {
		per = 1
	}
	return per / speedMPS
}

// FormatPace renders seconds as "M:SS". Non-positive values render as "--:--".
func FormatPace(seconds float64) string {
	if seconds <= 0 || math.IsInf(seconds, 0) || math.IsNaN(seconds) {
		return "--:--"
	}
	total := int(math.Round(seconds))
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// FormatDuration renders seconds as "H:MM:SS", or "M:SS" under an hour.
func FormatDuration(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int(math.Round(seconds))
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
