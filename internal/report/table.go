package report

import (
	"fmt"
	"io"

	"github.com/jagreenwood/healthkit-workout-splits/internal/splits"
	"github.com/jagreenwood/healthkit-workout-splits/internal/units"
)

// Table writes splits as a fixed-width text table with distances and
// paces in distUnit (m, km or mi), followed by a summary line.
func Table(w io.Writer, in []splits.Split, distUnit string) error {
	if _, err := fmt.Fprintf(w, "%5s  %10s  %9s  %10s  %s\n", "SPLIT", "DIST ("+distUnit+")", "TIME", "PACE/"+distUnit, "END"); err != nil {
		return err
	}
	for _, sp := range in {
		label := fmt.Sprintf("%d", sp.Index)
		if sp.IsPartial {
			label += "*"
		}
		_, err := fmt.Fprintf(w, "%5s  %10.2f  %9s  %10s  %s\n",
			label,
			units.FromMeters(sp.DistanceMeters, distUnit),
			units.FormatDuration(sp.DurationSeconds),
			units.FormatPace(units.PacePerUnit(sp.PaceMetersPerSecond, distUnit)),
			sp.EndTimestamp.Format("15:04:05"),
		)
		if err != nil {
			return err
		}
	}

	sum := Summarize(in)
	_, err := fmt.Fprintf(w, "%5s  %10.2f  %9s  %10s\n",
		"TOTAL",
		units.FromMeters(sum.TotalMeters, distUnit),
		units.FormatDuration(sum.TotalSeconds),
		units.FormatPace(units.PacePerUnit(sum.AveragePace, distUnit)),
	)
	return err
}
