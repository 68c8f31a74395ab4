package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jagreenwood/healthkit-workout-splits/internal/splits"
	"github.com/jagreenwood/healthkit-workout-splits/internal/workout"
)

// SaveSplitRun persists a computed result with its splits and applied
// pauses, returning the new run ID.
func (db *DB) SaveSplitRun(ctx context.Context, res *workout.Result, opts workout.Options) (string, error) {
	runID := uuid.NewString()
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO split_runs (run_id, activity_id, target_meters, exclude_paused, active_seconds, elapsed_seconds, computed_unix_nanos)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, res.Activity.ID, opts.TargetMeters, opts.ExcludePausedTime,
			res.ActiveSeconds, res.ElapsedSeconds, toNanos(res.ComputedAt),
		); err != nil {
			return fmt.Errorf("failed to insert split run: %w", err)
		}

		for _, s := range res.Splits {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO splits (run_id, split_index, distance_meters, duration_seconds, pace_mps, end_unix_nanos, is_partial)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				runID, s.Index, s.DistanceMeters, s.DurationSeconds, s.PaceMetersPerSecond, toNanos(s.EndTimestamp), s.IsPartial,
			); err != nil {
				return fmt.Errorf("failed to insert split %d: %w", s.Index, err)
			}
		}

		for _, p := range res.Pauses {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO split_run_pauses (run_id, start_unix_nanos, end_unix_nanos) VALUES (?, ?, ?)`,
				runID, toNanos(p.Start), toNanos(p.End),
			); err != nil {
				return fmt.Errorf("failed to insert pause: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return runID, nil
}

// LatestSplitRun loads the most recent stored run for an activity with
// the given options. It returns nil, nil when no run exists.
func (db *DB) LatestSplitRun(ctx context.Context, activityID string, opts workout.Options) (*workout.Result, error) {
	act, err := db.Activity(ctx, activityID)
	if err != nil {
		return nil, err
	}

	res := &workout.Result{Activity: act, Options: opts}
	var computed int64
	err = db.QueryRowContext(ctx, `
		SELECT run_id, active_seconds, elapsed_seconds, computed_unix_nanos
		FROM split_runs
		WHERE activity_id = ? AND target_meters = ? AND exclude_paused = ?
		ORDER BY computed_unix_nanos DESC, rowid DESC
		LIMIT 1`,
		activityID, opts.TargetMeters, opts.ExcludePausedTime,
	).Scan(&res.RunID, &res.ActiveSeconds, &res.ElapsedSeconds, &computed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get split run: %w", err)
	}
	res.ComputedAt = fromNanos(computed)

	if res.Splits, err = db.runSplits(ctx, res.RunID); err != nil {
		return nil, err
	}
	if res.Pauses, err = db.runPauses(ctx, res.RunID); err != nil {
		return nil, err
	}
	return res, nil
}

func (db *DB) runSplits(ctx context.Context, runID string) ([]splits.Split, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT split_index, distance_meters, duration_seconds, pace_mps, end_unix_nanos, is_partial
		FROM splits WHERE run_id = ? ORDER BY split_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query splits: %w", err)
	}
	defer rows.Close()

	var out []splits.Split
	for rows.Next() {
		var (
			s   splits.Split
			end int64
		)
		if err := rows.Scan(&s.Index, &s.DistanceMeters, &s.DurationSeconds, &s.PaceMetersPerSecond, &end, &s.IsPartial); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		s.EndTimestamp = fromNanos(end)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (db *DB) runPauses(ctx context.Context, runID string) ([]splits.PauseInterval, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT start_unix_nanos, end_unix_nanos
		FROM split_run_pauses WHERE run_id = ? ORDER BY start_unix_nanos, rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pauses: %w", err)
	}
	defer rows.Close()

	var out []splits.PauseInterval
	for rows.Next() {
		var start, end int64
		if err := rows.Scan(&start, &end); err != nil {
			return nil, fmt.Errorf("failed to scan pause: %w", err)
		}
		out = append(out, splits.PauseInterval{Start: fromNanos(start), End: fromNanos(end)})
	}
	return out, rows.Err()
}

// PendingActivities lists activities with distance and samples but no
// stored run for opts, oldest first.
func (db *DB) PendingActivities(ctx context.Context, opts workout.Options, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx, `
		SELECT a.id
		FROM activities a
		WHERE a.total_distance_meters > 0
		  AND EXISTS (SELECT 1 FROM distance_samples s WHERE s.activity_id = a.id)
		  AND NOT EXISTS (
			  SELECT 1 FROM split_runs r
			  WHERE r.activity_id = a.id AND r.target_meters = ? AND r.exclude_paused = ?
		  )
		ORDER BY a.start_unix_nanos
		LIMIT ?`,
		opts.TargetMeters, opts.ExcludePausedTime, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending activities: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
