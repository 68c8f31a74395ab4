package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jagreenwood/healthkit-workout-splits/internal/workout"
)

func toNanos(t time.Time) int64 { return t.UnixNano() }

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }

// CreateActivity inserts a new activity. An empty ID is replaced with a
// new UUID; the stored activity is returned.
func (db *DB) CreateActivity(ctx context.Context, a workout.Activity) (workout.Activity, error) {
	return insertActivity(ctx, db.DB, a)
}

// execer is the write surface shared by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

func insertActivity(ctx context.Context, ex execer, a workout.Activity) (workout.Activity, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.End.Before(a.Start) {
		return a, fmt.Errorf("activity %s ends before it starts", a.ID)
	}

	var total sql.NullFloat64
	if a.TotalDistanceMeters > 0 {
		total = sql.NullFloat64{Float64: a.TotalDistanceMeters, Valid: true}
	}

	_, err := ex.ExecContext(ctx, `
		INSERT INTO activities (id, name, kind, source_id, start_unix_nanos, end_unix_nanos, total_distance_meters)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.Kind, a.SourceID, toNanos(a.Start), toNanos(a.End), total,
	)
	if err != nil {
		return a, fmt.Errorf("failed to insert activity: %w", err)
	}
	return a, nil
}

const activityColumns = `id, name, kind, source_id, start_unix_nanos, end_unix_nanos, total_distance_meters`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(row rowScanner) (workout.Activity, error) {
	var (
		a          workout.Activity
		start, end int64
		total      sql.NullFloat64
	)
	if err := row.Scan(&a.ID, &a.Name, &a.Kind, &a.SourceID, &start, &end, &total); err != nil {
		return a, err
	}
	a.Start = fromNanos(start)
	a.End = fromNanos(end)
	if total.Valid {
		a.TotalDistanceMeters = total.Float64
	}
	return a, nil
}

// Activity returns the activity with the given ID. A missing row is
// workout.ErrActivityNotFound.
func (db *DB) Activity(ctx context.Context, id string) (workout.Activity, error) {
	row := db.QueryRowContext(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = ?`, id)
	a, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return a, fmt.Errorf("%w: %s", workout.ErrActivityNotFound, id)
	}
	if err != nil {
		return a, fmt.Errorf("failed to get activity: %w", err)
	}
	return a, nil
}

// ListActivities returns activities newest first. limit <= 0 returns all.
func (db *DB) ListActivities(ctx context.Context, limit int) ([]workout.Activity, error) {
	q := `SELECT ` + activityColumns + ` FROM activities ORDER BY start_unix_nanos DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	var out []workout.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteActivity removes an activity together with its samples, events
// and split runs.
func (db *DB) DeleteActivity(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM activities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete activity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", workout.ErrActivityNotFound, id)
	}
	return nil
}
