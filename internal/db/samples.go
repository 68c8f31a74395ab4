package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/jagreenwood/healthkit-workout-splits/internal/splits"
	"github.com/jagreenwood/healthkit-workout-splits/internal/workout"
)

// InsertSamples stores distance segments recorded by sourceID for an
// activity in a single transaction.
func (db *DB) InsertSamples(ctx context.Context, activityID, sourceID string, segments []splits.DistanceSegment) error {
	if err := splits.ValidateSegments(segments); err != nil {
		return fmt.Errorf("invalid samples: %w", err)
	}
	return db.withTx(ctx, func(tx *sql.Tx) error {
		return insertSamples(ctx, tx, activityID, sourceID, segments)
	})
}

// ImportActivity stores an activity with its samples and events in one
// transaction. Nothing is kept when any insert fails. Samples are recorded
// under the activity's SourceID.
func (db *DB) ImportActivity(ctx context.Context, a workout.Activity, segments []splits.DistanceSegment, events []splits.RawEvent) (workout.Activity, error) {
	if err := splits.ValidateSegments(segments); err != nil {
		return a, fmt.Errorf("invalid samples: %w", err)
	}
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if a, err = insertActivity(ctx, tx, a); err != nil {
			return err
		}
		if err := insertSamples(ctx, tx, a.ID, a.SourceID, segments); err != nil {
			return err
		}
		return insertEvents(ctx, tx, a.ID, events)
	})
	if err != nil {
		return a, fmt.Errorf("failed to import activity %s: %w", a.ID, err)
	}
	return a, nil
}

func insertSamples(ctx context.Context, ex execer, activityID, sourceID string, segments []splits.DistanceSegment) error {
	stmt, err := ex.PrepareContext(ctx, `
		INSERT INTO distance_samples (activity_id, source_id, start_unix_nanos, end_unix_nanos, meters)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare sample insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range segments {
		if _, err := stmt.ExecContext(ctx, activityID, sourceID, toNanos(s.Start), toNanos(s.End), s.DistanceMeters); err != nil {
			return fmt.Errorf("failed to insert sample: %w", err)
		}
	}
	return nil
}

// DistanceSegments returns sourceID's samples overlapping [start, end],
// ordered by start time.
func (db *DB) DistanceSegments(ctx context.Context, activityID string, start, end time.Time, sourceID string) ([]splits.DistanceSegment, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT meters, start_unix_nanos, end_unix_nanos
		FROM distance_samples
		WHERE activity_id = ?
		  AND source_id = ?
		  AND end_unix_nanos >= ?
		  AND start_unix_nanos <= ?
		ORDER BY start_unix_nanos, end_unix_nanos`,
		activityID, sourceID, toNanos(start), toNanos(end),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query distance samples: %w", err)
	}
	defer rows.Close()

	var out []splits.DistanceSegment
	for rows.Next() {
		var (
			meters     float64
			startNanos int64
			endNanos   int64
		)
		if err := rows.Scan(&meters, &startNanos, &endNanos); err != nil {
			return nil, fmt.Errorf("failed to scan distance sample: %w", err)
		}
		out = append(out, splits.DistanceSegment{
			DistanceMeters: meters,
			Start:          fromNanos(startNanos),
			End:            fromNanos(endNanos),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// InsertEvents stores raw workout events for an activity.
func (db *DB) InsertEvents(ctx context.Context, activityID string, events []splits.RawEvent) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		return insertEvents(ctx, tx, activityID, events)
	})
}

func insertEvents(ctx context.Context, ex execer, activityID string, events []splits.RawEvent) error {
	for _, ev := range events {
		if _, err := ex.ExecContext(ctx,
			`INSERT INTO workout_events (activity_id, kind, unix_nanos) VALUES (?, ?, ?)`,
			activityID, string(ev.Kind), toNanos(ev.Timestamp),
		); err != nil {
			return fmt.Errorf("failed to insert event: %w", err)
		}
	}
	return nil
}

// Events returns an activity's raw events in insertion order. Ordering by
// timestamp is left to the pause extractor.
func (db *DB) Events(ctx context.Context, activityID string) ([]splits.RawEvent, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT kind, unix_nanos FROM workout_events WHERE activity_id = ? ORDER BY rowid`, activityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workout events: %w", err)
	}
	defer rows.Close()

	var out []splits.RawEvent
	for rows.Next() {
		var (
			kind  string
			nanos int64
		)
		if err := rows.Scan(&kind, &nanos); err != nil {
			return nil, fmt.Errorf("failed to scan workout event: %w", err)
		}
		out = append(out, splits.RawEvent{Kind: splits.ParseEventKind(kind), Timestamp: fromNanos(nanos)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// withTx runs fn in a transaction, committing on success.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			log.Printf("warning: failed to rollback transaction: %v", err)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
