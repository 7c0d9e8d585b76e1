package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/svincent240/scormrt/internal/rte"
)

// ErrNotFound is returned when a requested snapshot does not exist.
var ErrNotFound = errors.New("snapshot not found")

// SaveSnapshot stores an attempt snapshot, replacing any previous state
// for the same session inside one transaction. Implements rte.Persister.
func (s *Store) SaveSnapshot(ctx context.Context, snap rte.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save snapshot: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO attempts (session_id, activity_id, last_navigation_request)
		VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			activity_id = excluded.activity_id,
			last_navigation_request = excluded.last_navigation_request,
			saved_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
	`, snap.SessionID, snap.ActivityID, snap.LastNavigationRequest)
	if err != nil {
		return fmt.Errorf("save snapshot: attempt row: %w", err)
	}

	// Wholesale replacement keeps deletions visible: an element removed
	// from the data model disappears from storage too.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM data_model_values WHERE session_id = ?`, snap.SessionID); err != nil {
		return fmt.Errorf("save snapshot: clear values: %w", err)
	}
	for element, value := range snap.DataModel {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO data_model_values (session_id, element, value)
			VALUES (?, ?, ?)
		`, snap.SessionID, element, value); err != nil {
			return fmt.Errorf("save snapshot: value %s: %w", element, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM activity_states WHERE session_id = ?`, snap.SessionID); err != nil {
		return fmt.Errorf("save snapshot: clear states: %w", err)
	}
	for activityID, st := range snap.ActivityTree {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO activity_states
			(session_id, activity_id, attempt_count,
			 completion_status, success_status,
			 objective_satisfied, objective_satisfied_known,
			 objective_measure, objective_measure_known,
			 progress_measure, progress_measure_known, suspended)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			snap.SessionID, activityID, st.AttemptCount,
			st.CompletionStatus, st.SuccessStatus,
			st.ObjectiveSatisfied, st.ObjectiveSatisfiedKnown,
			st.ObjectiveMeasure, st.ObjectiveMeasureKnown,
			st.ProgressMeasure, st.ProgressMeasureKnown, st.Suspended,
		); err != nil {
			return fmt.Errorf("save snapshot: state %s: %w", activityID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save snapshot: commit: %w", err)
	}
	return nil
}

// LoadSnapshot reads the stored snapshot for a session.
func (s *Store) LoadSnapshot(ctx context.Context, sessionID string) (rte.Snapshot, error) {
	snap := rte.Snapshot{SessionID: sessionID}

	err := s.db.QueryRowContext(ctx, `
		SELECT activity_id, last_navigation_request
		FROM attempts WHERE session_id = ?
	`, sessionID).Scan(&snap.ActivityID, &snap.LastNavigationRequest)
	if errors.Is(err, sql.ErrNoRows) {
		return rte.Snapshot{}, fmt.Errorf("session %q: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return rte.Snapshot{}, fmt.Errorf("load snapshot: attempt row: %w", err)
	}

	snap.DataModel = make(map[string]string)
	rows, err := s.db.QueryContext(ctx, `
		SELECT element, value FROM data_model_values WHERE session_id = ?
	`, sessionID)
	if err != nil {
		return rte.Snapshot{}, fmt.Errorf("load snapshot: values: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var element, value string
		if err := rows.Scan(&element, &value); err != nil {
			return rte.Snapshot{}, fmt.Errorf("load snapshot: scan value: %w", err)
		}
		snap.DataModel[element] = value
	}
	if err := rows.Err(); err != nil {
		return rte.Snapshot{}, fmt.Errorf("load snapshot: values: %w", err)
	}

	snap.ActivityTree = make(map[string]rte.ActivityState)
	stateRows, err := s.db.QueryContext(ctx, `
		SELECT activity_id, attempt_count,
		       completion_status, success_status,
		       objective_satisfied, objective_satisfied_known,
		       objective_measure, objective_measure_known,
		       progress_measure, progress_measure_known, suspended
		FROM activity_states WHERE session_id = ?
	`, sessionID)
	if err != nil {
		return rte.Snapshot{}, fmt.Errorf("load snapshot: states: %w", err)
	}
	defer stateRows.Close()
	for stateRows.Next() {
		var activityID string
		var st rte.ActivityState
		if err := stateRows.Scan(
			&activityID, &st.AttemptCount,
			&st.CompletionStatus, &st.SuccessStatus,
			&st.ObjectiveSatisfied, &st.ObjectiveSatisfiedKnown,
			&st.ObjectiveMeasure, &st.ObjectiveMeasureKnown,
			&st.ProgressMeasure, &st.ProgressMeasureKnown, &st.Suspended,
		); err != nil {
			return rte.Snapshot{}, fmt.Errorf("load snapshot: scan state: %w", err)
		}
		snap.ActivityTree[activityID] = st
	}
	if err := stateRows.Err(); err != nil {
		return rte.Snapshot{}, fmt.Errorf("load snapshot: states: %w", err)
	}

	return snap, nil
}

// LatestSnapshot loads the most recently saved snapshot, if any.
// Session ids are UUIDv7 (time-sortable), but ordering uses the save
// timestamp so test-supplied ids behave the same way.
func (s *Store) LatestSnapshot(ctx context.Context) (rte.Snapshot, error) {
	var sessionID string
	err := s.db.QueryRowContext(ctx, `
		SELECT session_id FROM attempts
		ORDER BY saved_at DESC, session_id DESC LIMIT 1
	`).Scan(&sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return rte.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return rte.Snapshot{}, fmt.Errorf("latest snapshot: %w", err)
	}
	return s.LoadSnapshot(ctx, sessionID)
}

// AttemptInfo summarizes one stored attempt for listings.
type AttemptInfo struct {
	SessionID             string `json:"session_id"`
	ActivityID            string `json:"activity_id"`
	LastNavigationRequest string `json:"last_navigation_request,omitempty"`
	SavedAt               string `json:"saved_at"`
}

// ListAttempts returns all stored attempts, most recent first.
func (s *Store) ListAttempts(ctx context.Context) ([]AttemptInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, activity_id, last_navigation_request, saved_at
		FROM attempts
		ORDER BY saved_at DESC, session_id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []AttemptInfo
	for rows.Next() {
		var info AttemptInfo
		if err := rows.Scan(&info.SessionID, &info.ActivityID,
			&info.LastNavigationRequest, &info.SavedAt); err != nil {
			return nil, fmt.Errorf("list attempts: scan: %w", err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return out, nil
}
