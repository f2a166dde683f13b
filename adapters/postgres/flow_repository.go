package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"gridprep/models"
)

// FlowRepository persists wizard session snapshots in the flow_sessions
// table so a reload resumes mid-flow instead of restarting.
type FlowRepository struct {
	db *sqlx.DB
}

// NewFlowRepository creates a new flow snapshot repository
func NewFlowRepository(db *sqlx.DB) *FlowRepository {
	return &FlowRepository{db: db}
}

// SaveSnapshot saves or updates the snapshot for a session
func (r *FlowRepository) SaveSnapshot(ctx context.Context, snapshot *models.WizardSnapshot) error {
	stateJSON, err := json.Marshal(snapshot.State)
	if err != nil {
		return fmt.Errorf("failed to marshal flow state: %w", err)
	}

	query := `
		INSERT INTO flow_sessions (session_id, flow_state, version, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id) DO UPDATE SET
			flow_state = EXCLUDED.flow_state,
			version = EXCLUDED.version,
			updated_at = EXCLUDED.updated_at`

	updatedAt := snapshot.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err = r.db.ExecContext(ctx, query,
		snapshot.SessionID,
		stateJSON,
		snapshot.Version,
		updatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save flow snapshot: %w", err)
	}

	return nil
}

// GetSnapshot retrieves the snapshot for a session. Returns (nil, nil) when
// the session has no persisted state.
func (r *FlowRepository) GetSnapshot(ctx context.Context, sessionID string) (*models.WizardSnapshot, error) {
	query := `
		SELECT session_id, flow_state, version, updated_at
		FROM flow_sessions
		WHERE session_id = $1`

	var snapshot models.WizardSnapshot
	var stateJSON []byte

	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(
		&snapshot.SessionID,
		&stateJSON,
		&snapshot.Version,
		&snapshot.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get flow snapshot: %w", err)
	}

	if err := json.Unmarshal(stateJSON, &snapshot.State); err != nil {
		return nil, fmt.Errorf("failed to unmarshal flow state: %w", err)
	}

	return &snapshot, nil
}

// DeleteSnapshot removes the snapshot for a session. Deleting a missing
// snapshot is not an error.
func (r *FlowRepository) DeleteSnapshot(ctx context.Context, sessionID string) error {
	query := `DELETE FROM flow_sessions WHERE session_id = $1`

	_, err := r.db.ExecContext(ctx, query, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete flow snapshot: %w", err)
	}

	return nil
}

// CleanupOlderThan removes snapshots not updated within maxAge and returns
// how many were dropped.
func (r *FlowRepository) CleanupOlderThan(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)

	query := `DELETE FROM flow_sessions WHERE updated_at < $1`

	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup stale flow snapshots: %w", err)
	}

	deleted, _ := result.RowsAffected()
	return int(deleted), nil
}
