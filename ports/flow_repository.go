package ports

import (
	"context"
	"time"

	"gridprep/models"
)

// FlowRepository persists wizard session snapshots so a session can resume
// after reload. Implementations: Postgres (shared deployments) and a local
// JSON-file store (the browser localStorage analogue).
type FlowRepository interface {
	// SaveSnapshot upserts the snapshot for its session.
	SaveSnapshot(ctx context.Context, snapshot *models.WizardSnapshot) error

	// GetSnapshot loads the snapshot for a session. A session with no
	// persisted state returns (nil, nil).
	GetSnapshot(ctx context.Context, sessionID string) (*models.WizardSnapshot, error)

	// DeleteSnapshot removes a session's snapshot. Deleting a missing
	// snapshot is not an error.
	DeleteSnapshot(ctx context.Context, sessionID string) error

	// CleanupOlderThan removes snapshots not updated within maxAge and
	// returns how many were dropped.
	CleanupOlderThan(ctx context.Context, maxAge time.Duration) (int, error)
}
