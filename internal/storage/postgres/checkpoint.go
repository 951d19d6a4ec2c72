package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"social_syncer/internal/domain"
)

type CheckpointStore struct {
	db *sqlx.DB
}

func NewCheckpointStore(db *sqlx.DB) *CheckpointStore {
	return &CheckpointStore{db: db}
}

// GetOrCreate returns the checkpoint of platform, creating the empty one
// on first use.
func (s *CheckpointStore) GetOrCreate(ctx context.Context, platform domain.Platform) (*domain.Checkpoint, error) {
	exec := GetExecutor(ctx, s.db)

	if _, err := exec.ExecContext(ctx,
		`INSERT INTO checkpoints (platform) VALUES ($1) ON CONFLICT (platform) DO NOTHING`, platform,
	); err != nil {
		return nil, fmt.Errorf("create checkpoint %s: %w", platform, err)
	}

	var cp domain.Checkpoint
	if err := sqlx.GetContext(ctx, exec, &cp,
		`SELECT platform, last_seen_id, last_run_at, created_at FROM checkpoints WHERE platform = $1`, platform,
	); err != nil {
		return nil, fmt.Errorf("get checkpoint %s: %w", platform, err)
	}

	if cp.LastSeenID == "" {
		cp.LastRunAt = time.Time{}
	}
	return &cp, nil
}

// Advance records newID as the leading item. last_run_at never moves
// backwards.
func (s *CheckpointStore) Advance(ctx context.Context, platform domain.Platform, newID string, at time.Time) error {
	query := `
		INSERT INTO checkpoints (platform, last_seen_id, last_run_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (platform) DO UPDATE SET
			last_seen_id = EXCLUDED.last_seen_id,
			last_run_at = GREATEST(checkpoints.last_run_at, EXCLUDED.last_run_at)`

	if _, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, platform, newID, at); err != nil {
		return fmt.Errorf("advance checkpoint %s: %w", platform, err)
	}
	return nil
}

// List returns every stored checkpoint ordered by platform.
func (s *CheckpointStore) List(ctx context.Context) ([]domain.Checkpoint, error) {
	var cps []domain.Checkpoint
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &cps,
		`SELECT platform, last_seen_id, last_run_at, created_at FROM checkpoints ORDER BY platform`)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	return cps, nil
}
