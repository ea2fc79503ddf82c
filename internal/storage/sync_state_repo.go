package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SyncStateRepo reads and writes the single-row sync watermark.
type SyncStateRepo struct {
	db DBTX
}

// NewSyncStateRepo creates a new SyncStateRepo bound to a database or transaction.
func NewSyncStateRepo(db DBTX) *SyncStateRepo {
	return &SyncStateRepo{db: db}
}

// LastSyncAt returns the time of the last committed sync, or nil if none.
func (r *SyncStateRepo) LastSyncAt(ctx context.Context) (*time.Time, error) {
	var raw sql.NullString
	err := r.db.QueryRowContext(ctx, "SELECT last_sync_at FROM sync_state WHERE id = 1").Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !raw.Valid) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sync state: %w", err)
	}
	if raw.String == "" {
		return nil, nil
	}

	t, err := parseTime(raw.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse last_sync_at: %w", err)
	}
	return &t, nil
}

// SetLastSyncAt records t as the watermark.
func (r *SyncStateRepo) SetLastSyncAt(ctx context.Context, t time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sync_state (id, last_sync_at) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET last_sync_at = excluded.last_sync_at`,
		formatTime(t),
	)
	if err != nil {
		return fmt.Errorf("failed to update sync state: %w", err)
	}
	return nil
}
