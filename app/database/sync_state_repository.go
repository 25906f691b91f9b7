package database

import "fmt"

type syncStateRepository struct {
	db *DB
}

// NewSyncStateRepository creates a new sync state repository
func NewSyncStateRepository(db *DB) SyncStateRepository {
	return &syncStateRepository{db: db}
}

// GetOrCreate returns the singleton sync state row, inserting the default row
// on first access. The guarded INSERT keeps the row unique even when two
// connections race here.
func (r *syncStateRepository) GetOrCreate() (*SyncState, error) {
	_, err := r.db.Exec(`
		INSERT INTO sync_state (id, sync_in_progress, sync_version)
		SELECT 1, 0, 1
		WHERE NOT EXISTS (SELECT 1 FROM sync_state)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sync state: %w", err)
	}

	var state SyncState
	err = r.db.QueryRow(`
		SELECT id, last_sync_at, last_full_sync_at, sync_in_progress, sync_error, sync_version
		FROM sync_state LIMIT 1
	`).Scan(&state.ID, &state.LastSyncAt, &state.LastFullSyncAt,
		&state.SyncInProgress, &state.SyncError, &state.SyncVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}

	return &state, nil
}

// MarkInProgress flags a running sync and clears the previous error.
func (r *syncStateRepository) MarkInProgress() error {
	if _, err := r.db.Exec("UPDATE sync_state SET sync_in_progress = 1, sync_error = NULL"); err != nil {
		return fmt.Errorf("failed to mark sync in progress: %w", err)
	}
	return nil
}

// RecordSuccess finalizes a completed sync. last_sync_at moves to the moment
// the sync STARTED, not finished, so changes the server accepted mid-run are
// re-fetched next time. last_full_sync_at latches on the first success and
// never moves afterwards.
func (r *syncStateRepository) RecordSuccess(startedAt string) error {
	_, err := r.db.Exec(`
		UPDATE sync_state SET
			last_sync_at = ?,
			last_full_sync_at = COALESCE(last_full_sync_at, ?),
			sync_in_progress = 0,
			sync_error = NULL
	`, startedAt, startedAt)
	if err != nil {
		return fmt.Errorf("failed to record sync success: %w", err)
	}
	return nil
}

// RecordFailure clears the in-progress flag and stores the failure message.
// The sync watermarks stay untouched so the next run retries the same window.
func (r *syncStateRepository) RecordFailure(message string) error {
	_, err := r.db.Exec("UPDATE sync_state SET sync_in_progress = 0, sync_error = ?", message)
	if err != nil {
		return fmt.Errorf("failed to record sync failure: %w", err)
	}
	return nil
}
