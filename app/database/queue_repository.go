package database

import (
	"fmt"
	"time"
)

type queueRepository struct {
	db *DB
}

// NewQueueRepository creates a new queue repository
func NewQueueRepository(db *DB) QueueRepository {
	return &queueRepository{db: db}
}

// Enqueue records a write that failed against the remote so a later manual
// replay can retry it. Returns the queue row id.
func (r *queueRepository) Enqueue(operationType, entityType string, entityID int64, payload string) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.Exec(`
		INSERT INTO sync_queue (operation_type, entity_type, entity_id, payload, retry_count, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, 'pending', ?, ?)
	`, operationType, entityType, entityID, payload, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue operation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue operation id: %w", err)
	}

	return id, nil
}

// GetPending returns the oldest pending operations, up to limit.
func (r *queueRepository) GetPending(limit int) ([]QueueOperation, error) {
	rows, err := r.db.Query(`
		SELECT id, operation_type, entity_type, entity_id, payload, retry_count, status, created_at, updated_at
		FROM sync_queue
		WHERE status = 'pending'
		ORDER BY created_at ASC, id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending operations: %w", err)
	}
	defer rows.Close()

	var ops []QueueOperation
	for rows.Next() {
		var op QueueOperation
		err := rows.Scan(&op.ID, &op.OperationType, &op.EntityType, &op.EntityID,
			&op.Payload, &op.RetryCount, &op.Status, &op.CreatedAt, &op.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue row: %w", err)
		}
		ops = append(ops, op)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating queue rows: %w", err)
	}

	return ops, nil
}
