package database

import (
	"fmt"
	"strings"
)

type categoryRepository struct {
	db *DB
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *DB) CategoryRepository {
	return &categoryRepository{db: db}
}

// UpsertCategories inserts or updates mirrored categories in batches keyed by
// id. Every mirrored column is overwritten by the incoming value except
// created_at, which is fixed at first insert; sync_status is forced back to
// 'synced' so a full-sync pass un-stales every row the remote reconfirmed.
func (r *categoryRepository) UpsertCategories(categories []Category, now string) error {
	for _, batch := range batches(len(categories)) {
		rows := categories[batch.start:batch.end]

		var sb strings.Builder
		sb.WriteString("INSERT INTO categories (id, user_id, title, hide_globally, created_at, updated_at, sync_status) VALUES ")
		args := make([]interface{}, 0, len(rows)*7)

		for i, category := range rows {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(?, ?, ?, ?, ?, ?, ?)")

			createdAt := category.CreatedAt
			if createdAt == "" {
				createdAt = now
			}
			updatedAt := category.UpdatedAt
			if updatedAt == "" {
				updatedAt = now
			}

			args = append(args, category.ID, category.UserID, category.Title,
				category.HideGlobally, createdAt, updatedAt, string(SyncStatusSynced))
		}

		sb.WriteString(` ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			title = excluded.title,
			hide_globally = excluded.hide_globally,
			updated_at = excluded.updated_at,
			sync_status = 'synced'`)

		if _, err := r.db.Exec(sb.String(), args...); err != nil {
			return fmt.Errorf("failed to upsert categories: %w", err)
		}
	}

	return nil
}

// MarkStale flags every category of the user as unconfirmed. Full-sync only.
func (r *categoryRepository) MarkStale(userID int64) error {
	_, err := r.db.Exec("UPDATE categories SET sync_status = 'stale' WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("failed to mark categories stale: %w", err)
	}
	return nil
}

// DeleteStale removes every category of the user the full-sync pass did not
// reconfirm.
func (r *categoryRepository) DeleteStale(userID int64) error {
	_, err := r.db.Exec("DELETE FROM categories WHERE user_id = ? AND sync_status = 'stale'", userID)
	if err != nil {
		return fmt.Errorf("failed to delete stale categories: %w", err)
	}
	return nil
}

// DeleteMissing removes every category of the user whose id is absent from
// keepIDs. An empty set means the remote reports no categories at all, so all
// of the user's rows go.
func (r *categoryRepository) DeleteMissing(userID int64, keepIDs []int64) error {
	if len(keepIDs) == 0 {
		if _, err := r.db.Exec("DELETE FROM categories WHERE user_id = ?", userID); err != nil {
			return fmt.Errorf("failed to clear categories: %w", err)
		}
		return nil
	}

	query, args := notInDelete("categories", userID, keepIDs)
	if _, err := r.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to delete removed categories: %w", err)
	}
	return nil
}

// GetCategories returns all mirrored categories of the user ordered by title.
func (r *categoryRepository) GetCategories(userID int64) ([]Category, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, title, hide_globally, created_at, updated_at, sync_status
		FROM categories
		WHERE user_id = ?
		ORDER BY title
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var category Category
		err := rows.Scan(&category.ID, &category.UserID, &category.Title,
			&category.HideGlobally, &category.CreatedAt, &category.UpdatedAt, &category.SyncStatus)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category row: %w", err)
		}
		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category rows: %w", err)
	}

	return categories, nil
}

// GetCategoryCount returns the number of mirrored categories for the user.
func (r *categoryRepository) GetCategoryCount(userID int64) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM categories WHERE user_id = ?", userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get category count: %w", err)
	}
	return count, nil
}
