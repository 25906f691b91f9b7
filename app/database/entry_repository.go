package database

import (
	"database/sql"
	"fmt"
	"strings"
)

type entryRepository struct {
	db *DB
}

// NewEntryRepository creates a new entry repository
func NewEntryRepository(db *DB) EntryRepository {
	return &entryRepository{db: db}
}

const entryColumns = `id, user_id, feed_id, title, url, comments_url, author, content,
	hash, published_at, created_at, changed_at, status, share_code, starred,
	reading_time, sync_status`

// UpsertEntries inserts or updates mirrored entries in batches keyed by id.
// created_at is fixed at first insert; every other mirrored column is
// overwritten and sync_status is forced back to 'synced'.
func (r *entryRepository) UpsertEntries(entries []Entry, now string) error {
	for _, batch := range batches(len(entries)) {
		rows := entries[batch.start:batch.end]

		var sb strings.Builder
		sb.WriteString("INSERT INTO entries (" + entryColumns + ") VALUES ")
		args := make([]interface{}, 0, len(rows)*17)

		for i, entry := range rows {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")

			createdAt := entry.CreatedAt
			if createdAt == "" {
				createdAt = now
			}

			args = append(args, entry.ID, entry.UserID, entry.FeedID, entry.Title, entry.URL,
				entry.CommentsURL, entry.Author, entry.Content, entry.Hash, entry.PublishedAt,
				createdAt, entry.ChangedAt, string(entry.Status), entry.ShareCode,
				entry.Starred, entry.ReadingTime, string(SyncStatusSynced))
		}

		sb.WriteString(` ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			feed_id = excluded.feed_id,
			title = excluded.title,
			url = excluded.url,
			comments_url = excluded.comments_url,
			author = excluded.author,
			content = excluded.content,
			hash = excluded.hash,
			published_at = excluded.published_at,
			changed_at = excluded.changed_at,
			status = excluded.status,
			share_code = excluded.share_code,
			starred = excluded.starred,
			reading_time = excluded.reading_time,
			sync_status = 'synced'`)

		if _, err := r.db.Exec(sb.String(), args...); err != nil {
			return fmt.Errorf("failed to upsert entries: %w", err)
		}
	}

	return nil
}

// MarkStale flags every entry of the user as unconfirmed. Full-sync only.
func (r *entryRepository) MarkStale(userID int64) error {
	_, err := r.db.Exec("UPDATE entries SET sync_status = 'stale' WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("failed to mark entries stale: %w", err)
	}
	return nil
}

// DeleteStale removes every entry of the user the full-sync pass did not
// reconfirm. Runs before feed deletion to keep foreign keys satisfied.
func (r *entryRepository) DeleteStale(userID int64) error {
	_, err := r.db.Exec("DELETE FROM entries WHERE user_id = ? AND sync_status = 'stale'", userID)
	if err != nil {
		return fmt.Errorf("failed to delete stale entries: %w", err)
	}
	return nil
}

// DeleteRemovedSince deletes entries the server explicitly flagged removed on
// or after the given RFC3339 boundary. The incremental path has no complete
// entry id-set, so removal is driven by this status signal instead of
// set-difference; entries merely outside the change window are untouched.
// Both sides go through datetime() so servers reporting changed_at with a
// numeric UTC offset compare correctly against the Z-suffixed threshold.
func (r *entryRepository) DeleteRemovedSince(userID int64, threshold string) error {
	_, err := r.db.Exec(`
		DELETE FROM entries
		WHERE user_id = ? AND status = 'removed'
		  AND (changed_at IS NOT NULL AND datetime(changed_at) >= datetime(?))
	`, userID, threshold)
	if err != nil {
		return fmt.Errorf("failed to delete removed entries: %w", err)
	}
	return nil
}

// GetEntries returns entries for the UI, newest first, honoring the filters
// in opts.
func (r *entryRepository) GetEntries(opts EntryQueryOptions) ([]Entry, error) {
	var sb strings.Builder
	sb.WriteString("SELECT " + entryColumns + " FROM entries WHERE user_id = ?")
	args := []interface{}{opts.UserID}

	if opts.Status != nil {
		sb.WriteString(" AND status = ?")
		args = append(args, string(*opts.Status))
	}
	if opts.FeedID != nil {
		sb.WriteString(" AND feed_id = ?")
		args = append(args, *opts.FeedID)
	}
	if opts.Starred != nil {
		sb.WriteString(" AND starred = ?")
		args = append(args, *opts.Starred)
	}
	if opts.Search != "" {
		sb.WriteString(" AND title LIKE ?")
		args = append(args, "%"+opts.Search+"%")
	}

	sb.WriteString(" ORDER BY published_at DESC")

	if opts.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		sb.WriteString(" OFFSET ?")
		args = append(args, opts.Offset)
	}

	rows, err := r.db.Query(sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entry rows: %w", err)
	}

	return entries, nil
}

// GetEntry returns a single entry by id, or nil when it is not mirrored.
func (r *entryRepository) GetEntry(id int64) (*Entry, error) {
	row := r.db.QueryRow("SELECT "+entryColumns+" FROM entries WHERE id = ?", id)

	var entry Entry
	err := row.Scan(&entry.ID, &entry.UserID, &entry.FeedID, &entry.Title, &entry.URL,
		&entry.CommentsURL, &entry.Author, &entry.Content, &entry.Hash, &entry.PublishedAt,
		&entry.CreatedAt, &entry.ChangedAt, &entry.Status, &entry.ShareCode,
		&entry.Starred, &entry.ReadingTime, &entry.SyncStatus)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}

	return &entry, nil
}

// UpdateStatus mirrors a status change the remote has already accepted.
func (r *entryRepository) UpdateStatus(ids []int64, status EntryStatus, changedAt string) error {
	if len(ids) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("UPDATE entries SET status = ?, changed_at = ? WHERE id IN (")
	args := []interface{}{string(status), changedAt}
	for i, id := range ids {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("?")
		args = append(args, id)
	}
	sb.WriteString(")")

	if _, err := r.db.Exec(sb.String(), args...); err != nil {
		return fmt.Errorf("failed to update entry status: %w", err)
	}
	return nil
}

// SetStarred mirrors a bookmark toggle the remote has already accepted.
func (r *entryRepository) SetStarred(id int64, starred bool) error {
	if _, err := r.db.Exec("UPDATE entries SET starred = ? WHERE id = ?", starred, id); err != nil {
		return fmt.Errorf("failed to set entry starred flag: %w", err)
	}
	return nil
}

// UpdateContent replaces the cached content with locally extracted full text.
func (r *entryRepository) UpdateContent(id int64, content string) error {
	if _, err := r.db.Exec("UPDATE entries SET content = ? WHERE id = ?", content, id); err != nil {
		return fmt.Errorf("failed to update entry content: %w", err)
	}
	return nil
}

// GetEntryCount returns the number of mirrored entries for the user.
func (r *entryRepository) GetEntryCount(userID int64) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM entries WHERE user_id = ?", userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get entry count: %w", err)
	}
	return count, nil
}

// GetUnreadCounts aggregates unread totals for the UI: overall, published
// today, and broken down per category and per feed.
func (r *entryRepository) GetUnreadCounts(userID int64) (*UnreadCounts, error) {
	counts := &UnreadCounts{}

	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM entries WHERE user_id = ? AND status = 'unread'", userID,
	).Scan(&counts.Total)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch total unread count: %w", err)
	}

	err = r.db.QueryRow(`
		SELECT COUNT(*)
		FROM entries
		WHERE user_id = ? AND status = 'unread'
		  AND published_at >= datetime('now', 'localtime', 'start of day')
	`, userID).Scan(&counts.Today)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch today unread count: %w", err)
	}

	rows, err := r.db.Query(`
		SELECT c.id, COUNT(e.id)
		FROM categories c
		LEFT JOIN feeds f ON f.category_id = c.id
		LEFT JOIN entries e ON e.feed_id = f.id AND e.status = 'unread'
		WHERE c.user_id = ?
		GROUP BY c.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch category unread counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row CategoryUnread
		if err := rows.Scan(&row.CategoryID, &row.UnreadCount); err != nil {
			return nil, fmt.Errorf("failed to scan category unread row: %w", err)
		}
		counts.ByCategory = append(counts.ByCategory, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category unread rows: %w", err)
	}

	feedRows, err := r.db.Query(`
		SELECT feed_id, COUNT(*)
		FROM entries
		WHERE user_id = ? AND status = 'unread'
		GROUP BY feed_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed unread counts: %w", err)
	}
	defer feedRows.Close()

	for feedRows.Next() {
		var row FeedUnread
		if err := feedRows.Scan(&row.FeedID, &row.UnreadCount); err != nil {
			return nil, fmt.Errorf("failed to scan feed unread row: %w", err)
		}
		counts.ByFeed = append(counts.ByFeed, row)
	}
	if err := feedRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed unread rows: %w", err)
	}

	return counts, nil
}

func scanEntry(rows *sql.Rows) (*Entry, error) {
	var entry Entry
	err := rows.Scan(&entry.ID, &entry.UserID, &entry.FeedID, &entry.Title, &entry.URL,
		&entry.CommentsURL, &entry.Author, &entry.Content, &entry.Hash, &entry.PublishedAt,
		&entry.CreatedAt, &entry.ChangedAt, &entry.Status, &entry.ShareCode,
		&entry.Starred, &entry.ReadingTime, &entry.SyncStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to scan entry row: %w", err)
	}
	return &entry, nil
}
