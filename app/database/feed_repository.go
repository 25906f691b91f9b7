package database

import (
	"database/sql"
	"fmt"
	"strings"
)

type feedRepository struct {
	db *DB
}

// NewFeedRepository creates a new feed repository
func NewFeedRepository(db *DB) FeedRepository {
	return &feedRepository{db: db}
}

const feedColumns = `id, user_id, title, site_url, feed_url, category_id, checked_at,
	etag_header, last_modified_header, parsing_error_message, parsing_error_count,
	scraper_rules, rewrite_rules, crawler, blocklist_rules, keeplist_rules,
	user_agent, username, password, disabled, ignore_http_cache, fetch_via_proxy,
	no_media_player, allow_self_signed_certificates, urlrewrite_rules, cookie,
	apprise_service_urls, hide_globally, created_at, updated_at, sync_status`

// UpsertFeeds inserts or updates mirrored feeds in batches keyed by id. All
// server-side configuration fields are mirrored verbatim; created_at is fixed
// at first insert and never overwritten on conflict.
func (r *feedRepository) UpsertFeeds(feeds []Feed, now string) error {
	for _, batch := range batches(len(feeds)) {
		rows := feeds[batch.start:batch.end]

		var sb strings.Builder
		sb.WriteString("INSERT INTO feeds (" + feedColumns + ") VALUES ")
		args := make([]interface{}, 0, len(rows)*31)

		for i, feed := range rows {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")

			createdAt := feed.CreatedAt
			if createdAt == "" {
				createdAt = now
			}
			updatedAt := feed.UpdatedAt
			if updatedAt == "" {
				updatedAt = now
			}

			args = append(args, feed.ID, feed.UserID, feed.Title, feed.SiteURL, feed.FeedURL,
				feed.CategoryID, feed.CheckedAt, feed.ETagHeader, feed.LastModifiedHeader,
				feed.ParsingErrorMessage, feed.ParsingErrorCount, feed.ScraperRules,
				feed.RewriteRules, feed.Crawler, feed.BlocklistRules, feed.KeeplistRules,
				feed.UserAgent, feed.Username, feed.Password, feed.Disabled,
				feed.IgnoreHTTPCache, feed.FetchViaProxy, feed.NoMediaPlayer,
				feed.AllowSelfSignedCertificates, feed.URLRewriteRules, feed.Cookie,
				feed.AppriseServiceURLs, feed.HideGlobally, createdAt, updatedAt,
				string(SyncStatusSynced))
		}

		sb.WriteString(` ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			title = excluded.title,
			site_url = excluded.site_url,
			feed_url = excluded.feed_url,
			category_id = excluded.category_id,
			checked_at = excluded.checked_at,
			etag_header = excluded.etag_header,
			last_modified_header = excluded.last_modified_header,
			parsing_error_message = excluded.parsing_error_message,
			parsing_error_count = excluded.parsing_error_count,
			scraper_rules = excluded.scraper_rules,
			rewrite_rules = excluded.rewrite_rules,
			crawler = excluded.crawler,
			blocklist_rules = excluded.blocklist_rules,
			keeplist_rules = excluded.keeplist_rules,
			user_agent = excluded.user_agent,
			username = excluded.username,
			password = excluded.password,
			disabled = excluded.disabled,
			ignore_http_cache = excluded.ignore_http_cache,
			fetch_via_proxy = excluded.fetch_via_proxy,
			no_media_player = excluded.no_media_player,
			allow_self_signed_certificates = excluded.allow_self_signed_certificates,
			urlrewrite_rules = excluded.urlrewrite_rules,
			cookie = excluded.cookie,
			apprise_service_urls = excluded.apprise_service_urls,
			hide_globally = excluded.hide_globally,
			updated_at = excluded.updated_at,
			sync_status = 'synced'`)

		if _, err := r.db.Exec(sb.String(), args...); err != nil {
			return fmt.Errorf("failed to upsert feeds: %w", err)
		}
	}

	return nil
}

// MarkStale flags every feed of the user as unconfirmed. Full-sync only.
func (r *feedRepository) MarkStale(userID int64) error {
	_, err := r.db.Exec("UPDATE feeds SET sync_status = 'stale' WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("failed to mark feeds stale: %w", err)
	}
	return nil
}

// DeleteStale removes every feed of the user the full-sync pass did not
// reconfirm. Entries must already be gone (child-before-parent order).
func (r *feedRepository) DeleteStale(userID int64) error {
	_, err := r.db.Exec("DELETE FROM feeds WHERE user_id = ? AND sync_status = 'stale'", userID)
	if err != nil {
		return fmt.Errorf("failed to delete stale feeds: %w", err)
	}
	return nil
}

// DeleteMissing removes every feed of the user absent from keepIDs; an empty
// set wipes all of the user's feeds.
func (r *feedRepository) DeleteMissing(userID int64, keepIDs []int64) error {
	if len(keepIDs) == 0 {
		if _, err := r.db.Exec("DELETE FROM feeds WHERE user_id = ?", userID); err != nil {
			return fmt.Errorf("failed to clear feeds: %w", err)
		}
		return nil
	}

	query, args := notInDelete("feeds", userID, keepIDs)
	if _, err := r.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to delete removed feeds: %w", err)
	}
	return nil
}

// GetFeeds returns all mirrored feeds of the user ordered by title.
func (r *feedRepository) GetFeeds(userID int64) ([]Feed, error) {
	rows, err := r.db.Query("SELECT "+feedColumns+" FROM feeds WHERE user_id = ? ORDER BY title", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get feeds: %w", err)
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, *feed)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed rows: %w", err)
	}

	return feeds, nil
}

// GetFeedCount returns the number of mirrored feeds for the user.
func (r *feedRepository) GetFeedCount(userID int64) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM feeds WHERE user_id = ?", userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get feed count: %w", err)
	}
	return count, nil
}

func scanFeed(rows *sql.Rows) (*Feed, error) {
	var feed Feed
	err := rows.Scan(&feed.ID, &feed.UserID, &feed.Title, &feed.SiteURL, &feed.FeedURL,
		&feed.CategoryID, &feed.CheckedAt, &feed.ETagHeader, &feed.LastModifiedHeader,
		&feed.ParsingErrorMessage, &feed.ParsingErrorCount, &feed.ScraperRules,
		&feed.RewriteRules, &feed.Crawler, &feed.BlocklistRules, &feed.KeeplistRules,
		&feed.UserAgent, &feed.Username, &feed.Password, &feed.Disabled,
		&feed.IgnoreHTTPCache, &feed.FetchViaProxy, &feed.NoMediaPlayer,
		&feed.AllowSelfSignedCertificates, &feed.URLRewriteRules, &feed.Cookie,
		&feed.AppriseServiceURLs, &feed.HideGlobally, &feed.CreatedAt, &feed.UpdatedAt,
		&feed.SyncStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to scan feed row: %w", err)
	}
	return &feed, nil
}
