package database

import "fmt"

// SyncStatus marks whether a mirrored row was reconfirmed by the most recent
// sync pass. Stale is transient: it only exists between the mark and delete
// phases of a full sync and must never survive a completed run.
type SyncStatus string

const (
	SyncStatusSynced SyncStatus = "synced"
	SyncStatusStale  SyncStatus = "stale"
)

// EntryStatus is the server-side reading status of an entry.
type EntryStatus string

const (
	EntryStatusUnread  EntryStatus = "unread"
	EntryStatusRead    EntryStatus = "read"
	EntryStatusRemoved EntryStatus = "removed"
)

// ParseEntryStatus validates a status string coming from the remote or the UI.
func ParseEntryStatus(s string) (EntryStatus, error) {
	switch EntryStatus(s) {
	case EntryStatusUnread, EntryStatusRead, EntryStatusRemoved:
		return EntryStatus(s), nil
	}
	return "", fmt.Errorf("unknown entry status %q", s)
}

// Category mirrors a remote category. Timestamps are RFC3339 strings stored
// verbatim as reported by the server.
type Category struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"user_id"`
	Title        string     `json:"title"`
	HideGlobally bool       `json:"hide_globally"`
	CreatedAt    string     `json:"created_at"`
	UpdatedAt    string     `json:"updated_at"`
	SyncStatus   SyncStatus `json:"sync_status"`
}

// Feed mirrors a remote feed, including the server-side fetch configuration
// fields that the UI displays but never interprets.
type Feed struct {
	ID                          int64      `json:"id"`
	UserID                      int64      `json:"user_id"`
	Title                       string     `json:"title"`
	SiteURL                     string     `json:"site_url"`
	FeedURL                     string     `json:"feed_url"`
	CategoryID                  *int64     `json:"category_id"`
	CheckedAt                   *string    `json:"checked_at"`
	ETagHeader                  *string    `json:"etag_header"`
	LastModifiedHeader          *string    `json:"last_modified_header"`
	ParsingErrorMessage         *string    `json:"parsing_error_message"`
	ParsingErrorCount           int        `json:"parsing_error_count"`
	ScraperRules                *string    `json:"scraper_rules"`
	RewriteRules                *string    `json:"rewrite_rules"`
	Crawler                     bool       `json:"crawler"`
	BlocklistRules              *string    `json:"blocklist_rules"`
	KeeplistRules               *string    `json:"keeplist_rules"`
	UserAgent                   *string    `json:"user_agent"`
	Username                    *string    `json:"username"`
	Password                    *string    `json:"password"`
	Disabled                    bool       `json:"disabled"`
	IgnoreHTTPCache             bool       `json:"ignore_http_cache"`
	FetchViaProxy               bool       `json:"fetch_via_proxy"`
	NoMediaPlayer               bool       `json:"no_media_player"`
	AllowSelfSignedCertificates bool       `json:"allow_self_signed_certificates"`
	URLRewriteRules             *string    `json:"urlrewrite_rules"`
	Cookie                      *string    `json:"cookie"`
	AppriseServiceURLs          *string    `json:"apprise_service_urls"`
	HideGlobally                bool       `json:"hide_globally"`
	CreatedAt                   string     `json:"created_at"`
	UpdatedAt                   string     `json:"updated_at"`
	SyncStatus                  SyncStatus `json:"sync_status"`
}

// Entry mirrors a remote entry.
type Entry struct {
	ID          int64       `json:"id"`
	UserID      int64       `json:"user_id"`
	FeedID      int64       `json:"feed_id"`
	Title       string      `json:"title"`
	URL         string      `json:"url"`
	CommentsURL *string     `json:"comments_url"`
	Author      *string     `json:"author"`
	Content     *string     `json:"content"`
	Hash        string      `json:"hash"`
	PublishedAt string      `json:"published_at"`
	CreatedAt   string      `json:"created_at"`
	ChangedAt   *string     `json:"changed_at"`
	Status      EntryStatus `json:"status"`
	ShareCode   *string     `json:"share_code"`
	Starred     bool        `json:"starred"`
	ReadingTime *int        `json:"reading_time"`
	SyncStatus  SyncStatus  `json:"sync_status"`
}

// SyncState is the singleton bookkeeping row for the sync engine. Exactly one
// row exists after first access.
type SyncState struct {
	ID             int64   `json:"id"`
	LastSyncAt     *string `json:"last_sync_at"`
	LastFullSyncAt *string `json:"last_full_sync_at"`
	SyncInProgress bool    `json:"sync_in_progress"`
	SyncError      *string `json:"sync_error"`
	SyncVersion    int64   `json:"sync_version"`
}

// QueueOperation is a pending offline write waiting to be replayed against the
// remote. The sync engine never reads this table; only the command surface
// enqueues into it.
type QueueOperation struct {
	ID            int64  `json:"id"`
	OperationType string `json:"operation_type"`
	EntityType    string `json:"entity_type"`
	EntityID      int64  `json:"entity_id"`
	Payload       string `json:"payload"`
	RetryCount    int    `json:"retry_count"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}
