package miniflux

// User is the authenticated Miniflux account.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	Theme    string `json:"theme,omitempty"`
	Language string `json:"language,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// Category is a remote category as reported by the server.
type Category struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"user_id"`
	Title        string `json:"title"`
	HideGlobally bool   `json:"hide_globally"`
	CreatedAt    string `json:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

// Feed is a remote feed. The server nests the owning category as an object;
// local mirroring flattens it to a category id.
type Feed struct {
	ID                          int64     `json:"id"`
	UserID                      int64     `json:"user_id"`
	Title                       string    `json:"title"`
	SiteURL                     string    `json:"site_url"`
	FeedURL                     string    `json:"feed_url"`
	Category                    *Category `json:"category"`
	CheckedAt                   *string   `json:"checked_at"`
	ETagHeader                  *string   `json:"etag_header"`
	LastModifiedHeader          *string   `json:"last_modified_header"`
	ParsingErrorMessage         *string   `json:"parsing_error_message"`
	ParsingErrorCount           int       `json:"parsing_error_count"`
	ScraperRules                *string   `json:"scraper_rules"`
	RewriteRules                *string   `json:"rewrite_rules"`
	Crawler                     bool      `json:"crawler"`
	BlocklistRules              *string   `json:"blocklist_rules"`
	KeeplistRules               *string   `json:"keeplist_rules"`
	UserAgent                   *string   `json:"user_agent"`
	Username                    *string   `json:"username"`
	Password                    *string   `json:"password"`
	Disabled                    bool      `json:"disabled"`
	IgnoreHTTPCache             bool      `json:"ignore_http_cache"`
	FetchViaProxy               bool      `json:"fetch_via_proxy"`
	NoMediaPlayer               bool      `json:"no_media_player"`
	AllowSelfSignedCertificates bool      `json:"allow_self_signed_certificates"`
	URLRewriteRules             *string   `json:"urlrewrite_rules"`
	Cookie                      *string   `json:"cookie"`
	AppriseServiceURLs          *string   `json:"apprise_service_urls"`
	HideGlobally                bool      `json:"hide_globally"`
	CreatedAt                   string    `json:"created_at,omitempty"`
	UpdatedAt                   string    `json:"updated_at,omitempty"`
}

// Entry is a remote entry.
type Entry struct {
	ID          int64   `json:"id"`
	UserID      int64   `json:"user_id"`
	FeedID      int64   `json:"feed_id"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	CommentsURL *string `json:"comments_url"`
	Author      *string `json:"author"`
	Content     *string `json:"content"`
	Hash        string  `json:"hash"`
	PublishedAt string  `json:"published_at"`
	CreatedAt   string  `json:"created_at,omitempty"`
	ChangedAt   *string `json:"changed_at"`
	Status      string  `json:"status"`
	ShareCode   *string `json:"share_code"`
	Starred     bool    `json:"starred"`
	ReadingTime *int    `json:"reading_time"`
}

// EntryResponse is the paginated envelope of GET /v1/entries. Entries may be
// null when the window is past the end of the result set.
type EntryResponse struct {
	Total   int64   `json:"total"`
	Entries []Entry `json:"entries"`
}

// EntryFilters selects a window of entries. Nil fields are omitted from the
// query string. ChangedAfter is a unix timestamp in seconds.
type EntryFilters struct {
	Status       *string
	Offset       *int64
	Limit        *int64
	Order        *string
	Direction    *string
	ChangedAfter *int64
	Starred      *bool
	Search       *string
	CategoryID   *int64
	FeedID       *int64
}

// Counters is the server-side read/unread tally.
type Counters struct {
	UserID      int64 `json:"user_id"`
	ReadCount   int64 `json:"read_count"`
	UnreadCount int64 `json:"unread_count"`
}
