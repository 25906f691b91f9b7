package database

// EntryQueryOptions narrows the entry listing served to the UI. Zero values
// mean "no filter"; results are always ordered published_at descending.
type EntryQueryOptions struct {
	UserID  int64
	Status  *EntryStatus
	FeedID  *int64
	Starred *bool
	Search  string
	Limit   int
	Offset  int
}

// CategoryUnread is one row of the per-category unread breakdown.
type CategoryUnread struct {
	CategoryID  int64 `json:"category_id"`
	UnreadCount int64 `json:"unread_count"`
}

// FeedUnread is one row of the per-feed unread breakdown.
type FeedUnread struct {
	FeedID      int64 `json:"feed_id"`
	UnreadCount int64 `json:"unread_count"`
}

// UnreadCounts aggregates local unread counters for the UI badge and sidebar.
type UnreadCounts struct {
	Total      int64            `json:"total"`
	Today      int64            `json:"today"`
	ByCategory []CategoryUnread `json:"by_category"`
	ByFeed     []FeedUnread     `json:"by_feed"`
}

type CategoryRepository interface {
	UpsertCategories(categories []Category, now string) error
	MarkStale(userID int64) error
	DeleteStale(userID int64) error
	DeleteMissing(userID int64, keepIDs []int64) error

	GetCategories(userID int64) ([]Category, error)
	GetCategoryCount(userID int64) (int, error)
}

type FeedRepository interface {
	UpsertFeeds(feeds []Feed, now string) error
	MarkStale(userID int64) error
	DeleteStale(userID int64) error
	DeleteMissing(userID int64, keepIDs []int64) error

	GetFeeds(userID int64) ([]Feed, error)
	GetFeedCount(userID int64) (int, error)
}

type EntryRepository interface {
	UpsertEntries(entries []Entry, now string) error
	MarkStale(userID int64) error
	DeleteStale(userID int64) error
	DeleteRemovedSince(userID int64, threshold string) error

	GetEntries(opts EntryQueryOptions) ([]Entry, error)
	GetEntry(id int64) (*Entry, error)
	UpdateStatus(ids []int64, status EntryStatus, changedAt string) error
	SetStarred(id int64, starred bool) error
	UpdateContent(id int64, content string) error
	GetEntryCount(userID int64) (int, error)
	GetUnreadCounts(userID int64) (*UnreadCounts, error)
}

type SyncStateRepository interface {
	GetOrCreate() (*SyncState, error)
	MarkInProgress() error
	RecordSuccess(startedAt string) error
	RecordFailure(message string) error
}

type QueueRepository interface {
	Enqueue(operationType, entityType string, entityID int64, payload string) (int64, error)
	GetPending(limit int) ([]QueueOperation, error)
}
