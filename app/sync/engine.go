package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sinhong2011/minikyu/app/database"
	"github.com/sinhong2011/minikyu/app/events"
	"github.com/sinhong2011/minikyu/app/miniflux"
)

// windowLimit is the page size for entry pagination.
const windowLimit = 200

// ErrSyncInProgress is returned when a sync is requested while another one is
// still running.
var ErrSyncInProgress = errors.New("sync already in progress")

// Summary reports what a completed sync pulled from the server.
// EntriesPushed is reserved for offline queue replay and is always zero here.
type Summary struct {
	EntriesPulled    int `json:"entries_pulled"`
	EntriesPushed    int `json:"entries_pushed"`
	FeedsPulled      int `json:"feeds_pulled"`
	CategoriesPulled int `json:"categories_pulled"`
}

// Remote is the subset of the Miniflux API the engine needs.
type Remote interface {
	GetCurrentUser(ctx context.Context) (*miniflux.User, error)
	GetCategories(ctx context.Context) ([]miniflux.Category, error)
	GetFeeds(ctx context.Context) ([]miniflux.Feed, error)
	GetEntries(ctx context.Context, filters *miniflux.EntryFilters) (*miniflux.EntryResponse, error)
}

// Engine mirrors the remote Miniflux state into the local database. The first
// successful run is a full sync (mark stale, upsert everything, delete what
// was not reconfirmed); every later run is incremental, pulling only entries
// changed since the last run and reconciling feeds and categories by id set.
type Engine struct {
	remote     Remote
	categories database.CategoryRepository
	feeds      database.FeedRepository
	entries    database.EntryRepository
	state      database.SyncStateRepository
	hub        *events.Hub

	mu sync.Mutex
}

// NewEngine creates a new sync engine
func NewEngine(
	remote Remote,
	categories database.CategoryRepository,
	feeds database.FeedRepository,
	entries database.EntryRepository,
	state database.SyncStateRepository,
	hub *events.Hub,
) *Engine {
	return &Engine{
		remote:     remote,
		categories: categories,
		feeds:      feeds,
		entries:    entries,
		state:      state,
		hub:        hub,
	}
}

// Sync runs one sync pass against the remote. Only one pass runs at a time;
// a concurrent call fails fast with ErrSyncInProgress.
func (e *Engine) Sync(ctx context.Context) (*Summary, error) {
	if !e.mu.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer e.mu.Unlock()

	slog.Info("Starting sync")
	e.hub.Publish(events.Event{Name: "sync-started"})

	summary, err := e.run(ctx)
	if err != nil {
		slog.Error("Sync failed", "error", err)
		if stateErr := e.state.RecordFailure(err.Error()); stateErr != nil {
			slog.Error("Failed to record sync failure", "error", stateErr)
		}
		return nil, err
	}

	e.hub.Publish(events.Event{Name: "sync-completed", Payload: summary})
	slog.Info("Sync completed",
		"entries_pulled", summary.EntriesPulled,
		"feeds_pulled", summary.FeedsPulled,
		"categories_pulled", summary.CategoriesPulled)

	return summary, nil
}

func (e *Engine) run(ctx context.Context) (*Summary, error) {
	state, err := e.state.GetOrCreate()
	if err != nil {
		return nil, err
	}

	startedAt := time.Now().UTC().Format(time.RFC3339)
	fullSync := state.LastFullSyncAt == nil
	summary := &Summary{}

	if err := e.state.MarkInProgress(); err != nil {
		return nil, err
	}

	user, err := e.remote.GetCurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	userID := user.ID

	if fullSync {
		slog.Info("Running full sync", "user_id", userID)
		if err := e.categories.MarkStale(userID); err != nil {
			return nil, err
		}
		if err := e.feeds.MarkStale(userID); err != nil {
			return nil, err
		}
		if err := e.entries.MarkStale(userID); err != nil {
			return nil, err
		}
	} else {
		slog.Info("Running incremental sync", "user_id", userID, "last_sync_at", derefOr(state.LastSyncAt, ""))
	}

	remoteCategories, err := e.remote.GetCategories(ctx)
	if err != nil {
		return nil, err
	}
	categoryIDs := make([]int64, 0, len(remoteCategories))
	localCategories := make([]database.Category, 0, len(remoteCategories))
	for _, category := range remoteCategories {
		categoryIDs = append(categoryIDs, category.ID)
		localCategories = append(localCategories, mapCategory(category))
	}
	if len(localCategories) > 0 {
		if err := e.categories.UpsertCategories(localCategories, startedAt); err != nil {
			return nil, err
		}
	}
	summary.CategoriesPulled = len(remoteCategories)

	remoteFeeds, err := e.remote.GetFeeds(ctx)
	if err != nil {
		return nil, err
	}
	feedIDs := make([]int64, 0, len(remoteFeeds))
	localFeeds := make([]database.Feed, 0, len(remoteFeeds))
	for _, feed := range remoteFeeds {
		feedIDs = append(feedIDs, feed.ID)
		localFeeds = append(localFeeds, mapFeed(feed))
	}
	if len(localFeeds) > 0 {
		if err := e.feeds.UpsertFeeds(localFeeds, startedAt); err != nil {
			return nil, err
		}
	}
	summary.FeedsPulled = len(remoteFeeds)

	// A watermark that fails to parse falls back to an unfiltered pull; the
	// run must not abort over it. Removed-entry cleanup is skipped too, since
	// it has no boundary to key on.
	var changedAfter *int64
	if !fullSync && state.LastSyncAt != nil {
		if epoch, err := parseRFC3339ToEpoch(*state.LastSyncAt); err != nil {
			slog.Warn("Unreadable last_sync_at watermark, pulling without change filter",
				"last_sync_at", *state.LastSyncAt, "error", err)
		} else {
			changedAfter = &epoch
		}
	}
	if err := e.pullEntries(ctx, summary, changedAfter); err != nil {
		return nil, err
	}

	// Children go before parents so foreign keys stay satisfied.
	if fullSync {
		if err := e.entries.DeleteStale(userID); err != nil {
			return nil, err
		}
		if err := e.feeds.DeleteStale(userID); err != nil {
			return nil, err
		}
		if err := e.categories.DeleteStale(userID); err != nil {
			return nil, err
		}
	} else {
		if changedAfter != nil {
			threshold := time.Unix(*changedAfter, 0).UTC().Format(time.RFC3339)
			if err := e.entries.DeleteRemovedSince(userID, threshold); err != nil {
				return nil, err
			}
		}
		if err := e.feeds.DeleteMissing(userID, feedIDs); err != nil {
			return nil, err
		}
		if err := e.categories.DeleteMissing(userID, categoryIDs); err != nil {
			return nil, err
		}
	}

	if err := e.state.RecordSuccess(startedAt); err != nil {
		return nil, err
	}

	return summary, nil
}

// pullEntries walks the entry list window by window, upserting each page as it
// arrives. With changedAfter set only entries modified since that moment are
// returned.
func (e *Engine) pullEntries(ctx context.Context, summary *Summary, changedAfter *int64) error {
	order := "published_at"
	direction := "desc"
	limit := int64(windowLimit)

	var offset int64
	var totalSeen int64

	for {
		windowOffset := offset
		filters := &miniflux.EntryFilters{
			Offset:       &windowOffset,
			Limit:        &limit,
			Order:        &order,
			Direction:    &direction,
			ChangedAfter: changedAfter,
		}

		response, err := e.remote.GetEntries(ctx, filters)
		if err != nil {
			return err
		}

		count := len(response.Entries)
		if count == 0 {
			break
		}

		now := time.Now().UTC().Format(time.RFC3339)
		localEntries := make([]database.Entry, 0, count)
		for _, entry := range response.Entries {
			mapped, err := mapEntry(entry)
			if err != nil {
				return err
			}
			localEntries = append(localEntries, mapped)
		}
		if err := e.entries.UpsertEntries(localEntries, now); err != nil {
			return err
		}

		summary.EntriesPulled += count
		totalSeen += int64(count)

		if totalSeen >= response.Total {
			break
		}

		offset += windowLimit
	}

	return nil
}

func mapCategory(category miniflux.Category) database.Category {
	return database.Category{
		ID:           category.ID,
		UserID:       category.UserID,
		Title:        category.Title,
		HideGlobally: category.HideGlobally,
		CreatedAt:    category.CreatedAt,
		UpdatedAt:    category.UpdatedAt,
	}
}

func mapFeed(feed miniflux.Feed) database.Feed {
	var categoryID *int64
	if feed.Category != nil {
		id := feed.Category.ID
		categoryID = &id
	}

	return database.Feed{
		ID:                          feed.ID,
		UserID:                      feed.UserID,
		Title:                       feed.Title,
		SiteURL:                     feed.SiteURL,
		FeedURL:                     feed.FeedURL,
		CategoryID:                  categoryID,
		CheckedAt:                   feed.CheckedAt,
		ETagHeader:                  feed.ETagHeader,
		LastModifiedHeader:          feed.LastModifiedHeader,
		ParsingErrorMessage:         feed.ParsingErrorMessage,
		ParsingErrorCount:           feed.ParsingErrorCount,
		ScraperRules:                feed.ScraperRules,
		RewriteRules:                feed.RewriteRules,
		Crawler:                     feed.Crawler,
		BlocklistRules:              feed.BlocklistRules,
		KeeplistRules:               feed.KeeplistRules,
		UserAgent:                   feed.UserAgent,
		Username:                    feed.Username,
		Password:                    feed.Password,
		Disabled:                    feed.Disabled,
		IgnoreHTTPCache:             feed.IgnoreHTTPCache,
		FetchViaProxy:               feed.FetchViaProxy,
		NoMediaPlayer:               feed.NoMediaPlayer,
		AllowSelfSignedCertificates: feed.AllowSelfSignedCertificates,
		URLRewriteRules:             feed.URLRewriteRules,
		Cookie:                      feed.Cookie,
		AppriseServiceURLs:          feed.AppriseServiceURLs,
		HideGlobally:                feed.HideGlobally,
		CreatedAt:                   feed.CreatedAt,
		UpdatedAt:                   feed.UpdatedAt,
	}
}

func mapEntry(entry miniflux.Entry) (database.Entry, error) {
	status, err := database.ParseEntryStatus(entry.Status)
	if err != nil {
		return database.Entry{}, fmt.Errorf("entry %d: %w", entry.ID, err)
	}

	return database.Entry{
		ID:          entry.ID,
		UserID:      entry.UserID,
		FeedID:      entry.FeedID,
		Title:       entry.Title,
		URL:         entry.URL,
		CommentsURL: entry.CommentsURL,
		Author:      entry.Author,
		Content:     entry.Content,
		Hash:        entry.Hash,
		PublishedAt: entry.PublishedAt,
		CreatedAt:   entry.CreatedAt,
		ChangedAt:   entry.ChangedAt,
		Status:      status,
		ShareCode:   entry.ShareCode,
		Starred:     entry.Starred,
		ReadingTime: entry.ReadingTime,
	}, nil
}

func parseRFC3339ToEpoch(value string) (int64, error) {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return 0, fmt.Errorf("failed to parse last_sync_at: %w", err)
	}
	return parsed.Unix(), nil
}

func derefOr(value *string, fallback string) string {
	if value != nil {
		return *value
	}
	return fallback
}
