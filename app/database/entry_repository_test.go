package database

import (
	"testing"
)

func seedFeed(t *testing.T, db *DB, feedID, userID int64) {
	t.Helper()
	repo := NewFeedRepository(db)
	if err := repo.UpsertFeeds([]Feed{testFeed(feedID, userID, nil, "Feed")}, "2025-01-01T00:00:00Z"); err != nil {
		t.Fatal(err)
	}
}

func TestEntryRepositoryUpsert(t *testing.T) {
	db := newTestDB(t)
	seedFeed(t, db, 10, 1)
	repo := NewEntryRepository(db)

	entries := []Entry{
		testEntry(100, 1, 10, EntryStatusUnread),
		testEntry(101, 1, 10, EntryStatusRead),
	}
	if err := repo.UpsertEntries(entries, "2025-01-01T00:00:00Z"); err != nil {
		t.Fatal(err)
	}

	count, err := repo.GetEntryCount(1)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("Expected 2 entries, got %d", count)
	}

	// Idempotent re-upsert
	if err := repo.UpsertEntries(entries, "2025-01-02T00:00:00Z"); err != nil {
		t.Fatal(err)
	}

	count, err = repo.GetEntryCount(1)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("Expected 2 entries after repeated upsert, got %d", count)
	}
}

func TestEntryRepositoryUpsertUpdatesStatus(t *testing.T) {
	db := newTestDB(t)
	seedFeed(t, db, 10, 1)
	repo := NewEntryRepository(db)

	entry := testEntry(100, 1, 10, EntryStatusUnread)
	if err := repo.UpsertEntries([]Entry{entry}, "2025-01-01T00:00:00Z"); err != nil {
		t.Fatal(err)
	}

	entry.Status = EntryStatusRead
	if err := repo.UpsertEntries([]Entry{entry}, "2025-01-02T00:00:00Z"); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetEntry(100)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("Expected entry to exist")
	}
	if got.Status != EntryStatusRead {
		t.Errorf("Expected status 'read', got '%s'", got.Status)
	}
}

func TestEntryRepositoryCreatedAtImmutable(t *testing.T) {
	db := newTestDB(t)
	seedFeed(t, db, 10, 1)
	repo := NewEntryRepository(db)

	entry := testEntry(100, 1, 10, EntryStatusUnread)
	entry.CreatedAt = "2025-01-01T00:00:00Z"
	if err := repo.UpsertEntries([]Entry{entry}, "2025-01-01T00:00:00Z"); err != nil {
		t.Fatal(err)
	}

	later := entry
	later.CreatedAt = "2025-06-01T00:00:00Z"
	if err := repo.UpsertEntries([]Entry{later}, "2025-06-01T00:00:00Z"); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetEntry(100)
	if err != nil {
		t.Fatal(err)
	}
	if got.CreatedAt != "2025-01-01T00:00:00Z" {
		t.Errorf("Expected created_at to stay at first insert value, got '%s'", got.CreatedAt)
	}
}

func TestEntryRepositoryStaleLifecycle(t *testing.T) {
	db := newTestDB(t)
	seedFeed(t, db, 10, 1)
	repo := NewEntryRepository(db)

	entries := []Entry{
		testEntry(100, 1, 10, EntryStatusUnread),
		testEntry(101, 1, 10, EntryStatusUnread),
	}
	if err := repo.UpsertEntries(entries, "2025-01-01T00:00:00Z"); err != nil {
		t.Fatal(err)
	}

	if err := repo.MarkStale(1); err != nil {
		t.Fatal(err)
	}
	if err := repo.UpsertEntries(entries[:1], "2025-01-02T00:00:00Z"); err != nil {
		t.Fatal(err)
	}
	if err := repo.DeleteStale(1); err != nil {
		t.Fatal(err)
	}

	count, err := repo.GetEntryCount(1)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Expected 1 surviving entry, got %d", count)
	}
}

func TestEntryRepositoryDeleteRemovedSince(t *testing.T) {
	db := newTestDB(t)
	seedFeed(t, db, 10, 1)
	repo := NewEntryRepository(db)

	atThreshold := "2025-01-10T00:00:00Z"
	beforeThreshold := "2025-01-05T00:00:00Z"
	afterThreshold := "2025-01-15T00:00:00Z"

	removedAt := testEntry(100, 1, 10, EntryStatusRemoved)
	removedAt.ChangedAt = &atThreshold

	removedBefore := testEntry(101, 1, 10, EntryStatusRemoved)
	removedBefore.ChangedAt = &beforeThreshold

	removedAfter := testEntry(102, 1, 10, EntryStatusRemoved)
	removedAfter.ChangedAt = &afterThreshold

	removedNilChanged := testEntry(103, 1, 10, EntryStatusRemoved)
	removedNilChanged.ChangedAt = nil

	readRecent := testEntry(104, 1, 10, EntryStatusRead)
	readRecent.ChangedAt = &afterThreshold

	entries := []Entry{removedAt, removedBefore, removedAfter, removedNilChanged, readRecent}
	if err := repo.UpsertEntries(entries, "2025-01-01T00:00:00Z"); err != nil {
		t.Fatal(err)
	}

	if err := repo.DeleteRemovedSince(1, atThreshold); err != nil {
		t.Fatal(err)
	}

	// Deletes entries removed at or after the boundary, keeps the rest
	for _, tc := range []struct {
		id       int64
		expected bool
	}{
		{100, false}, // removed exactly at boundary
		{101, true},  // removed before boundary
		{102, false}, // removed after boundary
		{103, true},  // removed with no changed_at
		{104, true},  // not removed
	} {
		got, err := repo.GetEntry(tc.id)
		if err != nil {
			t.Fatal(err)
		}
		if tc.expected && got == nil {
			t.Errorf("Expected entry %d to survive", tc.id)
		}
		if !tc.expected && got != nil {
			t.Errorf("Expected entry %d to be deleted", tc.id)
		}
	}
}

func TestEntryRepositoryDeleteRemovedSinceOffsetTimestamps(t *testing.T) {
	db := newTestDB(t)
	seedFeed(t, db, 10, 1)
	repo := NewEntryRepository(db)

	// The server may report changed_at with a numeric UTC offset while the
	// threshold always carries Z. Comparison must go by instant, not string.
	threshold := "2025-01-10T00:00:00Z"
	sameInstant := "2025-01-10T02:00:00+02:00"   // equals the threshold
	beforeInstant := "2025-01-10T01:00:00+02:00" // 23:00 the previous day UTC
	afterInstant := "2025-01-10T03:00:00+02:00"  // 01:00 UTC

	removedSame := testEntry(200, 1, 10, EntryStatusRemoved)
	removedSame.ChangedAt = &sameInstant

	removedBefore := testEntry(201, 1, 10, EntryStatusRemoved)
	removedBefore.ChangedAt = &beforeInstant

	removedAfter := testEntry(202, 1, 10, EntryStatusRemoved)
	removedAfter.ChangedAt = &afterInstant

	entries := []Entry{removedSame, removedBefore, removedAfter}
	if err := repo.UpsertEntries(entries, "2025-01-01T00:00:00Z"); err != nil {
		t.Fatal(err)
	}

	if err := repo.DeleteRemovedSince(1, threshold); err != nil {
		t.Fatal(err)
	}

	for _, tc := range []struct {
		id       int64
		expected bool
	}{
		{200, false}, // same instant as the boundary
		{201, true},  // before the boundary despite sorting after it as a string
		{202, false}, // after the boundary
	} {
		got, err := repo.GetEntry(tc.id)
		if err != nil {
			t.Fatal(err)
		}
		if tc.expected && got == nil {
			t.Errorf("Expected entry %d to survive", tc.id)
		}
		if !tc.expected && got != nil {
			t.Errorf("Expected entry %d to be deleted", tc.id)
		}
	}
}

func TestEntryRepositoryGetEntriesFilters(t *testing.T) {
	db := newTestDB(t)
	seedFeed(t, db, 10, 1)
	seedFeed(t, db, 11, 1)
	repo := NewEntryRepository(db)

	unread := testEntry(100, 1, 10, EntryStatusUnread)
	unread.Title = "Go generics deep dive"
	unread.PublishedAt = "2025-01-03T00:00:00Z"

	read := testEntry(101, 1, 10, EntryStatusRead)
	read.Title = "Rust borrow checker"
	read.PublishedAt = "2025-01-02T00:00:00Z"

	starred := testEntry(102, 1, 11, EntryStatusUnread)
	starred.Title = "Starred item"
	starred.Starred = true
	starred.PublishedAt = "2025-01-01T00:00:00Z"

	if err := repo.UpsertEntries([]Entry{unread, read, starred}, "2025-01-01T00:00:00Z"); err != nil {
		t.Fatal(err)
	}

	// Status filter
	statusUnread := EntryStatusUnread
	got, err := repo.GetEntries(EntryQueryOptions{UserID: 1, Status: &statusUnread})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("Expected 2 unread entries, got %d", len(got))
	}

	// Feed filter
	feedID := int64(11)
	got, err = repo.GetEntries(EntryQueryOptions{UserID: 1, FeedID: &feedID})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != 102 {
		t.Errorf("Expected entry 102 for feed 11, got %d rows", len(got))
	}

	// Starred filter
	starredOnly := true
	got, err = repo.GetEntries(EntryQueryOptions{UserID: 1, Starred: &starredOnly})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != 102 {
		t.Errorf("Expected 1 starred entry, got %d rows", len(got))
	}

	// Title search
	got, err = repo.GetEntries(EntryQueryOptions{UserID: 1, Search: "generics"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != 100 {
		t.Errorf("Expected 1 search hit, got %d rows", len(got))
	}

	// Newest first ordering with pagination
	got, err = repo.GetEntries(EntryQueryOptions{UserID: 1, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 entries with limit 2, got %d", len(got))
	}
	if got[0].ID != 100 || got[1].ID != 101 {
		t.Errorf("Expected newest-first ordering, got %d, %d", got[0].ID, got[1].ID)
	}

	got, err = repo.GetEntries(EntryQueryOptions{UserID: 1, Limit: 2, Offset: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != 102 {
		t.Errorf("Expected entry 102 on second page, got %d rows", len(got))
	}
}

func TestEntryRepositoryUpdateStatus(t *testing.T) {
	db := newTestDB(t)
	seedFeed(t, db, 10, 1)
	repo := NewEntryRepository(db)

	entries := []Entry{
		testEntry(100, 1, 10, EntryStatusUnread),
		testEntry(101, 1, 10, EntryStatusUnread),
		testEntry(102, 1, 10, EntryStatusUnread),
	}
	if err := repo.UpsertEntries(entries, "2025-01-01T00:00:00Z"); err != nil {
		t.Fatal(err)
	}

	err := repo.UpdateStatus([]int64{100, 101}, EntryStatusRead, "2025-01-05T00:00:00Z")
	if err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetEntry(100)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != EntryStatusRead {
		t.Errorf("Expected entry 100 to be read, got '%s'", got.Status)
	}
	if got.ChangedAt == nil || *got.ChangedAt != "2025-01-05T00:00:00Z" {
		t.Error("Expected changed_at to be updated")
	}

	untouched, err := repo.GetEntry(102)
	if err != nil {
		t.Fatal(err)
	}
	if untouched.Status != EntryStatusUnread {
		t.Errorf("Expected entry 102 to stay unread, got '%s'", untouched.Status)
	}

	// Empty id list is a no-op
	if err := repo.UpdateStatus(nil, EntryStatusRead, "2025-01-05T00:00:00Z"); err != nil {
		t.Errorf("Expected no error for empty id list, got: %v", err)
	}
}

func TestEntryRepositorySetStarredAndContent(t *testing.T) {
	db := newTestDB(t)
	seedFeed(t, db, 10, 1)
	repo := NewEntryRepository(db)

	if err := repo.UpsertEntries([]Entry{testEntry(100, 1, 10, EntryStatusUnread)}, "2025-01-01T00:00:00Z"); err != nil {
		t.Fatal(err)
	}

	if err := repo.SetStarred(100, true); err != nil {
		t.Fatal(err)
	}
	if err := repo.UpdateContent(100, "<p>full text</p>"); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetEntry(100)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Starred {
		t.Error("Expected entry to be starred")
	}
	if got.Content == nil || *got.Content != "<p>full text</p>" {
		t.Error("Expected content to be replaced")
	}
}

func TestEntryRepositoryGetUnreadCounts(t *testing.T) {
	db := newTestDB(t)
	categoryRepo := NewCategoryRepository(db)
	feedRepo := NewFeedRepository(db)
	repo := NewEntryRepository(db)

	if err := categoryRepo.UpsertCategories([]Category{testCategory(1, 1, "Tech")}, "2025-01-01T00:00:00Z"); err != nil {
		t.Fatal(err)
	}
	categoryID := int64(1)
	feeds := []Feed{
		testFeed(10, 1, &categoryID, "Feed A"),
		testFeed(11, 1, nil, "Feed B"),
	}
	if err := feedRepo.UpsertFeeds(feeds, "2025-01-01T00:00:00Z"); err != nil {
		t.Fatal(err)
	}

	entries := []Entry{
		testEntry(100, 1, 10, EntryStatusUnread),
		testEntry(101, 1, 10, EntryStatusUnread),
		testEntry(102, 1, 11, EntryStatusUnread),
		testEntry(103, 1, 11, EntryStatusRead),
	}
	if err := repo.UpsertEntries(entries, "2025-01-01T00:00:00Z"); err != nil {
		t.Fatal(err)
	}

	counts, err := repo.GetUnreadCounts(1)
	if err != nil {
		t.Fatal(err)
	}

	if counts.Total != 3 {
		t.Errorf("Expected 3 unread entries, got %d", counts.Total)
	}
	if len(counts.ByCategory) != 1 {
		t.Fatalf("Expected 1 category count row, got %d", len(counts.ByCategory))
	}
	if counts.ByCategory[0].CategoryID != 1 || counts.ByCategory[0].UnreadCount != 2 {
		t.Errorf("Expected category 1 to have 2 unread, got %d", counts.ByCategory[0].UnreadCount)
	}
	if len(counts.ByFeed) != 2 {
		t.Fatalf("Expected 2 feed count rows, got %d", len(counts.ByFeed))
	}
	for _, row := range counts.ByFeed {
		switch row.FeedID {
		case 10:
			if row.UnreadCount != 2 {
				t.Errorf("Expected feed 10 to have 2 unread, got %d", row.UnreadCount)
			}
		case 11:
			if row.UnreadCount != 1 {
				t.Errorf("Expected feed 11 to have 1 unread, got %d", row.UnreadCount)
			}
		default:
			t.Errorf("Unexpected feed id %d in counts", row.FeedID)
		}
	}
}
