package api

import (
	"context"

	"github.com/sinhong2011/minikyu/app/content"
	"github.com/sinhong2011/minikyu/app/database"
	"github.com/sinhong2011/minikyu/app/events"
	"github.com/sinhong2011/minikyu/app/miniflux"
	"github.com/sinhong2011/minikyu/app/sync"
)

type SyncRunner interface {
	Sync(ctx context.Context) (*sync.Summary, error)
}

var _ SyncRunner = (*sync.Engine)(nil)

type RemoteWriter interface {
	UpdateEntries(ctx context.Context, ids []int64, status string) error
	ToggleBookmark(ctx context.Context, entryID int64) error
}

var _ RemoteWriter = (*miniflux.Client)(nil)

type ContentFetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

var _ ContentFetcher = (*content.Extractor)(nil)

type Handler struct {
	userID       int64
	categoryRepo database.CategoryRepository
	feedRepo     database.FeedRepository
	entryRepo    database.EntryRepository
	stateRepo    database.SyncStateRepository
	queueRepo    database.QueueRepository
	engine       SyncRunner
	remote       RemoteWriter
	extractor    ContentFetcher
	hub          *events.Hub
}
