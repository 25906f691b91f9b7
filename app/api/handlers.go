package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sinhong2011/minikyu/app/database"
	"github.com/sinhong2011/minikyu/app/events"
	"github.com/sinhong2011/minikyu/app/sync"
)

func NewHandler(userID int64, categoryRepo database.CategoryRepository,
	feedRepo database.FeedRepository, entryRepo database.EntryRepository,
	stateRepo database.SyncStateRepository, queueRepo database.QueueRepository,
	engine SyncRunner, remote RemoteWriter, extractor ContentFetcher,
	hub *events.Hub) *Handler {
	return &Handler{
		userID:       userID,
		categoryRepo: categoryRepo,
		feedRepo:     feedRepo,
		entryRepo:    entryRepo,
		stateRepo:    stateRepo,
		queueRepo:    queueRepo,
		engine:       engine,
		remote:       remote,
		extractor:    extractor,
		hub:          hub,
	}
}

func (h *Handler) Sync(c *gin.Context) {
	summary, err := h.engine.Sync(c.Request.Context())
	if errors.Is(err, sync.ErrSyncInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": "Sync already in progress"})
		return
	}
	if err != nil {
		slog.Error("Sync failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Sync failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *Handler) GetSyncState(c *gin.Context) {
	state, err := h.stateRepo.GetOrCreate()
	if err != nil {
		slog.Error("Database error", "operation", "get_sync_state", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, state)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if feedCount, err := h.feedRepo.GetFeedCount(h.userID); err == nil {
		health["feeds"] = feedCount
	}
	if entryCount, err := h.entryRepo.GetEntryCount(h.userID); err == nil {
		health["entries"] = entryCount
	}
	if state, err := h.stateRepo.GetOrCreate(); err == nil {
		health["sync_in_progress"] = state.SyncInProgress
		health["last_sync_at"] = state.LastSyncAt
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.categoryRepo.GetCategories(h.userID)
	if err != nil {
		slog.Error("Database error", "operation", "get_categories", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"categories": categories,
		"total":      len(categories),
	})
}

func (h *Handler) ListFeeds(c *gin.Context) {
	feeds, err := h.feedRepo.GetFeeds(h.userID)
	if err != nil {
		slog.Error("Database error", "operation", "get_feeds", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"feeds": feeds,
		"total": len(feeds),
	})
}

func (h *Handler) ListEntries(c *gin.Context) {
	opts := database.EntryQueryOptions{
		UserID: h.userID,
		Search: c.Query("search"),
		Limit:  100,
	}

	if raw := c.Query("status"); raw != "" {
		status, err := database.ParseEntryStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		opts.Status = &status
	}
	if raw := c.Query("feed_id"); raw != "" {
		feedID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid feed_id parameter"})
			return
		}
		opts.FeedID = &feedID
	}
	if raw := c.Query("starred"); raw != "" {
		starred, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid starred parameter"})
			return
		}
		opts.Starred = &starred
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		opts.Limit = limit
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid offset parameter"})
			return
		}
		opts.Offset = offset
	}

	entries, err := h.entryRepo.GetEntries(opts)
	if err != nil {
		slog.Error("Database error", "operation", "get_entries", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"total":   len(entries),
	})
}

func (h *Handler) GetEntry(c *gin.Context) {
	entry, ok := h.entryByID(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, entry)
}

type updateStatusRequest struct {
	EntryIDs []int64 `json:"entry_ids" binding:"required"`
	Status   string  `json:"status" binding:"required"`
}

// UpdateEntriesStatus writes the new status to the server first and mirrors it
// locally. When the server is unreachable the write is queued for replay and
// still applied locally, so the UI stays responsive offline.
func (h *Handler) UpdateEntriesStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	status, err := database.ParseEntryStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	changedAt := time.Now().UTC().Format(time.RFC3339)
	queued := false

	if err := h.remote.UpdateEntries(c.Request.Context(), req.EntryIDs, req.Status); err != nil {
		slog.Warn("Remote status update failed, queueing for replay", "error", err, "entries", len(req.EntryIDs))
		payload, _ := json.Marshal(map[string]string{"status": req.Status})
		for _, id := range req.EntryIDs {
			if _, qErr := h.queueRepo.Enqueue("update_status", "entry", id, string(payload)); qErr != nil {
				slog.Error("Database error", "operation", "enqueue", "entry", id, "error", qErr)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
				return
			}
		}
		queued = true
	}

	if err := h.entryRepo.UpdateStatus(req.EntryIDs, status, changedAt); err != nil {
		slog.Error("Database error", "operation", "update_status", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	code := http.StatusOK
	if queued {
		code = http.StatusAccepted
	}
	c.JSON(code, gin.H{
		"updated": len(req.EntryIDs),
		"status":  req.Status,
		"queued":  queued,
	})
}

// ToggleBookmark flips the starred flag remotely and mirrors the result,
// queueing the toggle for replay when the server is unreachable.
func (h *Handler) ToggleBookmark(c *gin.Context) {
	entry, ok := h.entryByID(c)
	if !ok {
		return
	}

	queued := false
	if err := h.remote.ToggleBookmark(c.Request.Context(), entry.ID); err != nil {
		slog.Warn("Remote bookmark toggle failed, queueing for replay", "error", err, "entry", entry.ID)
		if _, qErr := h.queueRepo.Enqueue("toggle_bookmark", "entry", entry.ID, "{}"); qErr != nil {
			slog.Error("Database error", "operation", "enqueue", "entry", entry.ID, "error", qErr)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		queued = true
	}

	starred := !entry.Starred
	if err := h.entryRepo.SetStarred(entry.ID, starred); err != nil {
		slog.Error("Database error", "operation", "set_starred", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	code := http.StatusOK
	if queued {
		code = http.StatusAccepted
	}
	c.JSON(code, gin.H{
		"id":      entry.ID,
		"starred": starred,
		"queued":  queued,
	})
}

// FetchContent downloads the entry's page and replaces the stored content with
// the extracted article body.
func (h *Handler) FetchContent(c *gin.Context) {
	entry, ok := h.entryByID(c)
	if !ok {
		return
	}

	extracted, err := h.extractor.Fetch(c.Request.Context(), entry.URL)
	if err != nil {
		slog.Error("Content extraction failed", "entry", entry.ID, "url", entry.URL, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Content extraction failed",
			"details": err.Error(),
		})
		return
	}

	if err := h.entryRepo.UpdateContent(entry.ID, extracted); err != nil {
		slog.Error("Database error", "operation", "update_content", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":      entry.ID,
		"content": extracted,
	})
}

func (h *Handler) GetCounters(c *gin.Context) {
	counts, err := h.entryRepo.GetUnreadCounts(h.userID)
	if err != nil {
		slog.Error("Database error", "operation", "get_unread_counts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, counts)
}

// StreamEvents delivers sync lifecycle notifications over SSE until the client
// disconnects.
func (h *Handler) StreamEvents(c *gin.Context) {
	id, ch := h.hub.Subscribe()
	defer h.hub.Unsubscribe(id)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case event, open := <-ch:
			if !open {
				return false
			}
			c.SSEvent(event.Name, event.Payload)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// entryByID resolves the :id route parameter to a stored entry, writing the
// error response itself when resolution fails.
func (h *Handler) entryByID(c *gin.Context) (*database.Entry, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid entry id"})
		return nil, false
	}

	entry, err := h.entryRepo.GetEntry(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_entry", "entry", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil, false
	}
	if entry == nil || entry.UserID != h.userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Entry not found"})
		return nil, false
	}

	return entry, true
}
