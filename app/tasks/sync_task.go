package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sinhong2011/minikyu/app/sync"
)

type SyncTask struct {
	Task
	engine *sync.Engine
}

func NewSyncTask(engine *sync.Engine) *SyncTask {
	return &SyncTask{
		Task:   NewTask(TaskTypeSync),
		engine: engine,
	}
}

func (t *SyncTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	summary, err := t.engine.Sync(ctx)
	if err != nil {
		// Another sync is running; this tick is simply redundant
		if errors.Is(err, sync.ErrSyncInProgress) {
			slog.Debug("Task skipped, sync already running", "type", "Sync", "id", t.GetID())
			return nil
		}
		slog.Error("Task failed", "type", "Sync", "id", t.GetID(), "error", err)
		return fmt.Errorf("failed to run sync: %w", err)
	}

	slog.Info("Task completed",
		"type", "Sync",
		"entries_pulled", summary.EntriesPulled,
		"feeds_pulled", summary.FeedsPulled,
		"categories_pulled", summary.CategoriesPulled,
		"duration", t.GetDuration())

	return nil
}
