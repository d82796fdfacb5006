package service

import (
	"context"
	"fmt"

	"tasktracker/internal/cache"
	"tasktracker/internal/errors"
	"tasktracker/internal/model"
	"tasktracker/internal/repository"
)

// SeedTask is one entry of a seed file.
type SeedTask struct {
	Content string `json:"content"`
	Done    bool   `json:"done"`
}

// ImportTasks inserts every entry in a single transaction; one empty entry rejects the whole batch.
// The task list cache is dropped afterwards.
func ImportTasks(ctx context.Context, repo repository.TaskRepository, cache *cache.Client, items []SeedTask) (int, error) {
	for i, item := range items {
		if item.Content == "" {
			return 0, fmt.Errorf("entry %d: %w", i, errors.ErrEmptyContent)
		}
	}

	err := repo.WithTransaction(ctx, func(ctx context.Context, txRepo repository.TaskRepository) error {
		for i, item := range items {
			task := &model.Task{Content: item.Content}
			if err := txRepo.Create(ctx, task); err != nil {
				return fmt.Errorf("entry %d: %w", i, err)
			}
			// done carries a column default, so a true value needs its own statement
			if item.Done {
				if err := txRepo.ToggleDone(ctx, task.ID); err != nil {
					return fmt.Errorf("entry %d: %w", i, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("import tasks: %w", err)
	}

	invalidateTaskList(ctx, cache)
	return len(items), nil
}
