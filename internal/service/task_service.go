package service

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"tasktracker/internal/auth"
	"tasktracker/internal/cache"
	"tasktracker/internal/errors"
	"tasktracker/internal/model"
	"tasktracker/internal/repository"
)

const (
	// task lists are cached under tasks:all:<generation>; every mutation bumps the generation
	taskListCachePrefix = "tasks:all:"
	taskListGenKey      = "tasks:gen"
	defaultTaskCacheTTL = time.Minute
)

// TaskService implements the task lifecycle. Every call is gated on an authenticated session.
type TaskService interface {
	ListTasks(ctx context.Context, sess *auth.Session) ([]model.Task, error)
	AddTask(ctx context.Context, sess *auth.Session, content string) (*model.Task, error)
	ToggleStatus(ctx context.Context, sess *auth.Session, id uint) (*model.Task, error)
	EditTask(ctx context.Context, sess *auth.Session, id uint, content string) (*model.Task, error)
	DeleteTask(ctx context.Context, sess *auth.Session, id uint) error
	ResolveAllTasks(ctx context.Context, sess *auth.Session) (int64, error)
}

type taskService struct {
	repo     repository.TaskRepository
	cache    *cache.Client
	cacheTTL time.Duration
}

// NewTaskService creates a new task service. cache may be nil.
func NewTaskService(repo repository.TaskRepository, cache *cache.Client, cacheTTL time.Duration) TaskService {
	if cacheTTL <= 0 {
		cacheTTL = defaultTaskCacheTTL
	}
	return &taskService{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

// ListTasks returns every task ordered by id.
func (s *taskService) ListTasks(ctx context.Context, sess *auth.Session) ([]model.Task, error) {
	if err := auth.RequireAuthenticated(sess); err != nil {
		return nil, err
	}

	// the generation is read before the query, so a snapshot taken before a
	// concurrent mutation is filed under the generation that mutation retires
	gen, cacheable := s.cache.Counter(ctx, taskListGenKey)
	if cacheable {
		if data, _ := s.cache.Get(ctx, taskListCacheKey(gen)); data != nil {
			var cached []model.Task
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
		}
	}

	tasks, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	if cacheable {
		if payload, err := json.Marshal(tasks); err == nil {
			s.cache.Set(ctx, taskListCacheKey(gen), payload, s.cacheTTL)
		}
	}
	return tasks, nil
}

// AddTask creates an open task.
func (s *taskService) AddTask(ctx context.Context, sess *auth.Session, content string) (*model.Task, error) {
	if err := auth.RequireAuthenticated(sess); err != nil {
		return nil, err
	}
	if content == "" {
		return nil, errors.ErrEmptyContent
	}

	task := &model.Task{Content: content}
	err := s.repo.WithTransaction(ctx, func(ctx context.Context, txRepo repository.TaskRepository) error {
		return txRepo.Create(ctx, task)
	})
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.invalidate(ctx)
	return task, nil
}

// ToggleStatus flips the done flag of one task.
func (s *taskService) ToggleStatus(ctx context.Context, sess *auth.Session, id uint) (*model.Task, error) {
	if err := auth.RequireAuthenticated(sess); err != nil {
		return nil, err
	}

	var task *model.Task
	err := s.repo.WithTransaction(ctx, func(ctx context.Context, txRepo repository.TaskRepository) error {
		if _, err := findTask(ctx, txRepo, id); err != nil {
			return err
		}
		if err := txRepo.ToggleDone(ctx, id); err != nil {
			return err
		}
		var err error
		task, err = findTask(ctx, txRepo, id)
		return err
	})
	if err != nil {
		return nil, wrapTaskErr("toggle", id, err)
	}

	s.invalidate(ctx)
	return task, nil
}

// EditTask replaces the content of one task.
func (s *taskService) EditTask(ctx context.Context, sess *auth.Session, id uint, content string) (*model.Task, error) {
	if err := auth.RequireAuthenticated(sess); err != nil {
		return nil, err
	}
	if content == "" {
		return nil, errors.ErrEmptyContent
	}

	var task *model.Task
	err := s.repo.WithTransaction(ctx, func(ctx context.Context, txRepo repository.TaskRepository) error {
		var err error
		if task, err = findTask(ctx, txRepo, id); err != nil {
			return err
		}
		if err := txRepo.UpdateContent(ctx, id, content); err != nil {
			return err
		}
		task.Content = content
		return nil
	})
	if err != nil {
		return nil, wrapTaskErr("edit", id, err)
	}

	s.invalidate(ctx)
	return task, nil
}

// DeleteTask removes one task.
func (s *taskService) DeleteTask(ctx context.Context, sess *auth.Session, id uint) error {
	if err := auth.RequireAuthenticated(sess); err != nil {
		return err
	}

	err := s.repo.WithTransaction(ctx, func(ctx context.Context, txRepo repository.TaskRepository) error {
		deleted, err := txRepo.Delete(ctx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return errors.ErrTaskNotFound
		}
		return nil
	})
	if err != nil {
		return wrapTaskErr("delete", id, err)
	}

	s.invalidate(ctx)
	return nil
}

// ResolveAllTasks marks every open task done in one transaction and returns how many changed.
func (s *taskService) ResolveAllTasks(ctx context.Context, sess *auth.Session) (int64, error) {
	if err := auth.RequireAuthenticated(sess); err != nil {
		return 0, err
	}

	var changed int64
	err := s.repo.WithTransaction(ctx, func(ctx context.Context, txRepo repository.TaskRepository) error {
		var err error
		changed, err = txRepo.MarkAllDone(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("resolve tasks: %w", err)
	}

	s.invalidate(ctx)
	return changed, nil
}

func (s *taskService) invalidate(ctx context.Context) {
	invalidateTaskList(ctx, s.cache)
}

// invalidateTaskList retires every cached list. Call it only after the mutation commits.
func invalidateTaskList(ctx context.Context, c *cache.Client) {
	c.Incr(ctx, taskListGenKey)
}

func taskListCacheKey(gen int64) string {
	return taskListCachePrefix + strconv.FormatInt(gen, 10)
}

func findTask(ctx context.Context, repo repository.TaskRepository, id uint) (*model.Task, error) {
	task, err := repo.FindByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

func wrapTaskErr(op string, id uint, err error) error {
	if stderrors.Is(err, errors.ErrTaskNotFound) {
		return errors.ErrTaskNotFound
	}
	return fmt.Errorf("%s task %d: %w", op, id, err)
}
