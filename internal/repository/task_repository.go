package repository

import (
	"context"

	"gorm.io/gorm"

	"tasktracker/internal/model"
)

// TaskRepository defines task persistence operations.
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, id uint) (*model.Task, error)
	List(ctx context.Context) ([]model.Task, error)
	UpdateContent(ctx context.Context, id uint, content string) error
	ToggleDone(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) (bool, error)
	MarkAllDone(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
	// Transaction methods
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo TaskRepository) error) error
}

type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

// Create inserts a task and fills in its ID.
func (r *taskRepository) Create(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// FindByID returns gorm.ErrRecordNotFound when no task has the given id.
func (r *taskRepository) FindByID(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// List returns every task in insertion order.
func (r *taskRepository) List(ctx context.Context) ([]model.Task, error) {
	tasks := make([]model.Task, 0)
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// UpdateContent replaces the text of a task.
func (r *taskRepository) UpdateContent(ctx context.Context, id uint, content string) error {
	return r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ?", id).
		Update("content", content).Error
}

// ToggleDone flips the done flag in a single statement.
func (r *taskRepository) ToggleDone(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ?", id).
		Update("done", gorm.Expr("NOT done")).Error
}

// Delete removes a task and reports whether a row existed.
func (r *taskRepository) Delete(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&model.Task{}, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkAllDone sets done on every open task and returns how many changed.
func (r *taskRepository) MarkAllDone(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("done = ?", false).
		Update("done", true)
	return res.RowsAffected, res.Error
}

// Count returns the number of stored tasks.
func (r *taskRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Task{}).Count(&n).Error
	return n, err
}

// WithTransaction executes a function within a database transaction.
func (r *taskRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo TaskRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &taskRepository{db: tx}
		return fn(ctx, txRepo)
	})
}
