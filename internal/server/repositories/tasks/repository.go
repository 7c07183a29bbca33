// Package tasks stores board tasks with optimistic concurrency: every
// conditional write compares the submitted version with the stored one and
// bumps it on success.
package tasks

import (
	"context"

	"github.com/dominikcirko/kanban-app/internal/server/models"
)

// Repository persists tasks.
//
// Update and Delete are conditional on task.Version / version. A mismatch, or
// a row that vanished in between, yields common.ErrVersionConflict. Get on an
// unknown id yields common.ErrorNotFound.
type Repository interface {
	Create(ctx context.Context, task *models.Task) (*models.Task, error)
	Get(ctx context.Context, id int64) (*models.Task, error)
	Update(ctx context.Context, task *models.Task) (*models.Task, error)
	Delete(ctx context.Context, id, version int64) error
	List(ctx context.Context, filter models.TaskFilter, page models.PageRequest) ([]models.Task, int64, error)
}
