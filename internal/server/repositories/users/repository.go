// Package users stores registered identities.
package users

import (
	"context"

	"github.com/dominikcirko/kanban-app/internal/server/models"
)

// Repository persists users. Lookups of unknown names return
// common.ErrorNotFound; duplicate names on Create return
// common.ErrorAlreadyExists.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	DeleteByUsername(ctx context.Context, username string) error
}
