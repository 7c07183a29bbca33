package users

import (
	"context"
	"sync"
	"time"

	"github.com/dominikcirko/kanban-app/internal/common"
	"github.com/dominikcirko/kanban-app/internal/server/models"
)

// MemoryRepository keeps users in process memory. Used when no database is
// configured.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	byName map[string]models.User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byName: make(map[string]models.User)}
}

func (r *MemoryRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[user.UserName]; ok {
		return nil, common.ErrorAlreadyExists
	}
	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now().UTC()
	r.byName[user.UserName] = *user
	return user, nil
}

func (r *MemoryRepository) GetByUsername(_ context.Context, userName string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byName[userName]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (r *MemoryRepository) DeleteByUsername(_ context.Context, userName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[userName]; !ok {
		return common.ErrorNotFound
	}
	delete(r.byName, userName)
	return nil
}
