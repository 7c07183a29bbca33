package repomanager

import (
	"context"

	"github.com/dominikcirko/kanban-app/internal/dbx"
	"github.com/dominikcirko/kanban-app/internal/server/repositories/tasks"
	"github.com/dominikcirko/kanban-app/internal/server/repositories/users"
)

// MemoryRepositoryManager hands out the same in-memory repositories
// regardless of the DBTX passed in. Transactions are not isolated; the
// conditional writes of the task store still decide every race.
type MemoryRepositoryManager struct {
	users *users.MemoryRepository
	tasks *tasks.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		users: users.NewMemoryRepository(),
		tasks: tasks.NewMemoryRepository(),
	}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *MemoryRepositoryManager) Users(dbx.DBTX) users.Repository { return m.users }

func (m *MemoryRepositoryManager) Tasks(dbx.DBTX) tasks.Repository { return m.tasks }

func (m *MemoryRepositoryManager) InTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return fn(ctx, nil)
}

func (m *MemoryRepositoryManager) Ping(context.Context) error { return nil }
