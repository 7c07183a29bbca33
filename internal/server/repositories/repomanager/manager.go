// Package repomanager vends repositories bound to a dbx.DBTX and runs work
// inside a transaction. Two managers exist: PostgreSQL and in-memory.
package repomanager

import (
	"context"

	"github.com/dominikcirko/kanban-app/internal/dbx"
	"github.com/dominikcirko/kanban-app/internal/server/repositories/tasks"
	"github.com/dominikcirko/kanban-app/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Users(db dbx.DBTX) users.Repository
	Tasks(db dbx.DBTX) tasks.Repository
	// InTx runs fn with a transactional DBTX; repositories obtained from it
	// see and commit together.
	InTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error
	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}
