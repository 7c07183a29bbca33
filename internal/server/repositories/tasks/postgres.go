package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dominikcirko/kanban-app/internal/common"
	"github.com/dominikcirko/kanban-app/internal/dbx"
	"github.com/dominikcirko/kanban-app/internal/server/models"
)

// PostgresRepository implements task storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts task with version 0 and fills in the generated id.
func (r *PostgresRepository) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	query :=
		`INSERT INTO tasks (version, title, description, status, priority)
		 VALUES (0, $1, $2, $3, $4)
		 RETURNING id, version
		 `

	out := *task
	err := r.db.QueryRowContext(ctx, query,
		task.Title, task.Description, string(task.Status), task.Priority.Ordinal()).Scan(&out.ID, &out.Version)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return &out, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Task, error) {
	query :=
		`SELECT id, version, title, description, status, priority FROM tasks
		 WHERE id = $1
		 `

	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return task, nil
}

// Update writes every editable field if the stored version still equals
// task.Version, and returns the task with the bumped version.
func (r *PostgresRepository) Update(ctx context.Context, task *models.Task) (*models.Task, error) {
	query :=
		`UPDATE tasks
		 SET title = $1, description = $2, status = $3, priority = $4, version = version + 1
		 WHERE id = $5 AND version = $6
		 RETURNING version
		 `

	out := *task
	err := r.db.QueryRowContext(ctx, query,
		task.Title, task.Description, string(task.Status), task.Priority.Ordinal(), task.ID, task.Version).Scan(&out.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrVersionConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return &out, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id, version int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND version = $2`, id, version)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrVersionConflict
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

// List returns one page of tasks matching filter plus the total number of
// matches.
func (r *PostgresRepository) List(ctx context.Context, filter models.TaskFilter, page models.PageRequest) ([]models.Task, int64, error) {
	where, args := whereClause(filter)

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	query := "SELECT id, version, title, description, status, priority FROM tasks" + where +
		orderClause(page.Sort) +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, page.Size, page.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to select tasks: %w", err)
	}
	defer rows.Close()

	result := make([]models.Task, 0, page.Size)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*models.Task, error) {
	var (
		task     models.Task
		status   string
		priority int
	)
	if err := s.Scan(&task.ID, &task.Version, &task.Title, &task.Description, &status, &priority); err != nil {
		return nil, err
	}
	task.Status = models.Status(status)
	p, err := models.PriorityFromOrdinal(priority)
	if err != nil {
		return nil, fmt.Errorf("task %d: %w", task.ID, err)
	}
	task.Priority = p
	return &task, nil
}

func whereClause(f models.TaskFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Status != nil {
		args = append(args, string(*f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Priority != nil {
		args = append(args, f.Priority.Ordinal())
		conds = append(conds, fmt.Sprintf("priority = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// orderClause only ever emits whitelisted column names.
func orderClause(orders []models.SortOrder) string {
	var parts []string
	for _, o := range orders {
		col := o.Column()
		if col == "" {
			continue
		}
		if o.Desc {
			col += " DESC"
		}
		parts = append(parts, col)
	}
	if len(parts) == 0 {
		return " ORDER BY id"
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}
