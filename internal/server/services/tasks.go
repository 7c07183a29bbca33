package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/dominikcirko/kanban-app/internal/common"
	"github.com/dominikcirko/kanban-app/internal/dbx"
	"github.com/dominikcirko/kanban-app/internal/logging"
	"github.com/dominikcirko/kanban-app/internal/server/metrics"
	"github.com/dominikcirko/kanban-app/internal/server/models"
	"github.com/dominikcirko/kanban-app/internal/server/repositories/repomanager"
)

// PageCache is the listing cache the coordinator keeps consistent.
type PageCache interface {
	Generation() uint64
	Get(key string) (models.Page[models.Task], bool)
	Put(gen uint64, key string, page models.Page[models.Task])
	InvalidateAll()
}

// Publisher delivers change notifications. It must not block.
type Publisher interface {
	Publish(n models.Notification)
}

// TaskService coordinates task writes: the conditional store write, then
// cache invalidation, then the change notification, all before returning.
// It never locks across a read-modify-write; the store decides races.
type TaskService struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
	cache       PageCache
	publisher   Publisher
	metrics     *metrics.Metrics
	log         logging.Logger
	now         func() time.Time
}

func NewTaskService(db dbx.DBTX, m repomanager.RepositoryManager, cache PageCache, publisher Publisher, mx *metrics.Metrics, log logging.Logger) *TaskService {
	return &TaskService{
		db:          db,
		repomanager: m,
		cache:       cache,
		publisher:   publisher,
		metrics:     mx,
		log:         log.With("module", "tasks"),
		now:         time.Now,
	}
}

// Create stores task as a new record with version 0.
func (s *TaskService) Create(ctx context.Context, task models.Task) (*models.Task, error) {
	if err := task.Validate(); err != nil {
		s.metrics.Mutation("create", "invalid")
		return nil, err
	}
	task.ID = 0
	task.Version = 0

	created, err := s.repomanager.Tasks(s.db).Create(ctx, &task)
	if err != nil {
		s.metrics.Mutation("create", "error")
		return nil, fmt.Errorf("error creating task: %w", err)
	}

	s.committed(ctx, "create", models.Notification{Type: models.NotificationCreate, Task: created})
	return created, nil
}

// Update replaces every editable field of task.ID provided task.Version is
// still current.
func (s *TaskService) Update(ctx context.Context, task models.Task) (*models.Task, error) {
	return s.update(ctx, "update", task, common.MsgUpdateConflict)
}

// PartialUpdate applies an RFC 7386 merge patch to the stored task and then
// writes it like Update. A "version" member in the patch is the version the
// caller last saw; without one the stored version is used.
func (s *TaskService) PartialUpdate(ctx context.Context, id int64, patch []byte) (*models.Task, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	original, err := json.Marshal(existing)
	if err != nil {
		return nil, fmt.Errorf("error encoding task %d: %w", id, err)
	}

	merged, err := jsonpatch.MergePatch(original, patch)
	if err != nil {
		s.metrics.Mutation("patch", "invalid")
		return nil, fmt.Errorf("%w: %w", common.ErrMergeFailure, err)
	}

	var patched models.Task
	if err := json.Unmarshal(merged, &patched); err != nil {
		s.metrics.Mutation("patch", "invalid")
		return nil, fmt.Errorf("%w: %w", common.ErrMergeFailure, err)
	}
	patched.ID = id

	return s.update(ctx, "patch", patched, common.MsgPatchConflict)
}

// Delete removes task id. With a nil version the currently stored version is
// used, so only a write racing between that read and the delete conflicts.
func (s *TaskService) Delete(ctx context.Context, id int64, version *int64) error {
	err := s.repomanager.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Tasks(tx)

		current, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		expected := current.Version
		if version != nil {
			expected = *version
		}
		return repo.Delete(ctx, id, expected)
	})
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound):
			s.metrics.Mutation("delete", "not_found")
			return err
		case errors.Is(err, common.ErrVersionConflict):
			s.metrics.Mutation("delete", "conflict")
			s.log.Info(ctx, "delete lost a version race", "task_id", id)
			return common.NewConflict(common.MsgDeleteConflict)
		default:
			s.metrics.Mutation("delete", "error")
			return fmt.Errorf("error deleting task %d: %w", id, err)
		}
	}

	s.committed(ctx, "delete", models.Notification{Type: models.NotificationDelete, TaskID: &id})
	return nil
}

// Get reads one task straight from the store.
func (s *TaskService) Get(ctx context.Context, id int64) (*models.Task, error) {
	task, err := s.repomanager.Tasks(s.db).Get(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error reading task %d: %w", id, err)
	}
	return task, nil
}

// List returns one page of tasks, from the cache when possible.
func (s *TaskService) List(ctx context.Context, filter models.TaskFilter, page models.PageRequest) (models.Page[models.Task], error) {
	key := models.CacheKey(filter, page)

	if cached, ok := s.cache.Get(key); ok {
		s.metrics.CacheHit()
		s.log.Debug(ctx, "page cache hit", "key", key)
		return cached, nil
	}
	s.metrics.CacheMiss()
	s.log.Debug(ctx, "page cache miss", "key", key)

	// taken before the read so a concurrent write makes this fill a no-op
	gen := s.cache.Generation()

	content, total, err := s.repomanager.Tasks(s.db).List(ctx, filter, page)
	if err != nil {
		return models.Page[models.Task]{}, fmt.Errorf("error listing tasks: %w", err)
	}

	result := models.NewPage(content, page, total)
	s.cache.Put(gen, key, result)
	return result, nil
}

func (s *TaskService) update(ctx context.Context, op string, task models.Task, conflictMsg string) (*models.Task, error) {
	if err := task.Validate(); err != nil {
		s.metrics.Mutation(op, "invalid")
		return nil, err
	}

	repo := s.repomanager.Tasks(s.db)

	if _, err := repo.Get(ctx, task.ID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.metrics.Mutation(op, "not_found")
			return nil, err
		}
		s.metrics.Mutation(op, "error")
		return nil, fmt.Errorf("error reading task %d: %w", task.ID, err)
	}

	updated, err := repo.Update(ctx, &task)
	if err != nil {
		if errors.Is(err, common.ErrVersionConflict) {
			s.metrics.Mutation(op, "conflict")
			s.log.Info(ctx, "stale write rejected", "task_id", task.ID, "version", task.Version)
			return nil, common.NewConflict(conflictMsg)
		}
		s.metrics.Mutation(op, "error")
		return nil, fmt.Errorf("error updating task %d: %w", task.ID, err)
	}

	s.committed(ctx, op, models.Notification{Type: models.NotificationUpdate, Task: updated})
	return updated, nil
}

// committed runs after a successful store write: drop every cached page,
// then announce the change.
func (s *TaskService) committed(ctx context.Context, op string, n models.Notification) {
	s.cache.InvalidateAll()
	s.metrics.Mutation(op, "ok")

	n.Timestamp = s.now().UTC()
	if n.Task != nil {
		task := *n.Task
		n.Task = &task
	}
	s.publisher.Publish(n)

	s.log.Debug(ctx, "task change committed", "op", op, "type", n.Type)
}
