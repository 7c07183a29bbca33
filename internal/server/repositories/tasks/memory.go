package tasks

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/dominikcirko/kanban-app/internal/common"
	"github.com/dominikcirko/kanban-app/internal/server/models"
)

// MemoryRepository keeps tasks in process memory. The version check and the
// write happen under one lock, so it arbitrates concurrent writers the same
// way the database does.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	tasks  map[int64]models.Task
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{tasks: make(map[int64]models.Task)}
}

func (r *MemoryRepository) Create(_ context.Context, task *models.Task) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	out := *task
	out.ID = r.nextID
	out.Version = 0
	r.tasks[out.ID] = out
	return &out, nil
}

func (r *MemoryRepository) Get(_ context.Context, id int64) (*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &t, nil
}

func (r *MemoryRepository) Update(_ context.Context, task *models.Task) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.tasks[task.ID]
	if !ok || cur.Version != task.Version {
		return nil, common.ErrVersionConflict
	}
	out := *task
	out.Version = cur.Version + 1
	r.tasks[out.ID] = out
	return &out, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id, version int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.tasks[id]
	if !ok || cur.Version != version {
		return common.ErrVersionConflict
	}
	delete(r.tasks, id)
	return nil
}

func (r *MemoryRepository) List(_ context.Context, filter models.TaskFilter, page models.PageRequest) ([]models.Task, int64, error) {
	r.mu.RLock()
	matched := make([]models.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && t.Priority != *filter.Priority {
			continue
		}
		matched = append(matched, t)
	}
	r.mu.RUnlock()

	slices.SortFunc(matched, func(a, b models.Task) int {
		for _, o := range page.Sort {
			c := compareBy(o.Property, a, b)
			if o.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return cmp.Compare(a.ID, b.ID)
	})

	total := int64(len(matched))
	start := min(page.Offset(), len(matched))
	end := min(start+page.Size, len(matched))
	return slices.Clone(matched[start:end]), total, nil
}

func compareBy(prop string, a, b models.Task) int {
	switch prop {
	case "id":
		return cmp.Compare(a.ID, b.ID)
	case "version":
		return cmp.Compare(a.Version, b.Version)
	case "title":
		return strings.Compare(a.Title, b.Title)
	case "description":
		return strings.Compare(a.Description, b.Description)
	case "status":
		return strings.Compare(string(a.Status), string(b.Status))
	case "priority":
		return cmp.Compare(a.Priority, b.Priority)
	}
	return 0
}
