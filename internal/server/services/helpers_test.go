package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dominikcirko/kanban-app/internal/dbx"
	"github.com/dominikcirko/kanban-app/internal/logging"
	"github.com/dominikcirko/kanban-app/internal/server/cache"
	"github.com/dominikcirko/kanban-app/internal/server/models"
	"github.com/dominikcirko/kanban-app/internal/server/repositories/repomanager"
	"github.com/dominikcirko/kanban-app/internal/server/repositories/tasks"
	"github.com/stretchr/testify/require"
)

// recordingPublisher keeps every published notification.
type recordingPublisher struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (p *recordingPublisher) Publish(n models.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, n)
}

func (p *recordingPublisher) all() []models.Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Notification(nil), p.sent...)
}

// spyCache counts invalidations on top of the real page cache.
type spyCache struct {
	*cache.PageCache
	invalidations atomic.Int32
}

func (c *spyCache) InvalidateAll() {
	c.invalidations.Add(1)
	c.PageCache.InvalidateAll()
}

// countingTasks counts store listings.
type countingTasks struct {
	tasks.Repository
	lists atomic.Int32
}

func (c *countingTasks) List(ctx context.Context, f models.TaskFilter, p models.PageRequest) ([]models.Task, int64, error) {
	c.lists.Add(1)
	return c.Repository.List(ctx, f, p)
}

type countingManager struct {
	*repomanager.MemoryRepositoryManager
	tasks *countingTasks
}

func (m *countingManager) Tasks(dbx.DBTX) tasks.Repository { return m.tasks }

type fixture struct {
	svc   *TaskService
	cache *spyCache
	pub   *recordingPublisher
	store *countingTasks
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	pc, err := cache.New(100)
	require.NoError(t, err)
	t.Cleanup(pc.Close)

	mem := repomanager.NewMemoryRepositoryManager()
	store := &countingTasks{Repository: mem.Tasks(nil)}
	mgr := &countingManager{MemoryRepositoryManager: mem, tasks: store}

	f := &fixture{
		cache: &spyCache{PageCache: pc},
		pub:   &recordingPublisher{},
		store: store,
	}
	f.svc = NewTaskService(nil, mgr, f.cache, f.pub, nil, logging.Nop{})
	return f
}

func newTask(title string) models.Task {
	return models.Task{Title: title, Description: "some work", Status: models.StatusToDo, Priority: models.PriorityLow}
}

var firstPage = models.PageRequest{Page: 0, Size: 10, Sort: []models.SortOrder{{Property: "id"}}}
