package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dominikcirko/kanban-app/internal/logging"
	"github.com/dominikcirko/kanban-app/internal/server/auth"
	"github.com/dominikcirko/kanban-app/internal/server/cache"
	"github.com/dominikcirko/kanban-app/internal/server/metrics"
	"github.com/dominikcirko/kanban-app/internal/server/models"
	"github.com/dominikcirko/kanban-app/internal/server/notify"
	"github.com/dominikcirko/kanban-app/internal/server/ratelimit"
	"github.com/dominikcirko/kanban-app/internal/server/repositories/repomanager"
	"github.com/dominikcirko/kanban-app/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

type apiFixture struct {
	handler http.Handler
	hub     *notify.Hub
	token   string
}

func newAPI(t *testing.T, capacity int) *apiFixture {
	t.Helper()

	pc, err := cache.New(100)
	require.NoError(t, err)
	t.Cleanup(pc.Close)

	m := metrics.New()
	hub := notify.NewHub(logging.Nop{}, m, notify.DefaultQueueSize)
	t.Cleanup(hub.Close)

	mgr := repomanager.NewMemoryRepositoryManager()
	users := services.NewUserService(nil, mgr, auth.NewTokenIssuer(testSecret, 2*time.Hour), logging.Nop{})
	tasks := services.NewTaskService(nil, mgr, pc, hub, m, logging.Nop{})

	h := NewHandler(logging.Nop{}, Deps{
		Tasks:         tasks,
		Users:         users,
		Authenticator: users,
		Verifier:      auth.NewTokenVerifier(testSecret),
		Limiter:       ratelimit.New(capacity, time.Minute, 100),
		Metrics:       m,
		Notifications: notify.NewGateway(hub, logging.Nop{}, nil),
		Store:         mgr,
	})

	return &apiFixture{handler: h, hub: hub}
}

func (f *apiFixture) do(t *testing.T, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, path, rd)
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		r.Header.Set(header[i], header[i+1])
	}
	if f.token != "" && r.Header.Get("Authorization") == "" {
		r.Header.Set("Authorization", "Bearer "+f.token)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, r)
	return rec
}

// signIn registers ann and keeps the token for later calls.
func (f *apiFixture) signIn(t *testing.T) {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/auth/register", `{"username":"ann","password":"s3cret"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/auth/login", `{"username":"ann","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	header := rec.Header().Get("Authorization")
	require.True(t, strings.HasPrefix(header, "Bearer "))
	f.token = strings.TrimPrefix(header, "Bearer ")
}

func decodeTask(t *testing.T, rec *httptest.ResponseRecorder) models.Task {
	t.Helper()
	var task models.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task), rec.Body.String())
	return task
}

const taskBody = `{"title":"Write docs","description":"Cover the API","status":"TO_DO","priority":"HIGH"}`

func TestAPI_RegisterAndLogin(t *testing.T) {
	f := newAPI(t, 100)

	rec := f.do(t, http.MethodPost, "/auth/register", `{"username":"ann","password":"s3cret"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created registerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "ann", created.Username)
	assert.NotZero(t, created.ID)

	rec = f.do(t, http.MethodPost, "/auth/register", `{"username":"ann","password":"other"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/auth/register", `{"username":"","password":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/auth/login", `{"username":"ann","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "You provided an incorrect password.", rec.Body.String())

	rec = f.do(t, http.MethodPost, "/auth/login", `{"username":"bob","password":"s3cret"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Username doesn't exist", rec.Body.String())
}

func TestAPI_ProtectedRoutes(t *testing.T) {
	f := newAPI(t, 100)

	rec := f.do(t, http.MethodGet, "/api/tasks", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/tasks", "", "Authorization", "Bearer not-a-jwt")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Invalid JWT token: "))

	expired, err := auth.GenerateToken("ann", testSecret, time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	rec = f.do(t, http.MethodGet, "/api/tasks", "", "Authorization", "Bearer "+expired)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	forged, err := auth.GenerateToken("ann", []byte("other-key"), time.Hour, time.Now())
	require.NoError(t, err)
	rec = f.do(t, http.MethodGet, "/api/tasks", "", "Authorization", "Bearer "+forged)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAPI_TaskLifecycle(t *testing.T) {
	f := newAPI(t, 100)
	f.signIn(t)

	sub := f.hub.Subscribe()
	defer f.hub.Unsubscribe(sub)

	rec := f.do(t, http.MethodPost, "/api/tasks", taskBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeTask(t, rec)
	assert.Equal(t, int64(0), created.Version)
	assert.Equal(t, fmt.Sprintf("/api/tasks/%d", created.ID), rec.Header().Get("Location"))
	assert.Equal(t, models.NotificationCreate, (<-sub.C).Type)

	path := fmt.Sprintf("/api/tasks/%d", created.ID)

	rec = f.do(t, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created, decodeTask(t, rec))

	rec = f.do(t, http.MethodPut, path,
		`{"version":0,"title":"Write more docs","description":"Cover the API","status":"IN_PROGRESS","priority":"MED"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeTask(t, rec)
	assert.Equal(t, int64(1), updated.Version)
	assert.Equal(t, models.StatusInProgress, updated.Status)
	assert.Equal(t, models.NotificationUpdate, (<-sub.C).Type)

	// stale version
	rec = f.do(t, http.MethodPut, path,
		`{"version":0,"title":"Lost write","description":"Cover the API","status":"DONE","priority":"LOW"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Task was updated by another user. Please reload and try again.", rec.Body.String())

	rec = f.do(t, http.MethodPatch, path, `{"title":"Patched title"}`, "Content-Type", "application/merge-patch+json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	patched := decodeTask(t, rec)
	assert.Equal(t, "Patched title", patched.Title)
	assert.Equal(t, "Cover the API", patched.Description)
	assert.Equal(t, int64(2), patched.Version)
	assert.Equal(t, models.NotificationUpdate, (<-sub.C).Type)

	rec = f.do(t, http.MethodPatch, path, `{"title":`, "Content-Type", "application/merge-patch+json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD REQUEST", rec.Body.String())

	rec = f.do(t, http.MethodPatch, path, `{"title":"x"}`, "Content-Type", "text/plain")
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec = f.do(t, http.MethodDelete, path+"?version=1", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Task was modified before deletion. Please refresh and try again.", rec.Body.String())

	rec = f.do(t, http.MethodDelete, path+"?version=2", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	n := <-sub.C
	assert.Equal(t, models.NotificationDelete, n.Type)
	require.NotNil(t, n.TaskID)
	assert.Equal(t, created.ID, *n.TaskID)

	rec = f.do(t, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_ListTasks(t *testing.T) {
	f := newAPI(t, 100)
	f.signIn(t)

	bodies := []string{
		`{"title":"Task one","description":"d","status":"TO_DO","priority":"LOW"}`,
		`{"title":"Task two","description":"d","status":"DONE","priority":"HIGH"}`,
		`{"title":"Task three","description":"d","status":"TO_DO","priority":"HIGH"}`,
	}
	for _, b := range bodies {
		require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/tasks", b).Code)
	}

	var page models.Page[models.Task]

	rec := f.do(t, http.MethodGet, "/api/tasks?status=TO_DO&size=1&sort=title,desc", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, int64(2), page.TotalElements)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Content, 1)
	assert.Equal(t, "Task three", page.Content[0].Title)

	// read-after-write: a fresh create shows up in the cached listing
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/tasks",
		`{"title":"Task four","description":"d","status":"TO_DO","priority":"MED"}`).Code)
	rec = f.do(t, http.MethodGet, "/api/tasks?status=TO_DO&size=1&sort=title,desc", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, int64(3), page.TotalElements)

	for _, q := range []string{"size=0", "size=101", "page=-1", "page=4611686018427387904&size=4", "page=4611686018427387904&size=3", "status=OPEN", "priority=URGENT", "sort=password"} {
		rec := f.do(t, http.MethodGet, "/api/tasks?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestAPI_OneLetterTitles(t *testing.T) {
	f := newAPI(t, 100)
	f.signIn(t)

	rec := f.do(t, http.MethodPost, "/api/tasks", `{"title":"A","description":"d","status":"TO_DO","priority":"LOW"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeTask(t, rec)
	path := fmt.Sprintf("/api/tasks/%d", created.ID)

	rec = f.do(t, http.MethodPut, path, `{"version":0,"title":"B","description":"d","status":"TO_DO","priority":"LOW"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPatch, path, `{"title":"X"}`, "Content-Type", "application/merge-patch+json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	patched := decodeTask(t, rec)
	assert.Equal(t, "X", patched.Title)
	assert.Equal(t, "d", patched.Description)
	assert.Equal(t, int64(2), patched.Version)
}

func TestAPI_RateLimited(t *testing.T) {
	f := newAPI(t, 3)

	for i := 0; i < 3; i++ {
		rec := f.do(t, http.MethodPost, "/auth/login", `{"username":"nobody","password":"x"}`)
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	rec := f.do(t, http.MethodPost, "/auth/login", `{"username":"nobody","password":"x"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestAPI_DeleteAccount(t *testing.T) {
	f := newAPI(t, 100)
	f.signIn(t)

	rec := f.do(t, http.MethodDelete, "/auth/users/me", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	f.token = ""
	rec = f.do(t, http.MethodPost, "/auth/login", `{"username":"ann","password":"s3cret"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_OperationalEndpoints(t *testing.T) {
	f := newAPI(t, 1)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/readyz", "").Code)

	// operational endpoints are not rate limited
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", "").Code)

	rec := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
