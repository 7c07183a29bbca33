package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/dominikcirko/kanban-app/internal/common"
	"github.com/dominikcirko/kanban-app/internal/logging"
	"github.com/dominikcirko/kanban-app/internal/server/auth"
	"github.com/dominikcirko/kanban-app/internal/server/models"
	"github.com/go-chi/chi/v5"
)

// TaskService is the mutation coordinator as seen by the handlers.
type TaskService interface {
	Create(ctx context.Context, task models.Task) (*models.Task, error)
	Update(ctx context.Context, task models.Task) (*models.Task, error)
	PartialUpdate(ctx context.Context, id int64, patch []byte) (*models.Task, error)
	Delete(ctx context.Context, id int64, version *int64) error
	Get(ctx context.Context, id int64) (*models.Task, error)
	List(ctx context.Context, filter models.TaskFilter, page models.PageRequest) (models.Page[models.Task], error)
}

// UserService manages accounts.
type UserService interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Delete(ctx context.Context, username string) error
}

type Handlers struct {
	tasks TaskService
	users UserService
	log   logging.Logger
}

func NewHandlers(tasks TaskService, users UserService, log logging.Logger) *Handlers {
	return &Handlers{tasks: tasks, users: users, log: log}
}

// Routes builds the router that sits at the end of the pipeline.
func (h *Handlers) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", Handle(h.register))
		r.Delete("/users/me", Handle(protected(h.deleteMe)))
	})

	r.Route("/api/tasks", func(r chi.Router) {
		r.Get("/", Handle(protected(h.listTasks)))
		r.Post("/", Handle(protected(h.createTask)))
		r.Get("/{id}", Handle(protected(h.getTask)))
		r.Put("/{id}", Handle(protected(h.updateTask)))
		r.Patch("/{id}", Handle(protected(h.patchTask)))
		r.Delete("/{id}", Handle(protected(h.deleteTask)))
	})

	return r
}

// protected refuses callers the token authenticator did not establish.
func protected(fn HandlerFunc) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		if _, ok := auth.PrincipalFromContext(r.Context()); !ok {
			return common.ErrUnauthenticated
		}
		return fn(w, r)
	}
}

type registerResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

func (h *Handlers) register(w http.ResponseWriter, r *http.Request) error {
	var creds credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		return err
	}

	user, err := h.users.Register(r.Context(), creds.Username, creds.Password)
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusCreated, registerResponse{ID: user.ID, Username: user.UserName})
}

func (h *Handlers) deleteMe(w http.ResponseWriter, r *http.Request) error {
	p, _ := auth.PrincipalFromContext(r.Context())
	if err := h.users.Delete(r.Context(), p.Name); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Handlers) listTasks(w http.ResponseWriter, r *http.Request) error {
	filter, page, err := parseListQuery(r)
	if err != nil {
		return err
	}

	result, err := h.tasks.List(r.Context(), filter, page)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) getTask(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	task, err := h.tasks.Get(r.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, task)
}

func (h *Handlers) createTask(w http.ResponseWriter, r *http.Request) error {
	var task models.Task
	if err := decodeJSON(w, r, &task); err != nil {
		return err
	}

	created, err := h.tasks.Create(r.Context(), task)
	if err != nil {
		return err
	}

	w.Header().Set("Location", fmt.Sprintf("/api/tasks/%d", created.ID))
	return writeJSON(w, http.StatusCreated, created)
}

func (h *Handlers) updateTask(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}

	var task models.Task
	if err := decodeJSON(w, r, &task); err != nil {
		return err
	}
	task.ID = id

	updated, err := h.tasks.Update(r.Context(), task)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, updated)
}

const mergePatchType = "application/merge-patch+json"

func (h *Handlers) patchTask(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}

	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || (mt != mergePatchType && mt != "application/json") {
			w.WriteHeader(http.StatusUnsupportedMediaType)
			return nil
		}
	}

	patch, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read patch: %w", err)
	}

	updated, err := h.tasks.PartialUpdate(r.Context(), id, patch)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, updated)
}

func (h *Handlers) deleteTask(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}

	var version *int64
	if raw := r.URL.Query().Get("version"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return &common.ValidationError{Problems: []string{"version must be an integer"}}
		}
		version = &v
	}

	if err := h.tasks.Delete(r.Context(), id, version); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &common.ValidationError{Problems: []string{"task id must be a positive integer"}}
	}
	return id, nil
}

// parseListQuery reads status, priority, page, size and sort.
func parseListQuery(r *http.Request) (models.TaskFilter, models.PageRequest, error) {
	q := r.URL.Query()
	var (
		filter   models.TaskFilter
		problems []string
	)

	if raw := q.Get("status"); raw != "" {
		st, err := models.ParseStatus(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("Unknown status %q", raw))
		} else {
			filter.Status = &st
		}
	}
	if raw := q.Get("priority"); raw != "" {
		p, err := models.ParsePriority(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("Unknown priority %q", raw))
		} else {
			filter.Priority = &p
		}
	}

	page := models.PageRequest{Page: 0, Size: models.DefaultPageSize}
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			problems = append(problems, "page must be a non-negative integer")
		} else {
			page.Page = n
		}
	}
	if raw := q.Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > models.MaxPageSize {
			problems = append(problems, fmt.Sprintf("size must be between 1 and %d", models.MaxPageSize))
		} else {
			page.Size = n
		}
	}

	if !page.Addressable() {
		problems = append(problems, "page is out of range")
	}

	sort, err := models.ParseSort(q.Get("sort"))
	if err != nil {
		problems = append(problems, err.Error())
	}
	page.Sort = sort

	if len(problems) > 0 {
		return filter, page, &common.ValidationError{Problems: problems}
	}
	return filter, page, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
