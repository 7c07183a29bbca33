package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dominikcirko/kanban-app/internal/common"
	"github.com/dominikcirko/kanban-app/internal/logging"
)

const (
	msgBadRequest       = "BAD REQUEST"
	msgUnknownUser      = "Username doesn't exist"
	msgTokenNotValid    = "JWT NOT VALID"
	msgUnauthorized     = "UNAUTHORIZED"
	msgForbidden        = "FORBIDDEN"
	msgNotFound         = "NOT FOUND"
	msgUsernameConflict = "Username already exists"
)

// ErrorTranslator is the outermost stage. It recovers panics and maps every
// error returned by later stages to a fixed status and body, so internal
// detail never reaches the caller.
type ErrorTranslator struct {
	log logging.Logger
}

func NewErrorTranslator(log logging.Logger) *ErrorTranslator {
	return &ErrorTranslator{log: log}
}

func (t *ErrorTranslator) Handle(w http.ResponseWriter, r *http.Request, next HandlerFunc) (err error) {
	sw := &statusWriter{ResponseWriter: w}

	defer func() {
		if p := recover(); p != nil {
			if p == http.ErrAbortHandler {
				panic(p)
			}
			err = fmt.Errorf("panic: %v", p)
		}
		if err != nil {
			t.write(sw, r, err)
		}
		err = nil
	}()

	return next(sw, r)
}

func (t *ErrorTranslator) write(w *statusWriter, r *http.Request, err error) {
	status, body := translate(err)

	if status >= http.StatusInternalServerError || status == http.StatusBadRequest {
		t.log.Warn(r.Context(), "request failed", "path", r.URL.Path, "status", status, "err", err)
	} else {
		t.log.Debug(r.Context(), "request rejected", "path", r.URL.Path, "status", status, "err", err)
	}

	if w.status != 0 {
		// the handler already started its response
		return
	}
	if body == "" {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// translate is the error taxonomy of the HTTP API.
func translate(err error) (int, string) {
	var (
		conflict   *common.ConflictError
		validation *common.ValidationError
	)

	switch {
	case errors.Is(err, common.ErrRateExceeded):
		return http.StatusTooManyRequests, ""
	case errors.Is(err, common.ErrUnknownClientKey):
		return http.StatusForbidden, msgForbidden
	case errors.Is(err, common.ErrIdentityNotFound):
		return http.StatusNotFound, msgUnknownUser
	case errors.Is(err, common.ErrBadCredentials):
		return http.StatusUnauthorized, common.ErrBadCredentials.Error()
	case errors.Is(err, common.ErrUnauthenticated):
		return http.StatusUnauthorized, msgUnauthorized
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		return http.StatusForbidden, msgTokenNotValid
	case errors.As(err, &conflict):
		return http.StatusConflict, conflict.Message
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusConflict, msgUsernameConflict
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, msgNotFound
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Error()
	default:
		// merge failures and everything unclassified
		return http.StatusBadRequest, msgBadRequest
	}
}

// statusWriter remembers the status code written through it.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
