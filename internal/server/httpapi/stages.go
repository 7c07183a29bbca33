package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dominikcirko/kanban-app/internal/common"
	"github.com/dominikcirko/kanban-app/internal/logging"
	"github.com/dominikcirko/kanban-app/internal/server/auth"
	"github.com/dominikcirko/kanban-app/internal/server/metrics"
	"github.com/dominikcirko/kanban-app/internal/server/ratelimit"
	"github.com/google/uuid"
)

// ClientKey identifies the caller for rate limiting: the host part of the
// connection's remote address. It is empty when that cannot be determined.
func ClientKey(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if addr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// RateLimitGate admits each request against the caller's bucket. Unknown
// callers are refused rather than let through.
type RateLimitGate struct {
	limiter *ratelimit.Limiter
	metrics *metrics.Metrics
}

func NewRateLimitGate(l *ratelimit.Limiter, m *metrics.Metrics) *RateLimitGate {
	return &RateLimitGate{limiter: l, metrics: m}
}

func (g *RateLimitGate) Handle(w http.ResponseWriter, r *http.Request, next HandlerFunc) error {
	type verdict struct{}

	_, err := ratelimit.PerformIfAllowed(g.limiter, ClientKey(r), func() (verdict, error) {
		return verdict{}, nil
	})
	g.metrics.Admission(err == nil)
	if err != nil {
		return err
	}
	return next(w, r)
}

// LoginPath is answered by LoginStage and never reaches the router.
const LoginPath = "/auth/login"

// Authenticator checks credentials and mints a bearer token.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginStage answers POST /auth/login. On success the token is returned in
// the Authorization header and the body is empty.
type LoginStage struct {
	users Authenticator
	log   logging.Logger
}

func NewLoginStage(users Authenticator, log logging.Logger) *LoginStage {
	return &LoginStage{users: users, log: log}
}

func (s *LoginStage) Handle(w http.ResponseWriter, r *http.Request, next HandlerFunc) error {
	if r.URL.Path != LoginPath || r.Method != http.MethodPost {
		return next(w, r)
	}

	var creds credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		return err
	}

	token, err := s.users.Login(r.Context(), creds.Username, creds.Password)
	if err != nil {
		return err
	}

	s.log.Info(r.Context(), "login succeeded", "username", creds.Username)
	w.Header().Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	w.WriteHeader(http.StatusOK)
	return nil
}

// TokenVerifier validates a bearer token.
type TokenVerifier interface {
	Verify(token string) (auth.Principal, error)
}

// TokenAuthenticator establishes the caller from a bearer token. Requests
// without one pass through unauthenticated; requests with a bad one are
// refused here and go no further.
type TokenAuthenticator struct {
	verifier TokenVerifier
	log      logging.Logger
}

func NewTokenAuthenticator(v TokenVerifier, log logging.Logger) *TokenAuthenticator {
	return &TokenAuthenticator{verifier: v, log: log}
}

func (a *TokenAuthenticator) Handle(w http.ResponseWriter, r *http.Request, next HandlerFunc) error {
	header := r.Header.Get(common.AuthorizationHeaderName)
	if !strings.HasPrefix(header, common.BearerPrefix) {
		return next(w, r)
	}

	principal, err := a.verifier.Verify(strings.TrimPrefix(header, common.BearerPrefix))
	if err != nil {
		a.log.Debug(r.Context(), "bearer token rejected", "err", err)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusForbidden)
		_, _ = fmt.Fprintf(w, "Invalid JWT token: %s", err.Error())
		return nil
	}

	return next(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
}

// WithRequestLogging logs every request once it is answered and records its
// latency. Each request gets an id, echoed in X-Request-ID.
func WithRequestLogging(next http.Handler, log logging.Logger, m *metrics.Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)

		status := sw.status
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		m.ObserveRequest(r.Method, strconv.Itoa(status), elapsed)

		log.Info(r.Context(), "http request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", sw.bytes,
			"duration_ms", elapsed.Milliseconds(),
			"remote", r.RemoteAddr,
		)
	})
}

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}
