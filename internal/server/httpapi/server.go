package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dominikcirko/kanban-app/internal/logging"
	"github.com/dominikcirko/kanban-app/internal/server/metrics"
	"github.com/dominikcirko/kanban-app/internal/server/ratelimit"
)

const shutdownTimeout = 10 * time.Second

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the HTTP surface is assembled from.
type Deps struct {
	Tasks         TaskService
	Users         UserService
	Authenticator Authenticator
	Verifier      TokenVerifier
	Limiter       *ratelimit.Limiter
	Metrics       *metrics.Metrics
	Notifications http.Handler
	Store         Pinger
}

type HTTPServer struct {
	address string
	handler http.Handler
	logger  logging.Logger
}

func NewHTTPServer(address string, l logging.Logger, d Deps) *HTTPServer {
	logger := l.With("module", "http_server")
	return &HTTPServer{
		address: address,
		handler: NewHandler(logger, d),
		logger:  logger,
	}
}

// NewHandler wires the full request surface:
//
//	/ws       notification stream
//	/metrics  prometheus exposition
//	/healthz  liveness
//	/readyz   store reachability
//	/         ErrorTranslator -> RateLimitGate -> LoginStage -> TokenAuthenticator -> routes
func NewHandler(log logging.Logger, d Deps) http.Handler {
	routes := NewHandlers(d.Tasks, d.Users, log).Routes()

	pipeline := NewPipeline(Routed(routes),
		NewErrorTranslator(log),
		NewRateLimitGate(d.Limiter, d.Metrics),
		NewLoginStage(d.Authenticator, log),
		NewTokenAuthenticator(d.Verifier, log),
	)

	mux := http.NewServeMux()
	if d.Notifications != nil {
		mux.Handle("/ws", d.Notifications)
	}
	mux.Handle("/metrics", d.Metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Store != nil {
			if err := d.Store.Ping(r.Context()); err != nil {
				log.Warn(r.Context(), "store not ready", "err", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/", WithRequestLogging(pipeline, log, d.Metrics))

	return mux
}

func (s *HTTPServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, "shutdown failed", "err", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
