// ABOUTME: HTTP server assembly: router, middleware, and routes.
// ABOUTME: Run blocks until Shutdown; Handler exposes the router for tests.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/harperreed/painlog/internal/diary"
	"github.com/harperreed/painlog/internal/session"
)

// Options configures a Server.
type Options struct {
	Addr    string
	Service *diary.Service
	// Sessions enables tokens on register/login and owner checks. Optional.
	Sessions       *session.Manager
	RequireSession bool
	// Location decides calendar days in summaries. Defaults to UTC.
	Location *time.Location
	Logger   *zap.Logger
}

// Server serves the JSON API.
type Server struct {
	addr   string
	log    *zap.Logger
	server *http.Server
	router http.Handler
}

// New builds the router and server.
func New(opts Options) (*Server, error) {
	if opts.Service == nil {
		return nil, fmt.Errorf("diary service is nil")
	}
	if opts.RequireSession && opts.Sessions == nil {
		return nil, fmt.Errorf("require session needs a session manager")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	h := &handler{
		service:  opts.Service,
		sessions: opts.Sessions,
		log:      log,
		loc:      loc,
	}

	r := chi.NewRouter()
	applyMiddlewares(r, log)
	registerRoutes(r, h, opts.RequireSession)

	return &Server{
		addr: opts.Addr,
		log:  log,
		server: &http.Server{
			Addr:              opts.Addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      requestTimeout + 5*time.Second,
			IdleTimeout:       120 * time.Second,
		},
		router: r,
	}, nil
}

func registerRoutes(r chi.Router, h *handler, requireSession bool) {
	r.Get("/healthz", h.healthz)

	r.Route("/api", func(r chi.Router) {
		r.Get("/vocabulary", h.vocabulary)
		r.Post("/auth/register", h.register)
		r.Post("/auth/login", h.login)

		r.Group(func(r chi.Router) {
			if h.sessions != nil {
				r.Use(sessionMiddleware(h.sessions, requireSession, h.log))
			}
			r.Get("/user/{id}", h.getUser)
			r.Post("/pain-entry", h.submitEntry)
			r.Get("/pain-entries/{userId}", h.listEntries)
			r.Get("/pain-entries/{userId}/summary", h.summary)
		})
	})
}

// Run listens until Shutdown is called.
func (s *Server) Run() error {
	s.log.Info("api server started", zap.String("addr", s.addr))
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}
