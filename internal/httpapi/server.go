// Package httpapi wires the HTTP surface of the film store.
// It keeps handlers thin, delegating business rules to the service layer.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tinoosan/filmstore/internal/ratelimit"
	"github.com/tinoosan/filmstore/internal/service/account"
	"github.com/tinoosan/filmstore/internal/service/catalog"
	"github.com/tinoosan/filmstore/internal/service/purchase"
)

// ReadyChecker is optionally implemented by stores to indicate readiness.
type ReadyChecker interface {
	Ready(ctx context.Context) error
}

// Config carries the dependencies the server needs.
type Config struct {
	Catalog   catalog.Service
	Accounts  account.Service
	Purchases purchase.Service
	// DefaultLimiter admits read-style requests; StrictLimiter admits account
	// creation and purchases. Either may be nil to disable admission checks.
	DefaultLimiter *ratelimit.Limiter
	StrictLimiter  *ratelimit.Limiter
	// Readiness is consulted by /readyz when present.
	Readiness ReadyChecker
	Logger    *slog.Logger
	// Development controls whether internal error detail reaches callers.
	Development bool
}

// Server wires handlers and middleware using Chi.
type Server struct {
	catalog   catalog.Service
	accounts  account.Service
	purchases purchase.Service
	defaultRL *ratelimit.Limiter
	strictRL  *ratelimit.Limiter
	readiness ReadyChecker
	log       *slog.Logger
	dev       bool
	rt        *chi.Mux
}

// New constructs the HTTP server with routes and middleware.
func New(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		catalog:   cfg.Catalog,
		accounts:  cfg.Accounts,
		purchases: cfg.Purchases,
		defaultRL: cfg.DefaultLimiter,
		strictRL:  cfg.StrictLimiter,
		readiness: cfg.Readiness,
		log:       log,
		dev:       cfg.Development,
		rt:        chi.NewRouter(),
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints and attaches middleware.
// Account creation and purchases sit behind the stricter admission policy.
func (s *Server) routes() {
	s.rt.Use(chimw.RequestID)
	s.rt.Use(requestLogger(s.log))
	s.rt.Use(recoverer(s.log))
	s.rt.Use(metricsMiddleware)

	s.rt.Group(func(r chi.Router) {
		r.Use(s.admit(s.defaultRL))
		// Films
		r.Get("/v1/films", s.listFilms)
		r.Post("/v1/films", s.createFilm)
		r.Get("/v1/films/{id}", s.getFilm)
		r.Patch("/v1/films/{id}", s.updateFilm)
		r.Delete("/v1/films/{id}", s.deleteFilm)
		r.Get("/v1/films/{id}/stats", s.filmStats)
		// Accounts
		r.Get("/v1/accounts", s.listAccounts)
		r.Get("/v1/accounts/{id}", s.getAccount)
		r.Patch("/v1/accounts/{id}", s.updateAccount)
		r.Delete("/v1/accounts/{id}", s.deleteAccount)
		r.Get("/v1/accounts/{id}/films", s.accountFilms)
		r.Get("/v1/accounts/{id}/stats", s.accountStats)
		r.Get("/v1/accounts/{id}/purchases", s.accountPurchases)
	})

	s.rt.Group(func(r chi.Router) {
		r.Use(s.admit(s.strictRL))
		r.Post("/v1/accounts", s.createAccount)
		r.Post("/v1/purchases", s.createPurchase)
	})

	// Health and metrics (unversioned, not rate limited)
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Handle("/metrics", metricsHandler())
}
