// Package api is the localhost control surface of the bridge: the shell
// UI and the approval window drive pairing, read session state and
// deliver approval decisions over it.
package api

import (
	"context"
	_ "embed"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"

	"github.com/kestrelwallet/walletbridge/approval"
	"github.com/kestrelwallet/walletbridge/signal"
	"github.com/kestrelwallet/walletbridge/walletconnect"
)

// SessionController is the slice of the session manager the handlers
// need.
type SessionController interface {
	Pair(ctx context.Context, uri string) error
	Close(ctx context.Context)
	CurrentSession() (walletconnect.Session, bool)
}

// API holds the dependencies needed by the control handlers.
type API struct {
	sessions SessionController
	broker   *approval.Broker
	hub      *signal.Hub
	log      *slog.Logger
}

//go:embed openapi.yaml
var openapiSpec []byte

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger. If not set, a default JSON
// logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.log = logger
	}
}

// New creates a new API instance.
func New(sessions SessionController, broker *approval.Broker, hub *signal.Hub, opts ...Option) *API {
	a := &API{
		sessions: sessions,
		broker:   broker,
		hub:      hub,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return a
}

// Router returns a chi.Router with all control routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/openapi.yaml",
		Path:    "docs",
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/openapi.yaml",
		Path:    "redoc",
	}, nil))

	r.Get("/health", a.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/pair", a.Pair)
		r.Post("/disconnect", a.Disconnect)
		r.Get("/session", a.GetSession)
		r.Get("/approvals", a.ListApprovals)
		r.Post("/approvals/{promptID}", a.ResolveApproval)
		r.Get("/events", a.Events)
	})

	return r
}
