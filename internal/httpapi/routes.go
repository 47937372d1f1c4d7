package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/lobby-roster/internal/service"
	"github.com/DoyleJ11/lobby-roster/internal/telegram"
	"github.com/DoyleJ11/lobby-roster/internal/ws"
)

// Dispatcher consumes webhook updates.
type Dispatcher interface {
	Dispatch(ctx context.Context, u telegram.Update)
}

type Options struct {
	// WebhookSecret is the last path segment Telegram posts to. The webhook
	// route is only mounted when both it and Dispatcher are set.
	WebhookSecret string
	Dispatcher    Dispatcher
	// BaseContext outlives individual requests; webhook updates run on it.
	BaseContext context.Context
	Logger      *zap.Logger
}

func SetupRoutes(svc *service.Service, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.BaseContext == nil {
		opts.BaseContext = context.Background()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/sessions", ListSessions(svc))
	r.Get("/sessions/{id}", GetSession(svc))
	r.Get("/ws", ws.Handler(svc, log))

	if opts.WebhookSecret != "" && opts.Dispatcher != nil {
		r.Post("/telegram/{secret}", Webhook(opts.BaseContext, opts.WebhookSecret, opts.Dispatcher, log))
	}
	return r
}
