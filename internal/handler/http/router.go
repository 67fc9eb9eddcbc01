package http

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
)

// NewRouter builds the loopback API the UI shell talks to. The agent binds
// to localhost only; there is no inbound authentication beyond that.
func NewRouter(
	env string,
	authHandler AuthHandler,
	leaveHandler LeaveHandler,
	outboxHandler OutboxHandler,
	eventsHandler EventsHandler,
) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "leavesync-agent"),
		slog.String("env", env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost", "capacitor://localhost"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
		})
		r.Get("/session", authHandler.Session)

		r.Route("/leaves", func(r chi.Router) {
			r.Get("/", leaveHandler.List)
			r.Post("/", leaveHandler.Submit)
		})
		r.Get("/leave-types", leaveHandler.ListTypes)
		r.Get("/allocations", leaveHandler.ListAllocations)
		r.Get("/blocked-dates", leaveHandler.ListBlockedDates)

		r.Route("/approvals", func(r chi.Router) {
			r.Get("/", leaveHandler.ListApprovals)
			r.Post("/{leaveID}/approve", leaveHandler.Approve)
			r.Post("/{leaveID}/refuse", leaveHandler.Refuse)
		})

		r.Route("/outbox", func(r chi.Router) {
			r.Get("/", outboxHandler.List)
			r.Get("/count", outboxHandler.Count)
		})
		r.Post("/sync", outboxHandler.SyncNow)
		r.Post("/cache/clear", outboxHandler.ClearCache)

		r.Get("/events", eventsHandler.Stream)
	})

	return r
}
