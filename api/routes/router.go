package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/kds-backend/api/controllers"
	"github.com/angelmondragon/kds-backend/api/middleware"
	"github.com/angelmondragon/kds-backend/internal/journal"
	"github.com/angelmondragon/kds-backend/internal/session"
	"github.com/angelmondragon/kds-backend/pkg/config"
	"github.com/angelmondragon/kds-backend/pkg/logger"
	"github.com/angelmondragon/kds-backend/pkg/redis"
)

// Params carries everything the router mounts. Optional dependencies stay nil when they are
// not configured.
type Params struct {
	Config *config.Config
	Logger *logger.Logger
	Board  *session.Session

	Journal     journal.Service
	Idempotency redis.IdempotencyStore
	RateLimiter redis.RateLimiter
	// Realtime serves the websocket upgrade on /ws.
	Realtime http.Handler
	// Metrics serves /metrics.
	Metrics   http.Handler
	Readiness map[string]controllers.Pinger
}

func NewRouter(params Params) http.Handler {
	cfg := params.Config
	logg := params.Logger
	board := params.Board

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.StationContext(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.Readiness))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics)
	}
	if params.Realtime != nil {
		r.Method(http.MethodGet, "/ws", params.Realtime)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(params.Idempotency, logg))

		r.Get("/expo", controllers.Expo(board))

		r.Route("/stations", func(r chi.Router) {
			r.Get("/", controllers.ListStations(board))
			r.Get("/{stationId}/board", controllers.StationBoard(board, logg))
			r.Post("/{stationId}/batches/{key}/dismiss", controllers.DismissBatch(board, logg))
			r.Get("/{stationId}/messages", controllers.StationMessages(board, logg))
			r.Post("/{stationId}/messages/read-all", controllers.MarkAllMessagesRead(board, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(board))
			r.Get("/{orderId}", controllers.GetOrder(board, logg))
			r.Get("/{orderId}/journal", controllers.OrderJournal(params.Journal, logg))
			r.Post("/{orderId}/stations/{stationId}/status", controllers.UpdateStationStatus(board, logg))
			r.Post("/{orderId}/bump", controllers.BumpOrder(board, logg))
			r.Post("/{orderId}/snooze", controllers.SnoozeOrder(board, logg))
			r.Post("/{orderId}/wake", controllers.WakeOrder(board, logg))
			r.Post("/{orderId}/refire", controllers.RefireItem(board, logg))
			r.Post("/{orderId}/modify", controllers.ModifyOrder(board, logg))
		})

		r.Route("/completed", func(r chi.Router) {
			r.Get("/", controllers.ListCompleted(board))
			r.Post("/{orderId}/recall", controllers.RecallOrder(board, logg))
		})

		r.Route("/messages", func(r chi.Router) {
			r.With(middleware.RateLimit(messagePolicy(cfg), params.RateLimiter, logg)).
				Post("/", controllers.SendMessage(board, logg))
			r.Post("/{messageId}/read", controllers.MarkMessageRead(board, logg))
		})
	})

	return r
}

func messagePolicy(cfg *config.Config) middleware.RateLimitPolicy {
	if cfg == nil {
		return middleware.RateLimitPolicy{}
	}
	return middleware.NewRateLimitPolicy(
		"messages",
		cfg.RateLimit.MessageWindow,
		cfg.RateLimit.MessageIPLimit,
		cfg.RateLimit.MessageStationLimit,
	)
}
