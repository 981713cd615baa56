package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vanishlabs/vanish/internal/admission"
	"github.com/vanishlabs/vanish/internal/api/middleware"
	"github.com/vanishlabs/vanish/internal/config"
	"github.com/vanishlabs/vanish/internal/handlers"
	"github.com/vanishlabs/vanish/internal/message"
	"github.com/vanishlabs/vanish/internal/realtime"
	"github.com/vanishlabs/vanish/internal/room"
	"github.com/vanishlabs/vanish/internal/store"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, cfg *config.Config, redisStore *store.RedisStore, broadcast realtime.Broadcaster) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(8 * 1024)) // 8KB max body
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Services and boundaries
	rooms := room.NewService(redisStore, broadcast, cfg.RoomTTL, logger)
	messages := message.NewService(redisStore, broadcast, cfg.RoomTTL, logger)
	ctrl := admission.NewController(redisStore, cfg.RoomCapacity)

	h := handlers.NewHandler(rooms, messages, redisStore, broadcast, logger)
	gatekeeper := middleware.NewGatekeeper(ctrl, !cfg.IsDevelopment())
	member := middleware.NewMemberAuth(redisStore)
	limiter := middleware.NewRateLimiter(redisStore.Client(), logger, cfg.RateLimitWhitelist)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Public routes
	r.Get("/health", h.Health)
	r.With(limiter.LimitCreateRoom).Post("/api/rooms", h.CreateRoom)

	// Room page boundary: admission runs before the snapshot is served
	r.Route("/room/{id}", func(r chi.Router) {
		r.Use(gatekeeper.Middleware)
		r.Get("/", h.RoomSnapshot)
	})

	// Room-scoped API (member credential required)
	r.Group(func(r chi.Router) {
		r.Use(member.RequireMember)

		r.Get("/api/rooms/ttl", h.RoomTTL)
		r.Delete("/api/rooms", h.DestroyRoom)
		r.Post("/api/messages", h.PostMessage)
		r.Get("/api/messages", h.ListMessages)
		r.Get("/api/rooms/subscribe", h.Subscribe)
	})

	return r
}
