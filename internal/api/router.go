package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chatrelay-backend/internal/handlers"
	"chatrelay-backend/internal/logging"
)

// RouterDependencies holds all the dependencies required by the router setup.
type RouterDependencies struct {
	AuthHandler         *handlers.AuthHandler
	ConversationHandler *handlers.ConversationHandlers
	UploadHandler       *handlers.UploadHandler
	WSHandler           *handlers.WSHandler
	SlackWebhookHandler *handlers.SlackWebhookHandlers
	HealthHandler       *handlers.HealthHandler
	Verifier            TokenVerifier
	AllowedOrigins      []string
}

// NewRouter creates and configures the main Chi router for the application.
func NewRouter(deps RouterDependencies) *chi.Mux {
	r := chi.NewRouter()

	// --- Base Middleware Stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Requested-With"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	// --- Public Routes (No JWT Required) ---
	if deps.HealthHandler != nil {
		r.Get("/health", deps.HealthHandler.HandleHealth)
	}
	r.Handle("/metrics", promhttp.Handler())

	if deps.AuthHandler == nil {
		panic("AuthHandler dependency is nil in router setup")
	}
	r.With(httprate.LimitByIP(10, time.Minute)).Post("/v1/auth/login", deps.AuthHandler.HandleLogin)

	// Signature verification within the handler secures this route.
	if deps.SlackWebhookHandler != nil {
		r.With(httprate.LimitByIP(600, time.Minute)).Post("/slack-events", deps.SlackWebhookHandler.HandleSlackEvent)
	}

	// --- Authenticated Routes (JWT Required) ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(JwtAuthMiddleware(deps.Verifier))

		r.Get("/auth/verify", deps.AuthHandler.HandleVerify)

		if deps.WSHandler != nil {
			r.Get("/ws", deps.WSHandler.HandleWS)
		}

		// Websocket sessions outlive any request timeout.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			if h := deps.ConversationHandler; h != nil {
				r.Get("/users", h.HandleListUsers)
				r.Get("/users/{userID}/messages", h.HandleListMessages)
				r.Post("/users/{userID}/messages", h.HandleSendMessage)
				r.Put("/users/{userID}/read", h.HandleMarkRead)
				r.Delete("/messages/{messageID}", h.HandleDeleteMessage)
				r.Put("/users/message/{messageID}", h.HandleDeleteMessage)
			}
			if deps.UploadHandler != nil {
				r.Post("/uploads", deps.UploadHandler.HandleUpload)
			}
		})
	})

	return r
}
