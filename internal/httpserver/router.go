package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/agrilink/messaging/internal/config"
	"github.com/agrilink/messaging/internal/domain"
	"github.com/agrilink/messaging/internal/realtime"
	"github.com/agrilink/messaging/internal/security"
	"github.com/agrilink/messaging/internal/service"
	"github.com/agrilink/messaging/internal/ws"
)

// NewRouter constructs the main HTTP router and wires routes, services, and middleware.
func NewRouter(
	cfg *config.Config,
	log *zap.SugaredLogger,
	tokens *security.TokenService,
	hub *realtime.Hub,
	publisher domain.EventPublisher,
	convRepo domain.ConversationRepository,
	msgRepo domain.MessageRepository,
	profRepo domain.ProfileRepository,
) http.Handler {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Services
	convSvc := service.NewConversationService(convRepo, msgRepo, profRepo, log)
	msgSvc := service.NewMessageService(convRepo, msgRepo, publisher, log)
	profSvc := service.NewProfileService(profRepo)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware(tokens))

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", handleCreateConversation(convSvc))
			r.Get("/", handleListConversations(convSvc))
			r.Get("/{conversationID}", handleGetConversation(convSvc, profSvc))
			r.Post("/{conversationID}/read", handleMarkConversationRead(msgSvc))
			r.Get("/{conversationID}/messages", handleListMessages(msgSvc, log))
			r.Post("/{conversationID}/messages", handleCreateMessage(msgSvc))
		})

		r.Route("/profiles", func(r chi.Router) {
			r.Put("/me", handleUpsertProfile(profSvc))
			r.Get("/{userID}", handleGetProfile(profSvc))
		})
	})

	// WebSocket endpoint
	r.Get("/ws", ws.MakeHandler(cfg, log, tokens, hub, msgSvc))

	return r
}

// requestLogger logs one line per request with method, path, status and latency.
func requestLogger(log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Infow("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
