package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/asktracker/asktracker-go/internal/middleware"
)

// RouterConfig collects the handlers and middleware mounted by NewRouter.
// RateLimit and Metrics may be nil.
type RouterConfig struct {
	Auth        *AuthHandler
	Feedback    *FeedbackHandler
	Gate        *middleware.AuthGate
	RateLimit   *middleware.IPRateLimiter
	Metrics     http.Handler
	Logger      *slog.Logger
	CORSOrigins []string
}

// NewRouter builds the HTTP routing tree.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to AskTracker API!"})
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Group(func(r chi.Router) {
		if cfg.RateLimit != nil {
			r.Use(cfg.RateLimit.Handler)
		}
		r.Post("/register", cfg.Auth.HandleRegister)
		r.Post("/login", cfg.Auth.HandleLogin)
	})

	r.Get("/users/{user_id}", cfg.Auth.HandleGetUser)

	r.Group(func(r chi.Router) {
		r.Use(cfg.Gate.Handler)
		r.Get("/api/data", cfg.Auth.HandleProtectedData)
		r.Get("/me", cfg.Auth.HandleMe)

		r.Post("/feedback", cfg.Feedback.HandleCreate)
		r.Get("/feedback", cfg.Feedback.HandleList)
		r.Get("/feedback/{feedback_id}", cfg.Feedback.HandleGet)
		r.Put("/feedback/{feedback_id}", cfg.Feedback.HandleUpdate)
		r.Delete("/feedback/{feedback_id}", cfg.Feedback.HandleDelete)
	})

	return r
}
