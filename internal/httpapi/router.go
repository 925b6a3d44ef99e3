package httpapi

import (
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig holds the settings NewRouter needs from configuration.
type RouterConfig struct {
	// BackendAPIKey, when set, is required via X-API-Key or a bearer token
	// on every /video route. Empty disables auth (development mode).
	BackendAPIKey string

	// CorsAllowedOrigins is a comma-separated origin list; empty allows "*".
	CorsAllowedOrigins string
}

// NewRouter builds the chi router the teacher's internal/api.NewRouter is
// grounded on, generalized from /v1/projects to /video/*.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	allowedOrigins := []string{"*"}
	if cfg.CorsAllowedOrigins != "" {
		origins := strings.Split(cfg.CorsAllowedOrigins, ",")
		trimmed := make([]string, 0, len(origins))
		for _, o := range origins {
			if s := strings.TrimSpace(o); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			allowedOrigins = trimmed
		}
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)

	r.Route("/video", func(r chi.Router) {
		if cfg.BackendAPIKey != "" {
			r.Use(APIKeyAuth(cfg.BackendAPIKey))
		}
		r.Post("/create", h.CreateVideo)
		r.Get("/status/{job_id}", h.GetStatus)
		r.Get("/download/{filename}", h.GetDownload)
	})

	return r
}
