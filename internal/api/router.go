package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/affectrelay/internal/api/handlers"
	"github.com/nikhilbhutani/affectrelay/internal/api/middleware"
	"github.com/nikhilbhutani/affectrelay/internal/config"
)

// Service is everything the HTTP surface needs. *relay.Service implements it.
type Service interface {
	handlers.EmotionAnalyzer
	handlers.SpeechSynthesizer
}

type Router struct {
	mux   *chi.Mux
	redis *redis.Client
	cfg   config.ServerConfig
	svc   Service
}

// NewRouter wires the routes. rdb may be nil when the speech cache is disabled.
func NewRouter(svc Service, rdb *redis.Client, cfg config.ServerConfig) *Router {
	return &Router{
		mux:   chi.NewRouter(),
		redis: rdb,
		cfg:   cfg,
		svc:   svc,
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	if rt.cfg.RateLimitRPS > 0 {
		rl := middleware.NewRateLimiter(rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
		r.Use(rl.Limit)
	}

	// Health endpoints
	health := handlers.NewHealthHandler(rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	emotionH := handlers.NewEmotionHandler(rt.svc)
	speechH := handlers.NewSpeechHandler(rt.svc)

	r.Route("/api", func(r chi.Router) {
		r.Route("/emotion", func(r chi.Router) {
			r.Post("/", emotionH.AnalyzeText)
			r.Post("/audio", emotionH.AnalyzeAudio)
		})
		r.Post("/tts", speechH.Speak)
	})

	return r
}
