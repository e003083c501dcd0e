package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"wellness-backend-go/internal/config"
	"wellness-backend-go/internal/risk"
	"wellness-backend-go/internal/services"
)

type Server struct {
	Store    services.Repository
	Config   config.Config
	Tokens   services.TokenService
	Registry *risk.Registry
	// Engine scores with the active model, including any threshold override.
	Engine  *risk.Engine
	Scoring *services.ScoringService
	Feed    *services.RiskFeed
	Logger  *zap.Logger
}

func NewServer(store services.Repository, cfg config.Config, registry *risk.Registry, engine *risk.Engine, feed *services.RiskFeed, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	tokens := services.TokenService{
		Secret:     []byte(cfg.JWTSecret),
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  time.Duration(cfg.AccessTTLSeconds) * time.Second,
		APIKeyHash: cfg.AdminAPIKeyHash,
	}
	return &Server{
		Store:    store,
		Config:   cfg,
		Tokens:   tokens,
		Registry: registry,
		Engine:   engine,
		Scoring:  services.NewScoringService(store, engine, logger, feed),
		Feed:     feed,
		Logger:   logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(s.Logger))
	if len(s.Config.CorsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.Config.CorsOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", s.Health)
		api.Post("/auth/token", s.IssueToken)

		api.Route("/risk", func(rk chi.Router) {
			rk.Get("/models", s.ListModels)
			rk.Post("/preview", s.PreviewRisk)
		})

		api.Route("/users/{externalId}", func(users chi.Router) {
			users.Use(WithAuth(s.Tokens))
			users.Use(RequireSubjectOrRole("externalId", services.RoleAdmin))
			users.Get("/daily-metrics", s.DailyMetrics)
			users.Get("/risk", s.RiskAssessments)
		})

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(WithAuth(s.Tokens))
			admin.Use(RequireRole(services.RoleAdmin))
			admin.Post("/users/{externalId}/token", s.IssueUserToken)
			admin.Post("/users/{externalId}/risk/score", s.ScoreUser)
		})
	})

	r.Get("/ws/risk", s.RiskSocket)
	return r
}

// engineFor returns the active engine for an empty or active name, and a
// fresh engine of a registered model otherwise.
func (s *Server) engineFor(name string) (*risk.Engine, error) {
	if name == "" || name == s.Engine.Model().Name {
		return s.Engine, nil
	}
	engine, err := s.Registry.Engine(name)
	if err != nil {
		return nil, services.ErrBadRequest("Unknown risk model")
	}
	return engine, nil
}
