package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/clinicore/consultation-service/internal/consultation"
	"github.com/clinicore/consultation-service/internal/identity"
)

type RouterConfig struct {
	Service   *consultation.Service
	Resolver  identity.Resolver
	JWTSecret string
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Consultation endpoints, all behind identity resolution
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.JWTSecret, cfg.Resolver))

		r.Get("/consultations", listConsultationsHandler(cfg.Service))
		r.Get("/consultations/manage", manageConsultationsHandler(cfg.Service))
		r.Post("/consultations", createConsultationHandler(cfg.Service))
		r.Get("/consultations/{id}", getConsultationHandler(cfg.Service))
		r.Put("/consultations/{id}", updateConsultationHandler(cfg.Service))
		r.Delete("/consultations/{id}", deleteConsultationHandler(cfg.Service))
		r.Post("/consultations/{id}/register", registerConsultationHandler(cfg.Service))
	})

	return r
}
