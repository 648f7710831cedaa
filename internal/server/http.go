package server

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/theory-exam/internal/auth"
	"github.com/gokatarajesh/theory-exam/internal/config"
	"github.com/gokatarajesh/theory-exam/internal/exam"
	"github.com/gokatarajesh/theory-exam/internal/learning"
	"github.com/gokatarajesh/theory-exam/internal/logging"
	"github.com/gokatarajesh/theory-exam/internal/progress"
)

// Handlers groups the feature handlers mounted by the API server.
type Handlers struct {
	Auth     *auth.HTTPHandlers
	Progress *progress.HTTPHandlers
	Learning *learning.HTTPHandlers
	Exam     *exam.HTTPHandlers
	// ExamWS authenticates from the query string itself, so it is not wrapped in RequireAuth.
	ExamWS http.Handler
	Media  http.HandlerFunc
}

// NewHTTPServer wires every route of the API service behind request logging
// and token parsing.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, pool *pgxpool.Pool, redis *redis.Client, tokens auth.TokenValidator, h Handlers) *http.Server {
	mux := NewMux(cfg, logger, func(ctx context.Context) error {
		return pingDependencies(ctx, pool, redis)
	}, h)

	var handler http.Handler = mux
	handler = auth.AuthMiddleware(tokens, logger)(handler)
	handler = logging.Middleware(logger)(handler)

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler,
	}
}

// NewMux registers the routes. ping checks the backing stores for /v1/ping.
func NewMux(cfg *config.App, logger zerolog.Logger, ping func(context.Context) error, h Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/ping", func(w http.ResponseWriter, r *http.Request) {
		if err := ping(r.Context()); err != nil {
			log := logging.FromContext(r.Context())
			log.Error().Err(err).Msg("dependency ping failed")
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	if h.Auth != nil {
		mux.HandleFunc("POST /v1/auth/register", h.Auth.Register)
		mux.HandleFunc("POST /v1/auth/login", h.Auth.Login)
		mux.HandleFunc("POST /v1/auth/refresh", h.Auth.RefreshToken)
		mux.HandleFunc("POST /v1/auth/logout", h.Auth.Logout)
		mux.HandleFunc("GET /v1/oauth/{provider}/start", h.Auth.OAuthStart)
		mux.HandleFunc("GET /v1/oauth/{provider}/callback", h.Auth.OAuthCallback)
		mux.Handle("GET /v1/users/me", auth.RequireAuthFunc(h.Auth.GetMe))
	}

	if h.Progress != nil {
		mux.Handle("GET /v1/catalog", auth.RequireAuthFunc(h.Progress.Catalog))
		mux.Handle("PUT /v1/selection", auth.RequireAuthFunc(h.Progress.Select))
		mux.Handle("DELETE /v1/selection", auth.RequireAuthFunc(h.Progress.Reset))
		mux.Handle("PUT /v1/settings/language", auth.RequireAuthFunc(h.Progress.SetLanguage))
		mux.Handle("GET /v1/stats", auth.RequireAuthFunc(h.Progress.Stats))
	}

	if h.Learning != nil {
		mux.Handle("GET /v1/learning", auth.RequireAuthFunc(h.Learning.Open))
		mux.Handle("POST /v1/learning/move", auth.RequireAuthFunc(h.Learning.Move))
		mux.Handle("GET /v1/practice/{topic}", auth.RequireAuthFunc(h.Learning.Practice))
	}

	if h.Exam != nil {
		mux.Handle("POST /v1/exams", auth.RequireAuthFunc(h.Exam.Start))
		mux.Handle("GET /v1/exams/current", auth.RequireAuthFunc(h.Exam.Current))
		mux.Handle("GET /v1/exams/history", auth.RequireAuthFunc(h.Exam.History))
		mux.Handle("GET /v1/exams/{id}", auth.RequireAuthFunc(h.Exam.Get))
		mux.Handle("POST /v1/exams/{id}/answers", auth.RequireAuthFunc(h.Exam.Answer))
		mux.Handle("POST /v1/exams/{id}/retry", auth.RequireAuthFunc(h.Exam.Retry))
	}

	if h.ExamWS != nil {
		mux.Handle("GET /ws/exams/{id}", h.ExamWS)
	} else {
		mux.HandleFunc("GET /ws/exams/{id}", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "exam countdown not available", http.StatusNotImplemented)
		})
	}

	if h.Media != nil {
		mux.HandleFunc("GET /v1/media/{name}", h.Media)
	}
	if dir := cfg.Media.Dir; dir != "" {
		mux.Handle("GET /media/", http.StripPrefix("/media/", http.FileServer(http.Dir(dir))))
	}

	return mux
}

func pingDependencies(ctx context.Context, pool *pgxpool.Pool, redis *redis.Client) error {
	if err := pool.Ping(ctx); err != nil {
		return err
	}
	if err := redis.Ping(ctx).Err(); err != nil {
		return err
	}
	return nil
}
