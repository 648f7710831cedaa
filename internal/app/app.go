package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/theory-exam/internal/auth"
	"github.com/gokatarajesh/theory-exam/internal/auth/jwt"
	"github.com/gokatarajesh/theory-exam/internal/config"
	"github.com/gokatarajesh/theory-exam/internal/db/repository"
	"github.com/gokatarajesh/theory-exam/internal/exam"
	"github.com/gokatarajesh/theory-exam/internal/i18n"
	"github.com/gokatarajesh/theory-exam/internal/learning"
	"github.com/gokatarajesh/theory-exam/internal/logging"
	"github.com/gokatarajesh/theory-exam/internal/media"
	"github.com/gokatarajesh/theory-exam/internal/metrics"
	"github.com/gokatarajesh/theory-exam/internal/progress"
	"github.com/gokatarajesh/theory-exam/internal/question"
	"github.com/gokatarajesh/theory-exam/internal/server"
	ws "github.com/gokatarajesh/theory-exam/pkg/http/ws"
)

// expiry scan batch size
const expireBatch = 100

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	warmer       *question.WarmWorker
	broadcaster  *exam.Broadcaster
	expiryWorker *exam.ExpiryWorker
	bgCancels    []context.CancelFunc
}

// New bootstraps configs, logger, Postgres, Redis and HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	pool, err := repository.NewPool(ctx, cfg.Postgres.DSN(), 0)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	catalog, err := i18n.LoadEmbedded()
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("load message catalog: %w", err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	userRepo := repository.NewUserRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	examRepo := repository.NewExamRepository(pool, repository.NewTransactor(pool))

	// Auth
	revocations := auth.NewRedisRevocations(redisClient)
	authSvc := auth.NewService(userRepo, auth.ServiceOptions{
		TokenConfig: jwt.TokenConfig{
			AccessSecret:  []byte(cfg.Security.JWTSecret),
			RefreshSecret: []byte(cfg.Security.JWTRefreshSecret),
			AccessTTL:     cfg.Security.AccessTTL,
			RefreshTTL:    cfg.Security.RefreshTTL,
			Issuer:        cfg.Name,
		},
		Revocations: revocations,
		Metrics:     m,
	}, logger)

	var oauthSvc *auth.OAuthService
	if cfg.OAuth.GoogleClientID != "" && cfg.OAuth.GoogleClientSecret != "" {
		redirectURL := cfg.OAuth.GoogleRedirectURL
		if redirectURL == "" {
			redirectURL = fmt.Sprintf("http://%s/v1/oauth/google/callback", cfg.HTTPAddr)
		}
		oauthSvc = auth.NewOAuthService(cfg.OAuth.GoogleClientID, cfg.OAuth.GoogleClientSecret, redirectURL, logger)
		logger.Info().Msg("OAuth service initialized")
	} else {
		logger.Warn().Msg("OAuth not configured (missing GOOGLE_OAUTH_CLIENT_ID or GOOGLE_OAUTH_CLIENT_SECRET)")
	}
	authHandlers := auth.NewHTTPHandlers(authSvc, oauthSvc, logger)

	// Questions and media
	questionSvc := question.NewService(questionRepo, question.NewCache(redisClient, cfg.Cache.QuestionTTL), logger)
	warmer := question.NewWarmWorker(questionSvc, logger, 0)

	resolver := newMediaResolver(cfg, redisClient, m, logger)
	presenter := question.NewPresenter(resolver, catalog)

	// Progress
	progressSvc := progress.NewService(progress.NewRedisStore(redisClient), logger, warmer.Enqueue)

	// Learning and practice
	learningSvc := learning.NewService(questionSvc, progressSvc, presenter, catalog, logger)

	// Exams
	examStore := exam.NewRedisStore(redisClient, cfg.Exam.SessionTTL, logger)
	examSvc := exam.NewService(examStore, questionSvc, progressSvc, exam.Config{
		Duration:   cfg.Exam.Duration,
		YesNoCount: cfg.Exam.YesNoCount,
		MultiCount: cfg.Exam.MultiCount,
	}, exam.Options{
		Results: examRepo,
		Events:  exam.NewRedisPublisher(redisClient, exam.DefaultEventsChannel),
		Metrics: m,
	}, logger)

	hub := ws.NewHub(logger)
	examWS := exam.NewWSHandler(examSvc, hub, authSvc, ws.NewUpgrader(cfg.AllowedOrigins), m, cfg.Exam.TickInterval, logger)

	apiServer := server.NewHTTPServer(cfg, logger, pool, redisClient, authSvc, server.Handlers{
		Auth:     authHandlers,
		Progress: progress.NewHTTPHandlers(progressSvc, catalog, logger),
		Learning: learning.NewHTTPHandlers(learningSvc, progressSvc, logger),
		Exam:     exam.NewHTTPHandlers(examSvc, exam.NewViewer(presenter, catalog), progressSvc, logger),
		ExamWS:   examWS,
		Media:    media.Handler(resolver),
	})

	return &Application{
		cfg:          cfg,
		logger:       logger,
		pool:         pool,
		redis:        redisClient,
		http:         apiServer,
		warmer:       warmer,
		broadcaster:  exam.NewBroadcaster(redisClient, hub, exam.DefaultEventsChannel, logger),
		expiryWorker: exam.NewExpiryWorker(examSvc, cfg.Exam.ExpiryInterval, expireBatch, logger),
		bgCancels:    make([]context.CancelFunc, 0, 2),
	}, nil
}

// newMediaResolver chains the bundled manifest and, when configured, object storage.
func newMediaResolver(cfg *config.App, client *redis.Client, m *metrics.Metrics, logger zerolog.Logger) *media.Resolver {
	opts := media.ResolverOptions{
		BundleBaseURL: cfg.Media.BundleBaseURL,
		OnResolve: func(o media.Origin) {
			m.MediaResolutions.WithLabelValues(string(o)).Inc()
		},
	}

	if cfg.Media.ManifestPath != "" {
		manifest, err := media.LoadManifest(cfg.Media.ManifestPath)
		if err != nil {
			logger.Warn().Err(err).Str("path", cfg.Media.ManifestPath).Msg("media manifest not loaded, bundled media disabled")
		} else {
			opts.Manifest = manifest
			logger.Info().Int("files", manifest.Len()).Msg("media manifest loaded")
		}
	}

	if cfg.Media.StorageEndpoint != "" && cfg.Media.StorageBucket != "" {
		opts.Storage = media.NewStorageClient(
			cfg.Media.StorageEndpoint,
			cfg.Media.StorageProject,
			cfg.Media.StorageBucket,
			cfg.Media.StorageAPIKey,
			&http.Client{Timeout: cfg.Media.HTTPTimeout},
		)
		opts.Cache = media.NewURLCache(client, cfg.Cache.MediaTTL)
	} else {
		logger.Warn().Msg("object storage not configured, only bundled media resolves")
	}

	return media.NewResolver(opts, logger.With().Str("component", "media").Logger())
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	for _, cancel := range a.bgCancels {
		cancel()
	}
	a.warmer.Stop()

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return runErr
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	go a.warmer.Run()

	bgCtx, cancel := context.WithCancel(ctx)
	a.bgCancels = append(a.bgCancels, cancel)
	go func() {
		if err := a.broadcaster.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn().Err(err).Msg("exam event broadcaster stopped")
		}
	}()

	bgCtx, cancel = context.WithCancel(ctx)
	a.bgCancels = append(a.bgCancels, cancel)
	go func() {
		if err := a.expiryWorker.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn().Err(err).Msg("exam expiry worker stopped")
		}
	}()
}
