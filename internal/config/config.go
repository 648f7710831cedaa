package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"theory-exam"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`
	AllowedOrigins          []string      `env:"WS_ALLOWED_ORIGINS" envSeparator:","`

	Postgres Postgres
	Redis    Redis
	Security Security
	OAuth    OAuth
	Exam     Exam
	Media    Media
	Cache    Cache
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
	MaxConns int    `env:"PG_MAX_CONNS" envDefault:"10"`
}

// ConnString builds a key/value connection string for a single connection.
func (p Postgres) ConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// DSN is ConnString plus pgxpool settings.
func (p Postgres) DSN() string {
	return fmt.Sprintf("%s pool_max_conns=%d", p.ConnString(), p.MaxConns)
}

// Redis holds key-value store + cache configuration.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Security stores secrets for signing and auth.
type Security struct {
	JWTSecret        string        `env:"JWT_SECRET,notEmpty"`
	JWTRefreshSecret string        `env:"JWT_REFRESH_SECRET"`
	AccessTTL        time.Duration `env:"JWT_ACCESS_TTL" envDefault:"1h"`
	RefreshTTL       time.Duration `env:"JWT_REFRESH_TTL" envDefault:"168h"`
}

// OAuth holds OAuth provider configuration.
type OAuth struct {
	GoogleClientID     string `env:"GOOGLE_OAUTH_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_OAUTH_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_OAUTH_REDIRECT_URL"`
}

// Exam groups exam-mode defaults.
type Exam struct {
	Duration       time.Duration `env:"EXAM_DURATION" envDefault:"25m"`
	YesNoCount     int           `env:"EXAM_YES_NO_COUNT" envDefault:"20"`
	MultiCount     int           `env:"EXAM_MULTI_COUNT" envDefault:"12"`
	SessionTTL     time.Duration `env:"EXAM_SESSION_TTL" envDefault:"24h"`
	ExpiryInterval time.Duration `env:"EXAM_EXPIRY_INTERVAL" envDefault:"15s"`
	TickInterval   time.Duration `env:"EXAM_TICK_INTERVAL" envDefault:"1s"`
}

// Media configures the bundled manifest and the object storage fallback.
type Media struct {
	ManifestPath    string        `env:"MEDIA_MANIFEST_PATH" envDefault:"assets/media-manifest.json"`
	Dir             string        `env:"MEDIA_DIR"`
	BundleBaseURL   string        `env:"MEDIA_BUNDLE_BASE_URL" envDefault:"/media"`
	StorageEndpoint string        `env:"STORAGE_ENDPOINT"`
	StorageProject  string        `env:"STORAGE_PROJECT_ID"`
	StorageBucket   string        `env:"STORAGE_BUCKET_ID"`
	StorageAPIKey   string        `env:"STORAGE_API_KEY"`
	HTTPTimeout     time.Duration `env:"STORAGE_HTTP_TIMEOUT" envDefault:"5s"`
}

// Cache tunes Redis-backed read caches.
type Cache struct {
	QuestionTTL time.Duration `env:"QUESTION_CACHE_TTL" envDefault:"5m"`
	MediaTTL    time.Duration `env:"MEDIA_CACHE_TTL" envDefault:"1h"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: false}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadPostgres parses only the database settings, for tools that need nothing else.
func LoadPostgres(pg *Postgres) error {
	if err := env.Parse(pg); err != nil {
		return fmt.Errorf("parse postgres config: %w", err)
	}
	return nil
}

func (c *App) validate() error {
	if c.Exam.Duration <= 0 {
		return fmt.Errorf("EXAM_DURATION must be positive")
	}
	if c.Exam.YesNoCount < 0 || c.Exam.MultiCount < 0 || c.Exam.YesNoCount+c.Exam.MultiCount == 0 {
		return fmt.Errorf("exam question counts must be non-negative and not both zero")
	}
	return nil
}
