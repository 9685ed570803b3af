package appconfig

import (
	"time"

	"actiapp.dev/backend/internal/app/appcontext"
)

type ConfigSpec struct {
	// ServiceAddress is the listen address would listen on for serving normal service requests.
	ServiceAddress string `required:"true" split_words:"true" default:"localhost:9010"`

	// LogJsonStdout is whether to log JSON logs (instead of pretty-print logs) to stdout for the ease of log collection.
	LogJsonStdout bool `split_words:"true" default:"false"`

	// LogFile, when set, additionally writes JSON logs to the file, rotated once it reaches LogFileMaxSizeMB.
	LogFile          string `split_words:"true"`
	LogFileMaxSizeMB int    `envconfig:"LOG_FILE_MAX_SIZE_MB" default:"100"`

	// TrustedProxies is a list of trusted proxies that are trusted to report a real IP via the X-Forwarded-For header.
	TrustedProxies []string `required:"true" split_words:"true" default:"::1,127.0.0.1,10.0.0.0/8"`

	// DevMode to indicate development mode. When true, the program would spin up utilities for debugging and
	// provide a more contextual message when encountered a panic. See internal/server/httpserver/http.go for the
	// actual implementation details.
	DevMode bool `split_words:"true"`

	// infrastructure components connection instructions

	// PostgresDSN is the data source name for the PostgreSQL database. See
	// https://bun.uptrace.dev/postgres/#pgdriver for more details on how to construct a PostgreSQL DSN.
	PostgresDSN string `required:"true" split_words:"true"`

	PostgresMaxOpenConns    int           `split_words:"true" default:"10"`
	PostgresMaxIdleConns    int           `split_words:"true" default:"2"`
	PostgresConnMaxLifeTime time.Duration `split_words:"true" default:"5m"`
	PostgresConnMaxIdleTime time.Duration `split_words:"true" default:"5m"`

	BunDebugVerbose bool `split_words:"true"`

	// NatsURL is the URL of the NATS server. See https://pkg.go.dev/github.com/nats-io/nats.go#Connect
	// for more information on how to construct a NATS URL.
	NatsURL string `required:"true" split_words:"true" default:"nats://127.0.0.1:4222"`

	// RedisURL is the URL of the Redis server. See https://pkg.go.dev/github.com/redis/go-redis/v9#ParseURL
	// for more information on how to construct a Redis URL.
	RedisURL string `required:"true" split_words:"true" default:"redis://127.0.0.1:6379/0"`

	// SentryDSN is the DSN of the Sentry server. See https://pkg.go.dev/github.com/getsentry/sentry-go#ClientOptions
	SentryDSN string `split_words:"true"`

	// JWTSecret is the HMAC secret used to sign and verify bearer tokens.
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// JWTIssuer is stamped into issued tokens and required on verification.
	JWTIssuer string `envconfig:"JWT_ISSUER" default:"actiapp"`

	// JWTTTL is the lifetime of issued tokens.
	JWTTTL time.Duration `envconfig:"JWT_TTL" default:"1h"`

	// BcryptCost is the bcrypt work factor for password hashes.
	BcryptCost int `split_words:"true" default:"10"`

	// SessionLockExpiry bounds how long a per-user session lock may be held.
	SessionLockExpiry time.Duration `split_words:"true" default:"10s"`

	// SessionStopMode decides what stopping an activity that is not running does.
	// Valid values are: reject (409 Conflict), noop (returns the activity unchanged).
	SessionStopMode string `split_words:"true" default:"reject"`

	// UserActivityVisibility decides which activities a plain `user` can list and read.
	// Valid values are: own_only, own_plus_org_unclaimed, whole_org.
	UserActivityVisibility string `split_words:"true" default:"own_plus_org_unclaimed"`

	// LoginRateLimit is how many login attempts a single client IP may make per minute.
	LoginRateLimit int `split_words:"true" default:"20"`

	// IdempotencyLifetime is how long a response saved under an Idempotency-Key is replayed.
	IdempotencyLifetime time.Duration `split_words:"true" default:"24h"`

	// HTTPServerShutdownTimeout is the timeout for the HTTP server to shut down gracefully.
	HTTPServerShutdownTimeout time.Duration `required:"true" split_words:"true" default:"60s"`
}

type Config struct {
	// ConfigSpec is the configuration specification injected to the config.
	ConfigSpec

	// AppContext is the application context
	AppContext appcontext.Ctx
}
