package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "SRP_DB_DSN"
	EnvDBHost = "SRP_DB_HOST"
	EnvDBUser = "SRP_DB_USER"
	EnvDBName = "SRP_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Killmail     KillmailConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SRP_APP_ENV" required:"true"`
	Port         string `envconfig:"SRP_APP_PORT" required:"true"`
	SiteName     string `envconfig:"SRP_SITE_NAME" default:"SRP"`
	LogLevel     string `envconfig:"SRP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SRP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SRP_DB_DSN"`
	Driver string `envconfig:"SRP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SRP_DB_HOST"`
	LegacyPort     int    `envconfig:"SRP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SRP_DB_USER"`
	LegacyPassword string `envconfig:"SRP_DB_PASSWORD"`
	LegacyName     string `envconfig:"SRP_DB_NAME"`
	LegacySSLMode  string `envconfig:"SRP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SRP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SRP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SRP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SRP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SRP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SRP_REDIS_ADDR"`
	Password     string        `envconfig:"SRP_REDIS_PASSWORD"`
	DB           int           `envconfig:"SRP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SRP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SRP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SRP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SRP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SRP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SRP_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SRP_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SRP_JWT_EXPIRATION_MINUTES" default:"60"`
}

// RateLimitConfig throttles the API per client IP. An IPLimit of zero
// disables the middleware.
type RateLimitConfig struct {
	Window  time.Duration `envconfig:"SRP_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit int64         `envconfig:"SRP_RATE_LIMIT_IP" default:"300"`
}

// KillmailConfig tunes the external killboard adapters.
type KillmailConfig struct {
	UserAgent       string        `envconfig:"SRP_KILLMAIL_USER_AGENT" required:"true"`
	FetchTimeout    time.Duration `envconfig:"SRP_KILLMAIL_FETCH_TIMEOUT" default:"15s"`
	ZKillboardHosts []string      `envconfig:"SRP_KILLMAIL_ZKB_HOSTS" default:"zkillboard.com"`
	ZKillboardAPI   string        `envconfig:"SRP_KILLMAIL_ZKB_API" default:"https://zkillboard.com/api"`
	LegacyHosts     []string      `envconfig:"SRP_KILLMAIL_LEGACY_HOSTS"`
	LegacyAPI       string        `envconfig:"SRP_KILLMAIL_LEGACY_API"`
	ESIHosts        []string      `envconfig:"SRP_KILLMAIL_ESI_HOSTS" default:"esi.evetech.net"`
	ESIBaseURL      string        `envconfig:"SRP_KILLMAIL_ESI_BASE_URL" default:"https://esi.evetech.net/latest"`
	ResolveCacheTTL time.Duration `envconfig:"SRP_KILLMAIL_RESOLVE_CACHE_TTL" default:"24h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SRP_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
