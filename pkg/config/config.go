package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Marketplace  MarketplaceConfig
	Sweeper      SweeperConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
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
	Env          string `envconfig:"PHONELOT_APP_ENV" required:"true"`
	Port         string `envconfig:"PHONELOT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PHONELOT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PHONELOT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PHONELOT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PHONELOT_DB_DSN"`
	Driver string `envconfig:"PHONELOT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PHONELOT_DB_HOST"`
	LegacyPort     int    `envconfig:"PHONELOT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PHONELOT_DB_USER"`
	LegacyPassword string `envconfig:"PHONELOT_DB_PASSWORD"`
	LegacyName     string `envconfig:"PHONELOT_DB_NAME"`
	LegacySSLMode  string `envconfig:"PHONELOT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PHONELOT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PHONELOT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PHONELOT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PHONELOT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PHONELOT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PHONELOT_REDIS_ADDR"`
	Password     string        `envconfig:"PHONELOT_REDIS_PASSWORD"`
	DB           int           `envconfig:"PHONELOT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PHONELOT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PHONELOT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PHONELOT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PHONELOT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PHONELOT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PHONELOT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PHONELOT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PHONELOT_JWT_EXPIRATION_MINUTES" default:"60"`
}

// MarketplaceConfig carries the lead marketplace business knobs.
type MarketplaceConfig struct {
	LeadCostPercent string        `envconfig:"PHONELOT_LEAD_COST_PERCENT" default:"15"`
	LockTTL         time.Duration `envconfig:"PHONELOT_LEAD_LOCK_TTL" default:"10m"`
}

type SweeperConfig struct {
	Interval    time.Duration `envconfig:"PHONELOT_SWEEPER_INTERVAL" default:"1m"`
	BatchSize   int           `envconfig:"PHONELOT_SWEEPER_BATCH_SIZE" default:"100"`
	LockKey     string        `envconfig:"PHONELOT_SWEEPER_LOCK_KEY" default:"phonelot:sweeper:lock"`
	LockTTL     time.Duration `envconfig:"PHONELOT_SWEEPER_LOCK_TTL" default:"50s"`
	MetricsPort string        `envconfig:"PHONELOT_SWEEPER_METRICS_PORT" default:"9102"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PHONELOT_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PHONELOT_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"PHONELOT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"PHONELOT_PUBSUB_ORDERS_TOPIC" default:"phonelot-order-events"`
	LedgerTopic string `envconfig:"PHONELOT_PUBSUB_LEDGER_TOPIC" default:"phonelot-ledger-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PHONELOT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PHONELOT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PHONELOT_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
