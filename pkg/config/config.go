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
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
	LemonSqueezy LemonSqueezyConfig
	AppSumo      AppSumoConfig
	Sherlock     SherlockConfig
	Discord      DiscordConfig
	Cron         CronConfig
	Usage        UsageConfig
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
	Env          string `envconfig:"OLLY_APP_ENV" required:"true"`
	Port         string `envconfig:"OLLY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"OLLY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"OLLY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"OLLY_DB_DSN"`
	Driver string `envconfig:"OLLY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"OLLY_DB_HOST"`
	LegacyPort     int    `envconfig:"OLLY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"OLLY_DB_USER"`
	LegacyPassword string `envconfig:"OLLY_DB_PASSWORD"`
	LegacyName     string `envconfig:"OLLY_DB_NAME"`
	LegacySSLMode  string `envconfig:"OLLY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"OLLY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"OLLY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"OLLY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"OLLY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"OLLY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"OLLY_REDIS_ADDR"`
	Password     string        `envconfig:"OLLY_REDIS_PASSWORD"`
	DB           int           `envconfig:"OLLY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"OLLY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"OLLY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"OLLY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"OLLY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"OLLY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"OLLY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"OLLY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"OLLY_JWT_EXPIRATION_MINUTES" default:"60"`
}

// AccessTokenTTL returns the access token lifetime configured in minutes.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"OLLY_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"OLLY_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"OLLY_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"OLLY_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"OLLY_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"OLLY_AUTO_MIGRATE" default:"false"`
}

type LemonSqueezyConfig struct {
	APIKey        string `envconfig:"LEMON_SQUEEZY_API_KEY"`
	StoreID       string `envconfig:"LEMON_STORE_ID"`
	SigningSecret string `envconfig:"LEMON_SQUEEZY_SIGNING_SECRET"`
	TeamVariantID string `envconfig:"LEMON_SQUEEZY_TEAM_VARIANT_ID"`
}

type AppSumoConfig struct {
	APIKey string `envconfig:"APPSUMO_API_KEY"`
}

type SherlockConfig struct {
	WebhookSecret string        `envconfig:"OLLY_SHERLOCK_WEBHOOK_SECRET"`
	TaskTTL       time.Duration `envconfig:"OLLY_SHERLOCK_TASK_TTL" default:"24h"`
}

type DiscordConfig struct {
	AnalyticsWebhookURL string `envconfig:"OLLY_ANALYTICS_WEBHOOK"`
}

type CronConfig struct {
	Secret   string        `envconfig:"CRON_SECRET"`
	Interval time.Duration `envconfig:"OLLY_CRON_INTERVAL" default:"24h"`
	LockTTL  time.Duration `envconfig:"OLLY_CRON_LOCK_TTL" default:"25h"`
}

type UsageConfig struct {
	// TestingUserID is the fallback actor for tracking payloads that carry
	// neither a license key nor a user id.
	TestingUserID string `envconfig:"OLLY_USAGE_TESTING_USER_ID"`

	WebhookIdempotencyTTL time.Duration `envconfig:"OLLY_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
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
