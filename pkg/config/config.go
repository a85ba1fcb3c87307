package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable the platform reads.
	EnvPrefix = "givefolio"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "GIVEFOLIO_DB_DSN"
	EnvDBHost = "GIVEFOLIO_DB_HOST"
	EnvDBUser = "GIVEFOLIO_DB_USER"
	EnvDBName = "GIVEFOLIO_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Charity       CharityConfig
	Matcher       MatcherConfig
	Quotes        QuotesConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Charity.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GIVEFOLIO_APP_ENV" required:"true"`
	Port         string `envconfig:"GIVEFOLIO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GIVEFOLIO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GIVEFOLIO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"GIVEFOLIO_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"GIVEFOLIO_DB_DSN"`
	Driver string `envconfig:"GIVEFOLIO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GIVEFOLIO_DB_HOST"`
	LegacyPort     int    `envconfig:"GIVEFOLIO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GIVEFOLIO_DB_USER"`
	LegacyPassword string `envconfig:"GIVEFOLIO_DB_PASSWORD"`
	LegacyName     string `envconfig:"GIVEFOLIO_DB_NAME"`
	LegacySSLMode  string `envconfig:"GIVEFOLIO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GIVEFOLIO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GIVEFOLIO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GIVEFOLIO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GIVEFOLIO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GIVEFOLIO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GIVEFOLIO_REDIS_ADDR"`
	Password     string        `envconfig:"GIVEFOLIO_REDIS_PASSWORD"`
	DB           int           `envconfig:"GIVEFOLIO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GIVEFOLIO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GIVEFOLIO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GIVEFOLIO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GIVEFOLIO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GIVEFOLIO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"GIVEFOLIO_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"GIVEFOLIO_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"GIVEFOLIO_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"GIVEFOLIO_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"GIVEFOLIO_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"GIVEFOLIO_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"GIVEFOLIO_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"GIVEFOLIO_ARGON_KEY_LEN" default:"32"`
}

// AuthRateLimitConfig throttles the credential endpoints per client IP.
// A zero window or limit disables throttling.
type AuthRateLimitConfig struct {
	Window  time.Duration `envconfig:"GIVEFOLIO_AUTH_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit int           `envconfig:"GIVEFOLIO_AUTH_RATE_LIMIT_IP" default:"20"`
}

// CharityConfig carries the single canonical charity floor for the platform.
// Registration, preference updates, and allocation all read this value;
// nothing else may define its own minimum.
type CharityConfig struct {
	FloorPercentage   float64 `envconfig:"GIVEFOLIO_CHARITY_FLOOR_PERCENTAGE" default:"10"`
	DefaultPercentage float64 `envconfig:"GIVEFOLIO_CHARITY_DEFAULT_PERCENTAGE" default:"10"`
}

func (c CharityConfig) validate() error {
	if c.FloorPercentage <= 0 || c.FloorPercentage > 100 {
		return fmt.Errorf("charity floor percentage must be in (0, 100], got %v", c.FloorPercentage)
	}
	if c.DefaultPercentage < c.FloorPercentage {
		return fmt.Errorf("charity default percentage %v is below the floor %v", c.DefaultPercentage, c.FloorPercentage)
	}
	return nil
}

type MatcherConfig struct {
	Interval time.Duration `envconfig:"GIVEFOLIO_MATCHER_INTERVAL" default:"60s"`
	LockTTL  time.Duration `envconfig:"GIVEFOLIO_MATCHER_LOCK_TTL" default:"55s"`
}

type QuotesConfig struct {
	BaseURL     string        `envconfig:"GIVEFOLIO_QUOTES_BASE_URL"`
	APIKey      string        `envconfig:"GIVEFOLIO_QUOTES_API_KEY"`
	HTTPTimeout time.Duration `envconfig:"GIVEFOLIO_QUOTES_HTTP_TIMEOUT" default:"10s"`
	CacheTTL    time.Duration `envconfig:"GIVEFOLIO_QUOTES_CACHE_TTL" default:"60s"`
	MaxRetries  int           `envconfig:"GIVEFOLIO_QUOTES_MAX_RETRIES" default:"3"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"GIVEFOLIO_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"GIVEFOLIO_GCP_CREDENTIALS_JSON"`
}

// PubSubConfig names the optional transparency-log topic. An empty topic is a
// valid configuration; allocations then run with the no-op logger.
type PubSubConfig struct {
	TransparencyTopic        string `envconfig:"GIVEFOLIO_PUBSUB_TRANSPARENCY_TOPIC"`
	TransparencySubscription string `envconfig:"GIVEFOLIO_PUBSUB_TRANSPARENCY_SUBSCRIPTION"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"GIVEFOLIO_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"GIVEFOLIO_AUTO_MIGRATE" default:"false"`
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
