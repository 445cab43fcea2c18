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
	Env          string `envconfig:"MES_APP_ENV" required:"true"`
	Port         string `envconfig:"MES_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MES_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MES_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MES_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MES_DB_DSN"`
	Driver string `envconfig:"MES_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MES_DB_HOST"`
	LegacyPort     int    `envconfig:"MES_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MES_DB_USER"`
	LegacyPassword string `envconfig:"MES_DB_PASSWORD"`
	LegacyName     string `envconfig:"MES_DB_NAME"`
	LegacySSLMode  string `envconfig:"MES_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MES_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MES_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MES_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MES_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MES_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MES_REDIS_ADDR"`
	Password     string        `envconfig:"MES_REDIS_PASSWORD"`
	DB           int           `envconfig:"MES_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MES_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MES_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MES_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MES_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MES_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MES_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MES_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"MES_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"MES_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"MES_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	ManufacturingTopic        string `envconfig:"MES_PUBSUB_MANUFACTURING_TOPIC" required:"true"`
	ManufacturingSubscription string `envconfig:"MES_PUBSUB_MANUFACTURING_SUBSCRIPTION" required:"true"`
	InventoryTopic            string `envconfig:"MES_PUBSUB_INVENTORY_TOPIC" required:"true"`
	InventorySubscription     string `envconfig:"MES_PUBSUB_INVENTORY_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"MES_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"MES_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"MES_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
