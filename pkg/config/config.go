package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App      AppConfig
	Firebase FirebaseConfig
	Redis    RedisConfig
	Schedule ScheduleConfig
	CORS     CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Firebase.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SUBTRACK_APP_ENV" required:"true"`
	Port         string `envconfig:"SUBTRACK_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SUBTRACK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SUBTRACK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// FirebaseConfig locates the service account used for Firestore and
// token verification. Exactly one credential source is needed; when both are
// empty the SDK falls back to Application Default Credentials.
type FirebaseConfig struct {
	ProjectID             string `envconfig:"SUBTRACK_FIREBASE_PROJECT_ID" required:"true"`
	CredentialsFile       string `envconfig:"SUBTRACK_FIREBASE_CREDENTIALS_FILE"`
	CredentialsJSONBase64 string `envconfig:"SUBTRACK_FIREBASE_CREDENTIALS_JSON_BASE64"`
}

func (f FirebaseConfig) validate() error {
	if f.CredentialsFile != "" && f.CredentialsJSONBase64 != "" {
		return fmt.Errorf("firebase credentials file and inline json are mutually exclusive")
	}
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"SUBTRACK_REDIS_URL"`
	Address      string        `envconfig:"SUBTRACK_REDIS_ADDR"`
	Password     string        `envconfig:"SUBTRACK_REDIS_PASSWORD"`
	DB           int           `envconfig:"SUBTRACK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SUBTRACK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SUBTRACK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SUBTRACK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SUBTRACK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SUBTRACK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type ScheduleConfig struct {
	TrendMonths      int           `envconfig:"SUBTRACK_SCHEDULE_TREND_MONTHS" default:"6"`
	TrendMonthsMax   int           `envconfig:"SUBTRACK_SCHEDULE_TREND_MONTHS_MAX" default:"24"`
	SnapshotCacheTTL time.Duration `envconfig:"SUBTRACK_SCHEDULE_SNAPSHOT_TTL" default:"5m"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"SUBTRACK_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}
