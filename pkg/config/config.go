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
	OTP          OTPConfig
	Purchase     PurchaseConfig
	SMS          SMSConfig
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
	Env          string `envconfig:"BULLION_APP_ENV" required:"true"`
	Port         string `envconfig:"BULLION_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BULLION_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BULLION_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BULLION_DB_DSN"`
	Driver string `envconfig:"BULLION_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BULLION_DB_HOST"`
	LegacyPort     int    `envconfig:"BULLION_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BULLION_DB_USER"`
	LegacyPassword string `envconfig:"BULLION_DB_PASSWORD"`
	LegacyName     string `envconfig:"BULLION_DB_NAME"`
	LegacySSLMode  string `envconfig:"BULLION_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BULLION_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BULLION_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BULLION_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BULLION_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BULLION_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BULLION_REDIS_ADDR"`
	Password     string        `envconfig:"BULLION_REDIS_PASSWORD"`
	DB           int           `envconfig:"BULLION_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BULLION_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BULLION_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BULLION_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BULLION_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BULLION_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BULLION_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BULLION_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BULLION_JWT_EXPIRATION_MINUTES" required:"true"`
}

type OTPConfig struct {
	Expiry      time.Duration `envconfig:"BULLION_OTP_EXPIRY" default:"5m"`
	Cooldown    time.Duration `envconfig:"BULLION_OTP_COOLDOWN" default:"60s"`
	MaxAttempts int           `envconfig:"BULLION_OTP_MAX_ATTEMPTS" default:"5"`

	// Window throttle over and above the per-challenge cooldown.
	RequestWindow time.Duration `envconfig:"BULLION_OTP_REQUEST_WINDOW" default:"10m"`
	RequestLimit  int64         `envconfig:"BULLION_OTP_REQUEST_LIMIT" default:"5"`

	ArgonMemoryKB    int `envconfig:"BULLION_OTP_ARGON_MEMORY_KB" default:"16384"`
	ArgonTime        int `envconfig:"BULLION_OTP_ARGON_TIME" default:"2"`
	ArgonParallelism int `envconfig:"BULLION_OTP_ARGON_PARALLELISM" default:"1"`
	ArgonSaltLen     int `envconfig:"BULLION_OTP_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BULLION_OTP_ARGON_KEY_LEN" default:"32"`
}

type PurchaseConfig struct {
	PreviewWindow time.Duration `envconfig:"BULLION_PURCHASE_PREVIEW_WINDOW" default:"5m"`
}

type SMSConfig struct {
	BaseURL    string        `envconfig:"BULLION_SMS_BASE_URL"`
	APIKey     string        `envconfig:"BULLION_SMS_API_KEY"`
	SenderID   string        `envconfig:"BULLION_SMS_SENDER_ID" default:"BULLION"`
	HTTPTimout time.Duration `envconfig:"BULLION_SMS_HTTP_TIMEOUT" default:"10s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BULLION_AUTO_MIGRATE" default:"false"`
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
