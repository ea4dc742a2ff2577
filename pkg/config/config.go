package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Board        BoardConfig
	Intake       IntakeConfig
	DB           DBConfig
	Redis        RedisConfig
	NATS         NATSConfig
	RateLimit    RateLimitConfig
	Journal      JournalConfig
	Metrics      MetricsConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if err := c.Board.validate(); err != nil {
		return err
	}
	if err := c.Intake.validate(); err != nil {
		return err
	}
	return c.DB.validate()
}

type AppConfig struct {
	Env          string `envconfig:"KDS_APP_ENV" required:"true"`
	Port         string `envconfig:"KDS_APP_PORT" default:"8080"`
	LocationID   string `envconfig:"KDS_LOCATION_ID" default:"default"`
	LogLevel     string `envconfig:"KDS_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"KDS_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"KDS_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"KDS_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// BoardConfig tunes the in-memory coordination engine.
type BoardConfig struct {
	Stations              []string      `envconfig:"KDS_BOARD_STATIONS" default:"kitchen,bar,dessert"`
	TickInterval          time.Duration `envconfig:"KDS_BOARD_TICK_INTERVAL" default:"1s"`
	BatchThreshold        int           `envconfig:"KDS_BOARD_BATCH_THRESHOLD" default:"3"`
	RecallCapacity        int           `envconfig:"KDS_BOARD_RECALL_CAPACITY" default:"10"`
	ModificationHighlight time.Duration `envconfig:"KDS_BOARD_MODIFICATION_HIGHLIGHT" default:"30s"`
	MessageHistory        int           `envconfig:"KDS_BOARD_MESSAGE_HISTORY" default:"200"`
	RefreshInterval       time.Duration `envconfig:"KDS_BOARD_REFRESH_INTERVAL" default:"30s"`
	SimulationInterval    time.Duration `envconfig:"KDS_BOARD_SIMULATION_INTERVAL" default:"45s"`
}

func (b BoardConfig) validate() error {
	durations := map[string]time.Duration{
		"KDS_BOARD_TICK_INTERVAL":          b.TickInterval,
		"KDS_BOARD_MODIFICATION_HIGHLIGHT": b.ModificationHighlight,
		"KDS_BOARD_REFRESH_INTERVAL":       b.RefreshInterval,
		"KDS_BOARD_SIMULATION_INTERVAL":    b.SimulationInterval,
	}
	for env, value := range durations {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", env)
		}
	}
	if b.BatchThreshold < 1 {
		return fmt.Errorf("%s must be at least 1", EnvBoardBatchThreshold)
	}
	if b.RecallCapacity < 1 {
		return fmt.Errorf("KDS_BOARD_RECALL_CAPACITY must be at least 1")
	}
	return nil
}

type IntakeConfig struct {
	Mode    string        `envconfig:"KDS_INTAKE_MODE" default:"demo"`
	BaseURL string        `envconfig:"KDS_INTAKE_BASE_URL"`
	APIKey  string        `envconfig:"KDS_INTAKE_API_KEY"`
	Timeout time.Duration `envconfig:"KDS_INTAKE_TIMEOUT" default:"5s"`
}

func (i *IntakeConfig) validate() error {
	i.Mode = strings.ToLower(strings.TrimSpace(i.Mode))
	switch i.Mode {
	case IntakeModeDemo, IntakeModeNone:
		return nil
	case IntakeModeHTTP:
		if strings.TrimSpace(i.BaseURL) == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvIntakeBaseURL, EnvIntakeMode, IntakeModeHTTP)
		}
		return nil
	default:
		return fmt.Errorf("invalid %s %q", EnvIntakeMode, i.Mode)
	}
}

// DBConfig is optional; an empty DSN disables the ticket journal.
type DBConfig struct {
	DSN    string `envconfig:"KDS_DB_DSN"`
	Driver string `envconfig:"KDS_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"KDS_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"KDS_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"KDS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KDS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"KDS_DB_SLOW_QUERY" default:"200ms"`
}

func (db DBConfig) Enabled() bool {
	return strings.TrimSpace(db.DSN) != ""
}

func (db *DBConfig) validate() error {
	db.Driver = strings.ToLower(strings.TrimSpace(db.Driver))
	switch db.Driver {
	case DBDriverPostgres, DBDriverSQLite:
		return nil
	default:
		return fmt.Errorf("invalid %s %q", EnvDBDriver, db.Driver)
	}
}

// RedisConfig is optional; an empty URL and address disables idempotency and locking.
type RedisConfig struct {
	URL          string        `envconfig:"KDS_REDIS_URL"`
	Address      string        `envconfig:"KDS_REDIS_ADDR"`
	Password     string        `envconfig:"KDS_REDIS_PASSWORD"`
	DB           int           `envconfig:"KDS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KDS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KDS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KDS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KDS_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"KDS_REDIS_WRITE_TIMEOUT" default:"3s"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type NATSConfig struct {
	URL           string        `envconfig:"KDS_NATS_URL"`
	SubjectPrefix string        `envconfig:"KDS_NATS_SUBJECT_PREFIX" default:"kds"`
	ClientName    string        `envconfig:"KDS_NATS_CLIENT_NAME" default:"kds-board"`
	ReconnectWait time.Duration `envconfig:"KDS_NATS_RECONNECT_WAIT" default:"2s"`
}

func (n NATSConfig) Enabled() bool {
	return strings.TrimSpace(n.URL) != ""
}

// RateLimitConfig throttles message sends when Redis is configured. A zero limit disables
// that counter.
type RateLimitConfig struct {
	MessageWindow       time.Duration `envconfig:"KDS_RATE_LIMIT_MESSAGE_WINDOW" default:"1m"`
	MessageIPLimit      int           `envconfig:"KDS_RATE_LIMIT_MESSAGE_IP" default:"120"`
	MessageStationLimit int           `envconfig:"KDS_RATE_LIMIT_MESSAGE_STATION" default:"30"`
}

type JournalConfig struct {
	QueueSize     int `envconfig:"KDS_JOURNAL_QUEUE_SIZE" default:"256"`
	RetentionDays int `envconfig:"KDS_JOURNAL_RETENTION_DAYS" default:"30"`
}

type MetricsConfig struct {
	Enabled bool `envconfig:"KDS_METRICS_ENABLED" default:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate           bool `envconfig:"KDS_AUTO_MIGRATE" default:"false"`
	SimulateModifications bool `envconfig:"KDS_SIMULATE_MODIFICATIONS" default:"false"`
}
