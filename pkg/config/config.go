package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"AgriPrice/pkg/logger"
)

const envPrefix = "AGRI_"

type Config struct {
	Environment string           `yaml:"environment" default:"development"`
	Server      ServerConfig     `yaml:"server"`
	Logger      logger.Config    `yaml:"logger"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Dataset     DatasetConfig    `yaml:"dataset"`
	LLM         LLMConfig        `yaml:"llm"`
	Cache       CacheConfig      `yaml:"cache"`
	Redis       RedisConfig      `yaml:"redis"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	RateLimit   RateLimitConfig  `yaml:"ratelimit"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" default:"8080" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	AdminToken      string        `yaml:"admin_token"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

// DatasetConfig selects where rows come from and how often they are reloaded.
type DatasetConfig struct {
	Source       string        `yaml:"source" default:"file" validate:"oneof=file http sqlite clickhouse"`
	Path         string        `yaml:"path"`
	Sheet        string        `yaml:"sheet"`
	Encoding     string        `yaml:"encoding" default:"auto" validate:"oneof=auto utf-8 cp949"`
	URL          string        `yaml:"url"`
	DSN          string        `yaml:"dsn"`
	Table        string        `yaml:"table" default:"market_prices"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" default:"30s"`
	RefreshCron  string        `yaml:"refresh_cron"`
}

type LLMConfig struct {
	Enabled     bool          `yaml:"enabled"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model" default:"gemini-2.0-flash"`
	Timeout     time.Duration `yaml:"timeout" default:"20s"`
	Attempts    int           `yaml:"attempts" default:"2" validate:"min=1,max=5"`
	Temperature float32       `yaml:"temperature" default:"0.1"`
	Narrate     bool          `yaml:"narrate" default:"true"`
}

type CacheConfig struct {
	Backend       string        `yaml:"backend" default:"memory" validate:"oneof=memory redis layered none"`
	TTL           time.Duration `yaml:"ttl" default:"10m"`
	MemoryMaxSize int           `yaml:"memory_max_size" default:"2048"`
	Prefix        string        `yaml:"prefix" default:"agri:"`
}

type RedisConfig struct {
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size" default:"10"`
}

type KafkaConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Brokers      []string `yaml:"brokers"`
	AuditTopic   string   `yaml:"audit_topic" default:"agri.queries"`
	RefreshTopic string   `yaml:"refresh_topic" default:"agri.refresh"`
	LogsTopic    string   `yaml:"logs_topic" default:"agri.logs"`
	GroupID      string   `yaml:"group_id" default:"agriprice"`
	Compression  string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
	Workers      int      `yaml:"workers" default:"1"`
	RetryMax     int      `yaml:"retry_max" default:"3"`
	DLQTopic     string   `yaml:"dlq_topic"`
}

type ClickHouseConfig struct {
	Host        string        `yaml:"host" default:"localhost"`
	Port        int           `yaml:"port" default:"9000"`
	Database    string        `yaml:"database" default:"agri"`
	User        string        `yaml:"user" default:"default"`
	Password    string        `yaml:"password"`
	UseHTTP     bool          `yaml:"use_http"`
	DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout time.Duration `yaml:"read_timeout" default:"30s"`
}

type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" default:"true"`
	RPS     float64 `yaml:"rps" default:"5"`
	Burst   int     `yaml:"burst" default:"10"`
}

// Load reads a YAML file on top of the tag defaults.
// An empty path yields a defaults-only config.
func Load(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads .env (if any), the YAML file, then applies AGRI_* overrides.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func read(path string) (*Config, error) {
	c := &Config{}
	if err := defaults.Set(c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if path == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(envPrefix + key); ok && v != "" {
			*dst = splitList(v)
		}
	}
	var errs []error
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(envPrefix + key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(envPrefix + key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = n
		}
	}

	str("ENV", &c.Environment)
	integer("PORT", &c.Server.Port)
	str("ADMIN_TOKEN", &c.Server.AdminToken)
	str("LOG_LEVEL", &c.Logger.Level)
	str("LOG_FORMAT", &c.Logger.Format)

	str("DATASET_SOURCE", &c.Dataset.Source)
	str("DATASET_PATH", &c.Dataset.Path)
	str("DATASET_URL", &c.Dataset.URL)
	str("DATASET_DSN", &c.Dataset.DSN)
	str("DATASET_REFRESH_CRON", &c.Dataset.RefreshCron)

	boolean("LLM_ENABLED", &c.LLM.Enabled)
	str("LLM_MODEL", &c.LLM.Model)
	str("GEMINI_API_KEY", &c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if v, ok := lookup("GEMINI_API_KEY"); ok {
			c.LLM.APIKey = v
		}
	}

	str("CACHE_BACKEND", &c.Cache.Backend)
	str("REDIS_HOST", &c.Redis.Host)
	integer("REDIS_PORT", &c.Redis.Port)
	str("REDIS_PASSWORD", &c.Redis.Password)

	boolean("KAFKA_ENABLED", &c.Kafka.Enabled)
	list("KAFKA_BROKERS", &c.Kafka.Brokers)

	str("CLICKHOUSE_HOST", &c.ClickHouse.Host)
	str("CLICKHOUSE_PASSWORD", &c.ClickHouse.Password)

	return errors.Join(errs...)
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var validate = validator.New()

// Validate checks field tags and cross-field requirements.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	switch c.Dataset.Source {
	case "file":
		if c.Dataset.Path == "" {
			return fmt.Errorf("dataset.path is required for source 'file'")
		}
	case "http":
		if c.Dataset.URL == "" {
			return fmt.Errorf("dataset.url is required for source 'http'")
		}
	case "sqlite":
		if c.Dataset.DSN == "" && c.Dataset.Path == "" {
			return fmt.Errorf("dataset.dsn or dataset.path is required for source 'sqlite'")
		}
	}
	if c.LLM.Enabled && c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required when llm.enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka.enabled")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("ratelimit.rps and ratelimit.burst must be positive")
	}
	return nil
}
