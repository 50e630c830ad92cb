package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/telemetry-dashboard/board/counter"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// Persistence drivers
const (
	DriverNone  = "none"
	DriverFile  = "file"
	DriverRedis = "redis"
)

// Config is one dashboard profile
type Config struct {
	Name        string      `yaml:"name" json:"name"`
	Description string      `yaml:"description,omitempty" json:"description,omitempty"`
	Listen      string      `yaml:"listen" json:"listen"`
	Endpoint    string      `yaml:"endpoint" json:"endpoint"`
	Metrics     []string    `yaml:"metrics" json:"metrics"`
	Persistence Persistence `yaml:"persistence" json:"persistence"`
	Kafka       Kafka       `yaml:"kafka" json:"kafka"`
	Ngrok       Ngrok       `yaml:"ngrok" json:"ngrok"`
	Debug       bool        `yaml:"debug" json:"debug"`
}

// Persistence selects where snapshots are kept
type Persistence struct {
	Driver    string `yaml:"driver" json:"driver"`
	Dir       string `yaml:"dir,omitempty" json:"dir,omitempty"`
	RedisAddr string `yaml:"redis_addr,omitempty" json:"redis_addr,omitempty"`
	RedisKey  string `yaml:"redis_key,omitempty" json:"redis_key,omitempty"`
}

// Kafka configures the event consumer. No brokers disables it.
type Kafka struct {
	Brokers []string `yaml:"brokers,omitempty" json:"brokers,omitempty"`
	Topic   string   `yaml:"topic,omitempty" json:"topic,omitempty"`
	GroupID string   `yaml:"group_id,omitempty" json:"group_id,omitempty"`
}

// Enabled reports whether a consumer should be started.
func (k Kafka) Enabled() bool {
	return len(k.Brokers) > 0
}

type Ngrok struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	AuthToken string `yaml:"authtoken,omitempty" json:"-"`
	Domain    string `yaml:"domain,omitempty" json:"domain,omitempty"`
}

// Default returns the built-in profile
func Default() *Config {
	return &Config{
		Name:        "default",
		Description: "Orders, customers and products on a local server",
		Listen:      ":8082",
		Endpoint:    "ws://localhost:8082/dashboard",
		Metrics:     counter.DefaultMetrics(),
		Persistence: Persistence{Driver: DriverNone, Dir: "./data"},
		Kafka:       Kafka{Topic: "dashboard-events", GroupID: "telemetry-dashboard"},
	}
}

// Load reads a YAML profile on top of Default and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of Default and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the profile and returns every problem found.
func (c *Config) Validate() error {
	var problems []string

	if len(c.Metrics) == 0 {
		problems = append(problems, "at least one metric is required")
	}
	seen := make(map[string]bool, len(c.Metrics))
	for _, m := range c.Metrics {
		m = strings.TrimSpace(m)
		if m == "" {
			problems = append(problems, "metric names cannot be empty")
			continue
		}
		if seen[m] {
			problems = append(problems, fmt.Sprintf("duplicate metric %q", m))
		}
		seen[m] = true
	}

	if c.Endpoint != "" {
		u, err := url.Parse(c.Endpoint)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
			problems = append(problems, fmt.Sprintf("endpoint %q must be a ws:// or wss:// URL", c.Endpoint))
		}
	}

	switch c.Persistence.Driver {
	case "", DriverNone:
	case DriverFile:
		if c.Persistence.Dir == "" {
			problems = append(problems, "persistence.dir is required for the file driver")
		}
	case DriverRedis:
		if c.Persistence.RedisAddr == "" {
			problems = append(problems, "persistence.redis_addr is required for the redis driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown persistence driver %q", c.Persistence.Driver))
	}

	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		problems = append(problems, "kafka.topic is required when brokers are set")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// LoadEnv loads .env style files into the process environment. Missing
// files are skipped and existing variables are never overwritten.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}
