package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileEnv names the environment variable holding an optional YAML file.
const FileEnv = "SQUEEZE_CONFIG"

type Config struct {
	HTTPPort        string        `mapstructure:"http_port"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	MongoURI         string        `mapstructure:"mongo_uri"`
	MongoDBName      string        `mapstructure:"mongo_db_name"`
	MongoTimeout     time.Duration `mapstructure:"mongo_timeout"`
	MongoMaxPoolSize uint64        `mapstructure:"mongo_max_pool_size"`

	DBHost         string `mapstructure:"db_host"`
	DBPort         int    `mapstructure:"db_port"`
	DBUser         string `mapstructure:"db_user"`
	DBPassword     string `mapstructure:"db_password"`
	DBName         string `mapstructure:"db_name"`
	MigrationsPath string `mapstructure:"migrations_path"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`

	KafkaBrokers []string `mapstructure:"kafka_brokers"`

	LocalStorePath      string `mapstructure:"local_store_path"`
	LocalMigrationsPath string `mapstructure:"local_migrations_path"`

	QRImageEndpoint string `mapstructure:"qr_image_endpoint"`
	DeepLinkBase    string `mapstructure:"deep_link_base"`

	HostAuthURL     string        `mapstructure:"host_auth_url"`
	HostAuthTimeout time.Duration `mapstructure:"host_auth_timeout"`

	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	SessionCleanup time.Duration `mapstructure:"session_cleanup_interval"`

	BreakerFailures    uint32        `mapstructure:"breaker_failures"`
	BreakerOpenTimeout time.Duration `mapstructure:"breaker_open_timeout"`
}

var defaults = map[string]any{
	"http_port":                "8080",
	"request_timeout":          30 * time.Second,
	"shutdown_timeout":         10 * time.Second,
	"log_level":                "info",
	"log_format":               "json",
	"mongo_uri":                "",
	"mongo_db_name":            "squeeze",
	"mongo_timeout":            10 * time.Second,
	"mongo_max_pool_size":      20,
	"db_host":                  "",
	"db_port":                  5432,
	"db_user":                  "postgres",
	"db_password":              "postgres",
	"db_name":                  "ledger",
	"migrations_path":          "./internal/repository/migrations",
	"redis_addr":               "",
	"redis_password":           "",
	"kafka_brokers":            []string{},
	"local_store_path":         "./squeeze.db",
	"local_migrations_path":    "./internal/localstore/migrations",
	"qr_image_endpoint":        "https://api.qrserver.com/v1/create-qr-code/",
	"deep_link_base":           "lemoncash://app/mini-apps/webview/squeeze",
	"host_auth_url":            "",
	"host_auth_timeout":        15 * time.Second,
	"session_ttl":              30 * time.Minute,
	"session_cleanup_interval": time.Minute,
	"breaker_failures":         5,
	"breaker_open_timeout":     10 * time.Second,
}

// Load reads defaults, then the optional file named by SQUEEZE_CONFIG, then
// environment variables (HTTP_PORT, MONGO_URI, DB_HOST, ...).
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	if err := v.BindEnv("config_file", FileEnv); err != nil {
		return nil, err
	}

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.KafkaBrokers = splitList(cfg.KafkaBrokers)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return errors.New("http_port is required")
	}
	if c.RequestTimeout <= 0 || c.ShutdownTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	if c.SessionTTL <= 0 || c.SessionCleanup <= 0 {
		return errors.New("session ttl and cleanup interval must be positive")
	}
	return nil
}

// UsesMemoryStores reports whether no directory or ledger database is configured.
func (c *Config) UsesMemoryStores() bool {
	return c.MongoURI == "" || c.DBHost == ""
}

// KAFKA_BROKERS arrives as one comma separated string from the environment.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
