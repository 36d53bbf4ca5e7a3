package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration, read from configs/config.yml
// and overridable through env vars (influx.token -> INFLUX_TOKEN).
type Config struct {
	Port        string      `mapstructure:"port"`
	Log         Log         `mapstructure:"log"`
	DB          DB          `mapstructure:"db"`
	Influx      Influx      `mapstructure:"influx"`
	Kafka       Kafka       `mapstructure:"kafka"`
	Directory   Directory   `mapstructure:"directory"`
	Redis       Redis       `mapstructure:"redis"`
	Aggregation Aggregation `mapstructure:"aggregation"`
	Usage       Usage       `mapstructure:"usage"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DB struct {
	Path string `mapstructure:"path"`
}

type Influx struct {
	URL         string        `mapstructure:"url"`
	Token       string        `mapstructure:"token"`
	Org         string        `mapstructure:"org"`
	Bucket      string        `mapstructure:"bucket"`
	Measurement string        `mapstructure:"measurement"`
	Field       string        `mapstructure:"field"`
	Timeout     time.Duration `mapstructure:"timeout"`
	// MaxFilterDevices caps the device-id disjunction of a single query.
	MaxFilterDevices int `mapstructure:"max_filter_devices"`
}

type Kafka struct {
	Brokers        []string      `mapstructure:"brokers"`
	UsageTopic     string        `mapstructure:"usage_topic"`
	AlertTopic     string        `mapstructure:"alert_topic"`
	GroupID        string        `mapstructure:"group_id"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

type Directory struct {
	DeviceURL          string        `mapstructure:"device_url"`
	UserURL            string        `mapstructure:"user_url"`
	Timeout            time.Duration `mapstructure:"timeout"`
	BreakerMaxFailures int           `mapstructure:"breaker_max_failures"`
	BreakerReset       time.Duration `mapstructure:"breaker_reset"`
}

// Redis is optional; an empty Addr disables the directory cache.
type Redis struct {
	Addr string        `mapstructure:"addr"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type Aggregation struct {
	Interval time.Duration `mapstructure:"interval"`
	Window   time.Duration `mapstructure:"window"`
}

type Usage struct {
	DefaultDays int `mapstructure:"default_days"`
	MaxDays     int `mapstructure:"max_days"`
}

var defaults = map[string]any{
	"port":                           "8080",
	"log.level":                      "info",
	"log.format":                     "console",
	"db.path":                        "usage.db",
	"influx.url":                     "http://localhost:8086",
	"influx.token":                   "",
	"influx.org":                     "energy",
	"influx.bucket":                  "energy-usage",
	"influx.measurement":             "energy_usage",
	"influx.field":                   "energyUsage",
	"influx.timeout":                 "5s",
	"influx.max_filter_devices":      50,
	"kafka.brokers":                  []string{"localhost:9092"},
	"kafka.usage_topic":              "energy-usage",
	"kafka.alert_topic":              "energy-alerts",
	"kafka.group_id":                 "usage-service",
	"kafka.publish_timeout":          "5s",
	"directory.device_url":           "http://localhost:8081",
	"directory.user_url":             "http://localhost:8082",
	"directory.timeout":              "3s",
	"directory.breaker_max_failures": 5,
	"directory.breaker_reset":        "30s",
	"redis.addr":                     "",
	"redis.ttl":                      "30s",
	"aggregation.interval":           "10s",
	"aggregation.window":             "1h",
	"usage.default_days":             3,
	"usage.max_days":                 365,
}

// Load reads config.yml from the given directories. A missing file is not an
// error: defaults and env vars still apply.
func Load(paths ...string) (Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Aggregation.Interval <= 0:
		return errors.New("aggregation.interval must be > 0")
	case c.Aggregation.Window <= 0:
		return errors.New("aggregation.window must be > 0")
	case c.Influx.Timeout <= 0:
		return errors.New("influx.timeout must be > 0")
	case c.Influx.MaxFilterDevices < 1:
		return errors.New("influx.max_filter_devices must be >= 1")
	case c.Directory.Timeout <= 0:
		return errors.New("directory.timeout must be > 0")
	case c.Directory.BreakerMaxFailures < 1:
		return errors.New("directory.breaker_max_failures must be >= 1")
	case c.Kafka.PublishTimeout <= 0:
		return errors.New("kafka.publish_timeout must be > 0")
	case len(c.Kafka.Brokers) == 0:
		return errors.New("kafka.brokers must not be empty")
	case c.Usage.DefaultDays < 1 || c.Usage.MaxDays < c.Usage.DefaultDays:
		return errors.New("usage.default_days must be >= 1 and <= usage.max_days")
	}
	return nil
}
