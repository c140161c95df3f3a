package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete worker configuration.
type Config struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Chart    ChartSettings  `mapstructure:"chart"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DB       string `mapstructure:"db"`
	URL      string `mapstructure:"url"` // used when DB is empty
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type WorkerConfig struct {
	Queue       string        `mapstructure:"queue"`
	Classes     []string      `mapstructure:"classes"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console or json
}

// ChartSettings are the user-tunable parts of ChartConfig.
type ChartSettings struct {
	Width         int `mapstructure:"width"`
	Height        int `mapstructure:"height"`
	HistogramBins int `mapstructure:"histogram_bins"`
}

// env names predate the config file and are kept as-is.
var envBindings = map[string]string{
	"postgres.host":        "POSTGRES_HOST",
	"postgres.port":        "POSTGRES_PORT",
	"postgres.user":        "POSTGRES_USER",
	"postgres.password":    "POSTGRES_PASSWORD",
	"postgres.db":          "POSTGRES_DB",
	"postgres.url":         "DATABASE_URL",
	"redis.url":            "REDIS_URL",
	"worker.queue":         "WORKER_QUEUE",
	"worker.classes":       "WORKER_CLASSES",
	"worker.poll_timeout":  "WORKER_POLL_TIMEOUT",
	"http.addr":            "HTTP_ADDR",
	"logging.level":        "LOG_LEVEL",
	"logging.format":       "LOG_FORMAT",
	"chart.width":          "CHART_WIDTH",
	"chart.height":         "CHART_HEIGHT",
	"chart.histogram_bins": "CHART_HISTOGRAM_BINS",
}

// loadConfig reads defaults, the optional config file and the environment.
func loadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Worker.Classes = splitClasses(cfg.Worker.Classes)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("worker.queue", "default")
	v.SetDefault("worker.classes", []string{"RubyWorker", "GoWorker"})
	v.SetDefault("worker.poll_timeout", "5s")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("chart.width", defaultWidth)
	v.SetDefault("chart.height", defaultHeight)
	v.SetDefault("chart.histogram_bins", defaultHistogramBins)
}

// splitClasses accepts both a YAML list and a comma separated env value.
func splitClasses(in []string) []string {
	var out []string
	for _, c := range in {
		for _, part := range strings.Split(c, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (c *Config) Validate() error {
	if c.Worker.Queue == "" {
		return fmt.Errorf("worker.queue must not be empty")
	}
	if c.Worker.PollTimeout < time.Second {
		return fmt.Errorf("worker.poll_timeout must be at least 1s, got %s", c.Worker.PollTimeout)
	}
	if c.Chart.Width <= 0 || c.Chart.Height <= 0 {
		return fmt.Errorf("chart dimensions must be positive, got %dx%d", c.Chart.Width, c.Chart.Height)
	}
	if c.Chart.HistogramBins < 1 {
		return fmt.Errorf("chart.histogram_bins must be at least 1")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown logging.format %q", c.Logging.Format)
	}
	return nil
}

// ChartConfig derives the immutable chart configuration from the settings.
func (c *Config) ChartConfig() ChartConfig {
	cfg := DefaultChartConfig().WithDimensions(c.Chart.Width, c.Chart.Height)
	cfg.HistogramBins = c.Chart.HistogramBins
	return cfg
}
