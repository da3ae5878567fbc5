package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	ServiceName = "storefront"
	envPrefix   = "storefront"
)

type Config struct {
	DatabaseURL     string        `envconfig:"database_url" required:"true"`
	HTTPAddr        string        `envconfig:"http_addr" default:":8082"`
	LogLevel        string        `envconfig:"log_level" default:"info"`
	DBMaxOpenConns  int           `envconfig:"db_max_open_conns" default:"10"`
	DBMaxIdleConns  int           `envconfig:"db_max_idle_conns" default:"2"`
	RequestTimeout  time.Duration `envconfig:"request_timeout" default:"5s"`
	ShutdownTimeout time.Duration `envconfig:"shutdown_timeout" default:"10s"`
}

// Load reads STOREFRONT_* environment variables.
func Load() (*Config, error) {
	c := &Config{}
	if err := envconfig.Process(envPrefix, c); err != nil {
		return nil, errors.Wrap(err, "failed to parse env")
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return nil, errors.New("database_url must be set")
	}
	if c.DBMaxOpenConns <= 0 {
		return nil, errors.New("db_max_open_conns must be > 0")
	}
	if c.DBMaxIdleConns < 0 || c.DBMaxIdleConns > c.DBMaxOpenConns {
		return nil, errors.New("db_max_idle_conns must be between 0 and db_max_open_conns")
	}
	if c.RequestTimeout <= 0 {
		return nil, errors.New("request_timeout must be > 0")
	}
	return c, nil
}

// Logger builds the process logger: JSON lines at the configured level.
func (c *Config) Logger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, errors.Wrapf(err, "log level %q", c.LogLevel)
	}
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(level)
	return l, nil
}
