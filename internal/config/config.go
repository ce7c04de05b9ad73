// Package config loads lane configuration from the environment, read once at
// startup.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// APIEndpoint is the base location of the remote POS API.
	APIEndpoint string `env:"POS_API_ENDPOINT,notEmpty"`

	// StorePath is the embedded store holding the session and receipt journal.
	StorePath string `env:"POS_STORE_PATH" envDefault:"poslane.db"`

	// RedisAddr enables the product lookup cache; empty disables it.
	RedisAddr string `env:"POS_REDIS_ADDR"`

	// CameraURL is the MJPEG stream of the lane camera; empty disables
	// barcode scanning (manual code entry still works).
	CameraURL string `env:"POS_CAMERA_URL"`

	HTTPTimeout time.Duration `env:"POS_HTTP_TIMEOUT" envDefault:"10s"`
	LogLevel    string        `env:"POS_LOG_LEVEL" envDefault:"info"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.APIEndpoint = strings.TrimRight(strings.TrimSpace(cfg.APIEndpoint), "/")
	return cfg, nil
}
