package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// LoadAppConfig loads and validates the application configuration. An
// empty path falls back to config.yml in the working directory.
func LoadAppConfig(path string) (AppConfig, error) {
	var cfg AppConfig
	paths := []string{path}
	if path == "" {
		paths = []string{"config.yml", "./config/config.yml"}
	}
	var data []byte
	var err error
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	v := validator.New()
	if err := v.Struct(cfg.Server); err != nil {
		return cfg, err
	}
	if err := v.Struct(cfg.Store); err != nil {
		return cfg, err
	}
	// subscriptions and push consumers are optional; if present validate each
	for _, s := range cfg.Subscriptions {
		if err := v.Struct(s); err != nil {
			return cfg, err
		}
	}
	for _, p := range cfg.PushConsumers {
		if err := v.Struct(p); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 16181
	}
	if cfg.Server.Environment == "" {
		cfg.Server.Environment = "dev"
	}
	if cfg.Store.TrackingPeriodMinutes == 0 {
		cfg.Store.TrackingPeriodMinutes = 10
	}
	if cfg.Store.CleanupIntervalSeconds == 0 {
		cfg.Store.CleanupIntervalSeconds = 60
	}
	if cfg.Store.SweepIntervalSeconds == 0 {
		cfg.Store.SweepIntervalSeconds = 30
	}
	if cfg.Store.ETGraceSeconds == 0 {
		cfg.Store.ETGraceSeconds = 5 * 60
	}
	if cfg.Monitor.IntervalSeconds == 0 {
		cfg.Monitor.IntervalSeconds = 30
	}
	if cfg.NATS.BucketPrefix == "" {
		cfg.NATS.BucketPrefix = "siri-hub"
	}
}
