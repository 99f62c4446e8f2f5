package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// page view counting policies for the public blogs listing
const (
	PageViewPolicyEveryList = "every-list"
	PageViewPolicyOff       = "off"
)

type Config struct {
	Environment string
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	// logging
	LogLevel    string `toml:"log_level"`
	LogsPath    string `toml:"logs_path"`
	LogToStdout bool   `toml:"log_to_stdout"`
	// sentry
	SentryEnabled bool `toml:"sentry_enabled"`
	// mongo
	MongoHost   string `toml:"mongo_host"`
	MongoPort   string `toml:"mongo_port"`
	MongoDBName string `toml:"mongo_db_name"`
	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`
	// prometheus metrics server
	PrometheusMetricsHost string `toml:"prom_metrics_host"`
	PrometheusMetricsPort string `toml:"prom_metrics_port"`
	// abuse prevention on the token issuance endpoint
	TokenRateLimitAllowedPerMin int `toml:"token_rate_limit_allowed_per_min"`
	// PageViewPolicy controls whether the public listing bumps every
	// returned blog's page view counter ("every-list") or not ("off")
	PageViewPolicy string `toml:"page_view_policy"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

func Load(env, path string) (*Config, error) {
	var tomlFile Toml
	if _, err := toml.DecodeFile(path, &tomlFile); err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}

	cfg, err := tomlFile.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("config for env %s empty", env)
	}

	cfg.Environment = env

	if cfg.PageViewPolicy == "" {
		cfg.PageViewPolicy = PageViewPolicyEveryList
	}
	switch cfg.PageViewPolicy {
	case PageViewPolicyEveryList, PageViewPolicyOff:
	default:
		return nil, fmt.Errorf("unknown page view policy: %s", cfg.PageViewPolicy)
	}

	return cfg, nil
}
