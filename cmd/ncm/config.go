package main

import (
	"fmt"
	"os"
	"time"

	"github.com/netcloudops/ncm-client/pkg/auth"
	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML configuration file the CLI accepts via --config.
// Every field is optional; environment variables fill the gaps and explicit
// file values win.
type fileConfig struct {
	LogLevel string `yaml:"log_level"`
	Pretty   bool   `yaml:"pretty"`

	API struct {
		CPAPIKeyID  string `yaml:"cp_api_id"`
		CPAPIKey    string `yaml:"cp_api_key"`
		ECMAPIKeyID string `yaml:"ecm_api_id"`
		ECMAPIKey   string `yaml:"ecm_api_key"`
		Token       string `yaml:"token"`
	} `yaml:"api"`

	BaseURLV2 string `yaml:"base_url_v2"`
	BaseURLV3 string `yaml:"base_url_v3"`

	RedisAddr   string        `yaml:"redis_addr"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
	MinInterval time.Duration `yaml:"min_interval"`
}

// loadFileConfig parses path, or returns a zero config when path is empty.
func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// credentials merges file values over environment values.
func (c fileConfig) credentials() auth.Credentials {
	creds := auth.FromEnv()
	if c.API.CPAPIKeyID != "" {
		creds.APIID = c.API.CPAPIKeyID
	}
	if c.API.CPAPIKey != "" {
		creds.APIKey = c.API.CPAPIKey
	}
	if c.API.ECMAPIKeyID != "" {
		creds.ECMID = c.API.ECMAPIKeyID
	}
	if c.API.ECMAPIKey != "" {
		creds.ECMKey = c.API.ECMAPIKey
	}
	if c.API.Token != "" {
		creds.Token = c.API.Token
	}
	return creds
}
