package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config interface {
	EnvConfig
	AuthConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetMetricsAddr() string
	GetIdentification() string
	GetPassword() string
}

type mainConfig struct {
	EnvVars
	Auth
}

// fileConfig is the on-disk YAML layout.
type fileConfig struct {
	Auth Auth `yaml:"auth"`
}

// New returns a Config built from defaults and environment variables only.
func New() Config {
	return mainConfig{Auth: applyAuthEnv(applyAuthDefaults(Auth{}))}
}

// Load reads an optional YAML file at path, then a .env file if one exists,
// then applies defaults and environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	var fc fileConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &fc); err != nil {
				return nil, fmt.Errorf("parse config yaml: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	auth := applyAuthEnv(applyAuthDefaults(fc.Auth))
	if err := auth.Validate(); err != nil {
		return nil, fmt.Errorf("invalid auth config: %w", err)
	}
	return mainConfig{Auth: auth}, nil
}
