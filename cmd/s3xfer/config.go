package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds connection settings resolved from the layered sources
// named in spec.md §6: the YAML file, then SFS3_<KEY> env vars, then the
// AWS_ACCESS_KEY/AWS_SECRET_KEY pair, each later source overriding the
// earlier ones.
type Config struct {
	AccessKey   string `yaml:"access_key" validate:"required"`
	SecretKey   string `yaml:"secret_key" validate:"required"`
	Bucket      string `yaml:"bucket" validate:"required"`
	Endpoint    string `yaml:"endpoint"`
	Region      string `yaml:"region"`
	SSL         *bool  `yaml:"ssl"`
	CryptoKeyID string `yaml:"crypto_keyid"`
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sfs3.conf"
	}
	return filepath.Join(home, ".sfs3.conf")
}

// loadConfig reads path (if it exists), then overlays SFS3_<KEY>
// environment variables, then AWS_ACCESS_KEY/AWS_SECRET_KEY.
func loadConfig(path string) (Config, error) {
	var cfg Config

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("s3xfer: parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("s3xfer: read %s: %w", path, err)
	}

	overlayEnv(&cfg, "SFS3_ACCESS_KEY", &cfg.AccessKey)
	overlayEnv(&cfg, "SFS3_SECRET_KEY", &cfg.SecretKey)
	overlayEnv(&cfg, "SFS3_BUCKET", &cfg.Bucket)
	overlayEnv(&cfg, "SFS3_ENDPOINT", &cfg.Endpoint)
	overlayEnv(&cfg, "SFS3_REGION", &cfg.Region)
	overlayEnv(&cfg, "SFS3_CRYPTO_KEYID", &cfg.CryptoKeyID)
	if v, ok := os.LookupEnv("SFS3_SSL"); ok {
		b, err := strconv.ParseBool(v)
		if err == nil {
			cfg.SSL = &b
		}
	}

	overlayEnv(&cfg, "AWS_ACCESS_KEY", &cfg.AccessKey)
	overlayEnv(&cfg, "AWS_SECRET_KEY", &cfg.SecretKey)

	return cfg, nil
}

func overlayEnv(cfg *Config, key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("s3xfer: config: %w", err)
	}
	return nil
}
