package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment overrides, applied after the YAML file is read.
const (
	EnvChromePath = "NEWS_EXTRACTOR_CHROME_PATH"
	EnvProxy      = "NEWS_EXTRACTOR_PROXY"
	EnvStorageDSN = "NEWS_EXTRACTOR_STORAGE_DSN"
	EnvNATSURL    = "NEWS_EXTRACTOR_NATS_URL"
)

// LoadEnvFiles loads .env style files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", p, err)
		}
	}
	return nil
}

func LoadConfig(filePath string) (*Config, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			log.Printf("Warning: failed to close config file: %v", closeErr)
		}
	}()

	var cfg Config
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.Defaults()

	// Relative site files live next to the config file.
	if cfg.SiteFile != "" && !filepath.IsAbs(cfg.SiteFile) {
		cfg.SiteFile = filepath.Join(filepath.Dir(filePath), cfg.SiteFile)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvChromePath); v != "" {
		c.Rod.ChromePath = v
	}
	if v := os.Getenv(EnvProxy); v != "" {
		c.Rod.Proxy = v
		c.HTTP.Proxy = v
	}
	if v := os.Getenv(EnvStorageDSN); v != "" {
		c.Storage.DSN = v
	}
	if v := os.Getenv(EnvNATSURL); v != "" {
		c.NATS.URL = v
	}
}
