// Package config loads bot settings from a dotenv file, the environment and
// an optional token file.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"rsvpbot/internal/storage"
)

// Config represents the bot configuration
type Config struct {
	Environment           string        `envconfig:"ENVIRONMENT" default:"development"`
	BotToken              string        `envconfig:"BOT_TOKEN"`
	BotTokenFile          string        `envconfig:"BOT_TOKEN_FILE" default:"tg-token"`
	BotDebug              bool          `envconfig:"BOT_DEBUG" default:"false"`
	StorageBackend        string        `envconfig:"STORAGE_BACKEND" default:"file"`
	DataDir               string        `envconfig:"DATA_DIR" default:"data"`
	SQLitePath            string        `envconfig:"SQLITE_PATH" default:"bot.db"`
	DatabaseURL           string        `envconfig:"DATABASE_URL"`
	HTTPAddr              string        `envconfig:"HTTP_ADDR"`
	NoticeTTL             time.Duration `envconfig:"NOTICE_TTL" default:"10s"`
	NameLookupConcurrency int           `envconfig:"NAME_LOOKUP_CONCURRENCY" default:"4"`
}

// Load reads envFile into the environment (a missing file is skipped),
// processes the environment and resolves the bot token.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := loadEnvFile(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.BotToken == "" && cfg.BotTokenFile != "" {
		token, err := readTokenFile(cfg.BotTokenFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg.BotToken = token
	}

	return &cfg, nil
}

// Validate checks the settings that have no usable default.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN is required (or a token in %s)", c.BotTokenFile)
	}
	switch c.StorageBackend {
	case storage.BackendFile, storage.BackendSQLite:
	case storage.BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s", c.StorageBackend)
	}
	if c.NameLookupConcurrency < 1 {
		return fmt.Errorf("NAME_LOOKUP_CONCURRENCY must be at least 1, got %d", c.NameLookupConcurrency)
	}
	return nil
}

func readTokenFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// loadEnvFile loads environment variables from a .env file. Variables
// already set in the environment win.
func loadEnvFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}

	return scanner.Err()
}
