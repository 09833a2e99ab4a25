/*
Package config loads server configuration.

LAYERING (later wins):
  1. Defaults()
  2. YAML file (-config flag), see config.example.yaml
  3. .env file(s), read with godotenv (never written into the process env)
  4. Process environment variables
  5. Command-line flags (applied by cmd/server)

ENVIRONMENT VARIABLES:
  PORT, DATABASE_PATH
  JWT_SECRET, SESSION_TTL
  ADMIN_USERNAME, ADMIN_PASSWORD, ADMIN_PASSWORD_HASH
  LOG_LEVEL, LOG_FORMAT
  CORS_ORIGINS (comma separated)
  SLACK_BOT_TOKEN, SLACK_CHANNEL_ID

SEE ALSO:
  - logger.go: Builds the logrus logger from LogConfig
  - cmd/server/main.go: Flag overrides
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port         int         `yaml:"port"`
	DatabasePath string      `yaml:"database_path"`
	Auth         AuthConfig  `yaml:"auth"`
	Log          LogConfig   `yaml:"log"`
	CORS         CORSConfig  `yaml:"cors"`
	Slack        SlackConfig `yaml:"slack"`
}

type AuthConfig struct {
	JWTSecret         string        `yaml:"jwt_secret"`
	SessionTTL        time.Duration `yaml:"session_ttl"`
	AdminUsername     string        `yaml:"admin_username"`
	AdminPassword     string        `yaml:"admin_password"`
	AdminPasswordHash string        `yaml:"admin_password_hash"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | text
}

type CORSConfig struct {
	Origins []string `yaml:"origins"`
}

// SlackConfig enables the notification mirror when both fields are set.
type SlackConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

func (s SlackConfig) Enabled() bool {
	return s.BotToken != "" && s.ChannelID != ""
}

func Defaults() *Config {
	return &Config{
		Port:         8080,
		DatabasePath: "./data/attendance.db",
		Auth: AuthConfig{
			SessionTTL:    8 * time.Hour,
			AdminUsername: "admin",
		},
		Log: LogConfig{Level: "info", Format: "json"},
		CORS: CORSConfig{Origins: []string{
			"http://localhost:5000",
			"http://localhost:8080",
		}},
	}
}

// Load builds the configuration from all layers except flags. An empty
// configFile skips the YAML layer. With no envFiles, ".env" is read if present.
func Load(configFile string, envFiles ...string) (*Config, error) {
	cfg := Defaults()

	if configFile != "" {
		if err := cfg.LoadYAML(configFile); err != nil {
			return nil, err
		}
	}

	dotenv, err := readDotEnv(envFiles)
	if err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnv(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadYAML overlays the fields present in the file.
func (c *Config) LoadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("unmarshal yaml %s: %w", path, err)
	}
	return nil
}

func readDotEnv(files []string) (map[string]string, error) {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		files = []string{".env"}
	}
	env, err := godotenv.Read(files...)
	if err != nil {
		return nil, fmt.Errorf("read env file: %w", err)
	}
	return env, nil
}

// ApplyEnv overlays variables found through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Port = port
	}
	str("DATABASE_PATH", &c.DatabasePath)
	str("JWT_SECRET", &c.Auth.JWTSecret)
	if v, ok := lookup("SESSION_TTL"); ok && v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SESSION_TTL: %w", err)
		}
		c.Auth.SessionTTL = ttl
	}
	str("ADMIN_USERNAME", &c.Auth.AdminUsername)
	str("ADMIN_PASSWORD", &c.Auth.AdminPassword)
	str("ADMIN_PASSWORD_HASH", &c.Auth.AdminPasswordHash)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	if v, ok := lookup("CORS_ORIGINS"); ok && v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.CORS.Origins = origins
	}
	str("SLACK_BOT_TOKEN", &c.Slack.BotToken)
	str("SLACK_CHANNEL_ID", &c.Slack.ChannelID)
	return nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("database path is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Auth.AdminPassword == "" && c.Auth.AdminPasswordHash == "" {
		errs = append(errs, errors.New("ADMIN_PASSWORD or ADMIN_PASSWORD_HASH is required"))
	}
	if c.Auth.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("session ttl must be positive, got %s", c.Auth.SessionTTL))
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("log format must be json or text, got %q", c.Log.Format))
	}
	if (c.Slack.BotToken == "") != (c.Slack.ChannelID == "") {
		errs = append(errs, errors.New("slack needs both SLACK_BOT_TOKEN and SLACK_CHANNEL_ID"))
	}
	return errors.Join(errs...)
}
