package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML file at configPath over the defaults.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}
	cfg, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("config file %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML content over the defaults, then normalizes and
// validates the result. Unknown keys are rejected.
func Parse(content []byte) (*AppConfig, error) {
	cfg := defaultAppConfig()
	if len(bytes.TrimSpace(content)) > 0 {
		decoder := yaml.NewDecoder(bytes.NewReader(content))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse: %w", err)
		}
	}

	cfg.Env = lowerOr(cfg.Env, defaultEnv)
	cfg.LogLevel = lowerOr(cfg.LogLevel, defaultLogLevel)
	cfg.LogDirectory = strings.TrimSpace(cfg.LogDirectory)
	cfg.Timezone = strings.TrimSpace(cfg.Timezone)
	cfg.AllowedOrigins = normalizeOrigins(cfg.AllowedOrigins)
	cfg.Database = normalizeDatabaseConfig(cfg.Database)
	cfg.Redis = normalizeRedisConfig(cfg.Redis)
	cfg.Markdown = normalizeMarkdownConfig(cfg.Markdown)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port:     defaultPort,
		Env:      defaultEnv,
		LogLevel: defaultLogLevel,
		Timezone: defaultTimezone,
		Database: DatabaseRuntimeConfig{
			Driver:    defaultDBDriver,
			Host:      defaultDBHost,
			Port:      defaultDBPort,
			User:      defaultDBUser,
			Name:      defaultDBName,
			Path:      defaultDBPath,
			Charset:   defaultDBCharset,
			ParseTime: true,
			Loc:       defaultDBLoc,
		},
		Redis: RedisRuntimeConfig{
			Host: defaultRedisHost,
			Port: defaultRedisPort,
			DB:   defaultRedisDB,
		},
		Markdown: MarkdownConfig{
			APIURL:  defaultMarkdownAPI,
			Timeout: defaultMarkdownTimeout,
		},
		Actions: ActionsConfig{
			DebounceWindow: defaultDebounceWindow,
		},
	}
}

func (c *AppConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d, expected 1-65535", c.Port)
	}
	switch c.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return fmt.Errorf("invalid env %q, expected development, production or test", c.Env)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q, expected debug, info, warn or error", c.LogLevel)
	}
	switch c.Database.Driver {
	case DriverMySQL:
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("invalid database.port %d, expected 1-65535", c.Database.Port)
		}
	case DriverSQLite:
	default:
		return fmt.Errorf("invalid database.driver %q, expected mysql or sqlite", c.Database.Driver)
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		return fmt.Errorf("invalid redis.port %d, expected 1-65535", c.Redis.Port)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("invalid redis.db %d, expected >= 0", c.Redis.DB)
	}
	if c.Markdown.Timeout <= 0 {
		return fmt.Errorf("invalid markdown.timeout %s, expected > 0", c.Markdown.Timeout)
	}
	if c.Actions.DebounceWindow <= 0 {
		return fmt.Errorf("invalid actions.debounce_window %s, expected > 0", c.Actions.DebounceWindow)
	}
	if c.Actions.Retention < 0 {
		return fmt.Errorf("invalid actions.retention %s, expected >= 0", c.Actions.Retention)
	}
	return nil
}

func (c *AppConfig) IsDev() bool {
	return c.Env == EnvDevelopment
}

func (c *AppConfig) IsTest() bool {
	return c.Env == EnvTest
}

// IsOffline reports whether outbound calls are disabled. The test
// environment is always offline.
func (c *AppConfig) IsOffline() bool {
	return c.Offline || c.Markdown.Offline || c.IsTest()
}

// IsTestMode reports whether side effects are off: the action recorder
// writes nothing, so no notifications are sent either.
func (c *AppConfig) IsTestMode() bool {
	return c.Offline || c.IsTest()
}

func (c *AppConfig) LogDir() string {
	if c == nil {
		return ResolveRuntimePath("", "logs")
	}
	return ResolveRuntimePath(c.LogDirectory, "logs")
}
