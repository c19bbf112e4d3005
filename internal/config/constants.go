package config

import "time"

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"
	defaultPort       = 8000
	defaultEnv        = EnvDevelopment
	defaultLogLevel   = "info"
	defaultTimezone   = "UTC"

	defaultDBDriver  = DriverSQLite
	defaultDBHost    = "127.0.0.1"
	defaultDBPort    = 3306
	defaultDBUser    = "root"
	defaultDBName    = "noted"
	defaultDBPath    = "noted.db"
	defaultDBCharset = "utf8mb4"
	defaultDBLoc     = "UTC"

	defaultRedisHost = "localhost"
	defaultRedisPort = 6379
	defaultRedisDB   = 0

	defaultMarkdownAPI     = "https://api.github.com/markdown/raw"
	defaultMarkdownTimeout = 10 * time.Second
	defaultDebounceWindow  = time.Minute
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)
