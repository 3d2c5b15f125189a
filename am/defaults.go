package am

import (
	"time"

	"github.com/spf13/viper"
)

// Default values
const (
	DefaultCodec           = "cbor"
	DefaultRescanInterval  = 30 * time.Second
	DefaultReadBufferBytes = 1024 * 1024
	DefaultDatabasePath    = "pipestage.db"
	DefaultPostgresPort    = 5432
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Stage defaults
	v.SetDefault("stage.instance", "")
	v.SetDefault("stage.base_dir", "")
	v.SetDefault("stage.class", "")
	v.SetDefault("stage.codec", DefaultCodec)
	v.SetDefault("stage.rescan_interval", DefaultRescanInterval)
	v.SetDefault("stage.gc_after_chunk", true)
	v.SetDefault("stage.read_buffer_bytes", DefaultReadBufferBytes)

	// Database defaults
	v.SetDefault("database.backend", BackendSQLite)
	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", DefaultPostgresPort)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "pipestage")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.migrate", true)

	// Log defaults
	v.SetDefault("log.json", false)
	v.SetDefault("log.theme", "everforest")
}

// BindSensitiveEnvVars explicitly binds credentials to environment variables
// so they never need to live in a config file
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("database.password", "PIPESTAGE_DATABASE_PASSWORD")
	v.BindEnv("database.user", "PIPESTAGE_DATABASE_USER")
	v.BindEnv("database.host", "PIPESTAGE_DATABASE_HOST")
}
