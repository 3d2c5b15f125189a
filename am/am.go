// Package am resolves pipestage configuration ("I am").
//
// Sources, lowest to highest precedence: defaults, /etc/pipestage/config.toml,
// ~/.pipestage/am.toml, the nearest am.toml walking up from the working
// directory, PIPESTAGE_* environment variables (a .env file is loaded into
// the environment first), then command line flags.
//
// The resolved *Config is built once at startup and passed explicitly; this
// package keeps no global configuration.
package am

import "time"

// Config represents the resolved pipestage configuration
type Config struct {
	Stage    StageConfig    `mapstructure:"stage" toml:"stage" yaml:"stage"`
	Database DatabaseConfig `mapstructure:"database" toml:"database" yaml:"database"`
	Log      LogConfig      `mapstructure:"log" toml:"log" yaml:"log"`
}

// StageConfig identifies the running stage instance and tunes its loop
type StageConfig struct {
	Instance        string        `mapstructure:"instance" toml:"instance" yaml:"instance"`                            // unique-per-pipeline instance name
	BaseDir         string        `mapstructure:"base_dir" toml:"base_dir" yaml:"base_dir"`                            // parent of the -input/-output/-completed dirs
	Class           string        `mapstructure:"class" toml:"class" yaml:"class"`                                     // producer name in logs (default: transform type name)
	Codec           string        `mapstructure:"codec" toml:"codec" yaml:"codec"`                                     // chunk wire format: cbor, csv, yaml
	RescanInterval  time.Duration `mapstructure:"rescan_interval" toml:"rescan_interval" yaml:"rescan_interval"`       // full input scan cadence (0 = every pass)
	GCAfterChunk    bool          `mapstructure:"gc_after_chunk" toml:"gc_after_chunk" yaml:"gc_after_chunk"`          // force a collection after each chunk
	ReadBufferBytes int           `mapstructure:"read_buffer_bytes" toml:"read_buffer_bytes" yaml:"read_buffer_bytes"` // input read buffer size
}

// DatabaseConfig configures the provenance log backend
type DatabaseConfig struct {
	Backend  string `mapstructure:"backend" toml:"backend" yaml:"backend"` // sqlite or postgres
	Path     string `mapstructure:"path" toml:"path" yaml:"path"`          // sqlite file
	Host     string `mapstructure:"host" toml:"host" yaml:"host"`
	Port     int    `mapstructure:"port" toml:"port" yaml:"port"`
	User     string `mapstructure:"user" toml:"user" yaml:"user"`
	Password string `mapstructure:"password" toml:"password" yaml:"password"`
	Name     string `mapstructure:"name" toml:"name" yaml:"name"`
	SSLMode  string `mapstructure:"sslmode" toml:"sslmode" yaml:"sslmode"`
	Migrate  bool   `mapstructure:"migrate" toml:"migrate" yaml:"migrate"` // apply embedded migrations on first connect
}

// LogConfig configures console output
type LogConfig struct {
	JSON  bool   `mapstructure:"json" toml:"json" yaml:"json"`
	Theme string `mapstructure:"theme" toml:"theme" yaml:"theme"` // everforest, gruvbox
}

// Database backends
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// SupportedBackends lists the accepted database.backend values
func SupportedBackends() []string {
	return []string{BackendSQLite, BackendPostgres}
}

// Redacted returns a copy safe to print: the database password is masked.
func (c Config) Redacted() Config {
	if c.Database.Password != "" {
		c.Database.Password = "********"
	}
	return c
}
