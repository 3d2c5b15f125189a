package am

import (
	"strings"

	"github.com/teranos/pipestage/codec"
	"github.com/teranos/pipestage/errors"
)

// Validate checks that the configuration can start a stage runner. All
// problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Stage.Instance) == "" {
		errs = append(errs, errors.NewMissingConfigError("stage.instance"))
	} else if strings.ContainsAny(c.Stage.Instance, `/\`) {
		errs = append(errs, errors.Newf("stage.instance must not contain path separators, got %q", c.Stage.Instance))
	}
	if strings.TrimSpace(c.Stage.BaseDir) == "" {
		errs = append(errs, errors.NewMissingConfigError("stage.base_dir"))
	}
	if c.Stage.RescanInterval < 0 {
		errs = append(errs, errors.Newf("stage.rescan_interval must be >= 0, got %s", c.Stage.RescanInterval))
	}
	if c.Stage.ReadBufferBytes < 0 {
		errs = append(errs, errors.Newf("stage.read_buffer_bytes must be >= 0, got %d", c.Stage.ReadBufferBytes))
	}
	if _, err := codec.Lookup(c.Stage.Codec); err != nil {
		errs = append(errs, errors.Wrap(err, "stage.codec"))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Validate checks the backend selector and the values that backend needs.
// An unknown backend wraps errors.ErrUnsupportedBackend.
func (d *DatabaseConfig) Validate() error {
	switch d.Backend {
	case BackendSQLite:
		if d.Path == "" {
			return errors.NewMissingConfigError("database.path")
		}
	case BackendPostgres:
		if d.Host == "" {
			return errors.NewMissingConfigError("database.host")
		}
		if d.Name == "" {
			return errors.NewMissingConfigError("database.name")
		}
		if d.Port <= 0 {
			return errors.Newf("database.port must be > 0, got %d", d.Port)
		}
	default:
		return errors.NewUnsupportedBackendError(d.Backend, SupportedBackends()...)
	}
	return nil
}
