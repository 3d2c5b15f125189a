// Package errors provides error handling for pipestage.
//
// This package re-exports github.com/cockroachdb/errors so every error built
// by the runner carries a stack trace and can be wrapped with context:
//
//	if err := dirs.Complete(name); err != nil {
//	    return errors.Wrapf(err, "archive %s", name)
//	}
//
// Sentinels below are compared with errors.Is after arbitrary wrapping.
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint      = crdb.WithHint
	WithHintf     = crdb.WithHintf
	WithDetail    = crdb.WithDetail
	WithDetailf   = crdb.WithDetailf
	FlattenHints  = crdb.FlattenHints
	GetAllHints   = crdb.GetAllHints
	GetAllDetails = crdb.GetAllDetails
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
	Join      = crdb.Join
)

// GetStack returns the reportable stack trace attached to err, if any.
var GetStack = crdb.GetReportableStackTrace

var (
	// ErrUnsupportedBackend means the database backend selector names a
	// backend the runner has no driver for. Fatal at startup.
	ErrUnsupportedBackend = New("unsupported database backend")

	// ErrMissingConfig means a required configuration value is empty.
	ErrMissingConfig = New("missing required configuration")

	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates the request was malformed or invalid
	ErrInvalidRequest = New("invalid request")
)

// IsUnsupportedBackend reports whether err is or wraps ErrUnsupportedBackend.
func IsUnsupportedBackend(err error) bool {
	return err != nil && Is(err, ErrUnsupportedBackend)
}

// IsMissingConfig reports whether err is or wraps ErrMissingConfig.
func IsMissingConfig(err error) bool {
	return err != nil && Is(err, ErrMissingConfig)
}

// IsNotFoundError checks if an error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// NewUnsupportedBackendError names the rejected selector and hints at the
// accepted ones.
func NewUnsupportedBackendError(backend string, supported ...string) error {
	err := Wrapf(ErrUnsupportedBackend, "%q", backend)
	if len(supported) > 0 {
		err = WithHintf(err, "supported backends: %v", supported)
	}
	return err
}

// NewMissingConfigError names the configuration key that is empty.
func NewMissingConfigError(key string) error {
	return Wrapf(ErrMissingConfig, "%s", key)
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidRequest, Newf(format, args...).Error())
}
