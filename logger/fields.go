package logger

import (
	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across pipestage.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity
	FieldClass    = "class"
	FieldInstance = "instance"
	FieldRunID    = "run_id"

	// Chunks and directories
	FieldChunk  = "chunk"
	FieldDir    = "dir"
	FieldSource = "source" // "scan" or "notify"
	FieldState  = "state"

	// Metrics
	FieldRowsIn    = "rows_in"
	FieldRowsOut   = "rows_out"
	FieldElapsedMS = "elapsed_ms"
	FieldRPS       = "rps"
	FieldRSSBytes  = "rss_bytes"

	// Database
	FieldBackend = "backend"
	FieldHost    = "host"
	FieldPath    = "path"

	// Errors
	FieldError = "error"
)

// ComponentLogger returns a named logger for a specific component.
// Stage runners use "Class/instance" so console lines carry the producer.
//
// Example:
//
//	log := logger.ComponentLogger("IdentityStage/orders")
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// ChildLogger creates a child logger with additional context.
//
// Example:
//
//	chunkLog := logger.ChildLogger(base, logger.FieldRunID, runID)
func ChildLogger(parent *zap.SugaredLogger, keysAndValues ...interface{}) *zap.SugaredLogger {
	return parent.With(keysAndValues...)
}
