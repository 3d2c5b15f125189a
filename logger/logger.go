package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global logger instance
	Logger *zap.SugaredLogger
	// Flag to track if JSON output is enabled
	JSONOutput bool
)

func init() {
	// Safe no-op logger until Initialize runs, so packages can log at load time
	Logger = zap.NewNop().Sugar()
}

// Initialize sets up the global logger. Console output goes to stdout in the
// minimal format; JSON output uses zap's production encoder.
func Initialize(jsonOutput bool, verbosity int) error {
	zapLogger, err := Build(os.Stdout, jsonOutput, VerbosityToLevel(verbosity))
	if err != nil {
		return err
	}
	JSONOutput = jsonOutput
	Logger = zapLogger.Sugar()
	return nil
}

// Build constructs a zap logger writing to w without touching the global.
func Build(w io.Writer, jsonOutput bool, level zapcore.Level) (*zap.Logger, error) {
	if jsonOutput {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(w), level)
		return zap.New(core), nil
	}
	core := zapcore.NewCore(newMinimalEncoder(), zapcore.AddSync(w), level)
	return zap.New(core), nil
}

// Cleanup flushes any buffered log entries
func Cleanup() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}
