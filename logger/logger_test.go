package logger

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// stripANSI removes ANSI color codes from a string for testing
func stripANSI(str string) string {
	ansiRegex := regexp.MustCompile(`\x1b\[[0-9;]*m`)
	return ansiRegex.ReplaceAllString(str, "")
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name       string
		jsonOutput bool
	}{
		{name: "JSON output mode", jsonOutput: true},
		{name: "Console output mode", jsonOutput: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Logger = nil
			JSONOutput = false

			require.NoError(t, Initialize(tt.jsonOutput, VerbosityUser))
			assert.NotNil(t, Logger)
			assert.Equal(t, tt.jsonOutput, JSONOutput)

			Logger = zap.NewNop().Sugar()
		})
	}
}

func TestConsoleOutputCarriesComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	zl, err := Build(&buf, false, zapcore.InfoLevel)
	require.NoError(t, err)

	log := zl.Sugar().Named("IdentityStage/orders").With(FieldRunID, "r-1")
	log.Infow("orders.dat: 5 -> 5 rows", FieldRowsIn, 5, FieldRowsOut, 5, "note", "ok")

	line := stripANSI(buf.String())
	assert.Contains(t, line, "IdentityStage/orders")
	assert.Contains(t, line, "orders.dat: 5 -> 5 rows")
	assert.Contains(t, line, "run_id=r-1")
	assert.Contains(t, line, "rows_in=5")
	assert.Contains(t, line, "rows_out=5")
	assert.Contains(t, line, "note=ok")
	assert.NotContains(t, line, "INFO")
}

func TestConsoleOutputMarksWarnings(t *testing.T) {
	var buf bytes.Buffer
	zl, err := Build(&buf, false, zapcore.InfoLevel)
	require.NoError(t, err)

	zl.Sugar().Warnw("watch overflow")
	zl.Sugar().Debugw("hidden at info level")

	out := stripANSI(buf.String())
	assert.Contains(t, out, "WARN")
	assert.NotContains(t, out, "hidden")
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	zl, err := Build(&buf, true, zapcore.InfoLevel)
	require.NoError(t, err)

	zl.Sugar().Named("IdentityStage/orders").Infow("Starting", FieldInstance, "orders")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	assert.Equal(t, "Starting", entry["msg"])
	assert.Equal(t, "IdentityStage/orders", entry["logger"])
	assert.Equal(t, "orders", entry["instance"])
}

func TestSetTheme(t *testing.T) {
	defer SetTheme("everforest")

	SetTheme("gruvbox")
	assert.Equal(t, "gruvbox", currentTheme)

	SetTheme("nonexistent")
	assert.Equal(t, "gruvbox", currentTheme)
}

func TestVerbosityToLevel(t *testing.T) {
	assert.Equal(t, zapcore.InfoLevel, VerbosityToLevel(VerbosityUser))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(VerbosityDebug))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(5))
	assert.True(t, ShouldLogTrace(VerbosityTrace))
	assert.False(t, ShouldLogTrace(VerbosityDebug))
}
