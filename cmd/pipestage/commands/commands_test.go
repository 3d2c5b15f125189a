package commands

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/pipestage/am"
	"github.com/teranos/pipestage/codec"
	"github.com/teranos/pipestage/errors"
	"github.com/teranos/pipestage/stage"
	"github.com/teranos/pipestage/tabular"
)

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRun_WrongArgCount(t *testing.T) {
	cmd := NewRunCmd(func(c codec.Codec) stage.Transform { return stage.NewIdentity(c) })
	cmd.SilenceUsage = true

	_, err := execute(t, cmd, "orders")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Usage: run <instance> <basedir>")
}

func TestRun_UnsupportedBackend(t *testing.T) {
	t.Setenv("PIPESTAGE_DATABASE_BACKEND", "mysql")
	built := false
	cmd := NewRunCmd(func(c codec.Codec) stage.Transform {
		built = true
		return stage.NewIdentity(c)
	})
	cmd.SilenceUsage = true

	_, err := execute(t, cmd, "orders", t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.IsUnsupportedBackend(err))
	assert.False(t, built, "nothing runs with an unusable backend")
}

func TestRun_UnknownCodec(t *testing.T) {
	cmd := NewRunCmd(func(c codec.Codec) stage.Transform { return stage.NewIdentity(c) })
	cmd.SilenceUsage = true

	_, err := execute(t, cmd, "orders", t.TempDir(), "--codec", "pickle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pickle")
}

func TestMarshalConfig(t *testing.T) {
	cfg := am.Config{
		Stage:    am.StageConfig{Instance: "orders", Codec: "cbor"},
		Database: am.DatabaseConfig{Backend: am.BackendSQLite, Path: "pipestage.db"},
	}

	data, err := marshalConfig(cfg, "toml")
	require.NoError(t, err)
	assert.Contains(t, string(data), "[stage]")
	assert.Contains(t, string(data), "instance = 'orders'")

	data, err = marshalConfig(cfg, "yaml")
	require.NoError(t, err)
	assert.Contains(t, string(data), "backend: sqlite")

	data, err = marshalConfig(cfg, "json")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Instance": "orders"`)

	_, err = marshalConfig(cfg, "ini")
	require.Error(t, err)
	assert.Contains(t, errors.FlattenHints(err), "toml")
}

func TestAmShow_MasksPassword(t *testing.T) {
	t.Setenv("PIPESTAGE_DATABASE_PASSWORD", "hunter2")

	out, err := execute(t, AmCmd, "show", "--format", "yaml")
	require.NoError(t, err)
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "********")
}

func TestAmGet(t *testing.T) {
	t.Setenv("PIPESTAGE_STAGE_CODEC", "csv")

	out, err := execute(t, AmCmd, "get", "stage.codec")
	require.NoError(t, err)
	assert.Equal(t, "csv\n", out)

	_, err = execute(t, AmCmd, "get", "stage.nope")
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestEventTable(t *testing.T) {
	events := tabular.New(
		[]string{"id", "class", "instance", "event", "filename", "rows_in", "rows_out", "elapsed_ms", "run_id", "created_at"},
		[][]any{
			{int64(2), "Identity", "orders", "orders.dat: 5 -> 5 rows in 0.00s (0 rps)", "orders.dat", int64(5), int64(5), int64(0), "r1", "2026-10-01 12:00:00"},
			{int64(1), "Identity", "orders", "Starting", nil, int64(0), int64(0), int64(0), "r1", "2026-10-01 11:59:59"},
		},
	)

	table := eventTable(events)
	require.Len(t, table, 3)
	assert.Equal(t, eventColumns, table[0])
	assert.Equal(t, "2", table[1][0])
	assert.Equal(t, "5", table[1][5])
	assert.Equal(t, "Starting", table[2][4])
}

func TestVersion_JSON(t *testing.T) {
	out, err := execute(t, VersionCmd, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"go_version"`)
}
