package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/teranos/pipestage/am"
	"github.com/teranos/pipestage/logger"
	"github.com/teranos/pipestage/provenance"
)

// newViper resolves configuration for cmd, honouring the global --config flag.
func newViper(cmd *cobra.Command) (*viper.Viper, error) {
	configFile, _ := cmd.Flags().GetString("config")
	return am.NewViper(configFile)
}

func loadConfig(cmd *cobra.Command) (*am.Config, error) {
	v, err := newViper(cmd)
	if err != nil {
		return nil, err
	}
	return am.LoadWithViper(v)
}

// newStore returns a provenance logger; -vv traces its SQL.
func newStore(cmd *cobra.Command, cfg am.DatabaseConfig) *provenance.Logger {
	verbosity, _ := cmd.Flags().GetCount("verbose")
	return provenance.New(cfg,
		provenance.WithLogger(logger.ComponentLogger("provenance")),
		provenance.WithTraceSQL(logger.ShouldLogTrace(verbosity)),
	)
}
