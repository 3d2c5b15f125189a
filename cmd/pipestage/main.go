package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/pipestage/am"
	"github.com/teranos/pipestage/cmd/pipestage/commands"
	"github.com/teranos/pipestage/errors"
	"github.com/teranos/pipestage/logger"
	"github.com/teranos/pipestage/sym"
)

var rootCmd = &cobra.Command{
	Use:   "pipestage",
	Short: sym.Stage + " pipestage - filesystem pipeline stage runner",
	Long: `pipestage - filesystem pipeline stage runner.

A stage watches {basedir}/{instance}-input for new chunks, transforms each
one, publishes the result atomically to {instance}-output, moves the source
to {instance}-completed and records what it did in the provenance store.

Available commands:
  run     - Run a stage instance
  events  - Show recent provenance events
  am      - Show and validate configuration ("I am")
  version - Show build information

Examples:
  pipestage run orders /var/spool/pipeline      # Run the identity stage
  pipestage run orders /srv/pipe --codec csv    # CSV chunks
  pipestage events --instance orders            # What did it do?
  pipestage am show                             # Resolved configuration`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env fills the environment before viper reads it
		if err := am.LoadDotEnv(); err != nil {
			return err
		}
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit logs as JSON")
	rootCmd.PersistentFlags().String("config", "", "Config file (replaces the am.toml cascade)")

	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.EventsCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	err := rootCmd.Execute()
	logger.Cleanup()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintln(os.Stderr, "Hint:", hint)
		}
		os.Exit(1)
	}
}
