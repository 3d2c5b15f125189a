package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teranos/pipestage/am"
	"github.com/teranos/pipestage/codec"
	"github.com/teranos/pipestage/errors"
	"github.com/teranos/pipestage/logger"
	"github.com/teranos/pipestage/stage"
	"github.com/teranos/pipestage/sym"
)

// TransformFactory builds the stage logic for a chunk codec.
type TransformFactory func(c codec.Codec) stage.Transform

// RunCmd runs the identity stage
var RunCmd = NewRunCmd(func(c codec.Codec) stage.Transform {
	return stage.NewIdentity(c)
})

// NewRunCmd returns a run command for the transform built by newTransform.
// Stage binaries embed it in their own root command.
func NewRunCmd(newTransform TransformFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <instance> <basedir>",
		Short: sym.Stage + " Run a stage instance",
		Long: sym.Stage + ` run - Run a stage instance

Creates {basedir}/{instance}-input, -output and -completed if needed, then
processes every chunk already in input and every chunk that arrives after.

SIGTERM stops after the chunk in progress. Ctrl-C leaves at the next wait.`,
		Args: usageArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStage(cmd, args, newTransform)
		},
	}
	cmd.Flags().String("codec", "", "Chunk format: "+fmt.Sprint(codec.Names()))
	cmd.Flags().Duration("rescan", 0, "Maximum interval between full input scans (0 = every pass)")
	cmd.Flags().String("class", "", "Producer name in logs and provenance")
	return cmd
}

// usageArgs rejects anything but n positional arguments with a usage line.
func usageArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return errors.Newf("Usage: %s", cmd.UseLine())
		}
		return nil
	}
}

func runStage(cmd *cobra.Command, args []string, newTransform TransformFactory) error {
	v, err := newViper(cmd)
	if err != nil {
		return err
	}
	v.Set("stage.instance", args[0])
	v.Set("stage.base_dir", args[1])
	for key, flag := range map[string]string{
		"stage.codec":           "codec",
		"stage.rescan_interval": "rescan",
		"stage.class":           "class",
	} {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return errors.Wrapf(err, "bind --%s", flag)
		}
	}

	cfg, err := am.LoadWithViper(v)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	logger.SetTheme(cfg.Log.Theme)
	if cfg.Log.JSON && !logger.JSONOutput {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		if err := logger.Initialize(true, verbosity); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
	}

	c, err := codec.Lookup(cfg.Stage.Codec)
	if err != nil {
		return err
	}
	store := newStore(cmd, cfg.Database)

	runner, err := stage.NewRunner(stage.RunnerConfigFrom(cfg.Stage), newTransform(c), stage.WithProvenance(store))
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()
	stopOnTerm(ctx, runner)

	return runner.Run(ctx)
}

// stopOnTerm turns SIGTERM into a graceful Stop until ctx ends.
func stopOnTerm(ctx context.Context, runner *stage.Runner) {
	term := make(chan os.Signal, 1)
	signal.Notify(term, syscall.SIGTERM)
	go func() {
		defer signal.Stop(term)
		select {
		case <-term:
			runner.Stop()
		case <-ctx.Done():
		}
	}()
}
