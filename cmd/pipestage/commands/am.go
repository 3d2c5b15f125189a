package commands

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/pipestage/am"
	"github.com/teranos/pipestage/display"
	"github.com/teranos/pipestage/errors"
	"github.com/teranos/pipestage/sym"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: sym.AM + " Show and validate pipestage configuration",
	Long: sym.AM + ` am - Show and validate pipestage configuration ("I am")

Configuration sources (later overrides earlier):
1. Default values
2. System config (/etc/pipestage/config.toml)
3. User config (~/.pipestage/am.toml)
4. Project config (./am.toml, searched up from the working directory)
5. Environment variables (PIPESTAGE_* prefix, .env is loaded first)
6. Command line flags

Examples:
  pipestage am show                    # Show current configuration
  pipestage am show --format yaml      # Show configuration as YAML
  pipestage am get database.backend    # Get specific config value
  pipestage am validate                # Validate current configuration`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the resolved configuration from all sources. The database password is masked.",
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., database.backend, stage.rescan_interval)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE:  runAmValidate,
}

func init() {
	amShowCmd.Flags().String("format", "toml", "Output format: toml, yaml, json")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amValidateCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")

	data, err := marshalConfig(cfg.Redacted(), format)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "# pipestage configuration\n%s", data)
	return nil
}

func marshalConfig(cfg am.Config, format string) ([]byte, error) {
	switch format {
	case "toml":
		data, err := toml.Marshal(cfg)
		return data, errors.Wrap(err, "failed to marshal config to TOML")
	case "yaml":
		data, err := yaml.Marshal(cfg)
		return data, errors.Wrap(err, "failed to marshal config to YAML")
	case "json":
		data, err := display.MarshalJSON(cfg)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal config to JSON")
		}
		return append(data, '\n'), nil
	default:
		return nil, errors.WithHint(
			errors.Newf("unsupported format: %s", format),
			"supported: toml, yaml, json",
		)
	}
}

func runAmGet(cmd *cobra.Command, args []string) error {
	key := args[0]

	v, err := newViper(cmd)
	if err != nil {
		return err
	}
	if !v.IsSet(key) {
		return errors.Wrapf(errors.ErrNotFound, "configuration key %q", key)
	}

	value := v.Get(key)
	if key == "database.password" && v.GetString(key) != "" {
		value = "********"
	}
	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration is valid")
	return nil
}
