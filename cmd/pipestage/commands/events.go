package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/pipestage/display"
	"github.com/teranos/pipestage/sym"
	"github.com/teranos/pipestage/tabular"
)

// EventsCmd shows recent provenance events
var EventsCmd = &cobra.Command{
	Use:   "events",
	Short: sym.DB + " Show recent provenance events",
	Long: sym.DB + ` events - Show recent provenance events

Lists lifecycle events and per-chunk metrics from pipeline_events, newest
first.

Examples:
  pipestage events                       # Last 20 events, all instances
  pipestage events --instance orders -n 5
  pipestage events --json | jq .          # Machine-readable`,
	Args: cobra.NoArgs,
	RunE: runEvents,
}

var eventColumns = []string{"id", "created_at", "class", "instance", "event", "rows_in", "rows_out", "elapsed_ms"}

func init() {
	EventsCmd.Flags().String("instance", "", "Only events for this instance")
	EventsCmd.Flags().IntP("limit", "n", 20, "Number of events")
	EventsCmd.Flags().BoolP("json", "j", false, "Output events as JSON")
}

func runEvents(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Database.Validate(); err != nil {
		return err
	}
	instance, _ := cmd.Flags().GetString("instance")
	limit, _ := cmd.Flags().GetInt("limit")

	store := newStore(cmd, cfg.Database)
	defer store.Disconnect()

	events, err := store.Recent(cmd.Context(), instance, limit)
	if err != nil {
		return err
	}
	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(cmd.OutOrStdout(), events)
	}
	if events.Len() == 0 {
		pterm.Info.Println("No events recorded")
		return nil
	}

	out, err := pterm.DefaultTable.WithHasHeader().WithData(eventTable(events)).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

// eventTable lays events out as header + rows for pterm.
func eventTable(events *tabular.Result) [][]string {
	data := [][]string{eventColumns}
	for i := 0; i < events.Len(); i++ {
		row := events.Row(i)
		cells := make([]string, len(eventColumns))
		for j, col := range eventColumns {
			if v := row[col]; v != nil {
				cells[j] = fmt.Sprint(v)
			}
		}
		data = append(data, cells)
	}
	return data
}
