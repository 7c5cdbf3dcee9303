package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/Priya8975/webhook-exposee/internal/domain"
	"github.com/spf13/cobra"
)

var eventsJSON bool

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print the event type catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		types := domain.EventTypes()

		if eventsJSON {
			out := make(map[string]string, len(types))
			for _, et := range types {
				out[et.String()] = et.Description()
			}
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		for _, et := range types {
			fmt.Fprintf(w, "%s\t%s\n", et, et.Description())
		}
		return w.Flush()
	},
}

func init() {
	eventsCmd.Flags().BoolVar(&eventsJSON, "json", false, "output as JSON")
}
