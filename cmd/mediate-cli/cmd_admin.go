package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative commands",
	}
	cmd.AddCommand(adminHealthCmd())
	cmd.AddCommand(adminReadyCmd())
	return cmd
}

func adminHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Run: func(cmd *cobra.Command, args []string) {
			resp, err := apiClient.Health(context.Background())
			if err != nil {
				fatal("health", err)
			}
			if flagFmt == "table" {
				formatTable(
					[]string{"METRIC", "VALUE"},
					[][]string{
						{"Status", resp.Status},
						{"Version", resp.Version},
						{"Storage", resp.Storage},
						{"Database", resp.Database},
						{"Schema Version", fmt.Sprintf("%d", resp.SchemaVersion)},
						{"WebSocket Clients", fmt.Sprintf("%d", resp.WSClients)},
						{"Uptime", fmt.Sprintf("%.0fs", resp.UptimeSeconds)},
					},
				)
				return
			}
			output(resp, resp.Status)
		},
	}
}

func adminReadyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check server readiness (database and schema)",
		Run: func(cmd *cobra.Command, args []string) {
			resp, err := apiClient.Ready(context.Background())
			if err != nil {
				fatal("ready", err)
			}
			if flagFmt == "table" {
				names := make([]string, 0, len(resp.Checks))
				for name := range resp.Checks {
					names = append(names, name)
				}
				sort.Strings(names)
				rows := [][]string{{"status", resp.Status}}
				for _, name := range names {
					rows = append(rows, []string{name, resp.Checks[name]})
				}
				formatTable([]string{"CHECK", "RESULT"}, rows)
				return
			}
			output(resp, resp.Status)
		},
	}
}
