package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mediate-project/mediate/client"
)

func newModerationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "moderation",
		Aliases: []string{"mod"},
		Short:   "Review pending catalogue changes",
	}
	cmd.AddCommand(moderationListCmd())
	cmd.AddCommand(moderationShowCmd())
	cmd.AddCommand(moderationDiffCmd())
	cmd.AddCommand(moderationDecisionCmd("approve", client.StateApproved))
	cmd.AddCommand(moderationDecisionCmd("reject", client.StateRejected))
	cmd.AddCommand(moderationStatsCmd())
	return cmd
}

func moderationListCmd() *cobra.Command {
	var opts client.ModerationListOptions
	var since string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List moderation records (pending by default)",
		Run: func(cmd *cobra.Command, args []string) {
			if opts.Limit < 0 || opts.Offset < 0 {
				fmt.Fprintf(os.Stderr, "Error: --limit and --offset must be non-negative\n")
				os.Exit(1)
			}
			if opts.State == "all" {
				opts.State = ""
			}
			if since != "" {
				d, err := time.ParseDuration(since)
				if err != nil {
					fatal("parse --since", err)
				}
				t := time.Now().Add(-d)
				opts.Since = &t
			}
			records, hasMore, err := apiClient.Moderation.List(context.Background(), &opts)
			if err != nil {
				fatal("list moderation records", err)
			}
			switch flagFmt {
			case "table":
				headers := []string{"ID", "ACTION", "TYPE", "TARGET", "STATE", "EDITOR", "CREATED"}
				var rows [][]string
				for _, r := range records {
					rows = append(rows, []string{
						r.ID, r.Action, r.TargetType, deref(r.TargetID), r.State, deref(r.EditorID), formatTime(r.CreatedAt),
					})
				}
				formatTable(headers, rows)
				if hasMore {
					fmt.Fprintln(os.Stderr, "more records available; use --offset")
				}
			case "quiet":
				for _, r := range records {
					fmt.Println(r.ID)
				}
			default:
				output(records, "")
			}
		},
	}
	cmd.Flags().StringVar(&opts.State, "state", client.StatePending, "Filter by state: pending|approved|rejected|all")
	cmd.Flags().StringVar(&opts.TargetType, "type", "", "Filter by entity type")
	cmd.Flags().StringVar(&opts.TargetID, "target", "", "Filter by target entity ID")
	cmd.Flags().StringVar(&opts.Action, "action", "", "Filter by action: create|update|delete")
	cmd.Flags().StringVar(&opts.Editor, "editor", "", "Filter by editor user ID")
	cmd.Flags().StringVar(&opts.ResolvedBy, "resolved-by", "", "Filter by moderator user ID")
	cmd.Flags().StringVar(&since, "since", "", "Only records newer than this duration (e.g. 24h)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Max results")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Offset")
	return cmd
}

func moderationShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a moderation record",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			rec, err := apiClient.Moderation.Get(context.Background(), args[0])
			if err != nil {
				fatal("get moderation record", err)
			}
			if flagFmt == "table" {
				formatTable([]string{"FIELD", "VALUE"}, [][]string{
					{"ID", rec.ID},
					{"Action", rec.Action},
					{"Type", rec.TargetType},
					{"Target", deref(rec.TargetID)},
					{"State", rec.State},
					{"Editor", deref(rec.EditorID)},
					{"Master", deref(rec.MasterID)},
					{"Created", formatTime(rec.CreatedAt)},
					{"Resolved by", deref(rec.ResolvedBy)},
					{"Reason", rec.Reason},
				})
				return
			}
			output(rec, rec.ID)
		},
	}
}

func moderationDiffCmd() *cobra.Command {
	var changedOnly bool
	cmd := &cobra.Command{
		Use:   "diff <id>",
		Short: "Compare a record's proposed snapshot with the live entity",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			diff, err := apiClient.Moderation.Diff(context.Background(), args[0])
			if err != nil {
				fatal("diff moderation record", err)
			}
			if changedOnly {
				fields := diff.Fields[:0]
				for _, f := range diff.Fields {
					if f.Changed {
						fields = append(fields, f)
					}
				}
				diff.Fields = fields
			}
			if flagFmt == "table" {
				var rows [][]string
				for _, f := range diff.Fields {
					mark := ""
					if f.Changed {
						mark = "*"
					}
					rows = append(rows, []string{mark, f.Field, diffCell(f.Original), diffCell(f.Proposed)})
				}
				formatTable([]string{"", "FIELD", "ORIGINAL", "PROPOSED"}, rows)
				return
			}
			output(diff, diff.RecordID)
		},
	}
	cmd.Flags().BoolVar(&changedOnly, "changed", false, "Only show changed fields")
	return cmd
}

// diffCell renders one side of a field comparison; absent sides are blank.
func diffCell(v *client.DiffValue) string {
	if v == nil {
		return ""
	}
	if v.Value == nil {
		return "null"
	}
	return fmt.Sprint(v.Value)
}

func moderationDecisionCmd(use, decision string) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: fmt.Sprintf("Resolve a pending record as %s", decision),
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			rec, err := apiClient.Moderation.Resolve(context.Background(), args[0], &client.ResolveRequest{
				Decision: decision,
				Reason:   reason,
			})
			if err != nil {
				fatal(use, err)
			}
			output(rec, rec.State)
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Reason shown to the editor")
	return cmd
}

func moderationStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show moderation queue counts",
		Run: func(cmd *cobra.Command, args []string) {
			stats, err := apiClient.Moderation.Stats(context.Background())
			if err != nil {
				fatal("stats", err)
			}
			if flagFmt == "table" {
				formatTable([]string{"METRIC", "VALUE"}, statsRows(stats))
				return
			}
			output(stats, strconv.Itoa(stats.ByState[client.StatePending]))
		},
	}
}

func statsRows(stats *client.ModerationStats) [][]string {
	rows := [][]string{{"Total", strconv.Itoa(stats.Total)}}
	for _, s := range []string{client.StatePending, client.StateApproved, client.StateRejected} {
		rows = append(rows, []string{"State " + s, strconv.Itoa(stats.ByState[s])})
	}
	types := make([]string, 0, len(stats.PendingByType))
	for t := range stats.PendingByType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		rows = append(rows, []string{"Pending " + t, strconv.Itoa(stats.PendingByType[t])})
	}
	return rows
}
