package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mediate-project/mediate/client"
)

func newEntityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entity",
		Short: "Read and change catalogue entities",
		Long: "Read and change catalogue entities (person, place, collection, catalogue).\n" +
			"Changes by editors are queued for review and applied once a moderator approves them.",
	}
	cmd.AddCommand(entityGetCmd())
	cmd.AddCommand(entityListCmd())
	cmd.AddCommand(entityCreateCmd())
	cmd.AddCommand(entityUpdateCmd())
	cmd.AddCommand(entityDeleteCmd())
	return cmd
}

func entityGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <type> <id>",
		Short: "Get an entity",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			view, err := apiClient.Entities.Get(context.Background(), args[0], args[1])
			if err != nil {
				fatal("get entity", err)
			}
			output(view, args[1])
		},
	}
}

func entityListCmd() *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "list <type>",
		Short: "List entities of a type",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if limit < 0 || offset < 0 {
				fmt.Fprintf(os.Stderr, "Error: --limit and --offset must be non-negative\n")
				os.Exit(1)
			}
			views, _, err := apiClient.Entities.List(context.Background(), args[0], limit, offset)
			if err != nil {
				fatal("list entities", err)
			}
			switch flagFmt {
			case "table":
				headers := []string{"ID", "UNDER MODERATION", "PENDING RECORD"}
				var rows [][]string
				for _, v := range views {
					pending := "no"
					if v.UnderModeration {
						pending = "yes"
					}
					rows = append(rows, []string{entityID(v.Entity), pending, v.PendingRecordID})
				}
				formatTable(headers, rows)
			case "quiet":
				for _, v := range views {
					fmt.Println(entityID(v.Entity))
				}
			default:
				output(views, "")
			}
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Max results")
	cmd.Flags().IntVar(&offset, "offset", 0, "Offset")
	return cmd
}

// entityFields reads the entity document from --data or --file.
func entityFields(data, file string) (json.RawMessage, error) {
	switch {
	case data != "" && file != "":
		return nil, errors.New("use either --data or --file")
	case file != "":
		b, err := os.ReadFile(file) //nolint:gosec // path supplied by the operator.
		if err != nil {
			return nil, err
		}
		data = string(b)
	case data == "":
		return nil, errors.New("--data or --file is required")
	}
	if !json.Valid([]byte(data)) {
		return nil, errors.New("entity document is not valid JSON")
	}
	return json.RawMessage(data), nil
}

func submitFlags(cmd *cobra.Command, data, file, master *string) {
	if data != nil {
		cmd.Flags().StringVar(data, "data", "", "Entity fields as JSON")
		cmd.Flags().StringVar(file, "file", "", "Read entity fields from a JSON file")
	}
	cmd.Flags().StringVar(master, "master", "", "Attach to a pending master moderation record")
}

func entityCreateCmd() *cobra.Command {
	var data, file, master string
	cmd := &cobra.Command{
		Use:   "create <type>",
		Short: "Create an entity (queued for review unless you are exempt)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			fields, err := entityFields(data, file)
			if err != nil {
				fatal("read entity", err)
			}
			res, err := apiClient.Entities.Create(context.Background(), args[0], fields, &client.SubmitOptions{MasterID: master})
			if err != nil {
				fatal("create entity", err)
			}
			printSubmission(res)
		},
	}
	submitFlags(cmd, &data, &file, &master)
	return cmd
}

func entityUpdateCmd() *cobra.Command {
	var data, file, master string
	cmd := &cobra.Command{
		Use:   "update <type> <id>",
		Short: "Replace an entity's fields",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			fields, err := entityFields(data, file)
			if err != nil {
				fatal("read entity", err)
			}
			res, err := apiClient.Entities.Update(context.Background(), args[0], args[1], fields, &client.SubmitOptions{MasterID: master})
			if err != nil {
				fatal("update entity", err)
			}
			printSubmission(res)
		},
	}
	submitFlags(cmd, &data, &file, &master)
	return cmd
}

func entityDeleteCmd() *cobra.Command {
	var master string
	cmd := &cobra.Command{
		Use:   "delete <type> <id>",
		Short: "Delete an entity",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			res, err := apiClient.Entities.Delete(context.Background(), args[0], args[1], &client.SubmitOptions{MasterID: master})
			if err != nil {
				fatal("delete entity", err)
			}
			printSubmission(res)
		},
	}
	submitFlags(cmd, nil, nil, &master)
	return cmd
}

// printSubmission shows the outcome of a write. Quiet mode prints the
// moderation record ID for queued changes and the entity ID otherwise.
func printSubmission(res *client.SubmitResult) {
	quiet := entityID(res.Entity)
	if res.Submitted() && res.Record != nil {
		quiet = res.Record.ID
	}
	if flagFmt == "table" {
		record := "-"
		if res.Record != nil {
			record = res.Record.ID
		}
		formatTable([]string{"OUTCOME", "RECORD", "NOTICE"}, [][]string{{res.Outcome, record, res.Notice}})
		return
	}
	if flagFmt != "quiet" && res.Notice != "" {
		fmt.Fprintln(os.Stderr, res.Notice)
	}
	output(res, quiet)
}

// entityID extracts the id field of an entity document.
func entityID(doc json.RawMessage) string {
	var v struct {
		ID string `json:"id"`
	}
	if len(doc) == 0 || json.Unmarshal(doc, &v) != nil {
		return ""
	}
	return v.ID
}
