package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
)

func formatJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error: encode json: %v\n", err)
		os.Exit(1)
	}
}

// formatTable renders headers and rows with tablewriter. The header is the
// first row.
func formatTable(headers []string, rows [][]string) {
	table := tablewriter.NewWriter(os.Stdout)
	if err := table.Append(headers); err != nil {
		fmt.Fprintf(os.Stderr, "Error: table header: %v\n", err)
		return
	}
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			fmt.Fprintf(os.Stderr, "Error: table row: %v\n", err)
			continue
		}
	}
	if err := table.Render(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: render table: %v\n", err)
	}
}

func formatQuiet(id string) {
	fmt.Println(id)
}

func output(v any, quietVal string) {
	switch flagFmt {
	case "quiet":
		formatQuiet(quietVal)
	default:
		// Commands that support tables render them before calling output.
		formatJSON(v)
	}
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
