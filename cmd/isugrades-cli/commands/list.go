package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists every stored gradebook.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, sqlite, _, err := openStore()
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer sqlite.Close()

		records, err := store.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list gradebooks: %w", err)
		}

		t := NewTable()
		t.AppendHeader(recordHeader)
		for _, record := range records {
			t.AppendRow(recordRow(record))
		}
		t.AppendFooter(table.Row{"Total", len(records)})
		t.Render()
		return nil
	},
}
