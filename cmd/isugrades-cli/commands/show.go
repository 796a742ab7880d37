package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show <owner-id>",
	Short: "Prints the stored gradebook of a portal user.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("parse owner id: %w", err)
		}

		store, sqlite, _, err := openStore()
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer sqlite.Close()

		record, found, err := store.Get(cmd.Context(), owner)
		if err != nil {
			return fmt.Errorf("get gradebook: %w", err)
		}
		if !found {
			fmt.Printf("no gradebook stored for %d\n", owner)
			return nil
		}
		renderRecord(NewTable(), record)
		return nil
	},
}
