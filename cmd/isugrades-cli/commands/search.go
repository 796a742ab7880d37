package commands

import (
	"fmt"
	"isugrades-backend/internal/gradestore"
	"slices"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	searchLimit     int
	searchThreshold float64
)

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 5, "The maximum amount of results.")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", 0.7, "The minimum similarity of a result.")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <name>",
	Short: "Finds stored gradebooks by the owner's full name.",
	Args:  cobra.MinimumNArgs(1),
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

		matches := rankByName(records, strings.Join(args, " "), searchThreshold)
		if len(matches) > searchLimit {
			matches = matches[:searchLimit]
		}

		t := NewTable()
		t.AppendHeader(append(table.Row{"Similarity"}, recordHeader...))
		for _, match := range matches {
			t.AppendRow(append(table.Row{fmt.Sprintf("%.2f", match.Similarity)}, recordRow(match.Record)...))
		}
		t.Render()
		return nil
	},
}

type nameMatch struct {
	Record     gradestore.Record
	Similarity float64
}

func normalizeName(name string) string {
	name = strings.ToLower(strings.Join(strings.Fields(name), " "))
	return strings.ReplaceAll(name, "ё", "е")
}

// rankByName scores every record by the Jaro-Winkler similarity of its full
// name to the query, both the whole name and each of its words are compared so
// that searching for a surname alone works. Matches below threshold are dropped
// and the rest are sorted best first.
func rankByName(records []gradestore.Record, query string, threshold float64) []nameMatch {
	query = normalizeName(query)
	if query == "" {
		return nil
	}

	var matches []nameMatch
	for _, record := range records {
		name := normalizeName(record.FullName)
		best := matchr.JaroWinkler(query, name, false)
		for _, word := range strings.Fields(name) {
			similarity := matchr.JaroWinkler(query, word, false)
			if similarity > best {
				best = similarity
			}
		}
		if best < threshold {
			continue
		}
		matches = append(matches, nameMatch{Record: record, Similarity: best})
	}

	slices.SortStableFunc(matches, func(a, b nameMatch) int {
		switch {
		case a.Similarity > b.Similarity:
			return -1
		case a.Similarity < b.Similarity:
			return 1
		}
		return 0
	})
	return matches
}
