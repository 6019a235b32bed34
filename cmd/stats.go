package cmd

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show table sizes, node categories, and the predicate index",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer store.Close()

		stats, err := store.Stats(ctx)
		if err != nil {
			return err
		}
		preds, err := store.PredicateStats(ctx)
		if err != nil {
			return err
		}

		if statsJSON {
			return printJSON(map[string]any{"tables": stats, "predicates": preds})
		}

		fmt.Println("\n  TABLES")
		fmt.Println("  ────────────────────────────────────────")
		fmt.Printf("  nodes            %12s\n", humanize.Comma(stats.Nodes))
		fmt.Printf("  edges            %12s\n", humanize.Comma(stats.Edges))
		fmt.Printf("  hierarchies      %12s\n", humanize.Comma(stats.Hierarchy))
		fmt.Printf("  predicate_index  %12s\n", humanize.Comma(stats.Predicates))

		categories := make([]string, 0, len(stats.Categories))
		for c := range stats.Categories {
			categories = append(categories, c)
		}
		sort.Slice(categories, func(i, j int) bool {
			return stats.Categories[categories[i]] > stats.Categories[categories[j]]
		})
		fmt.Println("\n  CATEGORIES")
		fmt.Println("  ────────────────────────────────────────")
		for _, c := range categories {
			fmt.Printf("  %-40s %12s\n", truncName(c, 40), humanize.Comma(stats.Categories[c]))
		}

		fmt.Println("\n  PREDICATES")
		fmt.Println("  ────────────────────────────────────────")
		for _, p := range preds {
			desc := ""
			if p.Description != nil {
				desc = truncName(*p.Description, 40)
			}
			fmt.Printf("  %-40s %12s  %s\n", truncName(p.Predicate, 40), humanize.Comma(p.EdgeCount), desc)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(statsCmd)
}
