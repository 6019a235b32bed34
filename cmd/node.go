package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"kgmicrobe/kgreason/internal/reason"
)

var nodeJSON bool

var nodeCmd = &cobra.Command{
	Use:   "node <id-or-name>",
	Short: "Show a node, its edges, and its hierarchy rows",
	Long:  "Resolves the reference by exact id, then by exact name, and runs lookup, neighbors and hierarchy for it.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		node, err := ResolveNode(ctx, d, args[0])
		if err != nil {
			return err
		}

		engine := reason.New(d, nil, reason.WithLogger(logger), reason.WithRoles(cfg.Catalog.Roles))
		results := []reason.Result{
			engine.Execute(ctx, reason.LookupQuery{NodeID: node.ID}),
			engine.Execute(ctx, reason.NeighborsQuery{NodeID: node.ID}),
			engine.Execute(ctx, reason.HierarchyQuery{NodeID: node.ID, Direction: reason.DirectionDescendants}),
		}
		if nodeJSON {
			return printJSON(results)
		}
		for _, res := range results {
			if err := printResult(res); err != nil {
				return err
			}
		}
		for _, res := range results {
			if err := res.Err(); err != nil {
				return fmt.Errorf("node %s: %w", node.ID, err)
			}
		}
		return nil
	},
}

func init() {
	nodeCmd.Flags().BoolVar(&nodeJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(nodeCmd)
}
