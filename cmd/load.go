package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kgmicrobe/kgreason/internal/db"
	"kgmicrobe/kgreason/internal/loader"
)

var (
	loadNodes           string
	loadEdges           string
	loadBatchSize       int
	loadMaxDepth        int
	loadSkipHierarchy   bool
	loadReset           bool
	loadGenerateEdgeIDs bool
	loadJSON            bool
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Bulk-load KGX node and edge files, then build the hierarchy closure and predicate index",
	Long: `Streams the node file, then the edge file, into the database in batches.
Rows whose id already exists are ignored, so reloading the same files is safe.
A missing file is reported and skipped; a row without a required column stops the load.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		nodesPath, edgesPath := loadNodes, loadEdges
		if nodesPath == "" {
			nodesPath = cfg.NodesPath
		}
		if edgesPath == "" {
			edgesPath = cfg.EdgesPath
		}
		if nodesPath == "" && edgesPath == "" {
			return fmt.Errorf("specify --nodes and/or --edges (or KGREASON_NODES / KGREASON_EDGES)")
		}

		if cmd.Flags().Changed("batch-size") {
			cfg.BatchSize = loadBatchSize
		}
		if cmd.Flags().Changed("max-depth") {
			cfg.MaxDepth = loadMaxDepth
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		path := TargetDB()
		store, err := db.OpenDB(path)
		if err != nil {
			return err
		}
		defer store.Close()

		if loadReset {
			logger.Info("dropping existing tables", zap.String("db", path))
			if err := store.DropSchema(ctx); err != nil {
				return fmt.Errorf("resetting schema: %w", err)
			}
		}

		l, err := loader.New(store, logger, loader.Options{
			BatchSize:           cfg.BatchSize,
			MaxDepth:            cfg.MaxDepth,
			HierarchyPredicates: cfg.Catalog.Roles.HierarchySet(),
			SkipHierarchy:       loadSkipHierarchy,
			GenerateEdgeIDs:     loadGenerateEdgeIDs,
			Meta:                cfg.Catalog.Predicates,
		})
		if err != nil {
			return err
		}

		report, err := l.Run(ctx, nodesPath, edgesPath)
		if err != nil {
			return fmt.Errorf("load into %s: %w", path, err)
		}

		if loadJSON {
			return printJSON(report)
		}
		printLoadReport(path, report)
		return nil
	},
}

func init() {
	loadCmd.Flags().StringVar(&loadNodes, "nodes", "", "Node file (.tsv, .csv, optionally .gz)")
	loadCmd.Flags().StringVar(&loadEdges, "edges", "", "Edge file (.tsv, .csv, optionally .gz)")
	loadCmd.Flags().IntVar(&loadBatchSize, "batch-size", loader.DefaultBatchSize, "Rows per insert transaction")
	loadCmd.Flags().IntVar(&loadMaxDepth, "max-depth", db.MaxHierarchyDepth, "Deepest hierarchy hop to materialize (1-10)")
	loadCmd.Flags().BoolVar(&loadSkipHierarchy, "skip-hierarchy", false, "Do not rebuild the hierarchy closure")
	loadCmd.Flags().BoolVar(&loadReset, "reset", false, "Drop all tables before loading")
	loadCmd.Flags().BoolVar(&loadGenerateEdgeIDs, "generate-edge-ids", false, "Derive stable ids for edges with a blank id column")
	loadCmd.Flags().BoolVar(&loadJSON, "json", false, "Output the load report as JSON")
	rootCmd.AddCommand(loadCmd)
}

func printLoadReport(path string, r *loader.Report) {
	fmt.Printf("\n  Loaded into %s in %s\n\n", path, r.Duration.Round(time.Millisecond))
	for _, phase := range []struct {
		name string
		p    loader.PhaseReport
	}{{"nodes", r.Nodes}, {"edges", r.Edges}} {
		if phase.p.Skipped {
			fmt.Printf("  %-10s skipped (%s not found)\n", phase.name, phase.p.Path)
			continue
		}
		fmt.Printf("  %-10s %s read, %s inserted, %s already present\n", phase.name,
			humanize.Comma(phase.p.Read), humanize.Comma(phase.p.Inserted), humanize.Comma(phase.p.Ignored))
	}

	if r.Hierarchy.Skipped {
		fmt.Println("  hierarchy  skipped")
	} else {
		fmt.Printf("  hierarchy  %s rows, deepest hop %d\n", humanize.Comma(r.Hierarchy.Rows), r.Hierarchy.MaxHop)
		depths := make([]int, 0, len(r.Hierarchy.ByDepth))
		for d := range r.Hierarchy.ByDepth {
			depths = append(depths, d)
		}
		sort.Ints(depths)
		for _, d := range depths {
			fmt.Printf("    depth %2d: %s\n", d, humanize.Comma(r.Hierarchy.ByDepth[d]))
		}
	}
	fmt.Printf("  predicates %d indexed\n\n", r.Predicates)
}
