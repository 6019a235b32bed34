package cmd

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"kgmicrobe/kgreason/internal/graph"
)

var (
	analyzeJSON         bool
	analyzeCategory     string
	analyzeTopN         int
	analyzeHubThreshold int
	analyzeNodes        string
	analyzeEdges        string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze graph structure: topology, data quality, bridges, health score",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		nodesPath, edgesPath := analyzeNodes, analyzeEdges
		if nodesPath == "" {
			nodesPath = cfg.NodesPath
		}
		if edgesPath == "" {
			edgesPath = cfg.EdgesPath
		}
		builder := &graph.Builder{Store: d, NodesPath: nodesPath, EdgesPath: edgesPath, Logger: logger}

		var snap *graph.GraphSnapshot
		if analyzeCategory != "" {
			snap, err = builder.BuildCategory(ctx, analyzeCategory)
		} else {
			snap, err = builder.Build(ctx)
		}
		if err != nil {
			return fmt.Errorf("loading graph: %w", err)
		}

		config := &graph.AnalyzerConfig{
			HubThreshold: analyzeHubThreshold,
			TopN:         analyzeTopN,
		}

		report := graph.Analyze(snap, config)
		report.Category = analyzeCategory

		if analyzeJSON {
			return printJSON(report)
		}

		printHumanReadable(report, snap)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Output as JSON")
	analyzeCmd.Flags().StringVar(&analyzeCategory, "category", "", "Scope analysis to nodes of this category")
	analyzeCmd.Flags().IntVar(&analyzeTopN, "top-n", 10, "Number of top items to show per section")
	analyzeCmd.Flags().IntVar(&analyzeHubThreshold, "hub-threshold", 50, "Minimum degree to consider a node a hub")
	analyzeCmd.Flags().StringVar(&analyzeNodes, "nodes", "", "Node file to parse instead of exporting the tables")
	analyzeCmd.Flags().StringVar(&analyzeEdges, "edges", "", "Edge file to parse instead of exporting the tables")
	rootCmd.AddCommand(analyzeCmd)
}

func limitOf(n, max int) int {
	if n < max {
		return n
	}
	return max
}

func printHumanReadable(report *graph.AnalysisReport, snap *graph.GraphSnapshot) {
	// Health bar
	barLen := int(report.HealthScore * 20)
	if barLen > 20 {
		barLen = 20
	}
	bar := strings.Repeat("█", barLen) + strings.Repeat("░", 20-barLen)
	scope := "Graph"
	if report.Category != "" {
		scope = report.Category
	}
	fmt.Printf("\n  %s Health: %.0f%%  [%s]\n", scope, report.HealthScore*100, bar)
	fmt.Printf("  breakdown: connectivity=%.2f components=%.2f quality=%.2f fragility=%.2f\n\n",
		report.HealthBreakdown.Connectivity,
		report.HealthBreakdown.Components,
		report.HealthBreakdown.Quality,
		report.HealthBreakdown.Fragility)

	// Topology
	t := report.Topology
	fmt.Println("  TOPOLOGY")
	fmt.Println("  ────────────────────────────────────────")
	fmt.Printf("  Nodes: %d  Edges: %d  Components: %d\n", t.TotalNodes, t.TotalEdges, t.NumComponents)
	fmt.Printf("  Largest component: %d  Smallest: %d\n", t.LargestComponent, t.SmallestComponent)

	if t.OrphanCount > 0 {
		fmt.Printf("  Orphans: %d disconnected nodes\n", t.OrphanCount)
		for _, id := range t.OrphanIDs[:limitOf(len(t.OrphanIDs), 5)] {
			name := "?"
			if node := snap.Nodes[id]; node != nil {
				name = truncName(node.Label(), 50)
			}
			fmt.Printf("    - %s (%s)\n", id, name)
		}
		if t.OrphanCount > 5 {
			fmt.Printf("    ... and %d more\n", t.OrphanCount-5)
		}
	}

	// Degree distribution
	fmt.Println("\n  Degree distribution:")
	for _, b := range t.DegreeHistogram {
		if b.Count > 0 {
			barWidth := int(math.Log2(float64(b.Count))) + 2
			if barWidth < 1 {
				barWidth = 1
			}
			fmt.Printf("    %5s: %6d  %s\n", b.Label, b.Count, strings.Repeat("=", barWidth))
		}
	}

	// Hubs
	if len(t.Hubs) > 0 {
		fmt.Println("\n  Top hubs (degree > threshold):")
		for _, hub := range t.Hubs {
			fmt.Printf("    %s degree=%d (in=%d, out=%d)  %s\n",
				hub.ID, hub.Degree, hub.InDegree, hub.OutDegree, truncName(hub.Name, 40))
		}
	}

	// Quality
	q := report.Quality
	if q.StubCount > 0 || q.DeprecatedInUseCount > 0 {
		fmt.Println("\n  DATA QUALITY")
		fmt.Println("  ────────────────────────────────────────")
		if q.StubCount > 0 {
			fmt.Printf("  %d edge endpoints never loaded as nodes:\n", q.StubCount)
			for _, id := range q.StubIDs[:limitOf(len(q.StubIDs), 10)] {
				fmt.Printf("    - %s\n", id)
			}
		}
		if q.DeprecatedInUseCount > 0 {
			fmt.Printf("  %d deprecated nodes still referenced:\n", q.DeprecatedInUseCount)
			for _, ref := range q.DeprecatedInUse[:limitOf(len(q.DeprecatedInUse), 10)] {
				fmt.Printf("    %s %d refs  %s\n", ref.ID, ref.RefCount, truncName(ref.Name, 40))
			}
		}
	}

	// Bridges
	br := report.Bridges
	if br.APCount > 0 || br.BridgeCount > 0 || len(br.FragileConnections) > 0 {
		fmt.Println("\n  STRUCTURAL FRAGILITY")
		fmt.Println("  ────────────────────────────────────────")
		if br.APCount > 0 {
			fmt.Printf("  %d articulation points (removal disconnects graph):\n", br.APCount)
			for _, ap := range br.ArticulationPoints[:limitOf(len(br.ArticulationPoints), 10)] {
				fmt.Printf("    %s (splits into %d)  %s\n", ap.ID, ap.ComponentsIfRemoved, truncName(ap.Name, 40))
			}
		}
		if br.BridgeCount > 0 {
			fmt.Printf("  %d bridge edges (removal disconnects graph):\n", br.BridgeCount)
			for _, be := range br.BridgeEdges[:limitOf(len(br.BridgeEdges), 10)] {
				fmt.Printf("    %s -> %s\n", truncName(be.SourceName, 30), truncName(be.TargetName, 30))
			}
		}
		if len(br.FragileConnections) > 0 {
			fmt.Printf("  %d fragile inter-category connections (<=2 edges):\n", len(br.FragileConnections))
			for _, fc := range br.FragileConnections[:limitOf(len(br.FragileConnections), 10)] {
				s := ""
				if fc.CrossEdges != 1 {
					s = "s"
				}
				fmt.Printf("    %s <-> %s (%d edge%s)\n",
					truncName(fc.CategoryA, 30), truncName(fc.CategoryB, 30), fc.CrossEdges, s)
			}
		}
	}

	fmt.Println()
}
