package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"kgmicrobe/kgreason/internal/db"
	"kgmicrobe/kgreason/internal/graph"
	"kgmicrobe/kgreason/internal/reason"
)

var (
	queryOpts     []string
	queryFile     string
	queryParallel int
	queryJSON     bool
	queryNodes    string
	queryEdges    string
)

var queryCmd = &cobra.Command{
	Use:   `query ["<command> args..."]`,
	Short: "Run one query, or a file of queries, against the knowledge graph",
	Long: `Query types:
  lookup <node_id>
  neighbors <node_id> [predicate]
  path <source_id> <target_id> [max_hops=10]
  filter <category> [limit=100]
  enzymes_using <substrate_id>
  media_ingredients <media_id>
  phenotype_media <phenotype_id,...>
  centrality <category> [algorithm=betweenness|pagerank|closeness|degree] [limit=20]
  subgraph <node_id,...> [radius=1]
  hierarchy <node_id> [direction=descendants|ancestors]

Options may be written inline as key=value or passed with --opt; --opt wins.
With --file, each non-blank line not starting with # is one query. All queries
share one engine, so the in-memory graph is built at most once.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		opts, err := parseOpts(queryOpts)
		if err != nil {
			return err
		}

		var lines []string
		switch {
		case queryFile != "":
			if lines, err = readQueryFile(queryFile); err != nil {
				return err
			}
		case len(args) == 1:
			lines = []string{args[0]}
		default:
			return fmt.Errorf("give a query string or --file")
		}

		store, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer store.Close()
		engine := newEngine(store, queryNodes, queryEdges, nil)

		results := make([]reason.Result, len(lines))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(queryParallel, 1))
		for i, line := range lines {
			g.Go(func() error {
				results[i] = engine.Run(gctx, line, opts)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		failed := 0
		for i, res := range results {
			if !res.Success {
				failed++
			}
			if queryJSON {
				continue
			}
			if len(lines) > 1 {
				fmt.Printf("> %s\n", lines[i])
			}
			if err := printResult(res); err != nil {
				return err
			}
		}
		if queryJSON {
			if len(results) == 1 {
				if err := printJSON(results[0]); err != nil {
					return err
				}
			} else if err := printJSON(results); err != nil {
				return err
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d queries failed", failed, len(results))
		}
		return nil
	},
}

func init() {
	queryCmd.Flags().StringArrayVar(&queryOpts, "opt", nil, "Named option key=value (repeatable)")
	queryCmd.Flags().StringVar(&queryFile, "file", "", "File with one query per line")
	queryCmd.Flags().IntVar(&queryParallel, "parallel", 4, "Queries run concurrently in --file mode")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "Output results as JSON")
	queryCmd.Flags().StringVar(&queryNodes, "nodes", "", "Node file used to build the in-memory graph")
	queryCmd.Flags().StringVar(&queryEdges, "edges", "", "Edge file used to build the in-memory graph")
	rootCmd.AddCommand(queryCmd)
}

// newEngine wires an engine to the store. Source files, when both exist, are
// parsed for graph builds instead of exporting the tables.
func newEngine(store *db.DB, nodesPath, edgesPath string, metrics *reason.Metrics) *reason.Engine {
	if nodesPath == "" {
		nodesPath = cfg.NodesPath
	}
	if edgesPath == "" {
		edgesPath = cfg.EdgesPath
	}
	builder := &graph.Builder{Store: store, NodesPath: nodesPath, EdgesPath: edgesPath, Logger: logger}
	opts := []reason.Option{reason.WithLogger(logger), reason.WithRoles(cfg.Catalog.Roles)}
	if metrics != nil {
		opts = append(opts, reason.WithMetrics(metrics))
	}
	return reason.New(store, builder, opts...)
}

func parseOpts(pairs []string) (map[string]string, error) {
	opts := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, val, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("--opt %q is not key=value", pair)
		}
		opts[key] = val
	}
	return opts, nil
}

func readQueryFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("no queries in %s", path)
	}
	return lines, nil
}

func printResult(res reason.Result) error {
	if !res.Success {
		fmt.Printf("  [%s] %s: %s\n\n", res.ErrorKind, res.QueryType, res.Error)
		return nil
	}

	switch data := res.Data.(type) {
	case *reason.LookupResult:
		n := data.Node
		fmt.Printf("  %s  %s  %s\n", n.ID, n.Category, n.DisplayName())
		if n.Description != nil {
			fmt.Printf("    %s\n", truncName(*n.Description, 100))
		}
		if len(data.Xrefs) > 0 {
			fmt.Printf("    xrefs: %s\n", strings.Join(data.Xrefs, ", "))
		}
		if len(data.Synonyms) > 0 {
			fmt.Printf("    synonyms: %s\n", strings.Join(data.Synonyms, ", "))
		}
	case *reason.NeighborsResult:
		fmt.Printf("  %d edges at %s\n", data.Count, data.NodeID)
		for _, nb := range data.Neighbors {
			arrow := "->"
			if nb.Direction == reason.Incoming {
				arrow = "<-"
			}
			fmt.Printf("    %s %-28s %s\n", arrow, nb.Edge.Predicate, nb.NeighborID)
		}
	case *reason.PathResult:
		fmt.Printf("  %s  (%d hops)\n", strings.Join(data.Path, " -> "), data.Length)
	case *reason.FilterResult:
		fmt.Printf("  %d nodes in %s (limit %d)\n", data.Count, data.Category, data.Limit)
		for _, n := range data.Nodes {
			fmt.Printf("    %s  %s\n", n.ID, truncName(n.DisplayName(), 60))
		}
	case *reason.CentralityResult:
		fmt.Printf("  %s over %s: %d nodes, %d edges\n", data.Algorithm, data.Category, data.NodeCount, data.EdgeCount)
		for _, s := range data.Top {
			fmt.Printf("    %.6f  %s\n", s.Score, s.ID)
		}
	case *reason.HierarchyResult:
		fmt.Printf("  %d %s of %s\n", data.Count, data.Direction, data.NodeID)
		for _, h := range data.Entries {
			fmt.Printf("    %2d  %s\n", h.PathLength, strings.Join(h.Nodes(), " -> "))
		}
	default:
		return printJSON(res.Data)
	}
	fmt.Println()
	return nil
}
