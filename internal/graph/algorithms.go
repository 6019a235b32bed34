package graph

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

var (
	// ErrNodeNotInGraph is returned when an endpoint is not a node of the snapshot
	ErrNodeNotInGraph = errors.New("node not in graph")
	// ErrNoPath is returned when the target is unreachable from the source
	ErrNoPath = errors.New("no path")
	// ErrUnknownAlgorithm is returned for an unsupported centrality algorithm
	ErrUnknownAlgorithm = errors.New("unknown centrality algorithm")
)

// Centrality algorithms
const (
	Betweenness = "betweenness"
	PageRank    = "pagerank"
	Closeness   = "closeness"
	Degree      = "degree"
)

// Algorithms lists the supported centrality algorithms
var Algorithms = []string{Betweenness, PageRank, Closeness, Degree}

const (
	pageRankDamping   = 0.85
	pageRankTolerance = 1e-6
)

// Path is a shortest path; Length counts edges
type Path struct {
	Nodes  []string `json:"path"`
	Length int      `json:"length"`
}

// ShortestPath follows edge direction from src to dst with unit edge weights
func (s *GraphSnapshot) ShortestPath(src, dst string) (Path, error) {
	from, ok := s.ids[src]
	if !ok {
		return Path{}, fmt.Errorf("%w: %s", ErrNodeNotInGraph, src)
	}
	to, ok := s.ids[dst]
	if !ok {
		return Path{}, fmt.Errorf("%w: %s", ErrNodeNotInGraph, dst)
	}
	if from == to {
		return Path{Nodes: []string{src}}, nil
	}

	shortest := path.DijkstraFrom(simple.Node(from), s.g)
	nodes, _ := shortest.To(to)
	if len(nodes) == 0 {
		return Path{}, fmt.Errorf("%w from %s to %s", ErrNoPath, src, dst)
	}

	p := Path{Nodes: make([]string, len(nodes)), Length: len(nodes) - 1}
	for i, n := range nodes {
		p.Nodes[i] = s.rev[n.ID()]
	}
	return p, nil
}

// Centrality scores every node of the snapshot. Betweenness is normalized by
// (n-1)(n-2), degree by n-1; closeness and PageRank are gonum's values.
func (s *GraphSnapshot) Centrality(algorithm string) (map[string]float64, error) {
	var raw map[int64]float64
	n := float64(len(s.rev))

	switch strings.ToLower(algorithm) {
	case Betweenness:
		raw = network.Betweenness(s.g)
		if n > 2 {
			scale := 1 / ((n - 1) * (n - 2))
			for id := range raw {
				raw[id] *= scale
			}
		}
	case PageRank:
		if n > 0 {
			raw = network.PageRank(s.g, pageRankDamping, pageRankTolerance)
		}
	case Closeness:
		raw = network.Closeness(s.g, path.DijkstraAllPaths(s.g))
	case Degree:
		raw = make(map[int64]float64, len(s.rev))
		if n > 1 {
			nodes := s.g.Nodes()
			for nodes.Next() {
				id := nodes.Node().ID()
				raw[id] = float64(s.g.From(id).Len()+s.g.To(id).Len()) / (n - 1)
			}
		}
	default:
		return nil, fmt.Errorf("%w %q (supported: %s)", ErrUnknownAlgorithm, algorithm, strings.Join(Algorithms, ", "))
	}

	scores := make(map[string]float64, len(s.rev))
	for i, id := range s.rev {
		v := raw[int64(i)]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		scores[id] = v
	}
	return scores, nil
}

// Score is one ranked centrality value
type Score struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Rank orders scores descending, ties by id, keeping at most limit (0 keeps all)
func Rank(scores map[string]float64, limit int) []Score {
	ranked := make([]Score, 0, len(scores))
	for id, v := range scores {
		ranked = append(ranked, Score{ID: id, Score: v})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ID < ranked[j].ID
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// Subgraph returns the union of the undirected radius-hop neighborhoods of
// centers with the edges among them. Centers not in the snapshot are
// returned as missing.
func (s *GraphSnapshot) Subgraph(centers []string, radius int) (*GraphSnapshot, []string) {
	keep := make(map[string]bool)
	var missing []string

	for _, c := range centers {
		if !s.Has(c) {
			missing = append(missing, c)
			continue
		}
		dist := map[string]int{c: 0}
		frontier := []string{c}
		keep[c] = true
		for hop := 1; hop <= radius && len(frontier) > 0; hop++ {
			var next []string
			for _, id := range frontier {
				for _, nb := range s.Adj[id] {
					if _, seen := dist[nb]; seen {
						continue
					}
					dist[nb] = hop
					keep[nb] = true
					next = append(next, nb)
				}
			}
			frontier = next
		}
	}

	return s.Induced(keep), missing
}
