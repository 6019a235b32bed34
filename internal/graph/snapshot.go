package graph

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
)

// NodeInfo is a lightweight node representation decoupled from DB types
type NodeInfo struct {
	ID         string `json:"id"`
	Category   string `json:"category,omitempty"`
	Name       string `json:"name,omitempty"`
	Deprecated bool   `json:"deprecated,omitempty"`
	Stub       bool   `json:"stub,omitempty"` // only known as an edge endpoint
}

// Label returns the name, falling back to the id
func (n *NodeInfo) Label() string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID
}

// EdgeInfo is a lightweight edge representation
type EdgeInfo struct {
	ID        string `json:"id,omitempty"`
	Source    string `json:"source"`
	Target    string `json:"target"`
	Predicate string `json:"predicate"`
}

// GraphSnapshot holds a graph with precomputed adjacency lists and category map.
// Adjacency lists keep parallel edges and self loops; the directed gonum view
// used by the path and centrality algorithms collapses them.
type GraphSnapshot struct {
	Nodes      map[string]*NodeInfo
	Edges      []EdgeInfo
	Adj        map[string][]string // undirected
	OutAdj     map[string][]string // directed: source -> targets
	InAdj      map[string][]string // directed: target -> sources
	Categories map[string]string   // node_id -> category, "unassigned" when blank

	g   *simple.DirectedGraph
	ids map[string]int64
	rev []string // int64 id -> node id
}

// NewSnapshot builds a GraphSnapshot from raw nodes and edges. Edges whose
// endpoints are not among nodes are dropped.
func NewSnapshot(nodes []*NodeInfo, edges []EdgeInfo) *GraphSnapshot {
	nodeMap := make(map[string]*NodeInfo, len(nodes))
	adj := make(map[string][]string, len(nodes))
	outAdj := make(map[string][]string, len(nodes))
	inAdj := make(map[string][]string, len(nodes))

	g := simple.NewDirectedGraph()
	ids := make(map[string]int64, len(nodes))
	rev := make([]string, 0, len(nodes))

	for _, n := range nodes {
		if _, dup := nodeMap[n.ID]; dup {
			continue
		}
		nodeMap[n.ID] = n
		adj[n.ID] = nil // ensure entry exists
		outAdj[n.ID] = nil
		inAdj[n.ID] = nil

		id := int64(len(rev))
		ids[n.ID] = id
		rev = append(rev, n.ID)
		g.AddNode(simple.Node(id))
	}

	kept := make([]EdgeInfo, 0, len(edges))
	for _, e := range edges {
		if _, ok := nodeMap[e.Source]; !ok {
			continue
		}
		if _, ok := nodeMap[e.Target]; !ok {
			continue
		}
		kept = append(kept, e)
		adj[e.Source] = append(adj[e.Source], e.Target)
		if e.Source != e.Target {
			adj[e.Target] = append(adj[e.Target], e.Source)
		}
		outAdj[e.Source] = append(outAdj[e.Source], e.Target)
		inAdj[e.Target] = append(inAdj[e.Target], e.Source)

		// simple graphs reject self edges
		if e.Source != e.Target {
			g.SetEdge(g.NewEdge(simple.Node(ids[e.Source]), simple.Node(ids[e.Target])))
		}
	}

	categories := make(map[string]string, len(nodeMap))
	for id, n := range nodeMap {
		categories[id] = categoryOf(n)
	}

	return &GraphSnapshot{
		Nodes:      nodeMap,
		Edges:      kept,
		Adj:        adj,
		OutAdj:     outAdj,
		InAdj:      inAdj,
		Categories: categories,
		g:          g,
		ids:        ids,
		rev:        rev,
	}
}

func categoryOf(n *NodeInfo) string {
	if n.Category == "" {
		return "unassigned"
	}
	return n.Category
}

// Induced returns a new snapshot restricted to keep and the edges among them
func (s *GraphSnapshot) Induced(keep map[string]bool) *GraphSnapshot {
	var nodes []*NodeInfo
	for _, id := range s.NodeIDs() {
		if keep[id] {
			nodes = append(nodes, s.Nodes[id])
		}
	}

	var edges []EdgeInfo
	for _, e := range s.Edges {
		if keep[e.Source] && keep[e.Target] {
			edges = append(edges, e)
		}
	}

	return NewSnapshot(nodes, edges)
}

// NodeIDs returns a sorted list of all node IDs (for deterministic output)
func (s *GraphSnapshot) NodeIDs() []string {
	ids := make([]string, 0, len(s.Nodes))
	for id := range s.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Has reports whether id is a node of the snapshot
func (s *GraphSnapshot) Has(id string) bool {
	_, ok := s.Nodes[id]
	return ok
}

// NodeCount and EdgeCount report the snapshot size
func (s *GraphSnapshot) NodeCount() int { return len(s.Nodes) }
func (s *GraphSnapshot) EdgeCount() int { return len(s.Edges) }
