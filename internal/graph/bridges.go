package graph

import "sort"

// fragileCrossEdges is the most edges two categories may share and still count as fragile
const fragileCrossEdges = 2

// ArticulationPoint is a node whose removal disconnects the graph
type ArticulationPoint struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	// ComponentsIfRemoved is how many pieces the node's component falls into without it
	ComponentsIfRemoved int `json:"components_if_removed"`
}

// BridgeEdge is an undirected connection whose removal disconnects the graph
type BridgeEdge struct {
	SourceID   string `json:"source_id"`
	TargetID   string `json:"target_id"`
	SourceName string `json:"source_name"`
	TargetName string `json:"target_name"`
}

// FragileConnection is a pair of categories joined by very few edges
type FragileConnection struct {
	CategoryA  string `json:"category_a"`
	CategoryB  string `json:"category_b"`
	CrossEdges int    `json:"cross_edges"`
}

// BridgeReport contains bridge analysis results
type BridgeReport struct {
	ArticulationPoints []ArticulationPoint `json:"articulation_points"`
	BridgeEdges        []BridgeEdge        `json:"bridge_edges"`
	FragileConnections []FragileConnection `json:"fragile_connections"`
	APCount            int                 `json:"ap_count"`
	BridgeCount        int                 `json:"bridge_count"`
}

// ComputeBridges finds articulation points, bridge edges, and fragile
// inter-category connections over the undirected view of the snapshot
func ComputeBridges(snap *GraphSnapshot) *BridgeReport {
	if len(snap.Nodes) == 0 {
		return &BridgeReport{}
	}

	ids, adj := simpleUndirected(snap)
	cut := newCutFinder(adj)
	for root := range adj {
		cut.walk(root)
	}

	var aps []ArticulationPoint
	for i := range ids {
		splits := cut.pieces(i)
		if splits < 2 {
			continue
		}
		node := snap.Nodes[ids[i]]
		aps = append(aps, ArticulationPoint{
			ID:                  node.ID,
			Name:                node.Label(),
			Category:            node.Category,
			ComponentsIfRemoved: splits,
		})
	}

	var bridges []BridgeEdge
	for _, pair := range cut.bridges {
		src, dst := snap.Nodes[ids[pair[0]]], snap.Nodes[ids[pair[1]]]
		bridges = append(bridges, BridgeEdge{
			SourceID:   src.ID,
			TargetID:   dst.ID,
			SourceName: src.Label(),
			TargetName: dst.Label(),
		})
	}
	sort.Slice(bridges, func(i, j int) bool {
		if bridges[i].SourceID != bridges[j].SourceID {
			return bridges[i].SourceID < bridges[j].SourceID
		}
		return bridges[i].TargetID < bridges[j].TargetID
	})

	return &BridgeReport{
		ArticulationPoints: aps,
		BridgeEdges:        bridges,
		FragileConnections: fragileConnections(snap),
		APCount:            len(aps),
		BridgeCount:        len(bridges),
	}
}

// simpleUndirected indexes the snapshot by sorted node id and returns an
// adjacency list with parallel edges, reverse duplicates and self loops removed
func simpleUndirected(snap *GraphSnapshot) ([]string, [][]int) {
	ids := snap.NodeIDs()
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}

	adj := make([][]int, len(ids))
	seen := make(map[[2]int]struct{}, len(snap.Edges))
	for _, e := range snap.Edges {
		u, v := index[e.Source], index[e.Target]
		if u == v {
			continue
		}
		key := [2]int{min(u, v), max(u, v)}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		adj[u] = append(adj[u], v)
		adj[v] = append(adj[v], u)
	}
	return ids, adj
}

// cutFinder runs an iterative Tarjan low-link walk. cuts[v] counts the DFS
// children of v that lose their link to the rest of the tree when v goes.
type cutFinder struct {
	adj     [][]int
	disc    []int
	low     []int
	cuts    []int
	root    []bool
	bridges [][2]int
	clock   int
}

func newCutFinder(adj [][]int) *cutFinder {
	return &cutFinder{
		adj:  adj,
		disc: make([]int, len(adj)),
		low:  make([]int, len(adj)),
		cuts: make([]int, len(adj)),
		root: make([]bool, len(adj)),
	}
}

// pieces is the number of components v's component splits into without v
func (c *cutFinder) pieces(v int) int {
	if c.root[v] || c.cuts[v] == 0 {
		return c.cuts[v]
	}
	return c.cuts[v] + 1 // plus the piece holding the parent
}

func (c *cutFinder) visit(v int) {
	c.clock++
	c.disc[v] = c.clock
	c.low[v] = c.clock
}

func (c *cutFinder) walk(root int) {
	if c.disc[root] != 0 {
		return
	}
	type frame struct{ node, parent, next int }

	c.root[root] = true
	c.visit(root)
	stack := []frame{{node: root, parent: -1}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(c.adj[top.node]) {
			child := c.adj[top.node][top.next]
			top.next++
			switch {
			case child == top.parent:
			case c.disc[child] != 0:
				c.low[top.node] = min(c.low[top.node], c.disc[child])
			default:
				c.visit(child)
				stack = append(stack, frame{node: child, parent: top.node})
			}
			continue
		}

		done := top.node
		stack = stack[:len(stack)-1]
		if len(stack) == 0 {
			break
		}
		parent := stack[len(stack)-1].node
		c.low[parent] = min(c.low[parent], c.low[done])
		if c.low[done] > c.disc[parent] {
			c.bridges = append(c.bridges, [2]int{min(parent, done), max(parent, done)})
		}
		// every root child is cut off from its siblings
		if parent == root || c.low[done] >= c.disc[parent] {
			c.cuts[parent]++
		}
	}
}

// fragileConnections lists category pairs joined by at most fragileCrossEdges edges
func fragileConnections(snap *GraphSnapshot) []FragileConnection {
	counts := make(map[[2]string]int)
	for _, e := range snap.Edges {
		a, b := snap.Categories[e.Source], snap.Categories[e.Target]
		if a == b {
			continue
		}
		if a > b {
			a, b = b, a
		}
		counts[[2]string{a, b}]++
	}

	var fragile []FragileConnection
	for pair, n := range counts {
		if n <= fragileCrossEdges {
			fragile = append(fragile, FragileConnection{CategoryA: pair[0], CategoryB: pair[1], CrossEdges: n})
		}
	}
	sort.Slice(fragile, func(i, j int) bool {
		if fragile[i].CrossEdges != fragile[j].CrossEdges {
			return fragile[i].CrossEdges < fragile[j].CrossEdges
		}
		if fragile[i].CategoryA != fragile[j].CategoryA {
			return fragile[i].CategoryA < fragile[j].CategoryA
		}
		return fragile[i].CategoryB < fragile[j].CategoryB
	})
	return fragile
}
