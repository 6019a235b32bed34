package graph

import (
	"context"

	"kgmicrobe/kgreason/internal/db"
)

// NodeInfoFrom converts a stored node
func NodeInfoFrom(n db.Node) *NodeInfo {
	info := &NodeInfo{ID: n.ID, Category: n.Category, Deprecated: n.Deprecated}
	if n.Name != nil {
		info.Name = *n.Name
	}
	return info
}

// EdgeInfoFrom converts a stored edge
func EdgeInfoFrom(e db.Edge) EdgeInfo {
	return EdgeInfo{ID: e.ID, Source: e.Subject, Target: e.Object, Predicate: e.Predicate}
}

// exportFromDB streams the nodes and edges tables. keep filters nodes; nil keeps all.
func exportFromDB(ctx context.Context, d *db.DB, keep func(*NodeInfo) bool) ([]*NodeInfo, []EdgeInfo, error) {
	var nodes []*NodeInfo
	err := d.ForEachNode(ctx, func(n db.Node) error {
		info := NodeInfoFrom(n)
		if keep == nil || keep(info) {
			nodes = append(nodes, info)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	var edges []EdgeInfo
	err = d.ForEachEdge(ctx, func(e db.Edge) error {
		edges = append(edges, EdgeInfoFrom(e))
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return nodes, edges, nil
}

// withStubs appends a stub node for every edge endpoint missing from nodes
func withStubs(nodes []*NodeInfo, edges []EdgeInfo) []*NodeInfo {
	known := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		known[n.ID] = true
	}
	for _, e := range edges {
		for _, id := range [2]string{e.Source, e.Target} {
			if !known[id] {
				known[id] = true
				nodes = append(nodes, &NodeInfo{ID: id, Stub: true})
			}
		}
	}
	return nodes
}
