package reason

import (
	"context"
	"errors"
	"fmt"

	"kgmicrobe/kgreason/internal/db"
	"kgmicrobe/kgreason/internal/graph"
)

func (e *Engine) lookup(ctx context.Context, q LookupQuery) (*LookupResult, error) {
	node, err := e.store.GetNode(ctx, q.NodeID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("%w: node %s", ErrNotFound, q.NodeID)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", q.NodeID, err)
	}
	return &LookupResult{Node: *node, Xrefs: node.Xrefs(), Synonyms: node.Synonyms()}, nil
}

func (e *Engine) neighbors(ctx context.Context, q NeighborsQuery) (*NeighborsResult, error) {
	res := &NeighborsResult{NodeID: q.NodeID, Predicate: q.Predicate, Neighbors: []Neighbor{}}

	var preds db.PredicateSet
	if q.Predicate != "" {
		preds = db.Predicates(q.Predicate)
		res.MatchedPredicates = []string(preds)
		// the predicate index answers for predicates that never occur
		count, ok, err := e.store.CountPredicateEdges(ctx, preds)
		if err != nil {
			return nil, fmt.Errorf("neighbors %s: %w", q.NodeID, err)
		}
		if ok && count == 0 {
			return res, nil
		}
	}

	out, err := e.store.OutgoingEdges(ctx, q.NodeID, preds)
	if err != nil {
		return nil, fmt.Errorf("neighbors %s: %w", q.NodeID, err)
	}
	in, err := e.store.IncomingEdges(ctx, q.NodeID, preds)
	if err != nil {
		return nil, fmt.Errorf("neighbors %s: %w", q.NodeID, err)
	}

	for _, edge := range out {
		res.Neighbors = append(res.Neighbors, Neighbor{Direction: Outgoing, NeighborID: edge.Object, Edge: edge})
	}
	for _, edge := range in {
		res.Neighbors = append(res.Neighbors, Neighbor{Direction: Incoming, NeighborID: edge.Subject, Edge: edge})
	}
	res.Count = len(res.Neighbors)
	return res, nil
}

func (e *Engine) path(ctx context.Context, q PathQuery) (*PathResult, error) {
	snap, err := e.Graph(ctx)
	if err != nil {
		return nil, err
	}
	p, err := snap.ShortestPath(q.Source, q.Target)
	if err != nil {
		return nil, err
	}
	if p.Length > q.MaxHops {
		return nil, fmt.Errorf("%w: shortest path from %s to %s has %d hops, max_hops is %d",
			ErrExceedsLimit, q.Source, q.Target, p.Length, q.MaxHops)
	}
	return &PathResult{Source: q.Source, Target: q.Target, Path: p.Nodes, Length: p.Length, MaxHops: q.MaxHops}, nil
}

func (e *Engine) filter(ctx context.Context, q FilterQuery) (*FilterResult, error) {
	nodes, err := e.store.NodesByCategory(ctx, q.Category, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("filter %s: %w", q.Category, err)
	}
	if nodes == nil {
		nodes = []db.Node{}
	}
	return &FilterResult{Category: q.Category, Limit: q.Limit, Count: len(nodes), Nodes: nodes}, nil
}

// optionalNode fetches a node for context in a composite result; absence is not an error
func (e *Engine) optionalNode(ctx context.Context, id string) (*db.Node, error) {
	node, err := e.store.GetNode(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	return node, err
}

func (e *Engine) enzymesUsing(ctx context.Context, q EnzymesUsingQuery) (*EnzymesUsingResult, error) {
	substrate, err := e.optionalNode(ctx, q.SubstrateID)
	if err != nil {
		return nil, fmt.Errorf("enzymes using %s: %w", q.SubstrateID, err)
	}
	enzymes, err := e.store.EnzymesUsing(ctx, q.SubstrateID, e.roles.HasInputSet())
	if err != nil {
		return nil, err
	}
	if enzymes == nil {
		enzymes = []db.LinkedNode{}
	}
	return &EnzymesUsingResult{SubstrateID: q.SubstrateID, Substrate: substrate, Count: len(enzymes), Enzymes: enzymes}, nil
}

func (e *Engine) mediaIngredients(ctx context.Context, q MediaIngredientsQuery) (*MediaIngredientsResult, error) {
	medium, err := e.optionalNode(ctx, q.MediaID)
	if err != nil {
		return nil, fmt.Errorf("media ingredients %s: %w", q.MediaID, err)
	}
	ingredients, err := e.store.MediaIngredients(ctx, q.MediaID, e.roles.HasPartSet())
	if err != nil {
		return nil, err
	}
	if ingredients == nil {
		ingredients = []db.LinkedNode{}
	}
	return &MediaIngredientsResult{MediaID: q.MediaID, Medium: medium, Count: len(ingredients), Ingredients: ingredients}, nil
}

func (e *Engine) phenotypeMedia(ctx context.Context, q PhenotypeMediaQuery) (*PhenotypeMediaResult, error) {
	organisms, media, err := e.store.PhenotypeMedia(ctx, q.PhenotypeIDs, e.roles.HasPhenotypeSet(), e.roles.GrowsInSet())
	if err != nil {
		return nil, err
	}
	if organisms == nil {
		organisms = []db.PhenotypeOrganism{}
	}
	if media == nil {
		media = []db.MediumUsage{}
	}
	return &PhenotypeMediaResult{PhenotypeIDs: q.PhenotypeIDs, Organisms: organisms, Media: media}, nil
}

func (e *Engine) centrality(ctx context.Context, q CentralityQuery) (*CentralityResult, error) {
	snap, err := e.CategoryGraph(ctx, q.Category)
	if err != nil {
		return nil, err
	}
	scores, err := snap.Centrality(q.Algorithm)
	if err != nil {
		return nil, err
	}
	return &CentralityResult{
		Category:  q.Category,
		Algorithm: q.Algorithm,
		NodeCount: snap.NodeCount(),
		EdgeCount: snap.EdgeCount(),
		Scores:    scores,
		Top:       graph.Rank(scores, q.Limit),
	}, nil
}

func (e *Engine) subgraph(ctx context.Context, q SubgraphQuery) (*SubgraphResult, error) {
	snap, err := e.Graph(ctx)
	if err != nil {
		return nil, err
	}
	sub, missing := snap.Subgraph(q.NodeIDs, q.Radius)
	if len(missing) == len(q.NodeIDs) {
		return nil, fmt.Errorf("%w: none of the center nodes are in the graph", ErrNotFound)
	}

	res := &SubgraphResult{Centers: q.NodeIDs, Radius: q.Radius, Missing: missing, Edges: sub.Edges}
	for _, id := range sub.NodeIDs() {
		res.Nodes = append(res.Nodes, sub.Nodes[id])
	}
	if res.Edges == nil {
		res.Edges = []graph.EdgeInfo{}
	}
	return res, nil
}

func (e *Engine) hierarchy(ctx context.Context, q HierarchyQuery) (*HierarchyResult, error) {
	var (
		entries []db.HierarchyEntry
		err     error
	)
	if q.Direction == DirectionAncestors {
		entries, err = e.store.HierarchyTo(ctx, q.NodeID)
	} else {
		entries, err = e.store.HierarchyFrom(ctx, q.NodeID)
	}
	if err != nil {
		return nil, fmt.Errorf("hierarchy %s: %w", q.NodeID, err)
	}

	if len(entries) == 0 {
		// a known node without hierarchy rows is an empty answer, an unknown one is not found
		if _, err := e.lookup(ctx, LookupQuery{NodeID: q.NodeID}); err != nil {
			return nil, err
		}
		entries = []db.HierarchyEntry{}
	}
	return &HierarchyResult{NodeID: q.NodeID, Direction: q.Direction, Count: len(entries), Entries: entries}, nil
}
