package graph

import (
	"fmt"
	"testing"
)

// quickSnapshot builds a snapshot of uncategorized nodes joined by related_to edges
func quickSnapshot(nodeIDs []string, edges [][2]string) *GraphSnapshot {
	var nodes []*NodeInfo
	for _, id := range nodeIDs {
		nodes = append(nodes, &NodeInfo{ID: id, Name: "Node " + id})
	}
	var edgeInfos []EdgeInfo
	for i, e := range edges {
		edgeInfos = append(edgeInfos, EdgeInfo{
			ID: fmt.Sprintf("e%d", i), Source: e[0], Target: e[1], Predicate: "biolink:related_to",
		})
	}
	return NewSnapshot(nodes, edgeInfos)
}

// categorized builds nodes from id -> category
func categorized(categories map[string]string, edges [][2]string) *GraphSnapshot {
	var nodes []*NodeInfo
	for id, cat := range categories {
		nodes = append(nodes, &NodeInfo{ID: id, Category: cat})
	}
	var edgeInfos []EdgeInfo
	for i, e := range edges {
		edgeInfos = append(edgeInfos, EdgeInfo{
			ID: fmt.Sprintf("e%d", i), Source: e[0], Target: e[1], Predicate: "biolink:related_to",
		})
	}
	return NewSnapshot(nodes, edgeInfos)
}

// --- Snapshot Tests ---

func TestSnapshot_DropsEdgesToUnknownNodes(t *testing.T) {
	snap := quickSnapshot([]string{"A", "B"}, [][2]string{{"A", "B"}, {"A", "Z"}})
	if snap.EdgeCount() != 1 {
		t.Fatalf("expected 1 edge, got %d", snap.EdgeCount())
	}
	if len(snap.OutAdj["A"]) != 1 || len(snap.InAdj["B"]) != 1 {
		t.Errorf("directed adjacency wrong: out=%v in=%v", snap.OutAdj["A"], snap.InAdj["B"])
	}
}

func TestSnapshot_SelfLoopKeptInAdjacency(t *testing.T) {
	snap := quickSnapshot([]string{"A"}, [][2]string{{"A", "A"}})
	if snap.EdgeCount() != 1 {
		t.Fatalf("expected self loop to be kept, got %d edges", snap.EdgeCount())
	}
	if len(snap.Adj["A"]) != 1 {
		t.Errorf("self loop should appear once in undirected adjacency, got %v", snap.Adj["A"])
	}
	if _, err := snap.ShortestPath("A", "A"); err != nil {
		t.Errorf("path to self: %v", err)
	}
}

func TestSnapshot_CategoryMap(t *testing.T) {
	snap := categorized(map[string]string{"C1": "biolink:ChemicalSubstance", "X": ""}, nil)
	if snap.Categories["C1"] != "biolink:ChemicalSubstance" {
		t.Errorf("C1 should map to be its category, got %s", snap.Categories["C1"])
	}
	if snap.Categories["X"] != "unassigned" {
		t.Errorf("uncategorized node should be unassigned, got %s", snap.Categories["X"])
	}
}

func TestSnapshot_Induced(t *testing.T) {
	snap := quickSnapshot(
		[]string{"A", "B", "C"},
		[][2]string{{"A", "B"}, {"B", "C"}},
	)
	sub := snap.Induced(map[string]bool{"A": true, "B": true})
	if sub.NodeCount() != 2 || sub.EdgeCount() != 1 {
		t.Errorf("expected 2 nodes and 1 edge, got %d and %d", sub.NodeCount(), sub.EdgeCount())
	}
}

// --- Topology Tests ---

func TestTopology_EmptyGraph(t *testing.T) {
	snap := NewSnapshot(nil, nil)
	r := ComputeTopology(snap, 4, 10)
	if r.TotalNodes != 0 || r.TotalEdges != 0 || r.NumComponents != 0 {
		t.Errorf("empty graph should have all zeros, got nodes=%d edges=%d components=%d",
			r.TotalNodes, r.TotalEdges, r.NumComponents)
	}
}

func TestTopology_TwoComponents(t *testing.T) {
	snap := quickSnapshot(
		[]string{"A", "B", "C", "D", "E"},
		[][2]string{{"A", "B"}, {"B", "C"}, {"D", "E"}},
	)
	r := ComputeTopology(snap, 4, 10)
	if r.NumComponents != 2 {
		t.Errorf("expected 2 components, got %d", r.NumComponents)
	}
	if r.LargestComponent != 3 {
		t.Errorf("expected largest=3, got %d", r.LargestComponent)
	}
	if r.SmallestComponent != 2 {
		t.Errorf("expected smallest=2, got %d", r.SmallestComponent)
	}
	if r.Predicates["biolink:related_to"] != 3 {
		t.Errorf("expected 3 related_to edges, got %v", r.Predicates)
	}
}

func TestTopology_CategoryCounts(t *testing.T) {
	snap := categorized(map[string]string{
		"C1": "biolink:ChemicalSubstance",
		"C2": "biolink:ChemicalSubstance",
		"T1": "biolink:OrganismTaxon",
	}, nil)
	r := ComputeTopology(snap, 4, 10)
	if r.Categories["biolink:ChemicalSubstance"] != 2 || r.Categories["biolink:OrganismTaxon"] != 1 {
		t.Errorf("unexpected category counts %v", r.Categories)
	}
}

func TestOrphan_Detection(t *testing.T) {
	snap := quickSnapshot(
		[]string{"A", "B", "C"},
		[][2]string{{"A", "B"}},
	)
	r := ComputeTopology(snap, 4, 10)
	if r.OrphanCount != 1 {
		t.Errorf("expected 1 orphan, got %d", r.OrphanCount)
	}
	if len(r.OrphanIDs) != 1 || r.OrphanIDs[0] != "C" {
		t.Errorf("C should be the orphan, got %v", r.OrphanIDs)
	}
}

func TestHub_Detection(t *testing.T) {
	snap := quickSnapshot(
		[]string{"medium", "s1", "s2", "s3", "s4", "s5"},
		[][2]string{{"medium", "s1"}, {"medium", "s2"}, {"medium", "s3"}, {"medium", "s4"}, {"medium", "s5"}},
	)
	r := ComputeTopology(snap, 4, 10)
	if len(r.Hubs) != 1 {
		t.Fatalf("expected 1 hub, got %d", len(r.Hubs))
	}
	if r.Hubs[0].ID != "medium" || r.Hubs[0].OutDegree != 5 {
		t.Errorf("expected medium with out-degree 5, got %+v", r.Hubs[0])
	}
}

// --- Tarjan Tests ---

func TestTarjan_Bridge(t *testing.T) {
	snap := quickSnapshot(
		[]string{"A", "B", "C"},
		[][2]string{{"A", "B"}, {"B", "C"}},
	)
	r := ComputeBridges(snap)
	if r.BridgeCount != 2 {
		t.Errorf("expected 2 bridges, got %d", r.BridgeCount)
	}
	if r.APCount != 1 || r.ArticulationPoints[0].ID != "B" {
		t.Fatalf("B should be the only AP, got %+v", r.ArticulationPoints)
	}
	if r.ArticulationPoints[0].ComponentsIfRemoved != 2 {
		t.Errorf("removing B should leave 2 pieces, got %d", r.ArticulationPoints[0].ComponentsIfRemoved)
	}
}

func TestTarjan_StarCenterSplits(t *testing.T) {
	// root of the walk is "a", so the center is a non-root cut vertex
	snap := quickSnapshot(
		[]string{"a", "hub", "x", "y"},
		[][2]string{{"hub", "a"}, {"hub", "x"}, {"hub", "y"}, {"hub", "hub"}},
	)
	r := ComputeBridges(snap)
	if r.APCount != 1 || r.ArticulationPoints[0].ID != "hub" {
		t.Fatalf("hub should be the only AP, got %+v", r.ArticulationPoints)
	}
	if r.ArticulationPoints[0].ComponentsIfRemoved != 3 {
		t.Errorf("removing hub should leave 3 pieces, got %d", r.ArticulationPoints[0].ComponentsIfRemoved)
	}
	if r.BridgeCount != 3 {
		t.Errorf("every spoke is a bridge, got %d", r.BridgeCount)
	}
}

func TestTarjan_CycleNoBridges(t *testing.T) {
	snap := quickSnapshot(
		[]string{"A", "B", "C"},
		[][2]string{{"A", "B"}, {"B", "C"}, {"C", "A"}},
	)
	r := ComputeBridges(snap)
	if r.BridgeCount != 0 || r.APCount != 0 {
		t.Errorf("triangle should have no bridges or APs, got %d and %d", r.BridgeCount, r.APCount)
	}
}

func TestTarjan_TwoCyclesJoined(t *testing.T) {
	snap := quickSnapshot(
		[]string{"A", "B", "C", "D", "E", "F"},
		[][2]string{
			{"A", "B"}, {"B", "C"}, {"C", "A"},
			{"D", "E"}, {"E", "F"}, {"F", "D"},
			{"C", "D"},
		},
	)
	r := ComputeBridges(snap)
	if r.BridgeCount != 1 {
		t.Errorf("expected 1 bridge (C-D), got %d", r.BridgeCount)
	}
	apIDs := make(map[string]bool)
	for _, ap := range r.ArticulationPoints {
		apIDs[ap.ID] = true
	}
	if !apIDs["C"] || !apIDs["D"] {
		t.Errorf("C and D should be APs, got %v", apIDs)
	}
}

func TestFragile_Connections(t *testing.T) {
	snap := categorized(map[string]string{
		"NCBITaxon:562": "biolink:OrganismTaxon",
		"NCBITaxon:287": "biolink:OrganismTaxon",
		"medium:1":      "biolink:GrowthMedium",
	}, [][2]string{
		{"NCBITaxon:562", "NCBITaxon:287"},
		{"NCBITaxon:562", "medium:1"},
	})
	r := ComputeBridges(snap)
	if len(r.FragileConnections) != 1 {
		t.Fatalf("expected one fragile connection, got %+v", r.FragileConnections)
	}
	fc := r.FragileConnections[0]
	if fc.CategoryA != "biolink:GrowthMedium" || fc.CategoryB != "biolink:OrganismTaxon" || fc.CrossEdges != 1 {
		t.Errorf("unexpected fragile connection %+v", fc)
	}
}

// --- Quality Tests ---

func TestQuality_StubsAndDeprecated(t *testing.T) {
	nodes := []*NodeInfo{
		{ID: "A", Name: "alpha"},
		{ID: "OLD", Deprecated: true},
		{ID: "UNUSED", Deprecated: true},
		{ID: "S", Stub: true},
	}
	edges := []EdgeInfo{
		{Source: "A", Target: "OLD", Predicate: "biolink:related_to"},
		{Source: "S", Target: "OLD", Predicate: "biolink:related_to"},
		{Source: "UNUSED", Target: "UNUSED", Predicate: "biolink:related_to"},
	}
	r := ComputeQuality(NewSnapshot(nodes, edges), 10)
	if r.StubCount != 1 || r.StubIDs[0] != "S" {
		t.Errorf("expected stub S, got %v", r.StubIDs)
	}
	if r.DeprecatedInUseCount != 1 || r.DeprecatedInUse[0].ID != "OLD" || r.DeprecatedInUse[0].RefCount != 2 {
		t.Errorf("expected OLD referenced twice, got %+v", r.DeprecatedInUse)
	}
}

// --- Health Tests ---

func TestHealthScore_Range(t *testing.T) {
	// All orphans
	snap := quickSnapshot([]string{"A", "B", "C"}, nil)
	r := Analyze(snap, DefaultConfig())
	if r.HealthScore < 0 || r.HealthScore > 1 {
		t.Errorf("health out of range: %f", r.HealthScore)
	}

	// Connected
	snap2 := quickSnapshot([]string{"A", "B"}, [][2]string{{"A", "B"}})
	r2 := Analyze(snap2, DefaultConfig())
	if r2.HealthScore < 0 || r2.HealthScore > 1 {
		t.Errorf("health out of range: %f", r2.HealthScore)
	}
}

func TestHealthScore_EmptyGraphNilConfig(t *testing.T) {
	r := Analyze(NewSnapshot(nil, nil), nil)
	if r.HealthScore != 0 || r.Topology.TotalNodes != 0 {
		t.Errorf("empty graph should score 0, got %f", r.HealthScore)
	}
	if len(r.Topology.DegreeHistogram) != 7 {
		t.Errorf("histogram buckets should always be present, got %d", len(r.Topology.DegreeHistogram))
	}
}

func TestDegreeBucket(t *testing.T) {
	cases := map[int]string{0: "0", 1: "1", 3: "2-3", 4: "4-7", 15: "8-15", 31: "16-31", 32: "32+", 1000: "32+"}
	for degree, want := range cases {
		if got := degreeBuckets[degreeBucket(degree)].label; got != want {
			t.Errorf("degree %d: got bucket %s, want %s", degree, got, want)
		}
	}
}

func TestHealthScore_Perfect(t *testing.T) {
	snap := quickSnapshot(
		[]string{"A", "B", "C"},
		[][2]string{{"A", "B"}, {"B", "C"}, {"C", "A"}},
	)
	r := Analyze(snap, DefaultConfig())
	if r.HealthScore < 0.95 {
		t.Errorf("perfect graph should have health ~1.0, got %f", r.HealthScore)
	}
}

func TestHealthScore_StubsLowerQuality(t *testing.T) {
	snap := NewSnapshot(
		[]*NodeInfo{{ID: "A"}, {ID: "B", Stub: true}},
		[]EdgeInfo{{Source: "A", Target: "B", Predicate: "biolink:related_to"}},
	)
	r := Analyze(snap, DefaultConfig())
	if r.HealthBreakdown.Quality != 0 {
		t.Errorf("half the nodes are stubs, quality should bottom out, got %f", r.HealthBreakdown.Quality)
	}
}

// --- UnionFind Tests ---

func TestUnionFind(t *testing.T) {
	uf := NewUnionFind([]string{"A", "B", "C", "D", "E"})
	if !uf.Union("A", "B") || !uf.Union("C", "B") {
		t.Fatal("first unions should merge separate components")
	}
	if uf.Union("A", "C") {
		t.Error("A and C are already connected")
	}
	if uf.Union("A", "Z") {
		t.Error("unknown ids never merge")
	}
	if !uf.Connected("A", "C") || uf.Connected("A", "D") {
		t.Error("connectivity wrong")
	}

	comps := uf.Components()
	if len(comps) != 3 || len(comps[0]) != 3 {
		t.Errorf("expected components of sizes 3,1,1, got %v", comps)
	}
	if comps[1][0] != "D" || comps[2][0] != "E" {
		t.Errorf("singletons should be ordered by id, got %v", comps[1:])
	}
}
