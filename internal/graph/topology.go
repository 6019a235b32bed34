package graph

import "sort"

// HubNode is a node with high connectivity
type HubNode struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Category  string `json:"category,omitempty"`
	Degree    int    `json:"degree"`
	InDegree  int    `json:"in_degree"`
	OutDegree int    `json:"out_degree"`
}

// DegreeBucket is one bucket in the degree histogram
type DegreeBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// TopologyReport contains topology analysis results
type TopologyReport struct {
	TotalNodes        int            `json:"total_nodes"`
	TotalEdges        int            `json:"total_edges"`
	NumComponents     int            `json:"num_components"`
	LargestComponent  int            `json:"largest_component"`
	SmallestComponent int            `json:"smallest_component"`
	OrphanCount       int            `json:"orphan_count"`
	OrphanIDs         []string       `json:"orphan_ids"`
	DegreeHistogram   []DegreeBucket `json:"degree_histogram"`
	Hubs              []HubNode      `json:"hubs"`
	Categories        map[string]int `json:"categories"`
	Predicates        map[string]int `json:"predicates"`
}

// ComputeTopology analyzes graph topology: components, orphans, degree
// distribution, hubs, and node/edge counts per category and predicate
func ComputeTopology(snap *GraphSnapshot, hubThreshold, topN int) *TopologyReport {
	report := &TopologyReport{
		TotalNodes:      len(snap.Nodes),
		TotalEdges:      len(snap.Edges),
		DegreeHistogram: defaultHistogram(),
		Categories:      make(map[string]int),
		Predicates:      make(map[string]int),
	}
	if report.TotalNodes == 0 {
		return report
	}

	ids := snap.NodeIDs()
	uf := NewUnionFind(ids)
	for _, e := range snap.Edges {
		uf.Union(e.Source, e.Target)
		report.Predicates[e.Predicate]++
	}
	sizes := componentSizes(uf.Components())
	report.NumComponents = len(sizes)
	report.LargestComponent, report.SmallestComponent = sizes[0], sizes[len(sizes)-1]

	for _, id := range ids {
		report.Categories[snap.Categories[id]]++

		degree := len(snap.Adj[id])
		report.DegreeHistogram[degreeBucket(degree)].Count++
		if degree == 0 {
			report.OrphanIDs = append(report.OrphanIDs, id)
		}
		if degree > hubThreshold {
			node := snap.Nodes[id]
			report.Hubs = append(report.Hubs, HubNode{
				ID:        id,
				Name:      node.Label(),
				Category:  node.Category,
				Degree:    degree,
				InDegree:  len(snap.InAdj[id]),
				OutDegree: len(snap.OutAdj[id]),
			})
		}
	}

	// ids are sorted, so orphans are too and equal-degree hubs stay in id order
	report.OrphanCount = len(report.OrphanIDs)
	report.OrphanIDs = report.OrphanIDs[:min(len(report.OrphanIDs), topN)]
	sort.SliceStable(report.Hubs, func(i, j int) bool { return report.Hubs[i].Degree > report.Hubs[j].Degree })
	report.Hubs = report.Hubs[:min(len(report.Hubs), topN)]

	return report
}

// componentSizes returns component sizes, largest first
func componentSizes(components [][]string) []int {
	sizes := make([]int, len(components))
	for i, c := range components {
		sizes[i] = len(c)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(sizes)))
	return sizes
}

// degreeBuckets are log2-scaled upper bounds; the last bucket is open
var degreeBuckets = []struct {
	label string
	upper int
}{
	{"0", 0}, {"1", 1}, {"2-3", 3}, {"4-7", 7}, {"8-15", 15}, {"16-31", 31}, {"32+", -1},
}

func defaultHistogram() []DegreeBucket {
	histogram := make([]DegreeBucket, len(degreeBuckets))
	for i, b := range degreeBuckets {
		histogram[i].Label = b.label
	}
	return histogram
}

func degreeBucket(degree int) int {
	for i, b := range degreeBuckets {
		if b.upper >= 0 && degree <= b.upper {
			return i
		}
	}
	return len(degreeBuckets) - 1
}
