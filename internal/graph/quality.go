package graph

import "sort"

// DeprecatedRef is a deprecated node that edges still point at
type DeprecatedRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	RefCount int    `json:"reference_count"`
}

// QualityReport flags data the loader accepted but that weakens the graph:
// edge endpoints never loaded as nodes, and deprecated nodes still referenced
type QualityReport struct {
	StubIDs              []string        `json:"stub_ids"`
	StubCount            int             `json:"stub_count"`
	DeprecatedInUse      []DeprecatedRef `json:"deprecated_in_use"`
	DeprecatedInUseCount int             `json:"deprecated_in_use_count"`
}

// ComputeQuality lists stub endpoints and referenced deprecated nodes, at most topN of each
func ComputeQuality(snap *GraphSnapshot, topN int) *QualityReport {
	var stubs []string
	var deprecated []DeprecatedRef

	for _, id := range snap.NodeIDs() {
		node := snap.Nodes[id]
		if node.Stub {
			stubs = append(stubs, id)
			continue
		}
		if !node.Deprecated {
			continue
		}

		// self loops do not keep a node alive
		refs := 0
		for _, src := range snap.InAdj[id] {
			if src != id {
				refs++
			}
		}
		if refs > 0 {
			deprecated = append(deprecated, DeprecatedRef{ID: id, Name: node.Label(), RefCount: refs})
		}
	}
	sort.SliceStable(deprecated, func(i, j int) bool {
		return deprecated[i].RefCount > deprecated[j].RefCount
	})

	report := &QualityReport{StubCount: len(stubs), DeprecatedInUseCount: len(deprecated)}
	if len(stubs) > topN {
		stubs = stubs[:topN]
	}
	if len(deprecated) > topN {
		deprecated = deprecated[:topN]
	}
	report.StubIDs = stubs
	report.DeprecatedInUse = deprecated
	return report
}
