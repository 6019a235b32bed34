package graph

import "math"

// HealthBreakdown shows the sub-scores of the health formula
type HealthBreakdown struct {
	Connectivity float64 `json:"connectivity"`
	Components   float64 `json:"components"`
	Quality      float64 `json:"quality"`
	Fragility    float64 `json:"fragility"`
}

// AnalysisReport is the full analysis result
type AnalysisReport struct {
	Category        string          `json:"category,omitempty"`
	HealthScore     float64         `json:"health_score"`
	HealthBreakdown HealthBreakdown `json:"health_breakdown"`
	Topology        *TopologyReport `json:"topology"`
	Quality         *QualityReport  `json:"quality"`
	Bridges         *BridgeReport   `json:"bridges"`
}

// AnalyzerConfig holds analysis parameters
type AnalyzerConfig struct {
	HubThreshold int
	TopN         int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *AnalyzerConfig {
	return &AnalyzerConfig{
		HubThreshold: 10,
		TopN:         50,
	}
}

// healthWeights weight the sub-scores; they sum to 1
var healthWeights = HealthBreakdown{Connectivity: 0.30, Components: 0.25, Quality: 0.25, Fragility: 0.20}

// Analyze runs all analyses and computes a composite health score. A nil
// config uses DefaultConfig.
func Analyze(snap *GraphSnapshot, config *AnalyzerConfig) *AnalysisReport {
	if config == nil {
		config = DefaultConfig()
	}
	report := &AnalysisReport{
		Topology: ComputeTopology(snap, config.HubThreshold, config.TopN),
		Quality:  ComputeQuality(snap, config.TopN),
		Bridges:  ComputeBridges(snap),
	}

	total := report.Topology.TotalNodes
	if total == 0 {
		return report
	}
	b := HealthBreakdown{
		Connectivity: score(report.Topology.OrphanCount, total, 0.2),
		Components:   1 / float64(report.Topology.NumComponents),
		Quality:      score(report.Quality.StubCount+report.Quality.DeprecatedInUseCount, total, 0.1),
		Fragility:    score(report.Bridges.APCount, total, 0.05),
	}
	report.HealthBreakdown = b
	report.HealthScore = healthWeights.Connectivity*b.Connectivity +
		healthWeights.Components*b.Components +
		healthWeights.Quality*b.Quality +
		healthWeights.Fragility*b.Fragility
	return report
}

// score maps the flagged share of nodes to [0,1]; a share at or above
// ceiling scores 0
func score(flagged, total int, ceiling float64) float64 {
	share := math.Min(float64(flagged)/float64(total), ceiling)
	return clamp(1-share/ceiling, 0, 1)
}

func clamp(val, lo, hi float64) float64 {
	return math.Max(lo, math.Min(val, hi))
}
