// Package patterns stores historical project outcomes and the risk
// patterns derived from them: occurrence frequency, impact statistics,
// category correlations and mitigation effectiveness, reusable across
// projects.
package patterns

import (
	"time"

	"risksim/internal/risk"
)

// MitigationStats tracks how well one mitigation type performed
// historically. Effectiveness is the average fraction of the predicted
// impact that was avoided, never negative.
type MitigationStats struct {
	Effectiveness float64 `json:"effectiveness"`
	SampleSize    int     `json:"sample_size"`
}

// RiskPattern is the aggregated historical profile of one risk category
// within one project type.
type RiskPattern struct {
	PatternID             string                     `json:"pattern_id"`
	RiskCategory          risk.Category              `json:"risk_category"`
	ProjectType           string                     `json:"project_type"`
	ProjectPhase          string                     `json:"project_phase,omitempty"`
	TypicalDistribution   risk.DistributionSpec      `json:"typical_distribution"`
	FrequencyOfOccurrence float64                    `json:"frequency_of_occurrence"` // [0,1]
	AverageImpact         float64                    `json:"average_impact"`
	ImpactVariance        float64                    `json:"impact_variance"`
	CorrelationPatterns   map[string]float64         `json:"correlation_patterns,omitempty"`
	MitigationEffects     map[string]MitigationStats `json:"mitigation_effectiveness,omitempty"`
	SampleSize            int                        `json:"sample_size"`
	ConfidenceLevel       float64                    `json:"confidence_level"` // [0,1], grows with sample size
	LastUpdated           time.Time                  `json:"last_updated"`
	ContributingProjects  []string                   `json:"contributing_projects,omitempty"`

	// occurredIn counts projects of this type where the category showed
	// up at least once; kept exported via the wire form for exact
	// round-trips.
	OccurredIn int `json:"occurred_in"`
}

// PatternFilter selects patterns; zero values mean "no constraint". Every
// supplied criterion must match.
type PatternFilter struct {
	ProjectType   string
	RiskCategory  risk.Category
	MinConfidence float64
}

func (f PatternFilter) matches(p *RiskPattern) bool {
	if f.ProjectType != "" && p.ProjectType != f.ProjectType {
		return false
	}
	if f.RiskCategory != "" && p.RiskCategory != f.RiskCategory {
		return false
	}
	if p.ConfidenceLevel < f.MinConfidence {
		return false
	}
	return true
}

// confidenceFor maps a sample size onto a confidence level. Saturating
// growth: a handful of samples is weak evidence, a few dozen approaches
// the cap.
func confidenceFor(sampleSize int) float64 {
	const maxConfidence = 0.95
	c := maxConfidence * (1 - 1/(1+float64(sampleSize)/5))
	if c < 0 {
		return 0
	}
	if c > maxConfidence {
		return maxConfidence
	}
	return c
}
