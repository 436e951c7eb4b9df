package change

import (
	"fmt"
	"sort"
)

// Priority of a validation area.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ValidationArea is one item of review guidance synthesized from a change
// report.
type ValidationArea struct {
	Area               string   `json:"area"`
	Priority           Priority `json:"priority"`
	RecommendedActions []string `json:"recommended_actions"`
	ValidationMethods  []string `json:"validation_methods"`
	RelatedRisks       []string `json:"related_risks"`
}

// HighlightValidationAreas groups a report's changes by change type and
// turns each group into a prioritized review area. The list is non-empty
// whenever the report contains any change.
func (d *Detector) HighlightValidationAreas(report *Report) []ValidationArea {
	if report == nil || report.TotalChanges == 0 {
		return nil
	}

	type group struct {
		worst Severity
		risks map[string]bool
	}
	groups := make(map[Type]*group)
	for _, rec := range report.DetectedChanges {
		g, ok := groups[rec.ChangeType]
		if !ok {
			g = &group{worst: rec.Severity, risks: make(map[string]bool)}
			groups[rec.ChangeType] = g
		}
		if rec.Severity.rank() > g.worst.rank() {
			g.worst = rec.Severity
		}
		g.risks[rec.RiskID] = true
	}

	var areas []ValidationArea
	for changeType, g := range groups {
		related := make([]string, 0, len(g.risks))
		for id := range g.risks {
			related = append(related, id)
		}
		sort.Strings(related)

		area := ValidationArea{
			Priority:     priorityFor(g.worst),
			RelatedRisks: related,
		}

		switch changeType {
		case DistributionParameters:
			area.Area = fmt.Sprintf("Distribution parameters (%d risks affected)", len(related))
			area.RecommendedActions = []string{
				"Re-validate the affected distributions against the latest historical data",
				"Re-run the simulation and compare P50/P90 outcomes with the previous model",
			}
			area.ValidationMethods = []string{
				"Goodness-of-fit test against recent observations",
				"Side-by-side percentile comparison between model versions",
			}
		case BaselineImpact:
			area.Area = fmt.Sprintf("Baseline impact estimates (%d risks affected)", len(related))
			area.RecommendedActions = []string{
				"Confirm the revised impact estimates with the risk owners",
				"Check whether correlated risks need the same revision",
			}
			area.ValidationMethods = []string{
				"Expert review of the three-point estimates",
				"Comparison with pattern-database averages for the category",
			}
		case CategoryChange:
			area.Area = fmt.Sprintf("Risk categorization (%d risks affected)", len(related))
			area.RecommendedActions = []string{
				"Verify the new categories against the project risk register",
				"Review category-level defaults and correlations that no longer apply",
			}
			area.ValidationMethods = []string{
				"Register cross-check",
				"Category correlation re-analysis",
			}
		case ImpactTypeChange:
			area.Area = fmt.Sprintf("Impact type assignment (%d risks affected)", len(related))
			area.RecommendedActions = []string{
				"Confirm whether the risk drives cost, schedule or both",
				"Re-run schedule compliance analysis after the change",
			}
			area.ValidationMethods = []string{
				"Outcome aggregation audit",
				"Schedule compliance comparison between model versions",
			}
		case RiskAdded:
			area.Area = fmt.Sprintf("Newly added risks (%d)", len(related))
			area.RecommendedActions = []string{
				"Validate distributions and baseline impacts of new risks",
				"Check for missing correlation dependencies with existing risks",
			}
			area.ValidationMethods = []string{
				"Three-point estimate review",
				"Correlation matrix completeness check",
			}
		case RiskRemoved:
			area.Area = fmt.Sprintf("Removed risks (%d)", len(related))
			area.RecommendedActions = []string{
				"Confirm each removal is a retirement, not an accidental deletion",
				"Remove dangling correlation entries referencing retired risks",
			}
			area.ValidationMethods = []string{
				"Change-log confirmation with the model owner",
				"Correlation matrix referential check",
			}
		}

		areas = append(areas, area)
	}

	sort.Slice(areas, func(i, j int) bool {
		pi, pj := priorityRank(areas[i].Priority), priorityRank(areas[j].Priority)
		if pi != pj {
			return pi > pj
		}
		return areas[i].Area < areas[j].Area
	})
	return areas
}

func priorityFor(s Severity) Priority {
	switch s {
	case SeverityCritical, SeverityHigh:
		return PriorityHigh
	case SeverityMedium:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

func priorityRank(p Priority) int {
	switch p {
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}
