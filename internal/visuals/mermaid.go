// Package visuals renders analysis results as Mermaid charts, directly
// embeddable in markdown reports.
package visuals

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"risksim/internal/analysis"
)

// ladderOrder fixes the x-axis order of the percentile ladder.
var ladderOrder = []string{"p10", "p25", "p50", "p75", "p90", "p95", "p99"}

// GenerateOutcomeCDF creates a Mermaid bar chart of the percentile ladder
// for one outcome dimension.
func GenerateOutcomeCDF(summary *analysis.PercentileSummary) string {
	if summary == nil || len(summary.Percentiles) == 0 {
		return ""
	}

	yAxisLabel := "Cost Impact"
	if summary.OutcomeType == analysis.OutcomeSchedule {
		yAxisLabel = "Schedule Impact (Days)"
	}

	var labels []string
	var values []string
	maxVal := 0.0
	for _, name := range ladderOrder {
		v, ok := summary.Percentiles[name]
		if !ok {
			continue
		}
		labels = append(labels, fmt.Sprintf("\"%s\"", name))
		values = append(values, fmt.Sprintf("%.0f", v))
		if v > maxVal {
			maxVal = v
		}
	}
	if len(values) == 0 || maxVal == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title \"Outcome Percentiles (%s)\"\n", summary.OutcomeType))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"%s\" 0 --> %d\n", yAxisLabel, int(math.Ceil(maxVal*1.1))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateContributionChart creates a Mermaid bar chart of the top risk
// contributors by variance share.
func GenerateContributionChart(report *analysis.ContributionReport) string {
	if report == nil || len(report.Contributors) == 0 {
		return ""
	}

	var labels []string
	var values []string
	maxVal := 0.0
	for _, c := range report.Contributors {
		// Mermaid chokes on spaces inside quoted x-axis labels.
		safeID := strings.ReplaceAll(c.RiskID, " ", "_")
		labels = append(labels, fmt.Sprintf("\"%s\"", safeID))
		values = append(values, fmt.Sprintf("%.1f", c.Percentage))
		if c.Percentage > maxVal {
			maxVal = c.Percentage
		}
	}
	if maxVal == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title \"Top Risk Contributors (%s variance)\"\n", report.OutcomeType))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Variance Share (%%)\" 0 --> %d\n", int(math.Ceil(maxVal*1.2))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateOutcomeHistogram creates a Mermaid bar chart of the raw outcome
// sample bucketed into equal-width bins. Buckets outside [5, 40] are
// clamped so the chart stays readable.
func GenerateOutcomeHistogram(outcomes []float64, buckets int, title string) string {
	if len(outcomes) == 0 {
		return ""
	}
	if buckets < 5 {
		buckets = 5
	}
	if buckets > 40 {
		buckets = 40
	}

	sorted := append([]float64(nil), outcomes...)
	sort.Float64s(sorted)
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if hi == lo {
		return ""
	}

	counts := make([]int, buckets)
	width := (hi - lo) / float64(buckets)
	for _, v := range sorted {
		idx := int((v - lo) / width)
		if idx >= buckets {
			idx = buckets - 1
		}
		counts[idx]++
	}

	var labels []string
	var values []string
	maxCount := 0
	for i, count := range counts {
		labels = append(labels, fmt.Sprintf("\"%.0f\"", lo+width*float64(i)+width/2))
		values = append(values, fmt.Sprintf("%d", count))
		if count > maxCount {
			maxCount = count
		}
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title \"%s\"\n", title))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Iterations\" 0 --> %d\n", maxCount+int(math.Max(1, float64(maxCount)*0.1))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}
