package patterns

import (
	"encoding/json"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"risksim/internal/risk"
)

// CategoryCorrelation is one pairwise correlation between two risk
// categories, derived from historical co-occurrence.
type CategoryCorrelation struct {
	CategoryA   risk.Category `json:"category_a"`
	CategoryB   risk.Category `json:"category_b"`
	Coefficient float64       `json:"coefficient"`
	SampleSize  int           `json:"sample_size"`
}

// AnalyzeRiskCorrelations computes pairwise Pearson correlations between
// risk-category impact totals across historical projects of one type.
// Coefficients are clamped to [-1, 1] and reported once per unordered
// pair (symmetric by construction).
func (db *Database) AnalyzeRiskCorrelations(projectType string, minSampleSize int) ([]CategoryCorrelation, error) {
	if minSampleSize < 2 {
		minSampleSize = 2
	}

	// Write lock: the computed coefficients are folded back into the
	// stored patterns below.
	db.mu.Lock()
	defer db.mu.Unlock()

	// Per-project total actual impact per category, in ingestion order.
	var vectors []map[risk.Category]float64
	for _, outcome := range db.outcomes {
		if outcome.ProjectType != projectType {
			continue
		}
		totals := make(map[risk.Category]float64)
		for _, ro := range outcome.RiskOutcomes {
			if ro.Occurred {
				totals[ro.Category] += ro.ActualImpact
			}
		}
		vectors = append(vectors, totals)
	}

	if len(vectors) < minSampleSize {
		return nil, &risk.ValidationError{
			Field:      "project_type",
			Constraint: "sample_size",
			Message:    fmt.Sprintf("correlation analysis for %q requires at least %d projects, have %d", projectType, minSampleSize, len(vectors)),
		}
	}

	present := make(map[risk.Category]bool)
	for _, v := range vectors {
		for c := range v {
			present[c] = true
		}
	}
	var categories []risk.Category
	for _, c := range risk.Categories() {
		if present[c] {
			categories = append(categories, c)
		}
	}

	var out []CategoryCorrelation
	for i := 0; i < len(categories); i++ {
		for j := i + 1; j < len(categories); j++ {
			a := make([]float64, len(vectors))
			b := make([]float64, len(vectors))
			for k, v := range vectors {
				a[k] = v[categories[i]]
				b[k] = v[categories[j]]
			}
			r := stat.Correlation(a, b, nil)
			if r != r { // NaN: one of the series has zero variance
				continue
			}
			if r > 1 {
				r = 1
			} else if r < -1 {
				r = -1
			}
			out = append(out, CategoryCorrelation{
				CategoryA:   categories[i],
				CategoryB:   categories[j],
				Coefficient: r,
				SampleSize:  len(vectors),
			})
		}
	}

	// Fold the pairwise coefficients back into the stored patterns so
	// category profiles carry their own correlation view.
	for _, corr := range out {
		for _, pair := range [2][2]risk.Category{{corr.CategoryA, corr.CategoryB}, {corr.CategoryB, corr.CategoryA}} {
			if p, ok := db.patterns[patternKey{projectType: projectType, category: pair[0]}]; ok {
				if p.CorrelationPatterns == nil {
					p.CorrelationPatterns = make(map[string]float64)
				}
				p.CorrelationPatterns[string(pair[1])] = corr.Coefficient
			}
		}
	}

	return out, nil
}

// MitigationEffectiveness aggregates, per mitigation type, the historical
// effectiveness ratio and its supporting sample size for one risk
// category across all project types.
func (db *Database) MitigationEffectiveness(category risk.Category) map[string]MitigationStats {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make(map[string]MitigationStats)
	for key, p := range db.patterns {
		if key.category != category {
			continue
		}
		for name, stats := range p.MitigationEffects {
			agg := out[name]
			total := agg.SampleSize + stats.SampleSize
			if total == 0 {
				continue
			}
			agg.Effectiveness = (agg.Effectiveness*float64(agg.SampleSize) + stats.Effectiveness*float64(stats.SampleSize)) / float64(total)
			agg.SampleSize = total
			out[name] = agg
		}
	}
	return out
}

// exportFile is the portable serialized form of the database. Version 1.
type exportFile struct {
	Version       int                   `json:"version"`
	Patterns      []RiskPattern         `json:"patterns"`
	Outcomes      []risk.ProjectOutcome `json:"outcomes"`
	ProjectCounts map[string]int        `json:"project_counts"`
}

// Export serializes the full database state. Every pattern field
// round-trips exactly through Import.
func (db *Database) Export() ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	file := exportFile{
		Version:       1,
		ProjectCounts: make(map[string]int, len(db.projectCounts)),
	}
	for _, p := range db.patterns {
		file.Patterns = append(file.Patterns, clonePattern(p))
	}
	sort.Slice(file.Patterns, func(i, j int) bool { return file.Patterns[i].PatternID < file.Patterns[j].PatternID })
	file.Outcomes = append(file.Outcomes, db.outcomes...)
	for k, v := range db.projectCounts {
		file.ProjectCounts[k] = v
	}
	return json.MarshalIndent(file, "", "  ")
}

// Import replaces the database state with a previously exported form.
func (db *Database) Import(data []byte) error {
	var file exportFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse pattern export: %w", err)
	}
	if file.Version != 1 {
		return fmt.Errorf("unsupported pattern export version %d", file.Version)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	db.patterns = make(map[patternKey]*RiskPattern, len(file.Patterns))
	for i := range file.Patterns {
		p := clonePattern(&file.Patterns[i])
		db.patterns[patternKey{projectType: p.ProjectType, category: p.RiskCategory}] = &p
	}
	db.outcomes = append([]risk.ProjectOutcome(nil), file.Outcomes...)
	db.projectCounts = make(map[string]int, len(file.ProjectCounts))
	for k, v := range file.ProjectCounts {
		db.projectCounts[k] = v
	}
	return nil
}
