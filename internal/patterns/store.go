package patterns

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"risksim/internal/risk"
)

// Database is the in-memory pattern store with optional JSONL persistence
// of the ingested outcomes. Safe for concurrent readers; writes are
// serialized per database.
type Database struct {
	mu sync.RWMutex

	patterns      map[patternKey]*RiskPattern
	outcomes      []risk.ProjectOutcome
	projectCounts map[string]int // projects seen per project type
}

type patternKey struct {
	projectType string
	category    risk.Category
}

// NewDatabase creates an empty pattern database.
func NewDatabase() *Database {
	return &Database{
		patterns:      make(map[patternKey]*RiskPattern),
		projectCounts: make(map[string]int),
	}
}

// AddProjectOutcome ingests a completed project's actual risk outcomes and
// updates every derived pattern.
func (db *Database) AddProjectOutcome(outcome risk.ProjectOutcome) error {
	if outcome.ProjectID == "" {
		return &risk.ValidationError{Field: "project_id", Constraint: "required", Message: "project outcome requires a project id"}
	}
	if outcome.ProjectType == "" {
		return &risk.ValidationError{Field: "project_type", Constraint: "required", Message: "project outcome requires a project type"}
	}
	for i, ro := range outcome.RiskOutcomes {
		if !ro.Category.Valid() {
			return &risk.ValidationError{
				Field:      fmt.Sprintf("risk_outcomes[%d].category", i),
				Constraint: "enum",
				Message:    "unknown risk category: " + string(ro.Category),
			}
		}
		if math.IsNaN(ro.ActualImpact) || math.IsInf(ro.ActualImpact, 0) {
			return &risk.ValidationError{
				Field:      fmt.Sprintf("risk_outcomes[%d].actual_impact", i),
				Constraint: "finite",
				Message:    "actual impact must be finite",
			}
		}
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	db.outcomes = append(db.outcomes, outcome)
	db.projectCounts[outcome.ProjectType]++
	db.applyOutcome(outcome)

	log.Debug().
		Str("projectId", outcome.ProjectID).
		Str("projectType", outcome.ProjectType).
		Int("riskOutcomes", len(outcome.RiskOutcomes)).
		Msg("Project outcome ingested into pattern database")
	return nil
}

// applyOutcome updates derived patterns; callers hold the write lock.
func (db *Database) applyOutcome(outcome risk.ProjectOutcome) {
	occurredCategories := make(map[risk.Category]bool)

	for _, ro := range outcome.RiskOutcomes {
		key := patternKey{projectType: outcome.ProjectType, category: ro.Category}
		p, ok := db.patterns[key]
		if !ok {
			p = &RiskPattern{
				PatternID:         fmt.Sprintf("%s:%s", outcome.ProjectType, ro.Category),
				RiskCategory:      ro.Category,
				ProjectType:       outcome.ProjectType,
				ProjectPhase:      outcome.ProjectPhase,
				MitigationEffects: make(map[string]MitigationStats),
			}
			db.patterns[key] = p
		}

		if ro.Occurred {
			// Online mean/variance update from the stored aggregates.
			n := float64(p.SampleSize)
			delta := ro.ActualImpact - p.AverageImpact
			newMean := p.AverageImpact + delta/(n+1)
			p.ImpactVariance = (n*p.ImpactVariance + delta*(ro.ActualImpact-newMean)) / (n + 1)
			p.AverageImpact = newMean
			p.SampleSize++
			if !occurredCategories[ro.Category] {
				p.OccurredIn++
				occurredCategories[ro.Category] = true
			}
		}

		if ro.MitigationUsed != "" && ro.PredictedImpact > 0 {
			avoided := 1 - ro.ActualImpact/ro.PredictedImpact
			if avoided < 0 {
				avoided = 0
			}
			stats := p.MitigationEffects[ro.MitigationUsed]
			stats.Effectiveness = (stats.Effectiveness*float64(stats.SampleSize) + avoided) / float64(stats.SampleSize+1)
			stats.SampleSize++
			p.MitigationEffects[ro.MitigationUsed] = stats
		}

		p.FrequencyOfOccurrence = float64(p.OccurredIn) / float64(db.projectCounts[outcome.ProjectType])
		p.ConfidenceLevel = confidenceFor(p.SampleSize)
		p.LastUpdated = outcome.CompletedAt
		if p.LastUpdated.IsZero() {
			p.LastUpdated = time.Now()
		}
		p.ContributingProjects = appendUnique(p.ContributingProjects, outcome.ProjectID)
		p.TypicalDistribution = typicalDistribution(p.AverageImpact, p.ImpactVariance)
	}
}

// typicalDistribution derives a representative distribution spec from the
// pattern's impact moments: lognormal for positive means (the usual shape
// of impact data), normal otherwise.
func typicalDistribution(mean, variance float64) risk.DistributionSpec {
	std := math.Sqrt(variance)
	if mean > 0 && std > 0 {
		cv2 := variance / (mean * mean)
		sigma2 := math.Log(1 + cv2)
		return risk.DistributionSpec{
			Type: risk.LogNormal,
			Parameters: map[string]float64{
				"mu":    math.Log(mean) - sigma2/2,
				"sigma": math.Sqrt(sigma2),
			},
		}
	}
	if std <= 0 {
		std = math.Max(math.Abs(mean)*0.1, 1)
	}
	return risk.DistributionSpec{
		Type:       risk.Normal,
		Parameters: map[string]float64{"mean": mean, "std": std},
	}
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

// GetRiskPatterns returns patterns matching every supplied filter
// criterion, in stable pattern-id order.
func (db *Database) GetRiskPatterns(filter PatternFilter) []RiskPattern {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var out []RiskPattern
	for _, p := range db.patterns {
		if filter.matches(p) {
			out = append(out, clonePattern(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PatternID < out[j].PatternID })
	return out
}

// clonePattern returns a value copy with its maps duplicated so callers
// cannot mutate stored state.
func clonePattern(p *RiskPattern) RiskPattern {
	c := *p
	if p.CorrelationPatterns != nil {
		c.CorrelationPatterns = make(map[string]float64, len(p.CorrelationPatterns))
		for k, v := range p.CorrelationPatterns {
			c.CorrelationPatterns[k] = v
		}
	}
	if p.MitigationEffects != nil {
		c.MitigationEffects = make(map[string]MitigationStats, len(p.MitigationEffects))
		for k, v := range p.MitigationEffects {
			c.MitigationEffects[k] = v
		}
	}
	if p.ContributingProjects != nil {
		c.ContributingProjects = append([]string(nil), p.ContributingProjects...)
	}
	if p.TypicalDistribution.Parameters != nil {
		params := make(map[string]float64, len(p.TypicalDistribution.Parameters))
		for k, v := range p.TypicalDistribution.Parameters {
			params[k] = v
		}
		c.TypicalDistribution.Parameters = params
	}
	return c
}

// OutcomeCount reports how many project outcomes have been ingested.
func (db *Database) OutcomeCount() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.outcomes)
}

// Outcomes returns a copy of every ingested project outcome in insertion
// order.
func (db *Database) Outcomes() []risk.ProjectOutcome {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return append([]risk.ProjectOutcome(nil), db.outcomes...)
}

// outcomesFileName is the persisted JSONL file, one project outcome per line.
const outcomesFileName = "project_outcomes.jsonl"

// Save writes every ingested outcome to a JSONL file under dir. Patterns
// are derived state and are rebuilt on load.
func (db *Database) Save(dir string) error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	path := filepath.Join(dir, outcomesFileName)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create pattern store file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, outcome := range db.outcomes {
		line, err := json.Marshal(outcome)
		if err != nil {
			return fmt.Errorf("failed to marshal project outcome %s: %w", outcome.ProjectID, err)
		}
		writer.Write(line)
		writer.WriteByte('\n')
	}
	if err := writer.Flush(); err != nil {
		return err
	}

	log.Debug().Str("path", path).Int("outcomes", len(db.outcomes)).Msg("Pattern store saved")
	return nil
}

// Load replays outcomes from a JSONL file under dir, rebuilding all
// derived patterns. A missing file is not an error: the database simply
// starts empty (degraded operation with defaults still works).
func (db *Database) Load(dir string) error {
	path := filepath.Join(dir, outcomesFileName)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug().Str("path", path).Msg("No pattern store found, starting empty")
			return nil
		}
		return fmt.Errorf("failed to open pattern store file: %w", err)
	}
	defer file.Close()

	db.mu.Lock()
	defer db.mu.Unlock()

	db.patterns = make(map[patternKey]*RiskPattern)
	db.outcomes = nil
	db.projectCounts = make(map[string]int)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	lines := 0
	for scanner.Scan() {
		var outcome risk.ProjectOutcome
		if err := json.Unmarshal(scanner.Bytes(), &outcome); err != nil {
			return fmt.Errorf("corrupt pattern store line %d: %w", lines+1, err)
		}
		db.outcomes = append(db.outcomes, outcome)
		db.projectCounts[outcome.ProjectType]++
		db.applyOutcome(outcome)
		lines++
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	log.Info().Str("path", path).Int("outcomes", lines).Msg("Pattern store loaded")
	return nil
}
