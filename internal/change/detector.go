// Package change compares risk-set snapshots, classifies what moved between
// them and derives validation guidance for the model owner. Detection is
// deterministic: identical inputs always produce the same report.
package change

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"risksim/internal/risk"
)

// DefaultSensitivityThreshold is the relative parameter change below which
// a delta is not reported at all.
const DefaultSensitivityThreshold = 0.10

// Type classifies what kind of model change was detected.
type Type string

const (
	DistributionParameters Type = "distribution_parameters"
	BaselineImpact         Type = "baseline_impact"
	CategoryChange         Type = "category"
	ImpactTypeChange       Type = "impact_type"
	RiskAdded              Type = "risk_added"
	RiskRemoved            Type = "risk_removed"
)

// Severity grades how much a change can move simulation results.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// rank orders severities for comparisons and priority mapping.
func (s Severity) rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	default:
		return 3
	}
}

// Record is a single detected change.
type Record struct {
	ChangeType        Type     `json:"change_type"`
	AffectedComponent string   `json:"affected_component"` // "<risk id>.<field path>"
	RiskID            string   `json:"risk_id"`
	Severity          Severity `json:"severity"`
	Description       string   `json:"description"`
	RelativeChange    float64  `json:"relative_change,omitempty"`
	OldValue          string   `json:"old_value,omitempty"`
	NewValue          string   `json:"new_value,omitempty"`
}

// Report aggregates every change found between two snapshots.
type Report struct {
	ReportID        string    `json:"report_id"`
	GeneratedAt     time.Time `json:"generated_at"`
	BaselineID      string    `json:"baseline_id,omitempty"`
	DetectedChanges []Record  `json:"detected_changes"`
	TotalChanges    int       `json:"total_changes"`
}

// Detector compares snapshots and keeps named baselines plus a bounded
// history of produced reports. Safe for concurrent readers; writers are
// serialized per detector.
type Detector struct {
	threshold float64

	mu        sync.RWMutex
	baselines map[string][]risk.Risk
	history   []HistoryEntry
}

// HistoryEntry is a timestamped past report.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Report    *Report   `json:"report"`
}

// historyLimit bounds how many past reports are retained.
const historyLimit = 256

// NewDetector creates a detector with the given sensitivity threshold;
// non-positive values fall back to the default.
func NewDetector(sensitivityThreshold float64) *Detector {
	if sensitivityThreshold <= 0 {
		sensitivityThreshold = DefaultSensitivityThreshold
	}
	return &Detector{
		threshold: sensitivityThreshold,
		baselines: make(map[string][]risk.Risk),
	}
}

// StoreBaseline snapshots a risk set under an id. The copy is deep, so
// later mutation of the caller's set cannot corrupt the baseline.
func (d *Detector) StoreBaseline(id string, risks []risk.Risk) error {
	if id == "" {
		return &risk.ValidationError{Field: "baseline_id", Constraint: "required", Message: "baseline id must not be empty"}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.baselines[id] = risk.CloneSet(risks)
	return nil
}

// DetectAgainstBaseline compares current risks with a stored baseline.
func (d *Detector) DetectAgainstBaseline(current []risk.Risk, baselineID string) (*Report, error) {
	d.mu.RLock()
	baseline, ok := d.baselines[baselineID]
	d.mu.RUnlock()
	if !ok {
		return nil, &risk.ValidationError{Field: "baseline_id", Constraint: "unknown_id", Message: "no stored baseline model with id: " + baselineID}
	}
	report := d.Detect(current, baseline)
	report.BaselineID = baselineID
	return report, nil
}

// Detect compares two snapshots and returns every change at or above the
// sensitivity threshold, in deterministic order.
func (d *Detector) Detect(current, previous []risk.Risk) *Report {
	prevByID := make(map[string]*risk.Risk, len(previous))
	for i := range previous {
		prevByID[previous[i].ID] = &previous[i]
	}
	curByID := make(map[string]*risk.Risk, len(current))
	for i := range current {
		curByID[current[i].ID] = &current[i]
	}

	var records []Record

	for i := range current {
		cur := &current[i]
		prev, existed := prevByID[cur.ID]
		if !existed {
			records = append(records, Record{
				ChangeType:        RiskAdded,
				AffectedComponent: cur.ID,
				RiskID:            cur.ID,
				Severity:          SeverityHigh,
				Description:       fmt.Sprintf("Risk %q (%s) was added to the model", cur.Name, cur.ID),
			})
			continue
		}
		records = append(records, d.compareRisk(cur, prev)...)
	}

	for i := range previous {
		if _, still := curByID[previous[i].ID]; !still {
			records = append(records, Record{
				ChangeType:        RiskRemoved,
				AffectedComponent: previous[i].ID,
				RiskID:            previous[i].ID,
				Severity:          SeverityHigh,
				Description:       fmt.Sprintf("Risk %q (%s) was removed from the model", previous[i].Name, previous[i].ID),
			})
		}
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].RiskID != records[j].RiskID {
			return records[i].RiskID < records[j].RiskID
		}
		return records[i].AffectedComponent < records[j].AffectedComponent
	})

	report := &Report{
		ReportID:        uuid.NewString(),
		GeneratedAt:     time.Now(),
		DetectedChanges: records,
		TotalChanges:    len(records),
	}

	d.mu.Lock()
	d.history = append(d.history, HistoryEntry{Timestamp: report.GeneratedAt, Report: report})
	if len(d.history) > historyLimit {
		d.history = d.history[len(d.history)-historyLimit:]
	}
	d.mu.Unlock()

	return report
}

// compareRisk diffs a single risk against its previous version.
func (d *Detector) compareRisk(cur, prev *risk.Risk) []Record {
	var records []Record

	if cur.Category != prev.Category {
		records = append(records, Record{
			ChangeType:        CategoryChange,
			AffectedComponent: cur.ID + ".category",
			RiskID:            cur.ID,
			Severity:          SeverityMedium,
			Description:       fmt.Sprintf("Risk %s category changed from %s to %s", cur.ID, prev.Category, cur.Category),
			OldValue:          string(prev.Category),
			NewValue:          string(cur.Category),
		})
	}

	if cur.ImpactType != prev.ImpactType {
		records = append(records, Record{
			ChangeType:        ImpactTypeChange,
			AffectedComponent: cur.ID + ".impact_type",
			RiskID:            cur.ID,
			Severity:          SeverityHigh,
			Description:       fmt.Sprintf("Risk %s impact type changed from %s to %s; outcome aggregation shifts between cost and schedule", cur.ID, prev.ImpactType, cur.ImpactType),
			OldValue:          string(prev.ImpactType),
			NewValue:          string(cur.ImpactType),
		})
	}

	if rel := relativeChange(prev.BaselineImpact, cur.BaselineImpact); rel >= d.threshold {
		records = append(records, Record{
			ChangeType:        BaselineImpact,
			AffectedComponent: cur.ID + ".baseline_impact",
			RiskID:            cur.ID,
			Severity:          severityFor(rel),
			Description:       fmt.Sprintf("Risk %s baseline impact changed from %g to %g (%.0f%%)", cur.ID, prev.BaselineImpact, cur.BaselineImpact, rel*100),
			RelativeChange:    rel,
			OldValue:          fmt.Sprintf("%g", prev.BaselineImpact),
			NewValue:          fmt.Sprintf("%g", cur.BaselineImpact),
		})
	}

	records = append(records, d.compareDistribution(cur, prev)...)
	return records
}

func (d *Detector) compareDistribution(cur, prev *risk.Risk) []Record {
	if cur.Distribution == nil || prev.Distribution == nil {
		return nil
	}

	if cur.Distribution.Kind() != prev.Distribution.Kind() {
		return []Record{{
			ChangeType:        DistributionParameters,
			AffectedComponent: cur.ID + ".probability_distribution.type",
			RiskID:            cur.ID,
			Severity:          SeverityCritical,
			Description:       fmt.Sprintf("Risk %s distribution family changed from %s to %s; the sampling model is structurally different", cur.ID, prev.Distribution.Kind(), cur.Distribution.Kind()),
			OldValue:          string(prev.Distribution.Kind()),
			NewValue:          string(cur.Distribution.Kind()),
		}}
	}

	var records []Record
	prevParams := prev.Distribution.Params()
	curParams := cur.Distribution.Params()

	names := make([]string, 0, len(curParams))
	for name := range curParams {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		oldV, ok := prevParams[name]
		if !ok {
			continue
		}
		newV := curParams[name]
		rel := relativeChange(oldV, newV)
		if rel < d.threshold {
			continue
		}
		records = append(records, Record{
			ChangeType:        DistributionParameters,
			AffectedComponent: fmt.Sprintf("%s.probability_distribution.%s", cur.ID, name),
			RiskID:            cur.ID,
			Severity:          severityFor(rel),
			Description:       fmt.Sprintf("Risk %s distribution parameter %q changed from %g to %g (%.0f%%)", cur.ID, name, oldV, newV, rel*100),
			RelativeChange:    rel,
			OldValue:          fmt.Sprintf("%g", oldV),
			NewValue:          fmt.Sprintf("%g", newV),
		})
	}
	return records
}

// severityFor maps a relative change magnitude onto a severity band. Bands
// are monotone: a larger change never gets a lower severity.
func severityFor(rel float64) Severity {
	switch {
	case rel >= 0.60:
		return SeverityCritical
	case rel >= 0.40:
		return SeverityHigh
	case rel >= 0.25:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func relativeChange(oldV, newV float64) float64 {
	denom := math.Abs(oldV)
	if denom < 1e-9 {
		if math.Abs(newV) < 1e-9 {
			return 0
		}
		return 1
	}
	return math.Abs(newV-oldV) / denom
}

// History returns report entries no older than daysBack days, newest last.
func (d *Detector) History(daysBack int) []HistoryEntry {
	cutoff := time.Now().AddDate(0, 0, -daysBack)
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []HistoryEntry
	for _, e := range d.history {
		if !e.Timestamp.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out
}
