// Package defaults derives statistically reasonable parameters for risks
// with partial data. Category defaults are injected as configuration, not
// read from package-level state, so alternate default sets can be swapped
// in per caller.
package defaults

import (
	"fmt"
	"strings"

	"risksim/internal/dist"
	"risksim/internal/patterns"
	"risksim/internal/risk"
)

// Source states where a generated default came from.
type Source string

const (
	SourceHistorical      Source = "historical"
	SourceCategoryDefault Source = "category_default"
	SourceSystemDefault   Source = "system_default"
)

// CategoryDefault is the configured fallback profile for one risk
// category. The distribution shape is expressed as multipliers of the
// baseline impact so it scales with whatever anchor is available.
type CategoryDefault struct {
	ImpactType     risk.ImpactType
	Kind           risk.DistributionKind
	LowFactor      float64 // optimistic = baseline * LowFactor
	ModeFactor     float64
	HighFactor     float64
	BaselineImpact float64 // used when the risk itself has no anchor
}

// Config is the injectable default set.
type Config struct {
	Categories map[risk.Category]CategoryDefault
	System     CategoryDefault
}

// NewConfig returns the built-in default set: PERT-shaped impacts with
// category-appropriate spreads and impact types.
func NewConfig() Config {
	return Config{
		Categories: map[risk.Category]CategoryDefault{
			risk.CategoryTechnical:  {ImpactType: risk.ImpactBoth, Kind: risk.PERT, LowFactor: 0.5, ModeFactor: 1.0, HighFactor: 2.5, BaselineImpact: 50000},
			risk.CategoryFinancial:  {ImpactType: risk.ImpactCost, Kind: risk.PERT, LowFactor: 0.6, ModeFactor: 1.0, HighFactor: 2.0, BaselineImpact: 75000},
			risk.CategorySchedule:   {ImpactType: risk.ImpactSchedule, Kind: risk.PERT, LowFactor: 0.4, ModeFactor: 1.0, HighFactor: 3.0, BaselineImpact: 15},
			risk.CategoryResource:   {ImpactType: risk.ImpactBoth, Kind: risk.PERT, LowFactor: 0.5, ModeFactor: 1.0, HighFactor: 2.0, BaselineImpact: 40000},
			risk.CategoryRegulatory: {ImpactType: risk.ImpactCost, Kind: risk.PERT, LowFactor: 0.8, ModeFactor: 1.0, HighFactor: 4.0, BaselineImpact: 100000},
			risk.CategoryExternal:   {ImpactType: risk.ImpactBoth, Kind: risk.PERT, LowFactor: 0.3, ModeFactor: 1.0, HighFactor: 3.5, BaselineImpact: 60000},
		},
		System: CategoryDefault{ImpactType: risk.ImpactCost, Kind: risk.PERT, LowFactor: 0.5, ModeFactor: 1.0, HighFactor: 2.0, BaselineImpact: 50000},
	}
}

// AvailableData is whatever partial information exists for a risk.
type AvailableData struct {
	ID                string                   `json:"id"`
	Name              string                   `json:"name,omitempty"`
	Category          risk.Category            `json:"category,omitempty"`
	ImpactType        risk.ImpactType          `json:"impact_type,omitempty"`
	BaselineImpact    float64                  `json:"baseline_impact,omitempty"`
	ThreePoint        *dist.ThreePointEstimate `json:"three_point_estimate,omitempty"`
	HistoricalImpacts []float64                `json:"historical_impacts,omitempty"`
}

// ProjectContext narrows pattern lookups to comparable projects.
type ProjectContext struct {
	ProjectType  string `json:"project_type,omitempty"`
	ProjectPhase string `json:"project_phase,omitempty"`
}

// DefaultParameters is a complete, valid parameter set for a previously
// incomplete risk.
type DefaultParameters struct {
	RiskID           string                `json:"risk_id"`
	Distribution     risk.Distribution     `json:"-"`
	DistributionSpec risk.DistributionSpec `json:"probability_distribution"`
	BaselineImpact   float64               `json:"baseline_impact"`
	ImpactType       risk.ImpactType       `json:"impact_type"`
	Confidence       float64               `json:"confidence_level"` // [0,1]
	Source           Source                `json:"source"`
	Reasoning        string                `json:"reasoning"`
}

// Handler fills parameter gaps. The pattern database is optional: without
// it the handler still works, falling back to configured defaults with a
// confidence penalty.
type Handler struct {
	config   Config
	patterns *patterns.Database
}

// NewHandler creates a handler with the given config and an optional
// pattern database (nil disables historical lookups).
func NewHandler(config Config, db *patterns.Database) *Handler {
	if config.Categories == nil {
		config = NewConfig()
	}
	return &Handler{config: config, patterns: db}
}

// minimum samples before a historical pattern outranks configured defaults.
const minPatternSamples = 3

// GenerateDefaults produces a full parameter set for partially populated
// risk data. Field provenance prefers the risk's own data, then historical
// patterns for its category, then configured category defaults, then the
// system default. Identical category and completeness always produce the
// same impact type and distribution family.
func (h *Handler) GenerateDefaults(data AvailableData, ctx *ProjectContext) (*DefaultParameters, error) {
	if data.ID == "" {
		return nil, &risk.ValidationError{Field: "id", Constraint: "required", Message: "available data requires a risk id"}
	}

	catDefault, hasCategory := h.config.Categories[data.Category]
	if !hasCategory {
		catDefault = h.config.System
	}

	pattern := h.lookupPattern(data.Category, ctx)

	var reasons []string
	source := SourceSystemDefault
	if hasCategory {
		source = SourceCategoryDefault
	}

	// Impact type: own data, then category profile.
	impactType := data.ImpactType
	if !impactType.Valid() {
		impactType = catDefault.ImpactType
		if hasCategory {
			reasons = append(reasons, fmt.Sprintf("impact type %q taken from the %s category profile", impactType, data.Category))
		} else {
			reasons = append(reasons, fmt.Sprintf("impact type %q taken from the system default", impactType))
		}
	} else {
		reasons = append(reasons, "impact type supplied by the caller")
	}

	// Baseline impact: own data, then pattern average, then configuration.
	baseline := data.BaselineImpact
	switch {
	case baseline > 0:
		reasons = append(reasons, "baseline impact supplied by the caller")
	case pattern != nil && pattern.AverageImpact > 0:
		baseline = pattern.AverageImpact
		source = SourceHistorical
		reasons = append(reasons, fmt.Sprintf("baseline impact %.0f derived from %d historical outcomes for %s risks", baseline, pattern.SampleSize, data.Category))
	default:
		baseline = catDefault.BaselineImpact
		reasons = append(reasons, fmt.Sprintf("baseline impact %.0f taken from configured defaults", baseline))
	}

	// Distribution: own estimates first, then historical pattern shape,
	// then the configured shape scaled to the baseline.
	distribution, distReason, distSource, err := h.buildDistribution(data, pattern, catDefault, baseline)
	if err != nil {
		return nil, err
	}
	reasons = append(reasons, distReason)
	if distSource == SourceHistorical {
		source = SourceHistorical
	}

	completeness := completenessOf(data)
	confidence := h.confidenceFor(source, pattern, completeness)

	return &DefaultParameters{
		RiskID:           data.ID,
		Distribution:     distribution,
		DistributionSpec: risk.SpecFor(distribution),
		BaselineImpact:   baseline,
		ImpactType:       impactType,
		Confidence:       confidence,
		Source:           source,
		Reasoning:        strings.Join(reasons, "; "),
	}, nil
}

func (h *Handler) lookupPattern(category risk.Category, ctx *ProjectContext) *patterns.RiskPattern {
	if h.patterns == nil || !category.Valid() {
		return nil
	}
	filter := patterns.PatternFilter{RiskCategory: category}
	if ctx != nil {
		filter.ProjectType = ctx.ProjectType
	}
	matches := h.patterns.GetRiskPatterns(filter)
	if len(matches) == 0 && filter.ProjectType != "" {
		// Fall back to any project type for this category.
		matches = h.patterns.GetRiskPatterns(patterns.PatternFilter{RiskCategory: category})
	}
	for i := range matches {
		if matches[i].SampleSize >= minPatternSamples {
			return &matches[i]
		}
	}
	return nil
}

func (h *Handler) buildDistribution(data AvailableData, pattern *patterns.RiskPattern, catDefault CategoryDefault, baseline float64) (risk.Distribution, string, Source, error) {
	if data.ThreePoint != nil {
		d, err := dist.CreateDistribution(dist.RiskData{ThreePoint: data.ThreePoint}, risk.Triangular)
		if err != nil {
			return nil, "", "", err
		}
		return d, "distribution built from the supplied three-point estimate", SourceCategoryDefault, nil
	}
	if len(data.HistoricalImpacts) >= 3 {
		fit, err := dist.FitFromHistorical(data.HistoricalImpacts, nil)
		if err != nil {
			return nil, "", "", err
		}
		return fit.Best, fmt.Sprintf("distribution fitted to %d supplied historical impacts (%s, AIC %.1f)", len(data.HistoricalImpacts), fit.BestKind, fit.AIC), SourceCategoryDefault, nil
	}
	if pattern != nil {
		d, err := pattern.TypicalDistribution.Build()
		if err == nil {
			return d, fmt.Sprintf("distribution taken from the historical %s pattern for %s projects (%d samples)", pattern.RiskCategory, pattern.ProjectType, pattern.SampleSize), SourceHistorical, nil
		}
		// A malformed stored pattern falls through to configured defaults.
	}

	d := risk.PERTDist{
		Min:  baseline * catDefault.LowFactor,
		Mode: baseline * catDefault.ModeFactor,
		Max:  baseline * catDefault.HighFactor,
	}
	if err := d.Validate(); err != nil {
		return nil, "", "", err
	}
	return d, fmt.Sprintf("PERT distribution shaped by configured category factors (%.1fx / %.1fx / %.1fx of baseline)", catDefault.LowFactor, catDefault.ModeFactor, catDefault.HighFactor), SourceCategoryDefault, nil
}

// completenessOf scores how much of the risk definition was supplied, in
// quarters: category, impact type, baseline, and any distribution input.
func completenessOf(data AvailableData) float64 {
	fields := 0
	if data.Category.Valid() {
		fields++
	}
	if data.ImpactType.Valid() {
		fields++
	}
	if data.BaselineImpact > 0 {
		fields++
	}
	if data.ThreePoint != nil || len(data.HistoricalImpacts) >= 3 {
		fields++
	}
	return float64(fields) / 4
}

// confidenceFor combines source quality with data completeness. Very
// incomplete data is capped regardless of source so downstream consumers
// never over-trust a mostly guessed risk.
func (h *Handler) confidenceFor(source Source, pattern *patterns.RiskPattern, completeness float64) float64 {
	base := 0.4
	switch source {
	case SourceHistorical:
		base = 0.6
		if pattern != nil {
			base += 0.3 * pattern.ConfidenceLevel
		}
	case SourceCategoryDefault:
		base = 0.55
	}

	confidence := base * (0.6 + 0.4*completeness)
	if completeness <= 0.25 && confidence > 0.5 {
		confidence = 0.5
	} else if completeness <= 0.5 && confidence > 0.7 {
		confidence = 0.7
	}
	if confidence > 1 {
		confidence = 1
	}
	return confidence
}

// ValidateGeneratedDefaults flags weak defaults so callers can route them
// for human review instead of feeding them straight into a simulation.
func ValidateGeneratedDefaults(p *DefaultParameters) risk.ValidationResult {
	res := risk.NewValidationResult()
	if p == nil {
		res.Add("default parameters are nil")
		return res
	}
	if p.Distribution == nil {
		res.Add("generated defaults carry no distribution")
	} else if err := p.Distribution.Validate(); err != nil {
		res.Add(err.Error())
	}
	if p.BaselineImpact <= 0 {
		res.Add("generated baseline impact is not positive")
	}
	if !p.ImpactType.Valid() {
		res.Add("generated impact type is invalid")
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		res.Add("confidence level is outside [0, 1]")
	}
	if p.Confidence < 0.4 {
		res.Warn(fmt.Sprintf("low confidence (%.2f): defaults from %s should be reviewed before simulation", p.Confidence, p.Source))
	}
	return res
}
