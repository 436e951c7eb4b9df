package analysis

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"risksim/internal/risk"
	"risksim/internal/simulation"
)

// Contributor ranks one risk's share of the aggregate outcome variance.
type Contributor struct {
	RiskID        string  `json:"risk_id"`
	Rank          int     `json:"rank"`
	VarianceShare float64 `json:"variance_share"` // Cov(risk, total) / Var(total)
	Percentage    float64 `json:"percentage"`
}

// ContributionReport carries the ranked contributors plus the explained
// variance share. Because shares are covariance-based, the explained share
// over ALL risks sums to ~1.0 for a purely additive model; clamping of
// negative noise shares means the reported top-N sum typically lands in
// the 0.7-1.0 band rather than exactly 1.
type ContributionReport struct {
	OutcomeType    OutcomeType   `json:"outcome_type"`
	Contributors   []Contributor `json:"contributors"`
	ExplainedShare float64       `json:"explained_share"`
}

// IdentifyTopRiskContributors ranks risks by their covariance contribution
// to the aggregate outcome variance and returns the top n.
func IdentifyTopRiskContributors(results *simulation.Results, outcomeType OutcomeType, topN int) (*ContributionReport, error) {
	total, err := outcomes(results, outcomeType)
	if err != nil {
		return nil, err
	}
	if len(total) == 0 {
		return nil, &risk.ValidationError{Field: "results", Constraint: "empty", Message: "no outcomes to analyze"}
	}
	if topN <= 0 {
		return nil, &risk.ValidationError{Field: "top_n", Constraint: "positive", Message: "top_n must be > 0"}
	}

	totalVar := stat.Variance(total, nil)
	report := &ContributionReport{OutcomeType: outcomeType}

	if totalVar <= 0 {
		// Degenerate run: nothing explains a zero-variance outcome.
		return report, nil
	}

	all := make([]Contributor, 0, len(results.RiskContributions))
	for id, series := range results.RiskContributions {
		if len(series) != len(total) {
			continue
		}
		share := stat.Covariance(series, total, nil) / totalVar
		if share < 0 {
			// Small negative shares are sampling noise from risks that do
			// not feed this outcome dimension; they carry no signal.
			share = 0
		}
		all = append(all, Contributor{RiskID: id, VarianceShare: share, Percentage: share * 100})
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].VarianceShare != all[j].VarianceShare {
			return all[i].VarianceShare > all[j].VarianceShare
		}
		return all[i].RiskID < all[j].RiskID
	})

	for _, c := range all {
		report.ExplainedShare += c.VarianceShare
	}
	if len(all) > topN {
		all = all[:topN]
	}
	for i := range all {
		all[i].Rank = i + 1
	}
	report.Contributors = all
	return report, nil
}
