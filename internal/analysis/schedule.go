package analysis

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"risksim/internal/risk"
	"risksim/internal/simulation"
)

// ScheduleRequest describes a schedule compliance question: given the
// simulated schedule-risk delays, how likely is the project to finish by
// the target date?
type ScheduleRequest struct {
	ProjectStart time.Time `json:"project_start"`
	TargetDate   time.Time `json:"target_date"`
	// PlannedDurationDays is the risk-free planned duration. Simulated
	// schedule outcomes are added on top of it. Zero means the schedule
	// outcomes already represent total duration.
	PlannedDurationDays float64              `json:"planned_duration_days,omitempty"`
	ConfidenceLevels    []float64            `json:"confidence_levels,omitempty"`
	Milestones          map[string]time.Time `json:"milestones,omitempty"`
}

// DateRange is a per-confidence-level completion window.
type DateRange struct {
	Level    float64   `json:"level"`
	Earliest time.Time `json:"earliest"`
	Latest   time.Time `json:"latest"`
}

// MilestoneCompliance is the on-time probability for one milestone.
type MilestoneCompliance struct {
	Name        string    `json:"name"`
	Date        time.Time `json:"date"`
	Probability float64   `json:"probability"`
}

// ScheduleCompliance is the full schedule analysis report.
type ScheduleCompliance struct {
	CompletionProbability float64               `json:"completion_probability"`
	ExpectedCompletion    time.Time             `json:"expected_completion"`
	MedianCompletion      time.Time             `json:"median_completion"`
	ScheduleAtRisk        float64               `json:"schedule_at_risk"`
	DateRanges            []DateRange           `json:"date_ranges,omitempty"`
	Milestones            []MilestoneCompliance `json:"milestones,omitempty"`
}

const hoursPerDay = 24

// CalculateScheduleCompliance derives completion probabilities and date
// windows from the simulated schedule outcomes.
//
// Milestone model: schedule risk accrues proportionally with planned
// progress. A milestone at planned fraction f of the total schedule is met
// when f times the simulated delay fits inside the schedule slack, so
// milestones further from the project start never report a higher
// probability than earlier ones.
func CalculateScheduleCompliance(results *simulation.Results, req ScheduleRequest) (*ScheduleCompliance, error) {
	data, err := outcomes(results, OutcomeSchedule)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, &risk.ValidationError{Field: "results", Constraint: "empty", Message: "no schedule outcomes to analyze"}
	}
	if req.ProjectStart.IsZero() || req.TargetDate.IsZero() {
		return nil, &risk.ValidationError{Field: "schedule_request", Constraint: "required", Message: "project start and target date are both required"}
	}
	if !req.TargetDate.After(req.ProjectStart) {
		return nil, &risk.ValidationError{Field: "target_date", Constraint: "ordering", Message: "target date must be after the project start"}
	}

	targetDays := req.TargetDate.Sub(req.ProjectStart).Hours() / hoursPerDay
	planned := req.PlannedDurationDays
	if planned < 0 {
		planned = 0
	}

	// durations in days, planned base plus simulated delay.
	sorted := make([]float64, len(data))
	for i, v := range data {
		sorted[i] = planned + v
	}
	sort.Float64s(sorted)

	completion := fractionAtOrBelow(sorted, targetDays)
	meanDur := stat.Mean(sorted, nil)
	medianDur := quantile(sorted, 0.50)

	report := &ScheduleCompliance{
		CompletionProbability: completion,
		ExpectedCompletion:    addDays(req.ProjectStart, meanDur),
		MedianCompletion:      addDays(req.ProjectStart, medianDur),
		ScheduleAtRisk:        1 - completion,
	}

	for _, level := range req.ConfidenceLevels {
		if level <= 0 || level >= 1 {
			return nil, &risk.ValidationError{Field: "confidence_levels", Constraint: "range", Message: "confidence level must be in (0, 1)"}
		}
		tail := (1 - level) / 2
		report.DateRanges = append(report.DateRanges, DateRange{
			Level:    level,
			Earliest: addDays(req.ProjectStart, quantile(sorted, tail)),
			Latest:   addDays(req.ProjectStart, quantile(sorted, 1-tail)),
		})
	}

	if len(req.Milestones) > 0 {
		slack := targetDays - planned
		if slack < 0 {
			slack = 0
		}

		names := make([]string, 0, len(req.Milestones))
		for name := range req.Milestones {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			return req.Milestones[names[i]].Before(req.Milestones[names[j]])
		})

		// Delay samples alone drive per-milestone checks.
		delays := make([]float64, len(data))
		copy(delays, data)
		sort.Float64s(delays)

		for _, name := range names {
			date := req.Milestones[name]
			frac := date.Sub(req.ProjectStart).Hours() / hoursPerDay / targetDays
			if frac <= 0 {
				frac = 1e-9
			}
			if frac > 1 {
				frac = 1
			}
			report.Milestones = append(report.Milestones, MilestoneCompliance{
				Name:        name,
				Date:        date,
				Probability: fractionAtOrBelow(delays, slack/frac),
			})
		}
	}

	return report, nil
}

func fractionAtOrBelow(sorted []float64, threshold float64) float64 {
	idx := sort.SearchFloat64s(sorted, threshold)
	for idx < len(sorted) && sorted[idx] == threshold {
		idx++
	}
	return float64(idx) / float64(len(sorted))
}

func addDays(t time.Time, days float64) time.Time {
	return t.Add(time.Duration(days * float64(hoursPerDay) * float64(time.Hour)))
}
