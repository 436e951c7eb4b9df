package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"risksim/internal/analysis"
	"risksim/internal/risk"
	"risksim/internal/scenario"
	"risksim/internal/simulation"
	"risksim/internal/visuals"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// modelFile is the on-disk form of a risk model.
type modelFile struct {
	Risks        []risk.Risk             `json:"risks"`
	Correlations *risk.CorrelationMatrix `json:"correlations,omitempty"`
}

// runReport is the command's stdout payload.
type runReport struct {
	Results      *simulation.Results           `json:"results"`
	Cost         *analysis.PercentileSummary   `json:"cost_percentiles,omitempty"`
	Schedule     *analysis.PercentileSummary   `json:"schedule_percentiles,omitempty"`
	Contributors *analysis.ContributionReport  `json:"top_contributors,omitempty"`
	Intervals    []analysis.ConfidenceInterval `json:"confidence_intervals,omitempty"`
}

var (
	runModelPath    string
	runScenarioPath string
	runIterations   int
	runSeed         uint64
	runTopN         int
	runCharts       bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a Monte Carlo simulation for a risk model file",
	RunE: func(cmd *cobra.Command, args []string) error {
		model, err := loadModel(runModelPath)
		if err != nil {
			return err
		}

		risks := model.Risks
		if runScenarioPath != "" {
			sc, err := loadScenario(runScenarioPath, risks)
			if err != nil {
				return err
			}
			risks = sc.Risks
			log.Info().Str("scenario", sc.Name).Int("risks", len(risks)).Msg("Scenario applied")
		}

		iterations := runIterations
		if iterations <= 0 {
			iterations = cfg.DefaultIterations
		}
		if iterations < simulation.MinIterations {
			iterations = simulation.MinIterations
		}

		engine := simulation.NewEngine()
		results, err := engine.Run(cmd.Context(), risks, simulation.Options{
			Iterations:   iterations,
			Correlations: model.Correlations,
			Seed:         runSeed,
			Workers:      cfg.Workers,
		})
		if err != nil {
			return err
		}

		report := runReport{Results: results}
		if cost, err := analysis.CalculatePercentiles(results, analysis.OutcomeCost); err == nil {
			report.Cost = cost
		}
		if sched, err := analysis.CalculatePercentiles(results, analysis.OutcomeSchedule); err == nil {
			report.Schedule = sched
		}
		if contrib, err := analysis.IdentifyTopRiskContributors(results, analysis.OutcomeCost, runTopN); err == nil {
			report.Contributors = contrib
		}
		if ci, err := analysis.GenerateConfidenceIntervals(results, analysis.OutcomeCost, []float64{0.80, 0.90, 0.95}); err == nil {
			report.Intervals = ci
		}

		if runCharts {
			return emitCharts(report)
		}
		return emitJSON(report)
	},
}

// emitCharts prints the report as markdown Mermaid charts instead of JSON.
func emitCharts(report runReport) error {
	var charts []string
	if c := visuals.GenerateOutcomeCDF(report.Cost); c != "" {
		charts = append(charts, c)
	}
	if c := visuals.GenerateOutcomeCDF(report.Schedule); c != "" {
		charts = append(charts, c)
	}
	if c := visuals.GenerateContributionChart(report.Contributors); c != "" {
		charts = append(charts, c)
	}
	if report.Results != nil {
		if c := visuals.GenerateOutcomeHistogram(report.Results.CostOutcomes, 20, "Total Cost Impact Distribution"); c != "" {
			charts = append(charts, c)
		}
	}
	if len(charts) == 0 {
		return fmt.Errorf("nothing to chart")
	}
	_, err := fmt.Fprintln(os.Stdout, strings.Join(charts, "\n\n"))
	return err
}

func loadModel(path string) (*modelFile, error) {
	if path == "" {
		return nil, fmt.Errorf("--model is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model file: %w", err)
	}
	var model modelFile
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("parsing model file %q: %w", path, err)
	}
	return &model, nil
}

// scenarioFile carries modifications keyed by risk id, applied on top of
// the base model.
type scenarioFile struct {
	Name          string                           `json:"name"`
	Description   string                           `json:"description,omitempty"`
	Modifications map[string]scenario.Modification `json:"modifications"`
}

func loadScenario(path string, base []risk.Risk) (*scenario.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}
	var sf scenarioFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parsing scenario file %q: %w", path, err)
	}
	return scenario.Create(base, sf.Modifications, sf.Name, sf.Description)
}

func emitJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	runCmd.Flags().StringVar(&runModelPath, "model", "", "path to the risk model JSON file")
	runCmd.Flags().StringVar(&runScenarioPath, "scenario", "", "optional scenario file applied to the model")
	runCmd.Flags().IntVar(&runIterations, "iterations", 0, "iteration count (default from configuration)")
	runCmd.Flags().Uint64Var(&runSeed, "seed", 0, "random seed; 0 derives one from the clock")
	runCmd.Flags().IntVar(&runTopN, "top", 5, "number of top risk contributors to report")
	runCmd.Flags().BoolVar(&runCharts, "charts", false, "emit markdown Mermaid charts instead of JSON")
	rootCmd.AddCommand(runCmd)
}
