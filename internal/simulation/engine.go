// Package simulation runs Monte Carlo risk simulations: joint sampling of
// risk impact distributions (independent or through a Gaussian copula),
// aggregation into cost and schedule outcome arrays, and convergence
// tracking over the iteration sequence.
package simulation

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"risksim/internal/change"
	"risksim/internal/risk"
)

// MinIterations is the hard floor on iteration count. Percentile estimates
// out in the tail (P95/P99) need this many trials to be statistically
// stable, so the floor is not configurable.
const MinIterations = 10000

// blockSize is the unit of work handed to a worker. Each block carries its
// own deterministically derived rng stream, which makes results identical
// regardless of how many workers pick blocks up. Cancellation is checked
// between blocks.
const blockSize = 4096

// Options configures a single run.
type Options struct {
	Iterations   int
	Correlations *risk.CorrelationMatrix
	// Seed fixes the random stream; 0 picks a time-based seed.
	Seed uint64
	// Workers caps parallelism; 0 uses all CPUs. The result does not
	// depend on this value.
	Workers int
}

// Engine orchestrates simulation runs and is the integration point for
// model change detection.
type Engine struct {
	cache    *resultsCache
	detector *change.Detector
}

// NewEngine creates an engine with a bounded results cache and a change
// detector using the default sensitivity threshold.
func NewEngine() *Engine {
	return &Engine{
		cache:    newResultsCache(16),
		detector: change.NewDetector(change.DefaultSensitivityThreshold),
	}
}

// NewEngineWithDetector lets callers inject a detector with a custom
// sensitivity threshold or shared baseline store.
func NewEngineWithDetector(d *change.Detector) *Engine {
	return &Engine{
		cache:    newResultsCache(16),
		detector: d,
	}
}

// ValidateParameters checks a prospective run without starting it. It
// reports problems in a result rather than failing, so callers can surface
// every violation at once.
func ValidateParameters(risks []risk.Risk, iterations int) risk.ValidationResult {
	res := risk.NewValidationResult()
	if len(risks) == 0 {
		res.Add("risk list is empty: at least one risk is required")
	}
	if iterations < MinIterations {
		res.Add(fmt.Sprintf("iteration count %d is below the %d-iteration floor required for stable percentile estimates", iterations, MinIterations))
	}
	for i := range risks {
		if err := risks[i].Validate(); err != nil {
			res.Add(fmt.Sprintf("risks[%d] (%s): %v", i, risks[i].ID, err))
		}
	}
	return res
}

// CancelledError reports a run interrupted between iteration blocks. The
// count of iterations finished before the cancellation is preserved so
// callers can decide whether a re-run is worth it.
type CancelledError struct {
	Completed int
	Err       error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("simulation cancelled after %d iterations: %v", e.Completed, e.Err)
}

func (e *CancelledError) Unwrap() error { return e.Err }

// Run executes a full simulation. Validation failures surface before any
// sampling begins. With a fixed seed the output is bit-reproducible,
// independent of worker count.
func (e *Engine) Run(ctx context.Context, risks []risk.Risk, opts Options) (*Results, error) {
	if v := ValidateParameters(risks, opts.Iterations); !v.Valid {
		return nil, &risk.ValidationError{
			Field:      "simulation",
			Constraint: "parameters",
			Message:    v.Errors[0],
		}
	}
	if opts.Correlations != nil {
		if err := opts.Correlations.Validate(risks); err != nil {
			return nil, err
		}
	}

	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	smp, err := newSampler(risks, opts.Correlations)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	n := opts.Iterations

	costs := make([]float64, n)
	schedules := make([]float64, n)
	contributions := make(map[string][]float64, len(risks))
	for i := range risks {
		contributions[risks[i].ID] = make([]float64, n)
	}

	log.Debug().
		Int("risks", len(risks)).
		Int("iterations", n).
		Int("workers", workers).
		Uint64("seed", seed).
		Msg("Simulation run starting")

	blocks := (n + blockSize - 1) / blockSize
	blockCh := make(chan int, blocks)
	for b := 0; b < blocks; b++ {
		blockCh <- b
	}
	close(blockCh)

	var completed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			st := smp.newDrawState()
			impacts := make([]float64, len(risks))

			for b := range blockCh {
				if err := gctx.Err(); err != nil {
					return &CancelledError{Completed: int(completed.Load()), Err: err}
				}

				// One PCG stream per block, derived from the run seed.
				rng := rand.New(rand.NewPCG(seed, uint64(b)))
				start := b * blockSize
				end := start + blockSize
				if end > n {
					end = n
				}

				for it := start; it < end; it++ {
					smp.sampleInto(impacts, rng, st)

					var cost, sched float64
					for i := range risks {
						v := impacts[i]
						contributions[risks[i].ID][it] = v
						if risks[i].ImpactType.AffectsCost() {
							cost += v
						}
						if risks[i].ImpactType.AffectsSchedule() {
							sched += v
						}
					}
					costs[it] = cost
					schedules[it] = sched
				}
				completed.Add(int64(end - start))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	convergence := trackConvergence(costs)
	elapsed := time.Since(started)

	results := &Results{
		SimulationID:      uuid.NewString(),
		Timestamp:         started,
		IterationCount:    n,
		CostOutcomes:      costs,
		ScheduleOutcomes:  schedules,
		RiskContributions: contributions,
		Convergence:       convergence,
		ExecutionTime:     elapsed,
		Seed:              seed,
	}
	e.cache.put(results)

	log.Info().
		Str("simulationId", results.SimulationID).
		Int("iterations", n).
		Bool("converged", convergence.Converged).
		Dur("elapsed", elapsed).
		Msg("Simulation run finished")

	return results, nil
}

// GetResults fetches a recent run from the short-lived cache.
func (e *Engine) GetResults(simulationID string) (*Results, bool) {
	return e.cache.get(simulationID)
}

// DetectModelChanges compares the current risk set against an explicit
// previous snapshot or a stored baseline. One of previousRisks or
// baselineID must be supplied.
func (e *Engine) DetectModelChanges(current []risk.Risk, previous []risk.Risk, baselineID string) (*change.Report, error) {
	if previous == nil && baselineID == "" {
		return nil, &risk.ValidationError{
			Field:      "previous_risks",
			Constraint: "required",
			Message:    "change detection requires previous risks or a baseline model id",
		}
	}
	if previous != nil {
		return e.detector.Detect(current, previous), nil
	}
	return e.detector.DetectAgainstBaseline(current, baselineID)
}

// StoreBaselineModel snapshots a risk set under an id for later comparison.
func (e *Engine) StoreBaselineModel(id string, risks []risk.Risk) error {
	return e.detector.StoreBaseline(id, risks)
}

// HighlightValidationAreas turns a change report into a prioritized review
// list.
func (e *Engine) HighlightValidationAreas(report *change.Report) []change.ValidationArea {
	return e.detector.HighlightValidationAreas(report)
}

// ChangeHistory exposes the detector's bounded report history.
func (e *Engine) ChangeHistory(daysBack int) []change.HistoryEntry {
	return e.detector.History(daysBack)
}
