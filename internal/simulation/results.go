package simulation

import (
	"sync"
	"time"
)

// ConvergenceMetrics summarizes how stable the summary statistics were over
// the iteration sequence. Stability scores are 1 - max relative change over
// the trailing checkpoint window, floored at 0.
type ConvergenceMetrics struct {
	MeanStability           float64            `json:"mean_stability"`
	VarianceStability       float64            `json:"variance_stability"`
	PercentileStability     map[string]float64 `json:"percentile_stability"`
	Converged               bool               `json:"converged"`
	IterationsToConvergence int                `json:"iterations_to_convergence"`
}

// Results holds the raw outcome of a single simulation run. Created once
// per run and immutable thereafter; the engine retains it only in a
// short-lived cache keyed by SimulationID.
type Results struct {
	SimulationID      string               `json:"simulation_id"`
	Timestamp         time.Time            `json:"timestamp"`
	IterationCount    int                  `json:"iteration_count"`
	CostOutcomes      []float64            `json:"cost_outcomes"`
	ScheduleOutcomes  []float64            `json:"schedule_outcomes"`
	RiskContributions map[string][]float64 `json:"risk_contributions"`
	Convergence       ConvergenceMetrics   `json:"convergence_metrics"`
	ExecutionTime     time.Duration        `json:"execution_time"`
	Seed              uint64               `json:"seed"`
}

// resultsCache keeps the most recent runs so collaborators can re-fetch a
// result by id shortly after requesting it. Bounded; oldest entries are
// evicted first.
type resultsCache struct {
	mu      sync.RWMutex
	entries map[string]*Results
	order   []string
	limit   int
}

func newResultsCache(limit int) *resultsCache {
	return &resultsCache{
		entries: make(map[string]*Results),
		limit:   limit,
	}
}

func (c *resultsCache) put(r *Results) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[r.SimulationID]; !ok {
		c.order = append(c.order, r.SimulationID)
	}
	c.entries[r.SimulationID] = r

	for len(c.order) > c.limit {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

func (c *resultsCache) get(id string) (*Results, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.entries[id]
	return r, ok
}
