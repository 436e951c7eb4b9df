package simulation

import (
	"math"
	"sort"
)

// Convergence is declared once the relative change of every tracked
// statistic stays below this threshold across the trailing checkpoint
// window.
const (
	convergenceThreshold = 0.01
	trailingWindow       = 3
)

// tracked percentiles; the tail matters most for risk reporting.
var trackedPercentiles = map[string]float64{
	"p50": 0.50,
	"p90": 0.90,
}

// trackConvergence replays the outcome sequence at regular checkpoints and
// measures how much the mean, variance and key percentiles still move as
// iterations accumulate.
func trackConvergence(outcomes []float64) ConvergenceMetrics {
	n := len(outcomes)
	metrics := ConvergenceMetrics{
		PercentileStability:     make(map[string]float64, len(trackedPercentiles)),
		IterationsToConvergence: -1,
	}
	if n == 0 {
		return metrics
	}

	stride := n / 20
	if stride < 1000 {
		stride = 1000
	}
	if stride > n {
		stride = n
	}

	type snapshot struct {
		prefix     int
		mean       float64
		variance   float64
		percentile map[string]float64
	}

	var snaps []snapshot
	sum, sumSq := 0.0, 0.0
	next := stride
	scratch := make([]float64, 0, n)

	for i, v := range outcomes {
		sum += v
		sumSq += v * v

		prefix := i + 1
		if prefix != next && prefix != n {
			continue
		}
		next += stride

		mean := sum / float64(prefix)
		variance := sumSq/float64(prefix) - mean*mean
		if variance < 0 {
			variance = 0
		}

		scratch = scratch[:prefix]
		copy(scratch, outcomes[:prefix])
		sort.Float64s(scratch)

		snap := snapshot{
			prefix:     prefix,
			mean:       mean,
			variance:   variance,
			percentile: make(map[string]float64, len(trackedPercentiles)),
		}
		for name, p := range trackedPercentiles {
			snap.percentile[name] = scratch[percentileIndex(prefix, p)]
		}
		snaps = append(snaps, snap)
	}

	if len(snaps) < 2 {
		// Not enough checkpoints to measure movement; report the run as
		// trivially stable.
		metrics.MeanStability = 1
		metrics.VarianceStability = 1
		for name := range trackedPercentiles {
			metrics.PercentileStability[name] = 1
		}
		metrics.Converged = true
		metrics.IterationsToConvergence = n
		return metrics
	}

	relChange := func(prev, cur float64) float64 {
		denom := math.Abs(prev)
		if denom < 1e-9 {
			denom = 1e-9
		}
		return math.Abs(cur-prev) / denom
	}

	// Walk the checkpoints and find the first index where every tracked
	// statistic stayed inside the threshold over the trailing window.
	stableAt := -1
	for i := trailingWindow; i < len(snaps); i++ {
		stable := true
		for j := i - trailingWindow + 1; j <= i && stable; j++ {
			prev, cur := snaps[j-1], snaps[j]
			if relChange(prev.mean, cur.mean) >= convergenceThreshold ||
				relChange(prev.variance, cur.variance) >= convergenceThreshold {
				stable = false
				break
			}
			for name := range trackedPercentiles {
				if relChange(prev.percentile[name], cur.percentile[name]) >= convergenceThreshold {
					stable = false
					break
				}
			}
		}
		if stable {
			stableAt = i
			break
		}
	}

	// Final stability scores come from the worst relative change across the
	// trailing window at the end of the run.
	last := len(snaps) - 1
	windowStart := last - trailingWindow + 1
	if windowStart < 1 {
		windowStart = 1
	}

	maxMean, maxVar := 0.0, 0.0
	maxPct := make(map[string]float64, len(trackedPercentiles))
	for j := windowStart; j <= last; j++ {
		prev, cur := snaps[j-1], snaps[j]
		maxMean = math.Max(maxMean, relChange(prev.mean, cur.mean))
		maxVar = math.Max(maxVar, relChange(prev.variance, cur.variance))
		for name := range trackedPercentiles {
			maxPct[name] = math.Max(maxPct[name], relChange(prev.percentile[name], cur.percentile[name]))
		}
	}

	metrics.MeanStability = stabilityScore(maxMean)
	metrics.VarianceStability = stabilityScore(maxVar)
	for name, rel := range maxPct {
		metrics.PercentileStability[name] = stabilityScore(rel)
	}

	if stableAt >= 0 {
		metrics.Converged = true
		metrics.IterationsToConvergence = snaps[stableAt].prefix
	}
	return metrics
}

func stabilityScore(maxRelChange float64) float64 {
	s := 1 - maxRelChange
	if s < 0 {
		return 0
	}
	return s
}

// percentileIndex maps a probability onto a sorted-slice index, clamped to
// the valid range.
func percentileIndex(n int, p float64) int {
	idx := int(float64(n) * p)
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}
