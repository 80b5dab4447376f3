package rtk

import (
	"fmt"
	"math"

	"github.com/hydrosolve/flowdecomp/internal/log"
)

// Fitter calibrates N unit-hydrograph triplets so that rainfall convolved
// with their combined response reproduces the observed wet-weather residual
// in a least-squares sense.
type Fitter struct {
	Components    int
	IntervalHours float64
	Optimizer     Optimizer
}

// FitResult holds the calibrated triplets, the modeled wet-weather flow, and
// the Nash-Sutcliffe efficiency of the model against the observed residual.
type FitResult struct {
	Triplets []Triplet
	Modeled  []float64
	NSE      float64
}

// Fit runs the two-stage search over 3*N bounded parameters. Non-finite
// observed samples are excluded from the objective and the fit metric.
// Optimizer non-convergence is not an error; the best parameters found are
// reported with whatever metric they produce.
func (f *Fitter) Fit(rain, observed []float64) (*FitResult, error) {
	if f.Components <= 0 {
		return nil, fmt.Errorf("fitter requires at least one component, have %d", f.Components)
	}
	if len(rain) != len(observed) {
		return nil, fmt.Errorf("rainfall length %d does not match observed length %d", len(rain), len(observed))
	}

	bounds := Bounds{}
	for i := 0; i < f.Components; i++ {
		bounds.Lo = append(bounds.Lo, MinR, MinT, MinK)
		bounds.Hi = append(bounds.Hi, MaxR, MaxT, MaxK)
	}

	obj := func(params []float64) float64 {
		modeled := ModelWWF(rain, tripletsFromParams(params), f.IntervalHours)
		sse := 0.0
		for i, o := range observed {
			if math.IsNaN(o) {
				continue
			}
			diff := o - modeled[i]
			sse += diff * diff
		}
		return sse
	}

	candidate, err := f.Optimizer.GlobalSearch(obj, bounds)
	if err != nil {
		return nil, fmt.Errorf("global search failed: %w", err)
	}
	log.Debugf("global search candidate: %v (sse=%.6g)", candidate, obj(candidate))

	best, err := f.Optimizer.Refine(obj, bounds, candidate)
	if err != nil {
		return nil, fmt.Errorf("local refinement failed: %w", err)
	}

	triplets := tripletsFromParams(best)
	modeled := ModelWWF(rain, triplets, f.IntervalHours)
	return &FitResult{
		Triplets: triplets,
		Modeled:  modeled,
		NSE:      NashSutcliffe(observed, modeled),
	}, nil
}

// NashSutcliffe computes 1 - SS_residual/SS_variance of the modeled series
// against the observed one, skipping non-finite observed samples. Values
// near 1 indicate a strong fit; poor fits can go negative.
func NashSutcliffe(observed, modeled []float64) float64 {
	sum, count := 0.0, 0
	for _, o := range observed {
		if math.IsNaN(o) {
			continue
		}
		sum += o
		count++
	}
	if count == 0 {
		return math.NaN()
	}
	mean := sum / float64(count)

	ssRes, ssTot := 0.0, 0.0
	for i, o := range observed {
		if math.IsNaN(o) {
			continue
		}
		ssRes += (o - modeled[i]) * (o - modeled[i])
		ssTot += (o - mean) * (o - mean)
	}
	if ssTot == 0 {
		return math.NaN()
	}
	return 1 - ssRes/ssTot
}
