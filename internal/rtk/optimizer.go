package rtk

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// Objective is a scalar cost function over a flat parameter vector. It must
// be safe for concurrent calls; the global search evaluates candidates in
// parallel.
type Objective func(params []float64) float64

// Bounds holds per-parameter lower and upper limits.
type Bounds struct {
	Lo []float64
	Hi []float64
}

// Optimizer is the two-stage search protocol used by the Fitter: a global
// search over the full bounded space followed by a local refinement from the
// global candidate. Alternative back-ends (a different metaheuristic, a
// deterministic grid for tests) can be substituted without touching the
// fitting logic.
type Optimizer interface {
	GlobalSearch(obj Objective, b Bounds) ([]float64, error)
	Refine(obj Objective, b Bounds, start []float64) ([]float64, error)
}

// TwoStageOptions configures the differential-evolution global stage.
type TwoStageOptions struct {
	// PopSize is the population size per parameter dimension.
	PopSize int
	// MaxGenerations bounds the run time of the global stage.
	MaxGenerations int
	// Mutation is the differential weight F.
	Mutation float64
	// Recombination is the crossover probability CR.
	Recombination float64
	// Tol stops the search once the population energies have converged to
	// within Tol of their mean.
	Tol float64
	// Seed seeds the population RNG; runs with the same seed reproduce.
	Seed uint64
	// Workers caps the parallel objective evaluations; 0 means NumCPU.
	Workers int
}

// DefaultTwoStageOptions returns the settings used for production fits.
func DefaultTwoStageOptions() TwoStageOptions {
	return TwoStageOptions{
		PopSize:        15,
		MaxGenerations: 200,
		Mutation:       0.7,
		Recombination:  0.8,
		Tol:            1e-8,
	}
}

// TwoStage implements Optimizer with a differential-evolution global search
// and a bounded BFGS local refinement.
type TwoStage struct {
	opts TwoStageOptions
}

// NewTwoStage creates a two-stage optimizer with the given options. Zero
// option fields fall back to the defaults.
func NewTwoStage(opts TwoStageOptions) *TwoStage {
	def := DefaultTwoStageOptions()
	if opts.PopSize <= 0 {
		opts.PopSize = def.PopSize
	}
	if opts.MaxGenerations <= 0 {
		opts.MaxGenerations = def.MaxGenerations
	}
	if opts.Mutation <= 0 {
		opts.Mutation = def.Mutation
	}
	if opts.Recombination <= 0 {
		opts.Recombination = def.Recombination
	}
	if opts.Tol <= 0 {
		opts.Tol = def.Tol
	}
	return &TwoStage{opts: opts}
}

// GlobalSearch runs differential evolution (rand/1/bin) over the bounded
// space and returns the best parameter vector found.
func (o *TwoStage) GlobalSearch(obj Objective, b Bounds) ([]float64, error) {
	dim := len(b.Lo)
	if dim == 0 || dim != len(b.Hi) {
		return nil, fmt.Errorf("invalid bounds: %d lower vs %d upper", len(b.Lo), len(b.Hi))
	}

	rng := rand.New(rand.NewSource(o.opts.Seed))
	np := o.opts.PopSize * dim
	if np < 4 {
		np = 4
	}

	pop := make([][]float64, np)
	for i := range pop {
		pop[i] = make([]float64, dim)
		for d := 0; d < dim; d++ {
			pop[i][d] = b.Lo[d] + rng.Float64()*(b.Hi[d]-b.Lo[d])
		}
	}

	workers := o.opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	pool, poolErr := ants.NewPool(workers)
	if poolErr == nil {
		defer pool.Release()
	}

	energies := make([]float64, np)
	evalAll(pool, obj, pop, energies)

	bestIdx := argMin(energies)
	best := append([]float64(nil), pop[bestIdx]...)
	bestEnergy := energies[bestIdx]

	trials := make([][]float64, np)
	trialEnergies := make([]float64, np)
	for i := range trials {
		trials[i] = make([]float64, dim)
	}

	for gen := 0; gen < o.opts.MaxGenerations; gen++ {
		for i := 0; i < np; i++ {
			r1, r2, r3 := pickDistinct(rng, np, i)
			jrand := rng.Intn(dim)
			for d := 0; d < dim; d++ {
				if d == jrand || rng.Float64() < o.opts.Recombination {
					v := pop[r1][d] + o.opts.Mutation*(pop[r2][d]-pop[r3][d])
					trials[i][d] = clamp(v, b.Lo[d], b.Hi[d])
				} else {
					trials[i][d] = pop[i][d]
				}
			}
		}

		evalAll(pool, obj, trials, trialEnergies)

		for i := 0; i < np; i++ {
			if trialEnergies[i] <= energies[i] {
				copy(pop[i], trials[i])
				energies[i] = trialEnergies[i]
				if energies[i] < bestEnergy {
					bestEnergy = energies[i]
					copy(best, pop[i])
				}
			}
		}

		mean := stat.Mean(energies, nil)
		if stat.StdDev(energies, nil) <= o.opts.Tol*math.Abs(mean) {
			break
		}
	}
	return best, nil
}

// Refine polishes the global candidate with BFGS. The parameters are passed
// through a smooth logistic mapping so the gradient steps cannot leave the
// bounded space. Non-convergence is not treated as an error; the better of
// the start and refined points is returned.
func (o *TwoStage) Refine(obj Objective, b Bounds, start []float64) ([]float64, error) {
	dim := len(start)
	if dim != len(b.Lo) || dim != len(b.Hi) {
		return nil, fmt.Errorf("start point dimension %d does not match bounds", dim)
	}

	toX := func(u []float64) []float64 {
		x := make([]float64, dim)
		for d := 0; d < dim; d++ {
			x[d] = b.Lo[d] + (b.Hi[d]-b.Lo[d])/(1+math.Exp(-u[d]))
		}
		return x
	}
	u0 := make([]float64, dim)
	for d := 0; d < dim; d++ {
		p := (start[d] - b.Lo[d]) / (b.Hi[d] - b.Lo[d])
		p = clamp(p, 1e-6, 1-1e-6)
		u0[d] = math.Log(p / (1 - p))
	}

	problem := optimize.Problem{
		Func: func(u []float64) float64 {
			return obj(toX(u))
		},
	}
	result, _ := optimize.Minimize(problem, u0, nil, &optimize.BFGS{})
	if result == nil || len(result.X) == 0 {
		return start, nil
	}

	refined := toX(result.X)
	if obj(refined) > obj(start) {
		return start, nil
	}
	return refined, nil
}

// evalAll evaluates the objective for every candidate, in parallel when the
// worker pool is available.
func evalAll(pool *ants.Pool, obj Objective, candidates [][]float64, energies []float64) {
	if pool == nil {
		for i, c := range candidates {
			energies[i] = obj(c)
		}
		return
	}
	var wg sync.WaitGroup
	for i := range candidates {
		i := i
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			energies[i] = obj(candidates[i])
		}); err != nil {
			energies[i] = obj(candidates[i])
			wg.Done()
		}
	}
	wg.Wait()
}

func pickDistinct(rng *rand.Rand, np, exclude int) (int, int, int) {
	picked := [3]int{}
	for k := 0; k < 3; {
		c := rng.Intn(np)
		if c == exclude || (k > 0 && c == picked[0]) || (k > 1 && c == picked[1]) {
			continue
		}
		picked[k] = c
		k++
	}
	return picked[0], picked[1], picked[2]
}

func argMin(values []float64) int {
	idx := 0
	for i, v := range values {
		if v < values[idx] {
			idx = i
		}
	}
	return idx
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
