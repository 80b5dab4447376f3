// Package rtk implements the triangular unit-hydrograph response model used
// to reproduce rainfall-derived wet-weather flow, along with the two-stage
// parameter fitting that calibrates it against an observed residual.
//
// The hydrograph formulation follows the triangular RDII model: a response
// rises linearly to its peak at time T and recedes linearly over K times the
// rise time, with the total response volume set by the ratio R.
package rtk

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Triplet holds the three parameters of one triangular unit-hydrograph
// response: R is the response volume ratio, THours the time to peak in
// hours, and K the ratio of recession time to rise time.
type Triplet struct {
	R      float64 `json:"R"`
	THours float64 `json:"T_hours"`
	K      float64 `json:"K"`
}

// Parameter search bounds enforced by the optimizer.
const (
	MinR, MaxR = 0.0, 0.3
	MinT, MaxT = 0.25, 36.0
	MinK, MaxK = 0.2, 0.99
)

// UnitHydrograph builds the discrete response kernel for the triplet at the
// given sample interval. The kernel rises linearly to 1 at the peak sample,
// falls linearly to 0 over K times the rise time, and is normalized to unit
// area before scaling by R, so the kernel always sums to R. The kernel always
// includes its peak sample even when (1+K)*tp rounds below it.
func (t Triplet) UnitHydrograph(intervalHours float64) []float64 {
	tp := int(math.Round(t.THours / intervalHours))
	if tp < 1 {
		tp = 1
	}
	length := int(math.Round((1 + t.K) * float64(tp)))
	if length < tp+1 {
		length = tp + 1
	}

	uh := make([]float64, length)
	for i := range uh {
		if i <= tp {
			uh[i] = float64(i) / float64(tp)
		} else {
			uh[i] = math.Max(1-float64(i-tp)/(t.K*float64(tp)), 0)
		}
	}
	floats.Scale(t.R/floats.Sum(uh), uh)
	return uh
}

// ModelWWF convolves rainfall with the combined unit hydrographs of the
// given triplets. The convolution is causal and truncated to the rainfall
// length. Non-finite rainfall samples contribute nothing.
func ModelWWF(rain []float64, triplets []Triplet, intervalHours float64) []float64 {
	out := make([]float64, len(rain))
	for _, trip := range triplets {
		uh := trip.UnitHydrograph(intervalHours)
		for i, r := range rain {
			if r == 0 || math.IsNaN(r) {
				continue
			}
			for j, k := range uh {
				if i+j >= len(out) {
					break
				}
				out[i+j] += r * k
			}
		}
	}
	return out
}

// tripletsFromParams unpacks a flat optimizer parameter vector into triplets.
func tripletsFromParams(params []float64) []Triplet {
	n := len(params) / 3
	triplets := make([]Triplet, n)
	for i := 0; i < n; i++ {
		triplets[i] = Triplet{
			R:      params[3*i],
			THours: params[3*i+1],
			K:      params[3*i+2],
		}
	}
	return triplets
}
