// Package timeseries provides the uniform-interval series type used by the
// flow decomposition pipeline, along with resampling, interpolation, and
// rolling-window helpers.
package timeseries

import (
	"math"
	"sort"
	"time"
)

// Series is an ordered sequence of timestamped values. Timestamps are
// strictly increasing; NaN marks a missing sample. After Resample the
// timestamps form an arithmetic sequence at the configured interval.
type Series struct {
	Times  []time.Time
	Values []float64
}

// Len returns the number of samples in the series.
func (s Series) Len() int {
	return len(s.Times)
}

// Clone returns a deep copy of the series.
func (s Series) Clone() Series {
	out := Series{
		Times:  make([]time.Time, len(s.Times)),
		Values: make([]float64, len(s.Values)),
	}
	copy(out.Times, s.Times)
	copy(out.Values, s.Values)
	return out
}

// sorted returns a copy of the series ordered by timestamp. Duplicate
// timestamps collapse to the last value seen.
func (s Series) sorted() Series {
	type sample struct {
		t time.Time
		v float64
	}
	samples := make([]sample, 0, len(s.Times))
	for i := range s.Times {
		samples = append(samples, sample{s.Times[i], s.Values[i]})
	}
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].t.Before(samples[j].t) })

	out := Series{}
	for _, smp := range samples {
		if n := out.Len(); n > 0 && out.Times[n-1].Equal(smp.t) {
			out.Values[n-1] = smp.v
			continue
		}
		out.Times = append(out.Times, smp.t)
		out.Values = append(out.Values, smp.v)
	}
	return out
}

// Reindex aligns the series onto a target index. Timestamps present in the
// target but absent from the series are filled with fill (typically NaN for
// missing, or 0 for rainfall).
func (s Series) Reindex(index []time.Time, fill float64) Series {
	lookup := make(map[int64]float64, s.Len())
	for i, t := range s.Times {
		lookup[t.UnixNano()] = s.Values[i]
	}
	out := Series{
		Times:  make([]time.Time, len(index)),
		Values: make([]float64, len(index)),
	}
	copy(out.Times, index)
	for i, t := range index {
		if v, ok := lookup[t.UnixNano()]; ok {
			out.Values[i] = v
		} else {
			out.Values[i] = fill
		}
	}
	return out
}

// Resample reindexes the series onto a uniform grid at the given interval,
// starting from the first timestamp. Only samples falling exactly on the grid
// carry over; gaps of up to two missing samples are filled by linear
// interpolation and larger gaps remain missing. An empty input propagates as
// an empty series.
func Resample(s Series, interval time.Duration) Series {
	if s.Len() == 0 {
		return Series{}
	}
	src := s.sorted()

	lookup := make(map[int64]float64, src.Len())
	for i, t := range src.Times {
		lookup[t.UnixNano()] = src.Values[i]
	}

	first := src.Times[0]
	last := src.Times[src.Len()-1]
	out := Series{}
	for t := first; !t.After(last); t = t.Add(interval) {
		v, ok := lookup[t.UnixNano()]
		if !ok {
			v = math.NaN()
		}
		out.Times = append(out.Times, t)
		out.Values = append(out.Values, v)
	}
	InterpolateGaps(out.Values, 2)
	return out
}

// InterpolateGaps linearly interpolates interior NaN runs of at most maxGap
// samples in place. Runs longer than maxGap, and runs touching either end of
// the slice, are left missing.
func InterpolateGaps(values []float64, maxGap int) {
	n := len(values)
	i := 0
	for i < n {
		if !math.IsNaN(values[i]) {
			i++
			continue
		}
		start := i
		for i < n && math.IsNaN(values[i]) {
			i++
		}
		// [start, i) is a NaN run
		if start == 0 || i == n || i-start > maxGap {
			continue
		}
		lo := values[start-1]
		hi := values[i]
		span := float64(i - start + 1)
		for j := start; j < i; j++ {
			frac := float64(j-start+1) / span
			values[j] = lo + (hi-lo)*frac
		}
	}
}

// InterpolateBoth linearly interpolates all interior NaN runs in place and
// extends the edge values outward over leading and trailing runs.
func InterpolateBoth(values []float64) {
	n := len(values)
	first, last := -1, -1
	for i, v := range values {
		if !math.IsNaN(v) {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return // nothing to anchor on
	}
	for i := 0; i < first; i++ {
		values[i] = values[first]
	}
	for i := last + 1; i < n; i++ {
		values[i] = values[last]
	}
	InterpolateGaps(values, n)
}

// ForwardFill replaces each NaN with the most recent non-NaN value in place.
func ForwardFill(values []float64) {
	prev := math.NaN()
	for i, v := range values {
		if math.IsNaN(v) {
			values[i] = prev
		} else {
			prev = v
		}
	}
}

// BackwardFill replaces each NaN with the next non-NaN value in place.
func BackwardFill(values []float64) {
	next := math.NaN()
	for i := len(values) - 1; i >= 0; i-- {
		if math.IsNaN(values[i]) {
			values[i] = next
		} else {
			next = values[i]
		}
	}
}

// RollingSum computes a trailing rolling sum over a window of the given
// number of samples. Windows shorter than the configured size are used at the
// head of the slice, so the first window-1 entries are partial sums. NaN
// inputs count as zero.
func RollingSum(values []float64, window int) []float64 {
	if window < 1 {
		window = 1
	}
	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		if math.IsNaN(v) {
			v = 0
		}
		sum += v
		if i >= window {
			old := values[i-window]
			if math.IsNaN(old) {
				old = 0
			}
			sum -= old
		}
		out[i] = sum
	}
	return out
}
