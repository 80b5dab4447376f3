package decomp

import (
	"math"
	"time"

	"github.com/hydrosolve/flowdecomp/internal/timeseries"
)

// Pattern is the 24-hour sanitary flow pattern for one day class. A valid
// pattern carries the hourly values and the daily-average residual it was
// scaled to; the Degenerate variant marks a class whose dry-weather daily
// average was non-finite or non-positive, for which the pattern is all
// zeros.
type Pattern struct {
	Hourly     [24]float64
	DailyAvg   float64
	Degenerate bool
}

// isWeekend reports whether the timestamp falls on Saturday or Sunday.
func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// estimatePattern computes the hourly sanitary pattern for one day class
// from the dry-weather residual (flow minus GWI). Hours with no dry samples
// default to 0. The hourly means are normalized to sum to 1 (flat if they
// are all zero) and rescaled so the pattern totals dailyAvg*24.
func estimatePattern(times []time.Time, sanitary []float64, dry []bool, weekend bool) Pattern {
	var hourSum, hourCount [24]float64
	sum, count := 0.0, 0
	for i, t := range times {
		if !dry[i] || isWeekend(t) != weekend || math.IsNaN(sanitary[i]) {
			continue
		}
		h := t.Hour()
		hourSum[h] += sanitary[i]
		hourCount[h]++
		sum += sanitary[i]
		count++
	}

	dailyAvg := math.NaN()
	if count > 0 {
		dailyAvg = sum / float64(count)
	}
	if math.IsNaN(dailyAvg) || dailyAvg <= 0 {
		return Pattern{Degenerate: true}
	}

	var hourly [24]float64
	total := 0.0
	for h := 0; h < 24; h++ {
		if hourCount[h] > 0 {
			hourly[h] = hourSum[h] / hourCount[h]
		}
		// Negative hourly residual means (metering noise against a high
		// GWI estimate) are floored so the pattern stays non-negative.
		if hourly[h] < 0 {
			hourly[h] = 0
		}
		total += hourly[h]
	}
	var pattern [24]float64
	for h := 0; h < 24; h++ {
		norm := 1.0 / 24
		if total != 0 {
			norm = hourly[h] / total
		}
		pattern[h] = norm * dailyAvg * 24
	}
	return Pattern{Hourly: pattern, DailyAvg: dailyAvg}
}

// expandPatterns projects the class patterns onto every timestamp of the
// series, storms included: sanitary loading is assumed continuous, so the
// dry-weather shape stands in for base flow during wet weather as well. Any
// remaining gaps are filled forward then backward.
func expandPatterns(times []time.Time, weekday, weekend Pattern) []float64 {
	bwwf := make([]float64, len(times))
	for i, t := range times {
		if isWeekend(t) {
			bwwf[i] = weekend.Hourly[t.Hour()]
		} else {
			bwwf[i] = weekday.Hourly[t.Hour()]
		}
	}
	timeseries.ForwardFill(bwwf)
	timeseries.BackwardFill(bwwf)
	return bwwf
}
