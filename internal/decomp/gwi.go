package decomp

import (
	"fmt"
	"math"
	"time"

	"github.com/hydrosolve/flowdecomp/internal/timeseries"
)

// estimateGWI produces an infiltration estimate aligned to the flow index.
// In timeseries mode the supplied series (already reindexed to the flow
// index) is interpolated in both directions and any uncovered timestamps
// fall back to the monthly-multiplier model, using the configured average or
// the mean of the available infiltration values. In avg_monthly mode the
// estimate is the average scaled by the month's multiplier.
//
// The returned average is the one actually used for the multiplier model, so
// a derived mean ends up in the parameter record; it is nil when no fallback
// was needed and none was configured.
func estimateGWI(cfg Config, index []time.Time, gwi *timeseries.Series) ([]float64, *float64, error) {
	switch cfg.GWIMode {
	case GWIModeTimeseries:
		if gwi == nil {
			return nil, nil, fmt.Errorf("gwi_mode %q requires a GWI series", GWIModeTimeseries)
		}
		values := make([]float64, len(index))
		copy(values, gwi.Values)
		timeseries.InterpolateBoth(values)

		avg := cfg.GWIAverage
		if hasNaN(values) {
			if avg == nil {
				m := finiteMean(gwi.Values)
				avg = &m
			}
			for i, v := range values {
				if math.IsNaN(v) {
					values[i] = *avg * cfg.GWIMonthly[index[i].Month()-1]
				}
			}
		}
		return values, avg, nil

	case GWIModeAvgMonthly:
		if cfg.GWIAverage == nil {
			return nil, nil, fmt.Errorf("gwi_avg must be provided for gwi_mode %q", GWIModeAvgMonthly)
		}
		values := make([]float64, len(index))
		for i, t := range index {
			values[i] = *cfg.GWIAverage * cfg.GWIMonthly[t.Month()-1]
		}
		return values, cfg.GWIAverage, nil
	}
	return nil, nil, fmt.Errorf("unknown gwi_mode %q", cfg.GWIMode)
}

func hasNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// finiteMean averages the finite entries of values; NaN when there are none.
func finiteMean(values []float64) float64 {
	sum, count := 0.0, 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		count++
	}
	if count == 0 {
		return math.NaN()
	}
	return sum / float64(count)
}
