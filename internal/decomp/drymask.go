package decomp

import (
	"math"

	"github.com/hydrosolve/flowdecomp/internal/timeseries"
)

// classifyDry flags each timestamp as dry weather when the trailing rainfall
// accumulation over the lookback window is at or below the threshold. With
// no rainfall series every timestamp is dry.
//
// The first lookback's worth of samples see a shorter trailing window than
// configured (partial sums, minimum one sample), which can mis-classify near
// the start of the series. This matches the behavior of the source workflow
// and is deliberately left uncorrected.
func classifyDry(cfg Config, n int, rain *timeseries.Series) []bool {
	dry := make([]bool, n)
	if rain == nil {
		for i := range dry {
			dry[i] = true
		}
		return dry
	}

	window := int(cfg.DryLookbackHours / cfg.intervalHours())
	if window < 1 {
		window = 1
	}
	accum := timeseries.RollingSum(rain.Values, window)
	for i := range dry {
		dry[i] = accum[i] <= cfg.DryRainThreshold && !math.IsNaN(accum[i])
	}
	return dry
}
