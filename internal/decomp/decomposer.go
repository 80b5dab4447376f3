package decomp

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/hydrosolve/flowdecomp/internal/log"
	"github.com/hydrosolve/flowdecomp/internal/rtk"
	"github.com/hydrosolve/flowdecomp/internal/timeseries"
)

// Inputs are the raw series handed to a decomposition run. Rain and GWI are
// optional: rainfall enables dry/wet classification and RTK fitting, a GWI
// series enables GWIModeTimeseries.
type Inputs struct {
	Flow timeseries.Series
	Rain *timeseries.Series
	GWI  *timeseries.Series
}

// Decomposer runs the decomposition pipeline with a fixed configuration.
// Each stage consumes derived series and produces new ones; the caller's
// inputs are never mutated.
type Decomposer struct {
	cfg Config
}

// New validates the configuration and returns a ready Decomposer. Missing
// timezone, multipliers, and strategy fall back to defaults before
// validation.
func New(cfg Config) (*Decomposer, error) {
	def := DefaultConfig()
	if cfg.Interval == 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Timezone == nil {
		cfg.Timezone = def.Timezone
	}
	if cfg.GWIMonthly == nil {
		cfg.GWIMonthly = def.GWIMonthly
	}
	if cfg.OptimizeStrategy == "" {
		cfg.OptimizeStrategy = def.OptimizeStrategy
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Decomposer{cfg: cfg}, nil
}

// Decompose resamples the inputs onto a uniform grid and splits the flow
// into GWI, BWWF, and WWF. With rainfall supplied and RTKComponents > 0, the
// WWF residual becomes the fitting target and the returned WWF is the
// calibrated model's reconstruction.
func (d *Decomposer) Decompose(in Inputs) (*Result, error) {
	cfg := d.cfg
	if cfg.GWIMode == GWIModeTimeseries && in.GWI == nil {
		return nil, fmt.Errorf("gwi_mode %q requires a GWI series", GWIModeTimeseries)
	}

	flow := timeseries.Resample(localize(in.Flow, cfg.Timezone), cfg.Interval)
	log.Debugf("resampled flow series to %d samples at %v", flow.Len(), cfg.Interval)

	var rain *timeseries.Series
	if in.Rain != nil {
		r := timeseries.Resample(localize(*in.Rain, cfg.Timezone), cfg.Interval).Reindex(flow.Times, 0)
		rain = &r
	}
	var gwiIn *timeseries.Series
	if in.GWI != nil {
		g := timeseries.Resample(localize(*in.GWI, cfg.Timezone), cfg.Interval).Reindex(flow.Times, math.NaN())
		gwiIn = &g
	}

	gwi, usedAvg, err := estimateGWI(cfg, flow.Times, gwiIn)
	if err != nil {
		return nil, err
	}

	dry := classifyDry(cfg, flow.Len(), rain)

	sanitary := make([]float64, flow.Len())
	for i := range sanitary {
		sanitary[i] = flow.Values[i] - gwi[i]
	}
	weekdayPat := estimatePattern(flow.Times, sanitary, dry, false)
	weekendPat := estimatePattern(flow.Times, sanitary, dry, true)
	bwwf := expandPatterns(flow.Times, weekdayPat, weekendPat)

	wwf := make([]float64, flow.Len())
	for i := range wwf {
		wwf[i] = flow.Values[i] - gwi[i] - bwwf[i]
		if cfg.ClipNegative && wwf[i] < 0 {
			wwf[i] = 0
		}
	}

	params := Parameters{
		RunID:           uuid.New().String(),
		GWIMode:         string(cfg.GWIMode),
		GWIAverage:      usedAvg,
		GWIMonthly:      append([]float64(nil), cfg.GWIMonthly...),
		DailyAvgWeekday: finiteOrZero(weekdayPat.DailyAvg),
		DailyAvgWeekend: finiteOrZero(weekendPat.DailyAvg),
		WeekdayHourly:   weekdayPat.Hourly[:],
		WeekendHourly:   weekendPat.Hourly[:],
	}

	if rain != nil && cfg.RTKComponents > 0 && flow.Len() > 0 {
		fitter := &rtk.Fitter{
			Components:    cfg.RTKComponents,
			IntervalHours: cfg.intervalHours(),
			Optimizer:     rtk.NewTwoStage(rtk.TwoStageOptions{Seed: cfg.OptimizerSeed}),
		}
		fit, err := fitter.Fit(rain.Values, wwf)
		if err != nil {
			return nil, fmt.Errorf("RTK fitting: %w", err)
		}
		log.Infof("RTK fit complete: %d triplets, NSE=%.4f", len(fit.Triplets), fit.NSE)
		wwf = fit.Modeled
		params.RTKTriplets = fit.Triplets
		params.FitMetrics = &FitMetrics{NSE: finiteOrZero(fit.NSE)}
	}

	result := &Result{
		Times:      flow.Times,
		Flow:       flow.Values,
		GWI:        gwi,
		BWWF:       bwwf,
		WWF:        wwf,
		Parameters: params,
	}
	if rain != nil {
		result.Rainfall = rain.Values
	}
	return result, nil
}

// localize reinterprets each timestamp's wall-clock fields in loc, so that
// naive input timestamps keep their recorded clock time in the configured
// zone.
func localize(s timeseries.Series, loc *time.Location) timeseries.Series {
	out := s.Clone()
	for i, t := range out.Times {
		out.Times[i] = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
	}
	return out
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
