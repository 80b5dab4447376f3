package decomp

import (
	"math"
	"testing"
	"time"

	"github.com/hydrosolve/flowdecomp/internal/timeseries"
)

func hourlySeries(start time.Time, values []float64) timeseries.Series {
	s := timeseries.Series{}
	for i, v := range values {
		s.Times = append(s.Times, start.Add(time.Duration(i)*time.Hour))
		s.Values = append(s.Values, v)
	}
	return s
}

func constantSeries(start time.Time, n int, interval time.Duration, value float64) timeseries.Series {
	s := timeseries.Series{}
	for i := 0; i < n; i++ {
		s.Times = append(s.Times, start.Add(time.Duration(i)*interval))
		s.Values = append(s.Values, value)
	}
	return s
}

func floatPtr(v float64) *float64 { return &v }

func TestEndToEndConstantFlow(t *testing.T) {
	// 96 samples at 15 minutes: constant GWI 1.0 plus constant sanitary
	// flow 2.0, no rainfall. GWI must come out at 1.0, BWWF+WWF at 2.0,
	// and WWF at 0 since there is no storm input.
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	flow := constantSeries(start, 96, 15*time.Minute, 3.0)

	cfg := DefaultConfig()
	cfg.GWIMode = GWIModeAvgMonthly
	cfg.GWIAverage = floatPtr(1.0)

	dec, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := dec.Decompose(Inputs{Flow: flow})
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	if len(res.Times) != 96 {
		t.Fatalf("expected 96 rows, got %d", len(res.Times))
	}
	for i := range res.Times {
		if math.Abs(res.GWI[i]-1.0) > 1e-9 {
			t.Fatalf("gwi[%d] = %v, want 1.0", i, res.GWI[i])
		}
		if math.Abs(res.BWWF[i]+res.WWF[i]-2.0) > 1e-9 {
			t.Fatalf("bwwf+wwf at %d = %v, want 2.0", i, res.BWWF[i]+res.WWF[i])
		}
		if res.WWF[i] > 1e-9 {
			t.Fatalf("wwf[%d] = %v, want ~0", i, res.WWF[i])
		}
	}
}

func TestConservationWithoutClipping(t *testing.T) {
	// With RTK disabled and clipping off, WWF is the exact residual, so
	// flow = gwi + bwwf + wwf at every timestamp.
	start := time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC) // a Monday
	values := make([]float64, 14*24)
	for i := range values {
		hour := i % 24
		values[i] = 1.0 + 2.0 + 1.5*math.Sin(2*math.Pi*float64(hour)/24)
	}
	flow := hourlySeries(start, values)

	cfg := DefaultConfig()
	cfg.Interval = time.Hour
	cfg.GWIMode = GWIModeAvgMonthly
	cfg.GWIAverage = floatPtr(1.0)
	cfg.ClipNegative = false

	dec, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := dec.Decompose(Inputs{Flow: flow})
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	for i := range res.Times {
		sum := res.GWI[i] + res.BWWF[i] + res.WWF[i]
		if math.Abs(res.Flow[i]-sum) > 1e-9 {
			t.Fatalf("conservation broken at %d: flow=%v, components=%v", i, res.Flow[i], sum)
		}
	}
}

func TestWeekdayWeekendSplit(t *testing.T) {
	// Two weeks of hourly data starting on a Monday: sanitary flow 2.0 on
	// weekdays and 4.0 on weekends over a GWI of 1.0.
	start := time.Date(2020, 1, 6, 0, 0, 0, 0, time.UTC) // Monday
	values := make([]float64, 14*24)
	for i := range values {
		ts := start.Add(time.Duration(i) * time.Hour)
		if isWeekend(ts) {
			values[i] = 5.0
		} else {
			values[i] = 3.0
		}
	}
	flow := hourlySeries(start, values)

	cfg := DefaultConfig()
	cfg.Interval = time.Hour
	cfg.GWIMode = GWIModeAvgMonthly
	cfg.GWIAverage = floatPtr(1.0)

	dec, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := dec.Decompose(Inputs{Flow: flow})
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	p := res.Parameters
	if math.Abs(p.DailyAvgWeekday-2.0) > 1e-9 {
		t.Errorf("daily_avg_weekday = %v, want 2.0", p.DailyAvgWeekday)
	}
	if math.Abs(p.DailyAvgWeekend-4.0) > 1e-9 {
		t.Errorf("daily_avg_weekend = %v, want 4.0", p.DailyAvgWeekend)
	}
	for i, ts := range res.Times {
		want := 2.0
		if isWeekend(ts) {
			want = 4.0
		}
		if math.Abs(res.BWWF[i]-want) > 1e-9 {
			t.Fatalf("bwwf at %v = %v, want %v", ts, res.BWWF[i], want)
		}
	}
}

func TestZeroRainfallClassifiesAllDry(t *testing.T) {
	start := time.Date(2020, 1, 6, 0, 0, 0, 0, time.UTC)
	rain := constantSeries(start, 48, time.Hour, 0)
	cfg := DefaultConfig()
	cfg.Interval = time.Hour

	r := timeseries.Resample(rain, time.Hour)
	dry := classifyDry(cfg, r.Len(), &r)
	for i, d := range dry {
		if !d {
			t.Fatalf("sample %d classified wet with zero rainfall", i)
		}
	}
}

func TestDryClassificationTrailingWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Interval = time.Hour
	cfg.DryLookbackHours = 3
	cfg.DryRainThreshold = 0.02

	start := time.Date(2020, 1, 6, 0, 0, 0, 0, time.UTC)
	rain := hourlySeries(start, []float64{0, 0, 1.0, 0, 0, 0, 0})
	r := timeseries.Resample(rain, time.Hour)

	dry := classifyDry(cfg, r.Len(), &r)
	// The first two samples see only partial windows with no rain, the
	// event keeps samples 2-4 wet, and the trailing sum drops back below
	// threshold from sample 5 on.
	want := []bool{true, true, false, false, false, true, true}
	for i, w := range want {
		if dry[i] != w {
			t.Errorf("dry[%d] = %v, want %v", i, dry[i], w)
		}
	}
}

func TestNoRainfallMeansAllDry(t *testing.T) {
	cfg := DefaultConfig()
	dry := classifyDry(cfg, 10, nil)
	for i, d := range dry {
		if !d {
			t.Errorf("sample %d not dry without rainfall series", i)
		}
	}
}

func TestDegeneratePatternFallsBackToZero(t *testing.T) {
	// Flow below the GWI estimate leaves a negative sanitary residual, so
	// both class patterns must degrade to all zeros instead of erroring.
	start := time.Date(2020, 1, 6, 0, 0, 0, 0, time.UTC)
	flow := constantSeries(start, 48, time.Hour, 0.5)

	cfg := DefaultConfig()
	cfg.Interval = time.Hour
	cfg.GWIMode = GWIModeAvgMonthly
	cfg.GWIAverage = floatPtr(1.0)
	cfg.ClipNegative = true

	dec, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := dec.Decompose(Inputs{Flow: flow})
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	for h := 0; h < 24; h++ {
		if res.Parameters.WeekdayHourly[h] != 0 || res.Parameters.WeekendHourly[h] != 0 {
			t.Fatalf("expected zero patterns, got weekday=%v weekend=%v",
				res.Parameters.WeekdayHourly[h], res.Parameters.WeekendHourly[h])
		}
	}
	if res.Parameters.DailyAvgWeekday != 0 {
		t.Errorf("degenerate daily average recorded as %v, want 0", res.Parameters.DailyAvgWeekday)
	}
}

func TestPatternNonNegativity(t *testing.T) {
	start := time.Date(2020, 1, 6, 0, 0, 0, 0, time.UTC)
	values := make([]float64, 7*24)
	for i := range values {
		// Dips below the GWI estimate for part of the day while the
		// daily average stays positive.
		values[i] = 1.3 + 0.6*math.Sin(2*math.Pi*float64(i%24)/24)
	}
	flow := hourlySeries(start, values)

	cfg := DefaultConfig()
	cfg.Interval = time.Hour
	cfg.GWIMode = GWIModeAvgMonthly
	cfg.GWIAverage = floatPtr(1.0)

	dec, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := dec.Decompose(Inputs{Flow: flow})
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	for h := 0; h < 24; h++ {
		if res.Parameters.WeekdayHourly[h] < 0 {
			t.Errorf("weekday pattern hour %d negative: %v", h, res.Parameters.WeekdayHourly[h])
		}
		if res.Parameters.WeekendHourly[h] < 0 {
			t.Errorf("weekend pattern hour %d negative: %v", h, res.Parameters.WeekendHourly[h])
		}
	}
}

func TestGWITimeseriesModeInterpolates(t *testing.T) {
	start := time.Date(2020, 1, 6, 0, 0, 0, 0, time.UTC)
	flow := constantSeries(start, 24, time.Hour, 3.0)
	// GWI observations every other hour; interpolation must cover the rest.
	gwi := timeseries.Series{}
	for i := 0; i < 24; i += 2 {
		gwi.Times = append(gwi.Times, start.Add(time.Duration(i)*time.Hour))
		gwi.Values = append(gwi.Values, 1.0)
	}

	cfg := DefaultConfig()
	cfg.Interval = time.Hour

	dec, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := dec.Decompose(Inputs{Flow: flow, GWI: &gwi})
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	for i := range res.Times {
		if math.Abs(res.GWI[i]-1.0) > 1e-9 {
			t.Fatalf("gwi[%d] = %v, want 1.0", i, res.GWI[i])
		}
	}
}

func TestGWITimeseriesModeMonthlyFallback(t *testing.T) {
	// The GWI series has no overlap with the flow index, so every
	// timestamp falls back to average times the month multiplier.
	start := time.Date(2020, 2, 3, 0, 0, 0, 0, time.UTC)
	flow := constantSeries(start, 24, time.Hour, 3.0)
	gwi := constantSeries(start.AddDate(0, -1, 0), 4, time.Hour, 1.0)

	monthly := make([]float64, 12)
	for i := range monthly {
		monthly[i] = 1.0
	}
	monthly[1] = 2.0 // February

	cfg := DefaultConfig()
	cfg.Interval = time.Hour
	cfg.GWIAverage = floatPtr(0.5)
	cfg.GWIMonthly = monthly

	dec, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := dec.Decompose(Inputs{Flow: flow, GWI: &gwi})
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	for i := range res.Times {
		if math.Abs(res.GWI[i]-1.0) > 1e-9 {
			t.Fatalf("gwi[%d] = %v, want 0.5*2.0", i, res.GWI[i])
		}
	}
	if res.Parameters.GWIAverage == nil || *res.Parameters.GWIAverage != 0.5 {
		t.Errorf("parameter record should carry the fallback average")
	}
}

func TestConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  func() Config
	}{
		{
			name: "avg_monthly without average",
			cfg: func() Config {
				c := DefaultConfig()
				c.GWIMode = GWIModeAvgMonthly
				return c
			},
		},
		{
			name: "unknown gwi mode",
			cfg: func() Config {
				c := DefaultConfig()
				c.GWIMode = "seasonal"
				return c
			},
		},
		{
			name: "wrong multiplier count",
			cfg: func() Config {
				c := DefaultConfig()
				c.GWIMonthly = []float64{1, 2, 3}
				return c
			},
		},
		{
			name: "unsupported optimization strategy",
			cfg: func() Config {
				c := DefaultConfig()
				c.RTKComponents = 1
				c.OptimizeStrategy = "simulated_annealing"
				return c
			},
		},
		{
			name: "negative component count",
			cfg: func() Config {
				c := DefaultConfig()
				c.RTKComponents = -1
				return c
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg()); err == nil {
				t.Errorf("expected configuration error")
			}
		})
	}
}

func TestTimeseriesModeWithoutSeriesFails(t *testing.T) {
	dec, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	start := time.Date(2020, 1, 6, 0, 0, 0, 0, time.UTC)
	if _, err := dec.Decompose(Inputs{Flow: constantSeries(start, 4, 15*time.Minute, 1.0)}); err == nil {
		t.Errorf("expected error for timeseries mode without a GWI series")
	}
}

func TestEmptyInputPropagates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GWIMode = GWIModeAvgMonthly
	cfg.GWIAverage = floatPtr(1.0)
	dec, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := dec.Decompose(Inputs{Flow: timeseries.Series{}})
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	if len(res.Times) != 0 {
		t.Errorf("expected empty result table, got %d rows", len(res.Times))
	}
}
