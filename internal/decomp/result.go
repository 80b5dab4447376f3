package decomp

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/hydrosolve/flowdecomp/internal/rtk"
)

// FitMetrics reports the goodness of fit of the RTK reconstruction.
type FitMetrics struct {
	NSE float64 `json:"NSE"`
}

// Parameters is the structured record of one decomposition run: the GWI
// settings actually used, the two diurnal patterns, and the RTK calibration
// when fitting ran.
type Parameters struct {
	RunID           string        `json:"run_id"`
	GWIMode         string        `json:"gwi_mode"`
	GWIAverage      *float64      `json:"gwi_avg"`
	GWIMonthly      []float64     `json:"gwi_monthly"`
	DailyAvgWeekday float64       `json:"daily_avg_weekday"`
	DailyAvgWeekend float64       `json:"daily_avg_weekend"`
	WeekdayHourly   []float64     `json:"weekday_hourly"`
	WeekendHourly   []float64     `json:"weekend_hourly"`
	RTKTriplets     []rtk.Triplet `json:"rtk_triplets,omitempty"`
	FitMetrics      *FitMetrics   `json:"fit_metrics,omitempty"`
}

// Result is the final artifact of a decomposition run: one table row per
// resampled timestamp plus the parameter record. Rainfall is nil when no
// rainfall series was supplied.
type Result struct {
	Times      []time.Time
	Flow       []float64
	GWI        []float64
	BWWF       []float64
	WWF        []float64
	Rainfall   []float64
	Parameters Parameters
}

// Save writes the table to timeseries.csv and the parameter record to
// parameters.json under outdir, creating the directory if needed.
func (r *Result) Save(outdir string) error {
	if err := os.MkdirAll(outdir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := r.writeTable(filepath.Join(outdir, "timeseries.csv")); err != nil {
		return err
	}
	return r.writeParameters(filepath.Join(outdir, "parameters.json"))
}

func (r *Result) writeTable(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"timestamp", "flow", "gwi", "bwwf", "wwf"}
	if r.Rainfall != nil {
		header = append(header, "rainfall")
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for i := range r.Times {
		row := []string{
			r.Times[i].Format(time.RFC3339),
			formatValue(r.Flow[i]),
			formatValue(r.GWI[i]),
			formatValue(r.BWWF[i]),
			formatValue(r.WWF[i]),
		}
		if r.Rainfall != nil {
			row = append(row, formatValue(r.Rainfall[i]))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (r *Result) writeParameters(path string) error {
	data, err := json.MarshalIndent(r.Parameters, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding parameters: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// formatValue renders a table cell; missing samples become empty cells.
func formatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
