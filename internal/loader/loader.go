// Package loader reads the timestamp/value CSV tables supplied to a
// decomposition run. It is a thin boundary collaborator: all interpretation
// of the data happens in the pipeline.
package loader

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hydrosolve/flowdecomp/internal/timeseries"
)

// timestampLayouts are tried in order when parsing the timestamp column.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ReadTable reads a two-column CSV table with a header row; the first column
// is the timestamp and the second the value. Timestamps without a zone are
// interpreted in loc. Empty value cells become missing samples.
func ReadTable(path string, loc *time.Location) (timeseries.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return timeseries.Series{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return timeseries.Series{}, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(records) == 0 {
		return timeseries.Series{}, nil
	}

	s := timeseries.Series{}
	for i, rec := range records[1:] {
		if len(rec) < 2 {
			return timeseries.Series{}, fmt.Errorf("%s row %d: expected timestamp and value columns", path, i+2)
		}
		ts, err := parseTimestamp(strings.TrimSpace(rec[0]), loc)
		if err != nil {
			return timeseries.Series{}, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		value := math.NaN()
		if cell := strings.TrimSpace(rec[1]); cell != "" {
			value, err = strconv.ParseFloat(cell, 64)
			if err != nil {
				return timeseries.Series{}, fmt.Errorf("%s row %d: parsing value %q: %w", path, i+2, cell, err)
			}
		}
		s.Times = append(s.Times, ts)
		s.Values = append(s.Values, value)
	}
	return s, nil
}

func parseTimestamp(cell string, loc *time.Location) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, cell, loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", cell)
}
