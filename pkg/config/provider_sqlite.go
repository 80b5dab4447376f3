package config

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteProvider implements ConfigProvider for SQLite database configuration.
// The database is expected to carry a single-row `decomposition_config`
// table; see Schema for the expected columns.
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// Schema creates the configuration table. Kept here so provisioning tools
// and tests stay in sync with the reader below.
const Schema = `
CREATE TABLE IF NOT EXISTS decomposition_config (
	interval TEXT,
	timezone TEXT,
	gwi_mode TEXT,
	gwi_avg REAL,
	gwi_monthly TEXT,
	dry_lookback_hours REAL,
	dry_rain_threshold REAL,
	rtk_components INTEGER,
	optimize_strategy TEXT,
	clip_negative INTEGER,
	optimizer_seed INTEGER,
	log_file TEXT,
	debug INTEGER
);`

// NewSQLiteProvider creates a new SQLite configuration provider
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// LoadConfig loads the complete configuration from the SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	row := s.db.QueryRow(`SELECT interval, timezone, gwi_mode, gwi_avg, gwi_monthly,
		dry_lookback_hours, dry_rain_threshold, rtk_components, optimize_strategy,
		clip_negative, optimizer_seed, log_file, debug
		FROM decomposition_config LIMIT 1`)

	var (
		interval, timezone, gwiMode, strategy, logFile sql.NullString
		gwiAvg, lookback, threshold                    sql.NullFloat64
		gwiMonthly                                     sql.NullString
		rtkComponents, clipNegative, seed, debug       sql.NullInt64
	)
	err := row.Scan(&interval, &timezone, &gwiMode, &gwiAvg, &gwiMonthly,
		&lookback, &threshold, &rtkComponents, &strategy,
		&clipNegative, &seed, &logFile, &debug)
	if err == sql.ErrNoRows {
		return &ConfigData{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load decomposition config: %w", err)
	}

	config := &ConfigData{
		Decomposition: DecompositionData{
			Interval:         interval.String,
			Timezone:         timezone.String,
			GWIMode:          gwiMode.String,
			DryLookbackHours: lookback.Float64,
			RTKComponents:    int(rtkComponents.Int64),
			OptimizeStrategy: strategy.String,
			OptimizerSeed:    uint64(seed.Int64),
		},
		Logging: LoggingData{
			File:  logFile.String,
			Debug: debug.Int64 != 0,
		},
	}
	if gwiAvg.Valid {
		config.Decomposition.GWIAverage = &gwiAvg.Float64
	}
	if threshold.Valid {
		config.Decomposition.DryRainThreshold = &threshold.Float64
	}
	if clipNegative.Valid {
		clip := clipNegative.Int64 != 0
		config.Decomposition.ClipNegative = &clip
	}
	if gwiMonthly.Valid && gwiMonthly.String != "" {
		monthly, err := parseMonthly(gwiMonthly.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse gwi_monthly: %w", err)
		}
		config.Decomposition.GWIMonthly = monthly
	}
	return config, nil
}

// IsReadOnly returns false; SQLite configurations can be provisioned in place
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the underlying database handle
func (s *SQLiteProvider) Close() error {
	return s.db.Close()
}

// parseMonthly splits a comma-separated multiplier list.
func parseMonthly(cell string) ([]float64, error) {
	parts := strings.Split(cell, ",")
	monthly := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		monthly = append(monthly, v)
	}
	return monthly, nil
}
