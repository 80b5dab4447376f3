// Package config loads decomposition run configuration from YAML files or
// SQLite databases through a common provider interface.
package config

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Configuration management
	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Decomposition DecompositionData `yaml:"decomposition" json:"decomposition"`
	Logging       LoggingData       `yaml:"logging,omitempty" json:"logging,omitempty"`
}

// DecompositionData holds the parameters of one decomposition run. Zero
// fields fall back to the pipeline defaults; pointer fields distinguish
// "unset" from a meaningful zero.
type DecompositionData struct {
	Interval         string    `yaml:"interval,omitempty" json:"interval,omitempty"`
	Timezone         string    `yaml:"timezone,omitempty" json:"timezone,omitempty"`
	GWIMode          string    `yaml:"gwi_mode,omitempty" json:"gwi_mode,omitempty"`
	GWIAverage       *float64  `yaml:"gwi_avg,omitempty" json:"gwi_avg,omitempty"`
	GWIMonthly       []float64 `yaml:"gwi_monthly,omitempty" json:"gwi_monthly,omitempty"`
	DryLookbackHours float64   `yaml:"dry_lookback_hours,omitempty" json:"dry_lookback_hours,omitempty"`
	DryRainThreshold *float64  `yaml:"dry_rain_threshold,omitempty" json:"dry_rain_threshold,omitempty"`
	RTKComponents    int       `yaml:"rtk_components,omitempty" json:"rtk_components,omitempty"`
	OptimizeStrategy string    `yaml:"optimize_strategy,omitempty" json:"optimize_strategy,omitempty"`
	ClipNegative     *bool     `yaml:"clip_negative,omitempty" json:"clip_negative,omitempty"`
	OptimizerSeed    uint64    `yaml:"optimizer_seed,omitempty" json:"optimizer_seed,omitempty"`
}

// LoggingData holds configuration for the logger
type LoggingData struct {
	File  string `yaml:"file,omitempty" json:"file,omitempty"`
	Debug bool   `yaml:"debug,omitempty" json:"debug,omitempty"`
}
