// Command flowdecomp decomposes a combined sewer flow time series into
// groundwater infiltration, base wastewater flow, and wet-weather flow, with
// optional RTK unit-hydrograph fitting against rainfall.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/hydrosolve/flowdecomp/internal/decomp"
	"github.com/hydrosolve/flowdecomp/internal/loader"
	"github.com/hydrosolve/flowdecomp/internal/log"
	"github.com/hydrosolve/flowdecomp/pkg/config"
)

const version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

func main() {
	flowPath := flag.String("flow", "", "Flow CSV with timestamp and flow columns (required)")
	rainPath := flag.String("rain", "", "Optional rainfall CSV with timestamp and rain columns")
	gwiPath := flag.String("gwi-ts", "", "Optional GWI CSV with timestamp and gwi columns")
	gwiAvg := flag.Float64("gwi-avg", 0, "Average GWI for mode 'avg_monthly'")
	gwiMonthly := flag.String("gwi-monthly", "", "Comma-separated list of 12 monthly GWI multipliers")
	interval := flag.Duration("interval", 15*time.Minute, "Resample interval, e.g. 15m")
	tz := flag.String("tz", "", "Timezone name, e.g. America/Chicago")
	rtk := flag.Int("rtk", 0, "Number of RTK triplets to fit (0 disables fitting)")
	outDir := flag.String("out", "out", "Output directory for timeseries.csv and parameters.json")
	cfgFile := flag.String("config", "", "Path to configuration source:\n\t\t\t  YAML: decomp.yaml\n\t\t\t  SQLite: decomp.db")
	cfgBackend := flag.String("config-backend", "yaml", "Configuration backend type: 'yaml' for YAML files, 'sqlite' for SQLite databases")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("flowdecomp %s\n", version)
		os.Exit(0)
	}

	setFlags := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	// Load configuration
	fileCfg := &config.ConfigData{}
	if *cfgFile != "" {
		var err error
		fileCfg, err = loadConfig(*cfgFile, *cfgBackend)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
			os.Exit(1)
		}
	}

	// Set up logging
	if err := log.InitWithFile(*debug || fileCfg.Logging.Debug, fileCfg.Logging.File); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *flowPath == "" {
		log.Errorf("-flow is required")
		os.Exit(1)
	}

	cfg, err := buildConfig(fileCfg.Decomposition, setFlags, cliOverrides{
		gwiTable:   *gwiPath != "",
		gwiAvg:     *gwiAvg,
		gwiMonthly: *gwiMonthly,
		interval:   *interval,
		tz:         *tz,
		rtk:        *rtk,
	})
	if err != nil {
		log.Errorf("Configuration error: %v", err)
		os.Exit(1)
	}

	dec, err := decomp.New(cfg)
	if err != nil {
		log.Errorf("Configuration error: %v", err)
		os.Exit(1)
	}

	flow, err := loader.ReadTable(*flowPath, cfg.Timezone)
	if err != nil {
		log.Errorf("Failed to read flow table: %v", err)
		os.Exit(1)
	}
	inputs := decomp.Inputs{Flow: flow}
	if *rainPath != "" {
		rain, err := loader.ReadTable(*rainPath, cfg.Timezone)
		if err != nil {
			log.Errorf("Failed to read rainfall table: %v", err)
			os.Exit(1)
		}
		inputs.Rain = &rain
	}
	if *gwiPath != "" {
		gwi, err := loader.ReadTable(*gwiPath, cfg.Timezone)
		if err != nil {
			log.Errorf("Failed to read GWI table: %v", err)
			os.Exit(1)
		}
		inputs.GWI = &gwi
	}

	result, err := dec.Decompose(inputs)
	if err != nil {
		log.Errorf("Decomposition failed: %v", err)
		os.Exit(1)
	}

	out, _ := filepath.Abs(*outDir)
	if err := result.Save(out); err != nil {
		log.Errorf("Failed to save results: %v", err)
		os.Exit(1)
	}
	log.Infof("wrote %d rows to %s", len(result.Times), out)
}

// cliOverrides carries the flag values that can override file configuration.
type cliOverrides struct {
	gwiTable   bool
	gwiAvg     float64
	gwiMonthly string
	interval   time.Duration
	tz         string
	rtk        int
}

// buildConfig merges defaults, file configuration, and explicitly set flags,
// in that order of precedence.
func buildConfig(file config.DecompositionData, setFlags map[string]bool, cli cliOverrides) (decomp.Config, error) {
	cfg := decomp.DefaultConfig()

	if file.Interval != "" {
		d, err := time.ParseDuration(file.Interval)
		if err != nil {
			return cfg, fmt.Errorf("parsing interval %q: %w", file.Interval, err)
		}
		cfg.Interval = d
	}
	if file.Timezone != "" {
		loc, err := time.LoadLocation(file.Timezone)
		if err != nil {
			return cfg, fmt.Errorf("loading timezone %q: %w", file.Timezone, err)
		}
		cfg.Timezone = loc
	}
	if file.GWIMode != "" {
		cfg.GWIMode = decomp.GWIMode(file.GWIMode)
	} else if cli.gwiTable {
		cfg.GWIMode = decomp.GWIModeTimeseries
	} else {
		cfg.GWIMode = decomp.GWIModeAvgMonthly
	}
	if file.GWIAverage != nil {
		cfg.GWIAverage = file.GWIAverage
	}
	if file.GWIMonthly != nil {
		cfg.GWIMonthly = file.GWIMonthly
	}
	if file.DryLookbackHours != 0 {
		cfg.DryLookbackHours = file.DryLookbackHours
	}
	if file.DryRainThreshold != nil {
		cfg.DryRainThreshold = *file.DryRainThreshold
	}
	if file.RTKComponents != 0 {
		cfg.RTKComponents = file.RTKComponents
	}
	if file.OptimizeStrategy != "" {
		cfg.OptimizeStrategy = file.OptimizeStrategy
	}
	if file.ClipNegative != nil {
		cfg.ClipNegative = *file.ClipNegative
	}
	cfg.OptimizerSeed = file.OptimizerSeed

	if setFlags["interval"] {
		cfg.Interval = cli.interval
	}
	if setFlags["tz"] {
		loc, err := time.LoadLocation(cli.tz)
		if err != nil {
			return cfg, fmt.Errorf("loading timezone %q: %w", cli.tz, err)
		}
		cfg.Timezone = loc
	}
	if setFlags["gwi-avg"] {
		avg := cli.gwiAvg
		cfg.GWIAverage = &avg
	}
	if setFlags["gwi-monthly"] {
		monthly, err := parseMonthly(cli.gwiMonthly)
		if err != nil {
			return cfg, fmt.Errorf("parsing -gwi-monthly: %w", err)
		}
		cfg.GWIMonthly = monthly
	}
	if setFlags["rtk"] {
		cfg.RTKComponents = cli.rtk
	}
	return cfg, nil
}

func parseMonthly(arg string) ([]float64, error) {
	parts := strings.Split(arg, ",")
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

func loadConfig(cfgFile, cfgBackend string) (*config.ConfigData, error) {
	filename, _ := filepath.Abs(cfgFile)

	var provider config.ConfigProvider
	var err error

	switch cfgBackend {
	case "yaml":
		provider = config.NewYAMLProvider(filename)
	case "sqlite":
		provider, err = config.NewSQLiteProvider(filename)
		if err != nil {
			return nil, fmt.Errorf("error creating SQLite provider: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported configuration backend: %s. Use 'yaml' or 'sqlite'", cfgBackend)
	}
	defer provider.Close()

	return provider.LoadConfig()
}
