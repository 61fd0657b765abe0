// Package config loads environment-driven configuration for the timetable
// engine service: HTTP/DB settings plus the generation tunables of
// domain.GenerationConfig that a deployment may want to override globally.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the timetable
// engine service.
type Config struct {
	HTTPPort  int
	SQLiteDSN string

	// Generation tunables. Load fills them from the environment, but they
	// are not passed on to generation: each request starts from
	// domain.DefaultGenerationConfig.
	MaxSessionsPerDay  int
	WallClockBudget    time.Duration
	PedagogicalWeight  float64
	CoverageWeight     float64
	DistributionWeight float64

	// Sequencing delays (days) of invariant I6. Load sets them to their
	// defaults and does not read them from the environment; placement uses
	// its own fixed delays, not these fields.
	MinDelayCMTD  int
	MinDelayCMTP  int
	MinDelayTDTP  int
	MinDelayCMTPE int
}

// Load parses configuration values from the current process environment.
//
// Every field has a default; the loader overrides it from the environment
// where a variable is set, and reports a single joined error naming every
// variable that is malformed.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:           8080,
		SQLiteDSN:          "file:timetable.db?_foreign_keys=on",
		MaxSessionsPerDay:  1,
		WallClockBudget:    30 * time.Second,
		PedagogicalWeight:  1.0,
		CoverageWeight:     0.3,
		DistributionWeight: 0.5,
		MinDelayCMTD:       1,
		MinDelayCMTP:       2,
		MinDelayTDTP:       1,
		MinDelayCMTPE:      3,
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("TIMETABLE_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "TIMETABLE_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("TIMETABLE_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if v := strings.TrimSpace(os.Getenv("TIMETABLE_MAX_SESSIONS_PER_DAY")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			invalid = append(invalid, "TIMETABLE_MAX_SESSIONS_PER_DAY")
		} else {
			cfg.MaxSessionsPerDay = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("TIMETABLE_WALL_CLOCK_BUDGET")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			invalid = append(invalid, "TIMETABLE_WALL_CLOCK_BUDGET")
		} else {
			cfg.WallClockBudget = d
		}
	}

	if v := strings.TrimSpace(os.Getenv("TIMETABLE_PEDAGOGICAL_WEIGHT")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			invalid = append(invalid, "TIMETABLE_PEDAGOGICAL_WEIGHT")
		} else {
			cfg.PedagogicalWeight = f
		}
	}

	if v := strings.TrimSpace(os.Getenv("TIMETABLE_COVERAGE_WEIGHT")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			invalid = append(invalid, "TIMETABLE_COVERAGE_WEIGHT")
		} else {
			cfg.CoverageWeight = f
		}
	}

	if v := strings.TrimSpace(os.Getenv("TIMETABLE_DISTRIBUTION_WEIGHT")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			invalid = append(invalid, "TIMETABLE_DISTRIBUTION_WEIGHT")
		} else {
			cfg.DistributionWeight = f
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
