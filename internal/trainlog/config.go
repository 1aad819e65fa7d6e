package trainlog

import "github.com/readyrun/readyrun/pkg/plugin"

// RPE bounds are part of the scale definition, not tunable.
const (
	minRPE = 1
	maxRPE = 10
)

// Config holds the submission validation bounds.
type Config struct {
	MinRestingHR  int     `mapstructure:"min_resting_hr"`
	MaxRestingHR  int     `mapstructure:"max_resting_hr"`
	MaxDistanceKm float64 `mapstructure:"max_distance_km"`
}

// DefaultConfig returns bounds that cover recreational through elite
// runners.
func DefaultConfig() Config {
	return Config{
		MinRestingHR:  30,
		MaxRestingHR:  100,
		MaxDistanceKm: 50,
	}
}

func configFrom(cfg plugin.Config) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	if v := cfg.GetInt("min_resting_hr"); v > 0 {
		c.MinRestingHR = v
	}
	if v := cfg.GetInt("max_resting_hr"); v > 0 {
		c.MaxRestingHR = v
	}
	if v := cfg.GetFloat64("max_distance_km"); v > 0 {
		c.MaxDistanceKm = v
	}
	return c
}
