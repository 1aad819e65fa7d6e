package readiness

import "github.com/readyrun/readyrun/pkg/plugin"

// Config holds the analyzer thresholds. All values are tunable through the
// plugins.readiness section of the server configuration; the defaults match
// the published ACWR and RHR-anomaly heuristics.
type Config struct {
	AcuteWindow   int `mapstructure:"acute_window"`   // Entries in the acute load window
	ChronicWindow int `mapstructure:"chronic_window"` // Entries in the chronic load window
	RHRWindow     int `mapstructure:"rhr_window"`     // Entries in the RHR baseline window

	RHRWarnSigma     float64 `mapstructure:"rhr_warn_sigma"`     // z above this is elevated
	RHRCriticalSigma float64 `mapstructure:"rhr_critical_sigma"` // z above this is severe

	ACWRWarn     float64 `mapstructure:"acwr_warn"`     // Ratio above this is a rapid increase
	ACWRCritical float64 `mapstructure:"acwr_critical"` // Ratio above this is high injury risk
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		AcuteWindow:      7,
		ChronicWindow:    28,
		RHRWindow:        30,
		RHRWarnSigma:     1.0,
		RHRCriticalSigma: 2.0,
		ACWRWarn:         1.3,
		ACWRCritical:     1.5,
	}
}

// configFrom reads the module section, falling back to defaults for any
// unset key.
func configFrom(cfg plugin.Config) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	if v := cfg.GetInt("acute_window"); v > 0 {
		c.AcuteWindow = v
	}
	if v := cfg.GetInt("chronic_window"); v > 0 {
		c.ChronicWindow = v
	}
	if v := cfg.GetInt("rhr_window"); v > 0 {
		c.RHRWindow = v
	}
	if v := cfg.GetFloat64("rhr_warn_sigma"); v > 0 {
		c.RHRWarnSigma = v
	}
	if v := cfg.GetFloat64("rhr_critical_sigma"); v > 0 {
		c.RHRCriticalSigma = v
	}
	if v := cfg.GetFloat64("acwr_warn"); v > 0 {
		c.ACWRWarn = v
	}
	if v := cfg.GetFloat64("acwr_critical"); v > 0 {
		c.ACWRCritical = v
	}
	return c
}
