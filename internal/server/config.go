package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Configuration defaults. Module sections live under plugins.<name> and
// are handed to modules as scoped sub-configs.
var configDefaults = map[string]any{
	"server.host": "0.0.0.0",
	"server.port": 8080,

	"logging.level":  "info",
	"logging.format": "json",

	"database.path": "./data/readyrun.db",

	"plugins.trainlog.enabled":         true,
	"plugins.trainlog.min_resting_hr":  30,
	"plugins.trainlog.max_resting_hr":  100,
	"plugins.trainlog.max_distance_km": 50.0,

	"plugins.readiness.enabled":            true,
	"plugins.readiness.acute_window":       7,
	"plugins.readiness.chronic_window":     28,
	"plugins.readiness.rhr_window":         30,
	"plugins.readiness.rhr_warn_sigma":     1.0,
	"plugins.readiness.rhr_critical_sigma": 2.0,
	"plugins.readiness.acwr_warn":          1.3,
	"plugins.readiness.acwr_critical":      1.5,
}

// LoadConfig reads readyrun.yaml (or the file at configPath) plus RR_*
// environment variables. A missing config file is not an error; defaults
// apply.
func LoadConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()
	for key, val := range configDefaults {
		v.SetDefault(key, val)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("readyrun")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/readyrun")
	}

	// RR_SERVER_PORT=9090 overrides server.port.
	v.SetEnvPrefix("RR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return v, nil
}
