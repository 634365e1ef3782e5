// Package config loads and validates the Stablehand configuration file.
package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		TenantID: "default",
		Backbone: BackboneConfig{
			MaxAttempts:      10,
			BaseDelayMS:      500,
			HeartbeatSeconds: 30,
		},
		Analysis: AnalysisConfig{
			TimeoutSeconds: 10,
		},
		Session: SessionConfig{
			SlotWaitMinutes: 5,
		},
		Store: StoreConfig{
			Backend: "sqlite",
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleLevel: "info",
			ConsoleStyle: "pretty",
		},
	}
}
