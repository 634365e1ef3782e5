package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so tokens and passwords can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.Backbone.Token = expandEnvVars(cfg.Backbone.Token)
	cfg.Analysis.APIKey = expandEnvVars(cfg.Analysis.APIKey)
	if cfg.Intake != nil {
		cfg.Intake.Password = expandEnvVars(cfg.Intake.Password)
	}
	if cfg.Notify.IRC != nil {
		cfg.Notify.IRC.Password = expandEnvVars(cfg.Notify.IRC.Password)
	}
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.TenantID == "" {
		cfg.TenantID = "default"
	}
	if cfg.Backbone.MaxAttempts == 0 {
		cfg.Backbone.MaxAttempts = 10
	}
	if cfg.Backbone.BaseDelayMS == 0 {
		cfg.Backbone.BaseDelayMS = 500
	}
	if cfg.Backbone.HeartbeatSeconds == 0 {
		cfg.Backbone.HeartbeatSeconds = 30
	}
	if cfg.Analysis.TimeoutSeconds == 0 {
		cfg.Analysis.TimeoutSeconds = 10
	}
	if cfg.Session.SlotWaitMinutes == 0 {
		cfg.Session.SlotWaitMinutes = 5
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "sqlite"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.ConsoleLevel == "" {
		cfg.Logging.ConsoleLevel = "info"
	}
	if cfg.Logging.ConsoleStyle == "" {
		cfg.Logging.ConsoleStyle = "pretty"
	}
	if cfg.Intake != nil {
		if cfg.Intake.Port == 0 {
			cfg.Intake.Port = 993
		}
		if cfg.Intake.Mailbox == "" {
			cfg.Intake.Mailbox = "INBOX"
		}
		if cfg.Intake.IntervalSeconds == 0 {
			cfg.Intake.IntervalSeconds = 60
		}
	}
}

// applyEnvOverrides reads STABLEHAND_* environment variables and overrides
// config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STABLEHAND_TENANT"); v != "" {
		cfg.TenantID = v
	}
	if v := os.Getenv("STABLEHAND_BACKBONE_URL"); v != "" {
		cfg.Backbone.URL = v
	}
	if v := os.Getenv("STABLEHAND_BACKBONE_TOKEN"); v != "" {
		cfg.Backbone.Token = v
	}
	if v := os.Getenv("STABLEHAND_ANALYSIS_ENDPOINT"); v != "" {
		cfg.Analysis.Endpoint = v
	}
	if v := os.Getenv("STABLEHAND_ANALYSIS_API_KEY"); v != "" {
		cfg.Analysis.APIKey = v
	}
	if v := os.Getenv("STABLEHAND_STORE"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("STABLEHAND_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("STABLEHAND_SLOT_WAIT_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Session.SlotWaitMinutes = n
		}
	}
}
