package config

import (
	"fmt"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.Backbone.URL == "" {
		issues = append(issues, ValidationIssue{
			Path:    "backbone.url",
			Message: "backbone URL is required",
		})
	}
	if cfg.Backbone.MaxAttempts < 1 {
		issues = append(issues, ValidationIssue{
			Path:    "backbone.maxAttempts",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.Backbone.MaxAttempts),
		})
	}
	if cfg.Backbone.BaseDelayMS < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "backbone.baseDelayMs",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Backbone.BaseDelayMS),
		})
	}

	validBackends := []string{"sqlite", "memory"}
	if cfg.Store.Backend != "" && !slices.Contains(validBackends, cfg.Store.Backend) {
		issues = append(issues, ValidationIssue{
			Path:    "store.backend",
			Message: fmt.Sprintf("must be one of %v, got %q", validBackends, cfg.Store.Backend),
		})
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}
	validConsoleStyles := []string{"pretty", "compact", "json"}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.consoleStyle",
			Message: fmt.Sprintf("must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle),
		})
	}

	validRoles := []string{"support_agent", "senior_support", "technical_specialist", "support_manager"}
	validSkills := []string{"junior", "senior", "expert"}
	for i, m := range cfg.Staff {
		path := fmt.Sprintf("staff[%d]", i)
		if m.ID == "" {
			issues = append(issues, ValidationIssue{Path: path + ".id", Message: "staff id is required"})
		}
		if m.MaxCapacity < 1 {
			issues = append(issues, ValidationIssue{
				Path:    path + ".maxCapacity",
				Message: fmt.Sprintf("must be at least 1, got %d", m.MaxCapacity),
			})
		}
		if !slices.Contains(validRoles, string(m.Role)) {
			issues = append(issues, ValidationIssue{
				Path:    path + ".role",
				Message: fmt.Sprintf("must be one of %v, got %q", validRoles, m.Role),
			})
		}
		if !slices.Contains(validSkills, string(m.SkillLevel)) {
			issues = append(issues, ValidationIssue{
				Path:    path + ".skillLevel",
				Message: fmt.Sprintf("must be one of %v, got %q", validSkills, m.SkillLevel),
			})
		}
	}

	if cfg.Intake != nil {
		if cfg.Intake.Host == "" {
			issues = append(issues, ValidationIssue{Path: "intake.host", Message: "IMAP host is required"})
		}
		if cfg.Intake.Email == "" {
			issues = append(issues, ValidationIssue{Path: "intake.email", Message: "account email is required"})
		}
	}

	if cfg.Notify.IRC != nil {
		if cfg.Notify.IRC.Server == "" {
			issues = append(issues, ValidationIssue{Path: "notify.irc.server", Message: "server is required"})
		}
		if cfg.Notify.IRC.Nick == "" {
			issues = append(issues, ValidationIssue{Path: "notify.irc.nick", Message: "nick is required"})
		}
		if len(cfg.Notify.IRC.Channels) == 0 {
			issues = append(issues, ValidationIssue{Path: "notify.irc.channels", Message: "at least one channel is required"})
		}
	}
	if cfg.Notify.Kafka != nil {
		if len(cfg.Notify.Kafka.Brokers) == 0 {
			issues = append(issues, ValidationIssue{Path: "notify.kafka.brokers", Message: "at least one broker is required"})
		}
		if cfg.Notify.Kafka.Topic == "" {
			issues = append(issues, ValidationIssue{Path: "notify.kafka.topic", Message: "topic is required"})
		}
	}

	return issues
}
