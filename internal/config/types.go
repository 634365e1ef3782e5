package config

import "github.com/paddockpulse/stablehand/internal/domain"

// Config is the root configuration for Stablehand.
type Config struct {
	TenantID string               `yaml:"tenantId,omitempty"`
	Backbone BackboneConfig       `yaml:"backbone,omitempty"`
	Analysis AnalysisConfig       `yaml:"analysis,omitempty"`
	Session  SessionConfig        `yaml:"session,omitempty"`
	Store    StoreConfig          `yaml:"store,omitempty"`
	Staff    []domain.StaffMember `yaml:"staff,omitempty"`
	Intake   *IntakeConfig        `yaml:"intake,omitempty"`
	Notify   NotifyConfig         `yaml:"notify,omitempty"`
	Logging  LoggingConfig        `yaml:"logging,omitempty"`
}

// BackboneConfig controls the real-time event backbone connection.
type BackboneConfig struct {
	URL              string `yaml:"url"`
	Token            string `yaml:"token,omitempty"`
	MaxAttempts      int    `yaml:"maxAttempts,omitempty"`
	BaseDelayMS      int    `yaml:"baseDelayMs,omitempty"`
	HeartbeatSeconds int    `yaml:"heartbeatSeconds,omitempty"`
}

// AnalysisConfig controls the external content-analysis provider. An empty
// endpoint means lexicon-only classification.
type AnalysisConfig struct {
	Endpoint       string `yaml:"endpoint,omitempty"`
	APIKey         string `yaml:"apiKey,omitempty"`
	Model          string `yaml:"model,omitempty"`
	TimeoutSeconds int    `yaml:"timeoutSeconds,omitempty"`
}

// SessionConfig defines chat-session behavior.
type SessionConfig struct {
	SlotWaitMinutes int `yaml:"slotWaitMinutes,omitempty"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend string `yaml:"backend,omitempty"` // "sqlite" | "memory"
	Path    string `yaml:"path,omitempty"`    // sqlite file; defaults under the data dir
}

// IntakeConfig defines the email-to-ticket poller. Nil disables it.
type IntakeConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port,omitempty"`
	Email           string `yaml:"email"`
	Password        string `yaml:"password,omitempty"`
	Mailbox         string `yaml:"mailbox,omitempty"`
	IntervalSeconds int    `yaml:"intervalSeconds,omitempty"`
}

// NotifyConfig defines the outbound notification sinks.
type NotifyConfig struct {
	IRC   *IRCConfig   `yaml:"irc,omitempty"`
	Kafka *KafkaConfig `yaml:"kafka,omitempty"`
}

// IRCConfig defines the ops IRC sink.
type IRCConfig struct {
	Server   string   `yaml:"server"`
	Port     int      `yaml:"port,omitempty"`
	Nick     string   `yaml:"nick"`
	Password string   `yaml:"password,omitempty"`
	Channels []string `yaml:"channels"`
	UseTLS   bool     `yaml:"useTLS,omitempty"`
	SASL     bool     `yaml:"sasl,omitempty"`
}

// KafkaConfig defines the downstream event topic.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File         string `yaml:"file,omitempty"`
	ConsoleLevel string `yaml:"consoleLevel,omitempty"`
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "compact" | "json"
}
