// Package config provides configuration types and loading for waclaw.
package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config is the root configuration struct.
// Top-level groups: Bot, Session, Recovery, Notify, Mirror.
type Config struct {
	Bot      BotConfig      `json:"bot"`
	Session  SessionConfig  `json:"session"`
	Recovery RecoveryConfig `json:"recovery"`
	Notify   NotifyConfig   `json:"notify"`
	Mirror   MirrorConfig   `json:"mirror"`
}

// BotConfig groups command handling settings.
type BotConfig struct {
	// Owner is the owner's phone number, with or without a service suffix.
	// It doubles as the pairing target when the device is not yet linked.
	Owner  string `json:"owner" envconfig:"OWNER"`
	Prefix string `json:"prefix" envconfig:"PREFIX"`
	// UnknownReply answers unrecognized commands instead of ignoring them.
	UnknownReply bool `json:"unknownReply" envconfig:"UNKNOWN_REPLY"`
}

// SessionConfig groups credential storage settings.
type SessionConfig struct {
	Dir      string `json:"dir" envconfig:"DIR"`
	LogLevel string `json:"logLevel" envconfig:"LOG_LEVEL"`
}

// RecoveryConfig groups reconnection behavior.
type RecoveryConfig struct {
	ReconnectDelay time.Duration `json:"reconnectDelay" envconfig:"RECONNECT_DELAY"`
	// Overrides maps a close reason code (as a string key) to an action
	// name: "retry", "reset" or "logout".
	Overrides map[string]string `json:"overrides,omitempty" envconfig:"OVERRIDES"`
}

// PolicyOverrides converts the string-keyed override map to numeric reason
// codes.
func (r RecoveryConfig) PolicyOverrides() (map[int]string, error) {
	if len(r.Overrides) == 0 {
		return nil, nil
	}
	out := make(map[int]string, len(r.Overrides))
	for key, action := range r.Overrides {
		code, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("recovery override key %q is not a reason code", key)
		}
		out[code] = action
	}
	return out, nil
}

// NotifyConfig groups operator notification settings.
type NotifyConfig struct {
	SlackWebhookURL string `json:"slackWebhookUrl,omitempty" envconfig:"SLACK_WEBHOOK_URL"`
}

// MirrorConfig groups the Kafka journal mirror settings.
type MirrorConfig struct {
	Enabled bool     `json:"enabled" envconfig:"ENABLED"`
	Brokers []string `json:"brokers,omitempty" envconfig:"BROKERS"`
	Topic   string   `json:"topic,omitempty" envconfig:"TOPIC"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Bot: BotConfig{
			Prefix: "!",
		},
		Session: SessionConfig{
			Dir:      "~/" + ConfigDir,
			LogLevel: "INFO",
		},
		Recovery: RecoveryConfig{
			ReconnectDelay: 5 * time.Second,
		},
		Mirror: MirrorConfig{
			Topic: "waclaw.journal",
		},
	}
}
