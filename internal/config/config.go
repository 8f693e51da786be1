// Package config handles YAML configuration loading with environment
// variable substitution. Configuration files support ${VAR} syntax.
package config

import "time"

// BrokerConfig is the root configuration for a relay broker instance.
type BrokerConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Sessions SessionsConfig `yaml:"sessions"`
}

// ServerConfig holds the network listener settings.
type ServerConfig struct {
	ListenAddr     string        `yaml:"listen_addr"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	ReadLimit      int64         `yaml:"read_limit"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// SessionsConfig holds pairing session lifecycle settings.
type SessionsConfig struct {
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	SweepInterval     time.Duration `yaml:"sweep_interval"`
	TTL               time.Duration `yaml:"ttl"`
}
