package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultListenAddr        = ":3000"
	DefaultWriteTimeout      = 5 * time.Second
	DefaultReadLimit         = 16 << 20 // screen frames can be large
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultSweepInterval     = 60 * time.Second
	DefaultSessionTTL        = 24 * time.Hour
)

func (c *BrokerConfig) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	if c.Server.ReadLimit == 0 {
		c.Server.ReadLimit = DefaultReadLimit
	}

	if c.Sessions.HeartbeatInterval == 0 {
		c.Sessions.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.Sessions.SweepInterval == 0 {
		c.Sessions.SweepInterval = DefaultSweepInterval
	}
	if c.Sessions.TTL == 0 {
		c.Sessions.TTL = DefaultSessionTTL
	}
}

// Default returns a configuration with every field at its default value,
// used when the broker starts without a config file.
func Default() *BrokerConfig {
	cfg := &BrokerConfig{}
	cfg.applyDefaults()
	return cfg
}
