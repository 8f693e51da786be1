package config

import (
	"errors"
	"fmt"
)

// Validate checks that all values are usable.
func (c *BrokerConfig) Validate() error {
	if c.Server.ListenAddr == "" {
		return errors.New("server.listen_addr is required")
	}
	if c.Server.WriteTimeout <= 0 {
		return errors.New("server.write_timeout must be positive")
	}
	if c.Server.ReadLimit < 1024 {
		return fmt.Errorf("server.read_limit must be >= 1024, got %d", c.Server.ReadLimit)
	}

	if c.Sessions.HeartbeatInterval <= 0 {
		return errors.New("sessions.heartbeat_interval must be positive")
	}
	if c.Sessions.SweepInterval <= 0 {
		return errors.New("sessions.sweep_interval must be positive")
	}
	if c.Sessions.TTL <= 0 {
		return errors.New("sessions.ttl must be positive")
	}
	if c.Sessions.TTL < c.Sessions.SweepInterval {
		return fmt.Errorf("sessions.ttl (%s) cannot be shorter than sessions.sweep_interval (%s)",
			c.Sessions.TTL, c.Sessions.SweepInterval)
	}

	return nil
}
