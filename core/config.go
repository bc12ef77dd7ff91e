package core

import (
	"fmt"
	"strings"
	"time"
)

type QueueConfig struct {
	Tenant           string        `koanf:"tenant" mapstructure:"tenant"`
	Name             string        `koanf:"name" mapstructure:"name"`
	LockTTL          time.Duration `koanf:"lock_ttl" mapstructure:"lock_ttl"`
	FallbackInterval time.Duration `koanf:"fallback_interval" mapstructure:"fallback_interval"`
}

type Config struct {
	ServiceName string      `koanf:"service_name" mapstructure:"service_name"`
	Queue       QueueConfig `koanf:"queue" mapstructure:"queue"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "payments",
		Queue: QueueConfig{
			Tenant:           "default",
			Name:             "payment_webhooks",
			LockTTL:          30 * time.Second,
			FallbackInterval: time.Minute,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if strings.TrimSpace(c.Queue.Name) == "" {
		return fmt.Errorf("core: queue.name is required")
	}
	if c.Queue.LockTTL < 0 {
		return fmt.Errorf("core: queue.lock_ttl must not be negative")
	}
	if c.Queue.FallbackInterval < 0 {
		return fmt.Errorf("core: queue.fallback_interval must not be negative")
	}
	return nil
}
