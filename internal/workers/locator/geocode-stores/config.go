package geocodestores

import (
	"time"

	"storefront-services/internal/common/config"
	"storefront-services/internal/locator/stores"
)

type Config struct {
	RequestDelay time.Duration
	Timeout      time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	c := &Config{
		RequestDelay: stores.DefaultRequestDelay,
		Timeout:      5 * time.Minute,
	}
	if cfg == nil {
		return c
	}
	if cfg.Geocoding.RequestDelay > 0 {
		c.RequestDelay = time.Duration(cfg.Geocoding.RequestDelay) * time.Millisecond
	}
	if wc := config.GetWorkerConfig(cfg, TaskType); wc.Timeout > 0 {
		c.Timeout = time.Duration(wc.Timeout) * time.Millisecond
	}
	return c
}
