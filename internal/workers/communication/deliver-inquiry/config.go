package deliverinquiry

import (
	"time"

	"storefront-services/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	c := &Config{Timeout: 30 * time.Second}
	if cfg == nil {
		return c
	}
	if wc := config.GetWorkerConfig(cfg, TaskType); wc.Timeout > 0 {
		c.Timeout = time.Duration(wc.Timeout) * time.Millisecond
	}
	return c
}
