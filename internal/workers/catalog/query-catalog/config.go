package querycatalog

import (
	"time"

	"storefront-services/internal/catalog/params"
	"storefront-services/internal/common/config"
)

type Config struct {
	PageSize int
	Timeout  time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	c := &Config{
		PageSize: params.DefaultPageSize,
		Timeout:  30 * time.Second,
	}
	if cfg == nil {
		return c
	}
	if cfg.Catalog.PageSize > 0 {
		c.PageSize = cfg.Catalog.PageSize
	}
	if wc := config.GetWorkerConfig(cfg, TaskType); wc.Timeout > 0 {
		c.Timeout = time.Duration(wc.Timeout) * time.Millisecond
	}
	return c
}
