// internal/stages/pricing/config.go
package pricing

import (
	"time"

	commonconfig "rfp-workers/internal/common/config"
)

type Config struct {
	OverheadPct     float64
	ContingencyPct  float64
	DefaultLengthKM float64
	Timeout         time.Duration
}

func LoadConfig(cfg *commonconfig.Config) *Config {
	return &Config{
		OverheadPct:     cfg.Pricing.OverheadPct,
		ContingencyPct:  cfg.Pricing.ContingencyPct,
		DefaultLengthKM: cfg.Pricing.DefaultLengthKM,
		Timeout:         30 * time.Second,
	}
}
