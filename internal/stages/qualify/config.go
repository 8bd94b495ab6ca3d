// internal/stages/qualify/config.go
package qualify

import (
	"time"

	commonconfig "rfp-workers/internal/common/config"
)

type Config struct {
	MinEstimatedValue  float64
	PreferredLocations []string
	MinDaysRemaining   int
	LLMAssisted        bool
	TopN               int
	Timeout            time.Duration
}

func LoadConfig(cfg *commonconfig.Config) *Config {
	return &Config{
		MinEstimatedValue:  cfg.Qualification.MinEstimatedValue,
		PreferredLocations: cfg.Qualification.PreferredLocations,
		MinDaysRemaining:   cfg.Qualification.MinDaysRemaining,
		LLMAssisted:        cfg.Qualification.LLMAssisted,
		TopN:               cfg.Qualification.TopN,
		Timeout:            30 * time.Second,
	}
}
