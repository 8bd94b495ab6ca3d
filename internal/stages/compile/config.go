// internal/stages/compile/config.go
package compile

import (
	"time"

	commonconfig "rfp-workers/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(cfg *commonconfig.Config) *Config {
	return &Config{
		Timeout: commonconfig.GetDuration(cfg.GenAI.Timeout),
	}
}
