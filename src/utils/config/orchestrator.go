package config

import (
	"time"

	"github.com/spf13/viper"
)

type Orchestrator struct {
	// Time budget for the catalog refresh triggered after a confirmed write
	RefreshTimeout time.Duration
}

func setOrchestratorDefaults() {
	viper.SetDefault("Orchestrator.RefreshTimeout", "1m")
}
