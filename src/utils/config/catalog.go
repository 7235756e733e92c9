package config

import (
	"time"

	"github.com/spf13/viper"
)

type Catalog struct {
	// Maximum length of the decoded event channel
	EventChannelSize int

	// Max time between failed resubscription attempts
	ResubscribeMaxInterval time.Duration

	// How long resolved metadata documents are cached.
	// Content addressing makes cached entries immutable, the TTL only bounds memory.
	MetadataCacheTtl time.Duration

	// How often expired metadata cache entries are removed
	MetadataCacheCleanupInterval time.Duration

	// Number of workers fetching and resolving assets during a reload pass
	ReloadWorkers int

	// How long the catalog may stay stale before the watchdog restarts the listener
	MaxStaleDuration time.Duration

	// How often the watchdog checks listener health
	WatchdogInterval time.Duration
}

func setCatalogDefaults() {
	viper.SetDefault("Catalog.EventChannelSize", "64")
	viper.SetDefault("Catalog.ResubscribeMaxInterval", "30s")
	viper.SetDefault("Catalog.MetadataCacheTtl", "15m")
	viper.SetDefault("Catalog.MetadataCacheCleanupInterval", "5m")
	viper.SetDefault("Catalog.ReloadWorkers", "8")
	viper.SetDefault("Catalog.MaxStaleDuration", "5m")
	viper.SetDefault("Catalog.WatchdogInterval", "30s")
}
