package report

import "go.uber.org/atomic"

type CatalogErrors struct {
	ReloadFailures       atomic.Uint64 `json:"reload_failures"`
	ResolutionFailures   atomic.Uint64 `json:"resolution_failures"`
	SubscriptionFailures atomic.Uint64 `json:"subscription_failures"`
}

type CatalogState struct {
	SnapshotGeneration  atomic.Uint64 `json:"snapshot_generation"`
	AssetsInSnapshot    atomic.Int64  `json:"assets_in_snapshot"`
	AssetsExcluded      atomic.Int64  `json:"assets_excluded"`
	LastReloadTimestamp atomic.Int64  `json:"last_reload_timestamp"`
	ReloadsCoalesced    atomic.Uint64 `json:"reloads_coalesced"`
	EventsProcessed     atomic.Uint64 `json:"events_processed"`
	// Unix timestamp since when the event stream is down, 0 when healthy
	StaleSince atomic.Int64 `json:"stale_since"`
}

type CatalogReport struct {
	State  CatalogState  `json:"state"`
	Errors CatalogErrors `json:"errors"`
}
