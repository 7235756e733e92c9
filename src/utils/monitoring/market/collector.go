package monitor_market

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Collector struct {
	monitor *Monitor

	// Run
	UpForSeconds        *prometheus.Desc
	NumWatchdogRestarts *prometheus.Desc

	// Errors
	ReloadFailures        *prometheus.Desc
	ResolutionFailures    *prometheus.Desc
	SubscriptionFailures  *prometheus.Desc
	AuthorizationFailures *prometheus.Desc
	PurchaseFailures      *prometheus.Desc
	PublishFailures       *prometheus.Desc
	IndeterminateOutcomes *prometheus.Desc

	// State
	SnapshotGeneration  *prometheus.Desc
	AssetsInSnapshot    *prometheus.Desc
	AssetsExcluded      *prometheus.Desc
	LastReloadTimestamp *prometheus.Desc
	ReloadsCoalesced    *prometheus.Desc
	EventsProcessed     *prometheus.Desc
	StaleSince          *prometheus.Desc
	AttemptsInFlight    *prometheus.Desc
	PurchasesConfirmed  *prometheus.Desc
	PublishesConfirmed  *prometheus.Desc
	TogglesConfirmed    *prometheus.Desc
	AttemptsRejected    *prometheus.Desc
	RefreshesTriggered  *prometheus.Desc
}

func NewCollector() *Collector {
	return &Collector{
		UpForSeconds:        prometheus.NewDesc("up_for_seconds", "", nil, nil),
		NumWatchdogRestarts: prometheus.NewDesc("num_watchdog_restarts", "", nil, nil),

		// Errors
		ReloadFailures:        prometheus.NewDesc("catalog_reload_failures", "", nil, nil),
		ResolutionFailures:    prometheus.NewDesc("catalog_resolution_failures", "", nil, nil),
		SubscriptionFailures:  prometheus.NewDesc("catalog_subscription_failures", "", nil, nil),
		AuthorizationFailures: prometheus.NewDesc("orchestrator_authorization_failures", "", nil, nil),
		PurchaseFailures:      prometheus.NewDesc("orchestrator_purchase_failures", "", nil, nil),
		PublishFailures:       prometheus.NewDesc("orchestrator_publish_failures", "", nil, nil),
		IndeterminateOutcomes: prometheus.NewDesc("orchestrator_indeterminate_outcomes", "", nil, nil),

		// State
		SnapshotGeneration:  prometheus.NewDesc("catalog_snapshot_generation", "", nil, nil),
		AssetsInSnapshot:    prometheus.NewDesc("catalog_assets_in_snapshot", "", nil, nil),
		AssetsExcluded:      prometheus.NewDesc("catalog_assets_excluded", "", nil, nil),
		LastReloadTimestamp: prometheus.NewDesc("catalog_last_reload_timestamp", "", nil, nil),
		ReloadsCoalesced:    prometheus.NewDesc("catalog_reloads_coalesced", "", nil, nil),
		EventsProcessed:     prometheus.NewDesc("catalog_events_processed", "", nil, nil),
		StaleSince:          prometheus.NewDesc("catalog_stale_since", "", nil, nil),
		AttemptsInFlight:    prometheus.NewDesc("orchestrator_attempts_in_flight", "", nil, nil),
		PurchasesConfirmed:  prometheus.NewDesc("orchestrator_purchases_confirmed", "", nil, nil),
		PublishesConfirmed:  prometheus.NewDesc("orchestrator_publishes_confirmed", "", nil, nil),
		TogglesConfirmed:    prometheus.NewDesc("orchestrator_toggles_confirmed", "", nil, nil),
		AttemptsRejected:    prometheus.NewDesc("orchestrator_attempts_rejected", "", nil, nil),
		RefreshesTriggered:  prometheus.NewDesc("orchestrator_refreshes_triggered", "", nil, nil),
	}
}

func (self *Collector) WithMonitor(m *Monitor) *Collector {
	self.monitor = m
	return self
}

func (self *Collector) Describe(ch chan<- *prometheus.Desc) {
	// Run
	ch <- self.UpForSeconds
	ch <- self.NumWatchdogRestarts

	// Errors
	ch <- self.ReloadFailures
	ch <- self.ResolutionFailures
	ch <- self.SubscriptionFailures
	ch <- self.AuthorizationFailures
	ch <- self.PurchaseFailures
	ch <- self.PublishFailures
	ch <- self.IndeterminateOutcomes

	// State
	ch <- self.SnapshotGeneration
	ch <- self.AssetsInSnapshot
	ch <- self.AssetsExcluded
	ch <- self.LastReloadTimestamp
	ch <- self.ReloadsCoalesced
	ch <- self.EventsProcessed
	ch <- self.StaleSince
	ch <- self.AttemptsInFlight
	ch <- self.PurchasesConfirmed
	ch <- self.PublishesConfirmed
	ch <- self.TogglesConfirmed
	ch <- self.AttemptsRejected
	ch <- self.RefreshesTriggered
}

// Collect implements required collect function for all prometheus collectors
func (self *Collector) Collect(ch chan<- prometheus.Metric) {
	// Run
	ch <- prometheus.MustNewConstMetric(self.UpForSeconds, prometheus.GaugeValue, float64(self.monitor.Report.Run.State.UpForSeconds.Load()))
	ch <- prometheus.MustNewConstMetric(self.NumWatchdogRestarts, prometheus.CounterValue, float64(self.monitor.Report.Run.State.NumWatchdogRestarts.Load()))

	// Errors
	ch <- prometheus.MustNewConstMetric(self.ReloadFailures, prometheus.CounterValue, float64(self.monitor.Report.Catalog.Errors.ReloadFailures.Load()))
	ch <- prometheus.MustNewConstMetric(self.ResolutionFailures, prometheus.CounterValue, float64(self.monitor.Report.Catalog.Errors.ResolutionFailures.Load()))
	ch <- prometheus.MustNewConstMetric(self.SubscriptionFailures, prometheus.CounterValue, float64(self.monitor.Report.Catalog.Errors.SubscriptionFailures.Load()))
	ch <- prometheus.MustNewConstMetric(self.AuthorizationFailures, prometheus.CounterValue, float64(self.monitor.Report.Orchestrator.Errors.AuthorizationFailures.Load()))
	ch <- prometheus.MustNewConstMetric(self.PurchaseFailures, prometheus.CounterValue, float64(self.monitor.Report.Orchestrator.Errors.PurchaseFailures.Load()))
	ch <- prometheus.MustNewConstMetric(self.PublishFailures, prometheus.CounterValue, float64(self.monitor.Report.Orchestrator.Errors.PublishFailures.Load()))
	ch <- prometheus.MustNewConstMetric(self.IndeterminateOutcomes, prometheus.CounterValue, float64(self.monitor.Report.Orchestrator.Errors.IndeterminateOutcomes.Load()))

	// State
	ch <- prometheus.MustNewConstMetric(self.SnapshotGeneration, prometheus.GaugeValue, float64(self.monitor.Report.Catalog.State.SnapshotGeneration.Load()))
	ch <- prometheus.MustNewConstMetric(self.AssetsInSnapshot, prometheus.GaugeValue, float64(self.monitor.Report.Catalog.State.AssetsInSnapshot.Load()))
	ch <- prometheus.MustNewConstMetric(self.AssetsExcluded, prometheus.GaugeValue, float64(self.monitor.Report.Catalog.State.AssetsExcluded.Load()))
	ch <- prometheus.MustNewConstMetric(self.LastReloadTimestamp, prometheus.GaugeValue, float64(self.monitor.Report.Catalog.State.LastReloadTimestamp.Load()))
	ch <- prometheus.MustNewConstMetric(self.ReloadsCoalesced, prometheus.CounterValue, float64(self.monitor.Report.Catalog.State.ReloadsCoalesced.Load()))
	ch <- prometheus.MustNewConstMetric(self.EventsProcessed, prometheus.CounterValue, float64(self.monitor.Report.Catalog.State.EventsProcessed.Load()))
	ch <- prometheus.MustNewConstMetric(self.StaleSince, prometheus.GaugeValue, float64(self.monitor.Report.Catalog.State.StaleSince.Load()))
	ch <- prometheus.MustNewConstMetric(self.AttemptsInFlight, prometheus.GaugeValue, float64(self.monitor.Report.Orchestrator.State.AttemptsInFlight.Load()))
	ch <- prometheus.MustNewConstMetric(self.PurchasesConfirmed, prometheus.CounterValue, float64(self.monitor.Report.Orchestrator.State.PurchasesConfirmed.Load()))
	ch <- prometheus.MustNewConstMetric(self.PublishesConfirmed, prometheus.CounterValue, float64(self.monitor.Report.Orchestrator.State.PublishesConfirmed.Load()))
	ch <- prometheus.MustNewConstMetric(self.TogglesConfirmed, prometheus.CounterValue, float64(self.monitor.Report.Orchestrator.State.TogglesConfirmed.Load()))
	ch <- prometheus.MustNewConstMetric(self.AttemptsRejected, prometheus.CounterValue, float64(self.monitor.Report.Orchestrator.State.AttemptsRejected.Load()))
	ch <- prometheus.MustNewConstMetric(self.RefreshesTriggered, prometheus.CounterValue, float64(self.monitor.Report.Orchestrator.State.RefreshesTriggered.Load()))
}
