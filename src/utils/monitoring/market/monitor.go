package monitor_market

import (
	"time"

	"github.com/ocean-market/marketd/src/utils/monitoring/report"
	"github.com/ocean-market/marketd/src/utils/task"

	"github.com/prometheus/client_golang/prometheus"
)

// Stores and computes monitor counters
type Monitor struct {
	*task.Task

	Report report.Report

	collector *Collector

	maxStaleDuration time.Duration
}

func NewMonitor() (self *Monitor) {
	self = new(Monitor)

	self.Report = report.Report{
		Run:          &report.RunReport{},
		Catalog:      &report.CatalogReport{},
		Orchestrator: &report.OrchestratorReport{},
	}

	// Initialization
	self.Report.Run.State.StartTimestamp.Store(time.Now().Unix())

	self.collector = NewCollector().WithMonitor(self)

	self.Task = task.NewTask(nil, "monitor").
		WithPeriodicSubtaskFunc(time.Minute, self.monitorUptime)
	return
}

func (self *Monitor) WithMaxStaleDuration(maxStaleDuration time.Duration) *Monitor {
	self.maxStaleDuration = maxStaleDuration
	return self
}

func (self *Monitor) GetReport() *report.Report {
	return &self.Report
}

func (self *Monitor) GetPrometheusCollector() (collector prometheus.Collector) {
	return self.collector
}

// The catalog is OK as long as the event stream is up or hasn't been down for too long
func (self *Monitor) IsOK() bool {
	staleSince := self.Report.Catalog.State.StaleSince.Load()
	if staleSince == 0 {
		return true
	}
	if self.maxStaleDuration <= 0 {
		return true
	}
	return time.Since(time.Unix(staleSince, 0)) < self.maxStaleDuration
}

func (self *Monitor) monitorUptime() (err error) {
	started := self.Report.Run.State.StartTimestamp.Load()
	self.Report.Run.State.UpForSeconds.Store(time.Now().Unix() - started)
	return
}
