package monitoring

import (
	"github.com/ocean-market/marketd/src/utils/monitoring/report"

	"github.com/prometheus/client_golang/prometheus"
)

type Monitor interface {
	GetReport() *report.Report
	GetPrometheusCollector() prometheus.Collector
	IsOK() bool
}
