// Package metrics exposes an ipipe.Registry as a Prometheus collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bwHC-gko/ipipe"
)

var (
	pipesDesc = prometheus.NewDesc(
		"ipipe_registry_pipes",
		"Number of live pipes in the registry",
		nil, nil,
	)
	bytesDesc = prometheus.NewDesc(
		"ipipe_registry_bytes_written_total",
		"Bytes written through the registry's print entry points",
		[]string{"pipe"}, nil,
	)
)

// Collector implements prometheus.Collector over a registry by snapshotting
// its stats on every scrape. Register it with the scraping registry:
//
//	promReg.MustRegister(metrics.NewCollector(pipeReg))
type Collector struct {
	registry *ipipe.Registry
}

// NewCollector returns a collector reading from registry.
func NewCollector(registry *ipipe.Registry) *Collector {
	return &Collector{registry: registry}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- pipesDesc
	ch <- bytesDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.registry.Stats()
	ch <- prometheus.MustNewConstMetric(pipesDesc, prometheus.GaugeValue, float64(len(stats)))
	for _, s := range stats {
		ch <- prometheus.MustNewConstMetric(bytesDesc, prometheus.CounterValue,
			float64(s.BytesWritten), s.Name)
	}
}
