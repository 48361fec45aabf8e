package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/specialistvlad/svcgrid/internal/bulletin"
	"github.com/specialistvlad/svcgrid/internal/graph"
	"github.com/specialistvlad/svcgrid/internal/node"
)

const metricsNamespace = "svcgrid"

// metrics exposes service states and bulletin counts to Prometheus. It is
// also a bulletin.Sink so every reported bulletin is counted.
type metrics struct {
	registry  *prometheus.Registry
	bulletins *prometheus.CounterVec
}

// newMetrics registers the collectors. dropped reports bulletins the
// forwarder discarded and may return 0 when no forwarder runs.
func newMetrics(g *graph.Graph, dropped func() float64) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		bulletins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "bulletins_total",
			Help:      "Bulletins reported, by category and severity.",
		}, []string{"category", "severity"}),
	}
	m.registry.MustRegister(
		m.bulletins,
		&serviceCollector{graph: g},
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "bulletins_dropped_total",
			Help:      "Bulletins the forwarder discarded because its buffer was full or it was closed.",
		}, dropped),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Report implements bulletin.Sink.
func (m *metrics) Report(category string, severity bulletin.Severity, _ string) {
	m.bulletins.WithLabelValues(category, string(severity)).Inc()
}

// serviceCollector reads node states at scrape time.
type serviceCollector struct {
	graph *graph.Graph
}

var (
	servicesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "", "services"),
		"Number of services in each state.",
		[]string{"state"}, nil,
	)
	serviceStateDesc = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "", "service_enabled"),
		"1 when the service is Enabled, 0 otherwise.",
		[]string{"id", "type"}, nil,
	)
)

func (c *serviceCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- servicesDesc
	ch <- serviceStateDesc
}

func (c *serviceCollector) Collect(ch chan<- prometheus.Metric) {
	counts := map[node.State]int{node.Disabled: 0, node.Enabling: 0, node.Enabled: 0}
	for _, n := range c.graph.Nodes() {
		state := n.State()
		counts[state]++

		enabled := 0.0
		if state == node.Enabled {
			enabled = 1
		}
		ch <- prometheus.MustNewConstMetric(serviceStateDesc, prometheus.GaugeValue, enabled, n.ID(), n.Type())
	}
	for state, count := range counts {
		ch <- prometheus.MustNewConstMetric(servicesDesc, prometheus.GaugeValue, float64(count), state.String())
	}
}
