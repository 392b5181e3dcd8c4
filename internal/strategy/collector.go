package strategy

import "github.com/prometheus/client_golang/prometheus"

// collector exposes a MetricsStore as Prometheus gauges.
type collector struct {
	store *MetricsStore

	ratio         *prometheus.Desc
	tokensSaved   *prometheus.Desc
	processingMs  *prometheus.Desc
	successRate   *prometheus.Desc
	reversibility *prometheus.Desc
	uses          *prometheus.Desc
}

// Collector returns a prometheus.Collector that reports the store's
// per-strategy running statistics at scrape time.
func (s *MetricsStore) Collector() prometheus.Collector {
	labels := []string{"strategy"}
	return &collector{
		store:         s,
		ratio:         prometheus.NewDesc("coon_strategy_avg_compression_ratio", "Running average compression ratio per strategy.", labels, nil),
		tokensSaved:   prometheus.NewDesc("coon_strategy_avg_tokens_saved", "Running average of estimated tokens saved per strategy.", labels, nil),
		processingMs:  prometheus.NewDesc("coon_strategy_avg_processing_milliseconds", "Running average transform time per strategy.", labels, nil),
		successRate:   prometheus.NewDesc("coon_strategy_success_rate", "Fraction of successful compressions per strategy.", labels, nil),
		reversibility: prometheus.NewDesc("coon_strategy_reversibility_rate", "Fraction of validated round trips that were reversible.", labels, nil),
		uses:          prometheus.NewDesc("coon_strategy_uses_total", "Number of recorded compressions per strategy.", labels, nil),
	}
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.ratio
	ch <- c.tokensSaved
	ch <- c.processingMs
	ch <- c.successRate
	ch <- c.reversibility
	ch <- c.uses
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	for _, m := range c.store.All() {
		name := m.Strategy.String()
		ch <- prometheus.MustNewConstMetric(c.ratio, prometheus.GaugeValue, m.AvgRatio, name)
		ch <- prometheus.MustNewConstMetric(c.tokensSaved, prometheus.GaugeValue, float64(m.AvgTokensSaved), name)
		ch <- prometheus.MustNewConstMetric(c.processingMs, prometheus.GaugeValue, m.AvgProcessingMs, name)
		ch <- prometheus.MustNewConstMetric(c.successRate, prometheus.GaugeValue, m.SuccessRate, name)
		ch <- prometheus.MustNewConstMetric(c.reversibility, prometheus.GaugeValue, m.ReversibilityRate, name)
		ch <- prometheus.MustNewConstMetric(c.uses, prometheus.CounterValue, float64(m.UseCount), name)
	}
}
