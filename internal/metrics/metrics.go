package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wordvec/internal/domain"
)

// Metrics owns a private registry with the trainer and query collectors.
// It implements the trainer's Observer interface.
type Metrics struct {
	registry    *prometheus.Registry
	processed   prometheus.Counter
	checkpoints prometheus.Counter
	nll         prometheus.Gauge
	epoch       prometheus.Gauge
	queries     *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		processed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wordvec_trainer_processed_positions_total",
			Help: "center positions processed by the trainer",
		}),
		checkpoints: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wordvec_trainer_checkpoints_total",
			Help: "negative log-likelihood checkpoints recorded",
		}),
		nll: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wordvec_trainer_nll",
			Help: "negative log-likelihood of the last checkpoint",
		}),
		epoch: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wordvec_trainer_epoch",
			Help: "epoch of the last checkpoint",
		}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wordvec_query_requests_total",
			Help: "similarity queries by operation and outcome",
		}, []string{"op", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wordvec_query_duration_seconds",
			Help:    "similarity query latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}
	m.registry.MustRegister(
		m.processed, m.checkpoints, m.nll, m.epoch, m.queries, m.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Processed(n int) { m.processed.Add(float64(n)) }

func (m *Metrics) Checkpoint(cp domain.Checkpoint) {
	m.checkpoints.Inc()
	m.nll.Set(cp.NLL)
	m.epoch.Set(float64(cp.Epoch))
}

// ObserveQuery records one query of kind op that started at start.
func (m *Metrics) ObserveQuery(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.queries.WithLabelValues(op, status).Inc()
	m.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
