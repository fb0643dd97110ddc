package observability

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riskibarqy/lines-ledger/internal/usecase"
)

const namespace = "linesync"

// Metrics records league cycle outcomes. It implements usecase.RunObserver.
type Metrics struct {
	registry     *prometheus.Registry
	runs         *prometheus.CounterVec
	writes       *prometheus.CounterVec
	purged       *prometheus.CounterVec
	events       *prometheus.GaugeVec
	lastSuccess  *prometheus.GaugeVec
	lastDuration *prometheus.GaugeVec
	duration     *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "league_runs_total",
			Help:      "League sync cycles by outcome.",
		}, []string{"league", "result"}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entry_writes_total",
			Help:      "Ledger entries written or skipped, by action.",
		}, []string{"league", "action"}),
		purged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purged_rows_total",
			Help:      "Rows removed by purge.",
		}, []string{"league", "kind"}),
		events: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scraped_events",
			Help:      "Events seen by the last cycle.",
		}, []string{"league"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful cycle.",
		}, []string{"league"}),
		lastDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Duration of the last cycle.",
		}, []string{"league"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "league_run_duration_seconds",
			Help:      "League cycle duration.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"league"}),
	}
	m.registry.MustRegister(m.runs, m.writes, m.purged, m.events, m.lastSuccess, m.lastDuration, m.duration)
	return m
}

func (m *Metrics) ObserveLeague(report usecase.LeagueReport) {
	league := strings.TrimSpace(report.League)
	if league == "" {
		league = "unknown"
	}

	result := "success"
	if !report.Successful {
		result = "failure"
	}
	m.runs.WithLabelValues(league, result).Inc()
	m.events.WithLabelValues(league).Set(float64(report.Events))
	m.lastDuration.WithLabelValues(league).Set(report.Duration.Seconds())
	m.duration.WithLabelValues(league).Observe(report.Duration.Seconds())

	m.writes.WithLabelValues(league, "inserted").Add(float64(report.Merge.Inserted))
	m.writes.WithLabelValues(league, "updated").Add(float64(report.Merge.Updated))
	m.writes.WithLabelValues(league, "lock_only").Add(float64(report.Merge.LockOnly))
	m.writes.WithLabelValues(league, "skipped_locked").Add(float64(report.Merge.SkippedLocked))
	m.writes.WithLabelValues(league, "skipped_gated").Add(float64(report.Merge.SkippedGated))
	m.purged.WithLabelValues(league, "stale").Add(float64(report.Purge.Deleted))
	m.purged.WithLabelValues(league, "legacy").Add(float64(report.Purge.Legacy))

	if report.Successful {
		m.lastSuccess.WithLabelValues(league).Set(float64(time.Now().Unix()))
	}
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
