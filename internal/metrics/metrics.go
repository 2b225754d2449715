// internal/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the reconciliation engine and syncer report to.
type Recorder interface {
	RecordReconcile(outcome string)
	RecordSubjectFetch(result string)
	RecordSubjectWrite(op string)
	RecordNotificationWrite(op string)
	RecordSyncCycle(threads int, failed int)
}

// Collector records reconciliation metrics in prometheus.
type Collector struct {
	reconciles         *prometheus.CounterVec
	subjectFetches     *prometheus.CounterVec
	subjectWrites      *prometheus.CounterVec
	notificationWrites *prometheus.CounterVec
	syncThreads        prometheus.Counter
	syncFailures       prometheus.Counter
	syncCycles         prometheus.Counter
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		reconciles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_sync_reconcile_total",
			Help: "Subject reconciliations by outcome.",
		}, []string{"outcome"}),
		subjectFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_sync_subject_fetch_total",
			Help: "Remote subject fetches by result.",
		}, []string{"result"}),
		subjectWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_sync_subject_write_total",
			Help: "Subject rows written by operation.",
		}, []string{"op"}),
		notificationWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_sync_notification_write_total",
			Help: "Notification rows written by operation.",
		}, []string{"op"}),
		syncThreads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notification_sync_threads_total",
			Help: "Threads processed by sync cycles.",
		}),
		syncFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notification_sync_thread_failures_total",
			Help: "Threads whose sync failed.",
		}),
		syncCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notification_sync_cycles_total",
			Help: "Completed sync cycles.",
		}),
	}

	reg.MustRegister(
		c.reconciles,
		c.subjectFetches,
		c.subjectWrites,
		c.notificationWrites,
		c.syncThreads,
		c.syncFailures,
		c.syncCycles,
	)
	return c
}

func (c *Collector) RecordReconcile(outcome string) {
	c.reconciles.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordSubjectFetch(result string) {
	c.subjectFetches.WithLabelValues(result).Inc()
}

func (c *Collector) RecordSubjectWrite(op string) {
	c.subjectWrites.WithLabelValues(op).Inc()
}

func (c *Collector) RecordNotificationWrite(op string) {
	c.notificationWrites.WithLabelValues(op).Inc()
}

func (c *Collector) RecordSyncCycle(threads int, failed int) {
	c.syncCycles.Inc()
	c.syncThreads.Add(float64(threads))
	c.syncFailures.Add(float64(failed))
}

// Handler exposes the registry for prometheus scraping.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordReconcile(string)         {}
func (Nop) RecordSubjectFetch(string)      {}
func (Nop) RecordSubjectWrite(string)      {}
func (Nop) RecordNotificationWrite(string) {}
func (Nop) RecordSyncCycle(int, int)       {}
