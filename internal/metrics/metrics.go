// Package metrics exposes job queue activity as Prometheus metrics. The
// Collector counts lifecycle events as they are emitted and reads queue
// depth from a snapshot at scrape time.
package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/phrazzld/podscribe/internal/events"
	"github.com/phrazzld/podscribe/internal/task"
)

const namespace = "podscribe"

// QueueState is the part of the queue read at scrape time.
type QueueState interface {
	Snapshot() task.Snapshot
}

// Collector implements events.EventHandler and serves its registry.
type Collector struct {
	registry *prometheus.Registry
	events   *prometheus.CounterVec
	duration *prometheus.HistogramVec

	mu      sync.Mutex
	started map[string]time.Time
	now     func() time.Time
}

// NewCollector creates a collector with its own registry. Go runtime and
// process metrics are registered alongside the queue metrics.
func NewCollector(queue QueueState) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_events_total",
			Help:      "Job lifecycle events by type.",
		}, []string{"type"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Time from a job starting to finishing, by outcome.",
			Buckets:   prometheus.ExponentialBuckets(5, 2, 10),
		}, []string{"status"}),
		started: make(map[string]time.Time),
		now:     time.Now,
	}

	c.registry.MustRegister(
		c.events,
		c.duration,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_pending_jobs",
			Help:      "Jobs waiting in the queue.",
		}, func() float64 {
			return float64(queue.Snapshot().PendingCount)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_processing",
			Help:      "1 while a job occupies the processing slot.",
		}, func() float64 {
			if queue.Snapshot().IsProcessing {
				return 1
			}
			return 0
		}),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// HandleEvent counts the event and observes job durations. It is called
// with the queue lock held and must not touch the queue.
func (c *Collector) HandleEvent(ctx context.Context, event *events.JobEvent) error {
	if event.Type == events.JobLog {
		return nil
	}
	c.events.WithLabelValues(string(event.Type)).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case event.Type == events.JobStarted:
		c.started[event.JobID] = c.now()
	case event.Type == events.JobRequeued:
		delete(c.started, event.JobID)
	case event.Type.Terminal():
		if startedAt, ok := c.started[event.JobID]; ok {
			c.duration.WithLabelValues(string(event.Type)).Observe(c.now().Sub(startedAt).Seconds())
			delete(c.started, event.JobID)
		}
	}
	return nil
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
