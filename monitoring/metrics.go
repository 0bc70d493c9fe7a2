package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"turn-dispatch/models"
)

var (
	waitingTickets = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "turn_waiting_tickets",
			Help: "Current number of waiting tickets per class",
		},
		[]string{"class"},
	)

	ticketsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "turn_tickets_issued_total",
			Help: "Total tickets admitted per class",
		},
		[]string{"class"},
	)

	ticketsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "turn_tickets_served_total",
			Help: "Total tickets dispatched per class",
		},
		[]string{"class"},
	)

	submitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "turn_submit_rejections_total",
			Help: "Total submit requests rejected by validation",
		},
		[]string{"reason"},
	)

	emptyDispatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "turn_empty_dispatches_total",
			Help: "Total dispatch calls that found all queues empty",
		},
	)

	snapshotSaveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "turn_snapshot_save_duration_seconds",
			Help:    "Duration of snapshot saves",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		},
	)
)

// TrackIssued records an admitted ticket.
func TrackIssued(class string) {
	ticketsIssued.WithLabelValues(class).Inc()
}

// TrackServed records a dispatched ticket.
func TrackServed(class string) {
	ticketsServed.WithLabelValues(class).Inc()
}

// TrackRejection records a validation rejection by reason code.
func TrackRejection(reason string) {
	submitRejections.WithLabelValues(reason).Inc()
}

// TrackEmptyDispatch records a dispatch against empty queues.
func TrackEmptyDispatch() {
	emptyDispatches.Inc()
}

// ObserveSnapshotSave records how long a snapshot save took.
func ObserveSnapshotSave(d time.Duration) {
	snapshotSaveDuration.Observe(d.Seconds())
}

// SetQueueLengths refreshes the per-class waiting gauges.
func SetQueueLengths(c models.Counts) {
	waitingTickets.WithLabelValues("vip").Set(float64(c.VIP))
	waitingTickets.WithLabelValues("priority").Set(float64(c.Priority))
	waitingTickets.WithLabelValues("general").Set(float64(c.General))
}

// Monitor periodically refreshes the queue gauges so they stay current
// even when no requests arrive.
type Monitor struct {
	counts func() models.Counts
	stop   chan struct{}
}

func NewMonitor(counts func() models.Counts) *Monitor {
	m := &Monitor{
		counts: counts,
		stop:   make(chan struct{}),
	}
	go m.collectMetrics()
	return m
}

func (m *Monitor) collectMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			SetQueueLengths(m.counts())
		case <-m.stop:
			return
		}
	}
}

func (m *Monitor) Stop() {
	close(m.stop)
}
