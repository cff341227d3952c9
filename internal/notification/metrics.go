package notification

import (
	"fmt"
	"time"

	"github.com/phrazzld/dozo/internal/domain"
	promclient "github.com/prometheus/client_golang/prometheus"
)

// Observer receives delivery and tick metrics.
type Observer interface {
	NotificationSent(kind domain.NotificationKind)
	NotificationFailed(kind domain.NotificationKind)
	NotificationSkipped(kind domain.NotificationKind, reason string)
	TickCompleted(job string, duration time.Duration)
}

type nopObserver struct{}

func (nopObserver) NotificationSent(domain.NotificationKind)            {}
func (nopObserver) NotificationFailed(domain.NotificationKind)          {}
func (nopObserver) NotificationSkipped(domain.NotificationKind, string) {}
func (nopObserver) TickCompleted(string, time.Duration)                 {}

// PrometheusObserver exports notification metrics to Prometheus.
type PrometheusObserver struct {
	sent         *promclient.CounterVec
	failed       *promclient.CounterVec
	skipped      *promclient.CounterVec
	tickDuration *promclient.HistogramVec
}

// NewPrometheusObserver registers the notification metrics. Registering
// twice against the same registry reuses the existing collectors.
func NewPrometheusObserver(namespace string, reg promclient.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "dozo"
	}
	if reg == nil {
		reg = promclient.DefaultRegisterer
	}
	o := &PrometheusObserver{
		sent: promclient.NewCounterVec(promclient.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Notifications accepted by the transport.",
		}, []string{"kind"}),
		failed: promclient.NewCounterVec(promclient.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_failed_total",
			Help:      "Notifications that failed to send or to record.",
		}, []string{"kind"}),
		skipped: promclient.NewCounterVec(promclient.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_skipped_total",
			Help:      "Eligible notifications that were not sent.",
		}, []string{"kind", "reason"}),
		tickDuration: promclient.NewHistogramVec(promclient.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Duration of scheduler ticks.",
			Buckets:   promclient.DefBuckets,
		}, []string{"job"}),
	}

	var err error
	if o.sent, err = registerCollector(reg, o.sent); err != nil {
		return nil, err
	}
	if o.failed, err = registerCollector(reg, o.failed); err != nil {
		return nil, err
	}
	if o.skipped, err = registerCollector(reg, o.skipped); err != nil {
		return nil, err
	}
	if o.tickDuration, err = registerCollector(reg, o.tickDuration); err != nil {
		return nil, err
	}
	return o, nil
}

func registerCollector[C promclient.Collector](reg promclient.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(promclient.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register notification metric: %w", err)
	}
	return c, nil
}

func (o *PrometheusObserver) NotificationSent(kind domain.NotificationKind) {
	if o == nil {
		return
	}
	o.sent.WithLabelValues(kind.String()).Inc()
}

func (o *PrometheusObserver) NotificationFailed(kind domain.NotificationKind) {
	if o == nil {
		return
	}
	o.failed.WithLabelValues(kind.String()).Inc()
}

func (o *PrometheusObserver) NotificationSkipped(kind domain.NotificationKind, reason string) {
	if o == nil {
		return
	}
	o.skipped.WithLabelValues(kind.String(), reason).Inc()
}

func (o *PrometheusObserver) TickCompleted(job string, duration time.Duration) {
	if o == nil {
		return
	}
	o.tickDuration.WithLabelValues(job).Observe(duration.Seconds())
}

var _ Observer = (*PrometheusObserver)(nil)

