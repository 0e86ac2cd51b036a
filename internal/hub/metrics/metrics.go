package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the hub service.
type Metrics struct {
	// Operation latency by operation and external status
	OperationDuration *prometheus.HistogramVec

	// Transfer transitions by target status
	Transitions *prometheus.CounterVec

	// Fees charged on initiation, in base units
	FeesCharged prometheus.Counter

	// Compliance rejections by external status
	ComplianceRejections *prometheus.CounterVec

	QuorumFailures prometheus.Counter

	// Confidential rejections by external status
	ConfidentialRejections *prometheus.CounterVec

	// Notifier publish failures by message kind
	NotifierFailures *prometheus.CounterVec
}

// New creates the hub metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bridgehub_hub_operation_duration_seconds",
			Help:    "Duration of hub operations by operation and result status",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation", "status"}),

		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bridgehub_transfer_transitions_total",
			Help: "Transfer state transitions by target status",
		}, []string{"status"}),

		FeesCharged: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridgehub_transfer_fees_total",
			Help: "Total fees charged on initiated transfers",
		}),

		ComplianceRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bridgehub_compliance_rejections_total",
			Help: "Compliance rejections by reason",
		}, []string{"reason"}),

		QuorumFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridgehub_quorum_failures_total",
			Help: "Confirmation attempts that did not reach the relay quorum",
		}),

		ConfidentialRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bridgehub_confidential_rejections_total",
			Help: "Confidential transactions rejected by reason",
		}, []string{"reason"}),

		NotifierFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bridgehub_notifier_failures_total",
			Help: "Envelope publish failures by message kind",
		}, []string{"kind"}),
	}
}

func (m *Metrics) ObserveOperation(operation, status string, d time.Duration) {
	if m != nil {
		m.OperationDuration.WithLabelValues(operation, status).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementTransition(status string) {
	if m != nil {
		m.Transitions.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) AddFee(amount uint64) {
	if m != nil {
		m.FeesCharged.Add(float64(amount))
	}
}

func (m *Metrics) IncrementComplianceRejection(reason string) {
	if m != nil {
		m.ComplianceRejections.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IncrementQuorumFailure() {
	if m != nil {
		m.QuorumFailures.Inc()
	}
}

func (m *Metrics) IncrementConfidentialRejection(reason string) {
	if m != nil {
		m.ConfidentialRejections.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IncrementNotifierFailure(kind string) {
	if m != nil {
		m.NotifierFailures.WithLabelValues(kind).Inc()
	}
}
