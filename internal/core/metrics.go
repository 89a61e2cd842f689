package core

import "github.com/prometheus/client_golang/prometheus"

const (
	opSet     = "set"
	opGet     = "get"
	opGetSync = "get_sync"
	opRemove  = "remove"
	opClear   = "clear"

	resultOK         = "ok"
	resultMiss       = "miss"
	resultExpired    = "expired"
	resultUnreadable = "unreadable"
	resultError      = "error"

	degradeLegacy    = "legacy"
	degradePlaintext = "plaintext"
)

// Metrics holds the store's Prometheus counters. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	operations   *prometheus.CounterVec
	degradations *prometheus.CounterVec
	expired      prometheus.Counter
}

// NewMetrics creates the counters and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sealstore",
			Name:      "operations_total",
			Help:      "Store operations by kind and outcome.",
		}, []string{"op", "result"}),
		degradations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sealstore",
			Name:      "degradations_total",
			Help:      "Encrypted writes stored in a weaker format.",
		}, []string{"kind"}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sealstore",
			Name:      "expired_total",
			Help:      "Entries removed after their TTL elapsed.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.operations, m.degradations, m.expired)
	}
	return m
}

func (m *Metrics) observe(op, result string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, result).Inc()
}

func (m *Metrics) degrade(kind string) {
	if m == nil {
		return
	}
	m.degradations.WithLabelValues(kind).Inc()
}

func (m *Metrics) expire() {
	if m == nil {
		return
	}
	m.expired.Inc()
}

func (s lookupStatus) result() string {
	switch s {
	case statusFound:
		return resultOK
	case statusExpired:
		return resultExpired
	case statusUnreadable:
		return resultUnreadable
	default:
		return resultMiss
	}
}
