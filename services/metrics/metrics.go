package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/classboom/classboom/core/activation"
)

// ActivationMetrics counts invitations and activations per principal kind and outcome.
type ActivationMetrics struct {
	invitations *prometheus.CounterVec
	activations *prometheus.CounterVec
}

var _ activation.Recorder = (*ActivationMetrics)(nil)

func NewActivationMetrics(reg prometheus.Registerer) (*ActivationMetrics, error) {
	m := &ActivationMetrics{
		invitations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "classboom",
			Subsystem: "activation",
			Name:      "invitations_total",
			Help:      "Invitations issued, by principal kind and outcome.",
		}, []string{"kind", "outcome"}),
		activations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "classboom",
			Subsystem: "activation",
			Name:      "activations_total",
			Help:      "Account activations, by principal kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
	for _, c := range []prometheus.Collector{m.invitations, m.activations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *ActivationMetrics) ObserveInvitation(kind activation.PrincipalKind, err error) {
	m.invitations.WithLabelValues(string(kind), activation.Outcome(err)).Inc()
}

func (m *ActivationMetrics) ObserveActivation(kind activation.PrincipalKind, err error) {
	m.activations.WithLabelValues(string(kind), activation.Outcome(err)).Inc()
}
