package metrics

import "github.com/prometheus/client_golang/prometheus"

// RequestMetrics records reimbursement workflow activity.
type RequestMetrics struct {
	submitted *prometheus.CounterVec
	actions   *prometheus.CounterVec
	modifiers *prometheus.CounterVec
}

// NewRequestMetrics registers the workflow metrics on the provided registerer.
func NewRequestMetrics(reg prometheus.Registerer) *RequestMetrics {
	if reg == nil {
		return &RequestMetrics{}
	}
	submitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "srp_requests_submitted_total",
		Help: "Reimbursement requests submitted, by source adapter.",
	}, []string{"source"})
	actions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "srp_request_actions_total",
		Help: "Request lifecycle actions recorded, by action type.",
	}, []string{"type"})
	modifiers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "srp_modifier_ops_total",
		Help: "Modifier operations, by operation and modifier kind.",
	}, []string{"op", "kind"})
	reg.MustRegister(submitted, actions, modifiers)
	return &RequestMetrics{
		submitted: submitted,
		actions:   actions,
		modifiers: modifiers,
	}
}

// IncSubmitted increments the submission counter for the named source adapter.
func (r *RequestMetrics) IncSubmitted(source string) {
	if r == nil || r.submitted == nil {
		return
	}
	r.submitted.WithLabelValues(normalizeLabel(source)).Inc()
}

// IncAction increments the action counter for the named action type.
func (r *RequestMetrics) IncAction(actionType string) {
	if r == nil || r.actions == nil {
		return
	}
	r.actions.WithLabelValues(normalizeLabel(actionType)).Inc()
}

// IncModifierOp increments the modifier counter for the named operation and kind.
func (r *RequestMetrics) IncModifierOp(op, kind string) {
	if r == nil || r.modifiers == nil {
		return
	}
	r.modifiers.WithLabelValues(normalizeLabel(op), normalizeLabel(kind)).Inc()
}
