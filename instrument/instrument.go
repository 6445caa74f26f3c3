// Package instrument counts what machines do with Prometheus metrics.
package instrument

import (
	"github.com/Comcast/rxfsm/core"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors for one machine definition.  Machine
// instance ids aren't used as labels.
type Metrics struct {
	Steps       *prometheus.CounterVec
	Requests    *prometheus.CounterVec
	Activations *prometheus.CounterVec
	Errors      *prometheus.CounterVec
	Failures    *prometheus.CounterVec
}

// Step outcomes.
const (
	Transitioned = "transitioned"
	Requested    = "requested"
	Unconsumed   = "unconsumed"
	Discarded    = "discarded"
	Failed       = "failed"
)

// New makes Metrics for the named definition and registers them with
// reg (if not nil).
func New(definition string, reg prometheus.Registerer) (*Metrics, error) {
	constLabels := prometheus.Labels{"definition": definition}
	m := &Metrics{
		Steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "rxfsm_steps_total",
				Help:        "Inputs stepped, by state and outcome",
				ConstLabels: constLabels,
			},
			[]string{"state", "outcome"},
		),
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "rxfsm_requests_total",
				Help:        "Action requests emitted, by driver",
				ConstLabels: constLabels,
			},
			[]string{"driver"},
		),
		Activations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "rxfsm_activations_total",
				Help:        "Entry component activations, by state",
				ConstLabels: constLabels,
			},
			[]string{"state"},
		),
		Errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "rxfsm_step_errors_total",
				Help:        "Step errors, by error type",
				ConstLabels: constLabels,
			},
			[]string{"type"},
		),
		Failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "rxfsm_failures_total",
				Help:        "Machines stopped by a fatal error, by error type",
				ConstLabels: constLabels,
			},
			[]string{"type"},
		),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.Steps, m.Requests, m.Activations, m.Errors, m.Failures} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// Outcome classifies a step.
func Outcome(stride *core.Stride, err error) string {
	switch {
	case err != nil:
		return Failed
	case stride.Discarded != "":
		return Discarded
	case !stride.Consumed:
		return Unconsumed
	case stride.Request != nil:
		return Requested
	default:
		return Transitioned
	}
}

// ErrorType gives a short label for an error.
func ErrorType(err error) string {
	switch err.(type) {
	case *core.UnconfiguredTransition:
		return "unconfigured_transition"
	case *core.GuardContractViolation:
		return "guard_contract_violation"
	case *core.PatchFailure:
		return "patch_failure"
	case *core.Panic:
		return "panic"
	case *core.SourceFailure:
		return "source_failure"
	case *core.ComponentFailure:
		return "component_failure"
	default:
		return "other"
	}
}

// Hooks returns core.Hooks that update the metrics.
func (m *Metrics) Hooks() core.Hooks {
	return core.Hooks{
		OnStep: func(_ string, stride *core.Stride, err error) {
			state := ""
			if stride != nil && stride.From != nil {
				state = stride.From.Name
			}
			m.Steps.WithLabelValues(state, Outcome(stride, err)).Inc()
			if err != nil {
				m.Errors.WithLabelValues(ErrorType(err)).Inc()
				return
			}
			if stride.Request != nil {
				m.Requests.WithLabelValues(stride.Request.Driver).Inc()
			}
		},
		OnActivate: func(_, state string) {
			m.Activations.WithLabelValues(state).Inc()
		},
		OnFail: func(_ string, err error) {
			m.Failures.WithLabelValues(ErrorType(err)).Inc()
		},
	}
}
