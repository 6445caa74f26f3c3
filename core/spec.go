package core

import (
	"fmt"
	"sort"

	"github.com/Comcast/rxfsm/component"
	"github.com/Comcast/rxfsm/patch"
	"github.com/Comcast/rxfsm/stream"
)

const (
	// InitState is the state every machine starts in.
	InitState = "INIT"

	// InitEvent is the event every machine receives first.  It can't
	// be registered in Events.
	InitEvent = "INIT"
)

// Predicate is an event guard (given the model and the event data) or
// an action guard (given the model and the action response).
//
// A nil Predicate always holds.
type Predicate func(model, data interface{}) (bool, error)

// ModelUpdate computes the patches that take the model to its next
// version.  A nil ModelUpdate returns no patches.
type ModelUpdate func(model, eventData, actionResponse interface{}) ([]patch.Operation, error)

// RequestFactory computes the value of an action request.
type RequestFactory func(model, eventData interface{}) (interface{}, error)

// EntryFactory makes the component for a state given (a copy of) the
// model at the time the state is entered.
type EntryFactory func(model interface{}) component.Component

// EventFactory makes the stream of occurrences of an event.
type EventFactory func(sources component.Sources, settings component.Settings) stream.Stream

// Events is the event registry: event name to factory.
type Events map[string]EventFactory

// Names returns the event names in sorted order.
func (es Events) Names() []string {
	acc := make([]string, 0, len(es))
	for name := range es {
		acc = append(acc, name)
	}
	sort.Strings(acc)
	return acc
}

// EntryComponents maps state names to their entry component factories.
type EntryComponents map[string]EntryFactory

// ActionRequest says what to send and to which driver.
type ActionRequest struct {
	// Driver is the name of the sink that gets the request and of
	// the source that delivers the response.
	Driver string

	Request RequestFactory
}

// Evaluation is one candidate resolution of a continuation.
type Evaluation struct {
	// ActionGuard sees the model and the action response (nil when
	// the continuation has no action request).
	ActionGuard Predicate

	TargetState string

	ModelUpdate ModelUpdate
}

// Continuation is one candidate way to follow a transition.
type Continuation struct {
	EventGuard Predicate

	// ActionRequest is optional.  Without one, the evaluations are
	// resolved right away with a nil action response.
	ActionRequest *ActionRequest

	Evaluations []*Evaluation
}

// Transition is the rule for an event in an origin state.
type Transition struct {
	OriginState string
	Event       string

	// TargetStates are considered in order.  The first one whose
	// event guard holds is followed.
	TargetStates []*Continuation

	// Doc is optional documentation.
	Doc string
}

// Transitions is the transition table: transition name to Transition.
type Transitions map[string]*Transition

// Names returns the transition names in sorted order.
func (ts Transitions) Names() []string {
	acc := make([]string, 0, len(ts))
	for name := range ts {
		acc = append(acc, name)
	}
	sort.Strings(acc)
	return acc
}

type key struct {
	state, event string
}

// Table is a checked, indexed transition table.
type Table struct {
	Transitions Transitions

	index   map[key]string
	drivers []string
	states  []string
}

// NewTable checks the structure of the transitions and indexes them by
// origin state and event.
//
// The problems found are reported as an *InvalidMachine.
func NewTable(ts Transitions) (*Table, error) {
	var (
		t = &Table{
			Transitions: ts,
			index:       make(map[key]string, len(ts)),
		}
		problems []string
		drivers  = make(map[string]bool)
		states   = make(map[string]bool)
		inits    = 0
	)

	for _, name := range ts.Names() {
		tr := ts[name]
		if tr == nil {
			problems = append(problems, fmt.Sprintf("transition %q is nil", name))
			continue
		}
		k := key{tr.OriginState, tr.Event}
		if other, have := t.index[k]; have {
			problems = append(problems, fmt.Sprintf("transitions %q and %q both leave %q on %q",
				other, name, tr.OriginState, tr.Event))
			continue
		}
		t.index[k] = name
		states[tr.OriginState] = true

		switch {
		case tr.OriginState == InitState && tr.Event == InitEvent:
			inits++
		case tr.OriginState == InitState:
			problems = append(problems, fmt.Sprintf("transition %q leaves %q on %q instead of %q",
				name, InitState, tr.Event, InitEvent))
		case tr.Event == InitEvent:
			problems = append(problems, fmt.Sprintf("transition %q uses %q outside of %q",
				name, InitEvent, InitState))
		}

		if len(tr.TargetStates) == 0 {
			problems = append(problems, fmt.Sprintf("transition %q has no target states", name))
		}
		for i, c := range tr.TargetStates {
			if c == nil {
				problems = append(problems, fmt.Sprintf("transition %q continuation %d is nil", name, i))
				continue
			}
			if r := c.ActionRequest; r != nil {
				if r.Driver == "" {
					problems = append(problems, fmt.Sprintf("transition %q continuation %d has a request without a driver", name, i))
				} else {
					drivers[r.Driver] = true
				}
			}
			if len(c.Evaluations) == 0 {
				problems = append(problems, fmt.Sprintf("transition %q continuation %d has no evaluations", name, i))
			}
			for j, e := range c.Evaluations {
				if e == nil || e.TargetState == "" {
					problems = append(problems, fmt.Sprintf("transition %q continuation %d evaluation %d has no target state", name, i, j))
					continue
				}
				if e.TargetState == InitState {
					problems = append(problems, fmt.Sprintf("transition %q continuation %d evaluation %d targets %q", name, i, j, InitState))
				}
				states[e.TargetState] = true
			}
		}
	}

	if inits != 1 {
		problems = append(problems, fmt.Sprintf("need exactly one transition from %q on %q (have %d)",
			InitState, InitEvent, inits))
	}

	if 0 < len(problems) {
		return nil, &InvalidMachine{Problems: problems}
	}

	t.drivers = sortedKeys(drivers)
	t.states = sortedKeys(states)
	return t, nil
}

// Lookup finds the transition for the event in the state.
func (t *Table) Lookup(state, event string) (string, *Transition, bool) {
	name, have := t.index[key{state, event}]
	if !have {
		return "", nil, false
	}
	return name, t.Transitions[name], true
}

// Drivers returns the distinct drivers of all action requests.
func (t *Table) Drivers() []string {
	return t.drivers
}

// States returns every state mentioned by the table (INIT included).
func (t *Table) States() []string {
	return t.states
}

// Validate checks the table against the events, entry components and
// sink names of a machine.
func (t *Table) Validate(events Events, entries EntryComponents, sinkNames []string) error {
	var problems []string

	if _, have := events[InitEvent]; have {
		problems = append(problems, fmt.Sprintf("event %q is implicit and can't be registered", InitEvent))
	}
	for name, f := range events {
		if f == nil {
			problems = append(problems, fmt.Sprintf("event %q has no factory", name))
		}
	}

	for _, state := range t.states {
		if state == InitState {
			continue
		}
		if f, have := entries[state]; !have || f == nil {
			problems = append(problems, fmt.Sprintf("state %q has no entry component", state))
		}
	}

	sinks := make(map[string]bool, len(sinkNames))
	for _, name := range sinkNames {
		if sinks[name] {
			problems = append(problems, fmt.Sprintf("sink %q is configured twice", name))
		}
		sinks[name] = true
	}
	for _, driver := range t.drivers {
		if !sinks[driver] {
			problems = append(problems, fmt.Sprintf("driver %q is not a configured sink", driver))
		}
	}

	for _, name := range t.Transitions.Names() {
		tr := t.Transitions[name]
		if tr.Event == InitEvent {
			continue
		}
		if _, have := events[tr.Event]; !have {
			problems = append(problems, fmt.Sprintf("transition %q uses unregistered event %q", name, tr.Event))
		}
	}

	if 0 < len(problems) {
		return &InvalidMachine{Problems: problems}
	}
	return nil
}

func sortedKeys(m map[string]bool) []string {
	acc := make([]string, 0, len(m))
	for k := range m {
		acc = append(acc, k)
	}
	sort.Strings(acc)
	return acc
}
