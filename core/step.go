package core

import (
	"encoding/json"

	"github.com/Comcast/rxfsm/patch"
)

// Pending records the action request a machine is waiting on.
type Pending struct {
	Driver       string `json:"driver"`
	Transition   string `json:"transition"`
	Continuation int    `json:"continuation"`
}

// State is the internal state of a machine.
type State struct {
	Name  string      `json:"state"`
	Model interface{} `json:"model"`

	// EventData is the data of the last accepted event.
	EventData interface{} `json:"eventData,omitempty"`

	// Pending is non-nil while an action request is in flight.
	Pending *Pending `json:"pending,omitempty"`
}

func (s *State) String() string {
	if s == nil {
		return "nil"
	}
	js, err := json.Marshal(s.Model)
	if err != nil {
		return s.Name + "/{*}"
	}
	if s.Pending != nil {
		return s.Name + "/" + string(js) + "/pending:" + s.Pending.Driver
	}
	return s.Name + "/" + string(js)
}

// Copy makes a deep copy of the State.
func (s *State) Copy() *State {
	acc := &State{
		Name:      s.Name,
		Model:     patch.Clone(s.Model),
		EventData: patch.Clone(s.EventData),
	}
	if s.Pending != nil {
		p := *s.Pending
		acc.Pending = &p
	}
	return acc
}

// InputKind distinguishes events from action responses.
type InputKind int

const (
	EventKind InputKind = iota
	ResponseKind
)

func (k InputKind) String() string {
	if k == ResponseKind {
		return "response"
	}
	return "event"
}

// MarshalText implements encoding.TextMarshaler.
func (k InputKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *InputKind) UnmarshalText(bs []byte) error {
	if string(bs) == "response" {
		*k = ResponseKind
	} else {
		*k = EventKind
	}
	return nil
}

// Input is one labelled item for a machine: an event occurrence (Name
// is the event name) or an action response (Name is the driver).
type Input struct {
	Kind InputKind   `json:"kind"`
	Name string      `json:"name"`
	Data interface{} `json:"data,omitempty"`
}

// EventInput makes an event occurrence.
func EventInput(event string, data interface{}) Input {
	return Input{Kind: EventKind, Name: event, Data: data}
}

// ResponseInput makes an action response.
func ResponseInput(driver string, data interface{}) Input {
	return Input{Kind: ResponseKind, Name: driver, Data: data}
}

func (in Input) String() string {
	return in.Kind.String() + ":" + in.Name
}

// Request is an action request to emit.
type Request struct {
	Driver string      `json:"driver"`
	Value  interface{} `json:"value"`
}

// Activation says which entry component to start.  Its Model is a
// snapshot that nothing else refers to.
type Activation struct {
	State string      `json:"state"`
	Model interface{} `json:"model"`
}

// Stride represents a step that was taken or attempted.
type Stride struct {
	// From is a copy of the starting State.
	From *State `json:"from"`

	// To is the new State, which is nil when the input changed
	// nothing.  Its Model is the machine's model itself, not a copy.
	To *State `json:"to,omitempty"`

	// Input is what was stepped with.
	Input Input `json:"input"`

	// Consumed reports whether the input was accepted.  Inputs that
	// are discarded (and events that no event guard accepts) aren't.
	Consumed bool `json:"consumed"`

	// Discarded explains why an input wasn't looked at.
	Discarded string `json:"discarded,omitempty"`

	// Transition, Continuation and Evaluation locate the rule that
	// was followed.  Evaluation is -1 until the transition resolves.
	Transition   string `json:"transition,omitempty"`
	Continuation int    `json:"continuation"`
	Evaluation   int    `json:"evaluation"`

	// Patches are the operations that were applied to the model.
	Patches []patch.Operation `json:"patches,omitempty"`

	Request    *Request    `json:"request,omitempty"`
	Activation *Activation `json:"activation,omitempty"`
}

// Why inputs get discarded.
const (
	DiscardedWhilePending = "not the awaited response"
	DiscardedNotPending   = "response while not pending"
)

// Step is the fundamental operation that attempts to move from the
// given state with the given input.
//
// Step applies patches to st.Model in place.  The returned Stride's To
// refers to the patched model.  Nothing else about st changes, and
// nothing happens at all unless the input is consumed.
//
// Errors from guards, model updates and request factories are returned
// as they are.  Panics in those functions become a *Panic.
func (t *Table) Step(st *State, in Input) (*Stride, error) {
	if st == nil {
		return nil, ErrNil
	}

	stride := &Stride{
		From:         st.Copy(),
		Input:        in,
		Continuation: -1,
		Evaluation:   -1,
	}

	if p := st.Pending; p != nil {
		if in.Kind != ResponseKind || in.Name != p.Driver {
			stride.Discarded = DiscardedWhilePending
			return stride, nil
		}
		tr := t.Transitions[p.Transition]
		stride.Transition = p.Transition
		stride.Continuation = p.Continuation
		return stride, t.resolve(stride, st, tr, st.EventData, in.Data)
	}

	if in.Kind == ResponseKind {
		stride.Discarded = DiscardedNotPending
		return stride, nil
	}

	name, tr, have := t.Lookup(st.Name, in.Name)
	if !have {
		return stride, &UnconfiguredTransition{
			State: st.Name,
			Event: in.Name,
		}
	}
	stride.Transition = name

	view := patch.Clone(st.Model)
	for i, c := range tr.TargetStates {
		ok, err := holds("event guard", c.EventGuard, view, in.Data)
		if err != nil {
			return stride, err
		}
		if !ok {
			continue
		}
		stride.Continuation = i

		if c.ActionRequest == nil {
			return stride, t.resolve(stride, st, tr, in.Data, nil)
		}

		var x interface{}
		err = protect("request factory", func() error {
			var err error
			if c.ActionRequest.Request != nil {
				x, err = c.ActionRequest.Request(view, in.Data)
			}
			return err
		})
		if err != nil {
			return stride, err
		}

		stride.Consumed = true
		stride.Request = &Request{
			Driver: c.ActionRequest.Driver,
			Value:  x,
		}
		stride.To = &State{
			Name:      st.Name,
			Model:     st.Model,
			EventData: in.Data,
			Pending: &Pending{
				Driver:       c.ActionRequest.Driver,
				Transition:   name,
				Continuation: i,
			},
		}
		return stride, nil
	}

	// Guarded inaction.
	return stride, nil
}

// resolve picks the first evaluation whose action guard holds for the
// response and finishes the transition.
func (t *Table) resolve(stride *Stride, st *State, tr *Transition, eventData, response interface{}) error {
	c := tr.TargetStates[stride.Continuation]
	view := patch.Clone(st.Model)

	for j, e := range c.Evaluations {
		ok, err := holds("action guard", e.ActionGuard, view, response)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		stride.Evaluation = j

		var ops []patch.Operation
		err = protect("model update", func() error {
			var err error
			if e.ModelUpdate != nil {
				ops, err = e.ModelUpdate(view, eventData, response)
			}
			return err
		})
		if err != nil {
			return err
		}

		model, err := patch.Apply(st.Model, ops)
		if err != nil {
			return &PatchFailure{
				State:      st.Name,
				Transition: stride.Transition,
				Err:        err,
			}
		}

		stride.Consumed = true
		stride.Patches = ops
		stride.To = &State{
			Name:      e.TargetState,
			Model:     model,
			EventData: eventData,
		}
		stride.Activation = &Activation{
			State: e.TargetState,
			Model: patch.Clone(model),
		}
		return nil
	}

	driver := ""
	if c.ActionRequest != nil {
		driver = c.ActionRequest.Driver
	}
	return &GuardContractViolation{
		State:        st.Name,
		Transition:   stride.Transition,
		Continuation: stride.Continuation,
		Driver:       driver,
		Response:     response,
	}
}

func holds(where string, p Predicate, model, data interface{}) (bool, error) {
	if p == nil {
		return true, nil
	}
	var ok bool
	err := protect(where, func() error {
		var err error
		ok, err = p(model, data)
		return err
	})
	return ok, err
}

// protect calls f and turns a panic into a *Panic.
func protect(where string, f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Panic{
				Where: where,
				Value: r,
			}
		}
	}()
	return f()
}

// Replay runs the INIT event and then the given inputs through Step,
// starting from the seed State of the settings.
//
// Replay stops at the first error.  The strides taken so far (including
// the failing one) are returned along with the last State.
func Replay(t *Table, s *Settings, inputs []Input) ([]*Stride, *State, error) {
	st, err := s.Seed()
	if err != nil {
		return nil, nil, err
	}

	all := make([]Input, 0, len(inputs)+1)
	all = append(all, EventInput(InitEvent, patch.Clone(s.InitEventData)))
	all = append(all, inputs...)

	strides := make([]*Stride, 0, len(all))
	for _, in := range all {
		stride, err := t.Step(st, in)
		if stride != nil {
			strides = append(strides, stride)
		}
		if err != nil {
			return strides, st, err
		}
		if stride.To != nil {
			st = stride.To
		}
	}
	return strides, st, nil
}
