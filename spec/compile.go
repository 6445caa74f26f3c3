package spec

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Comcast/rxfsm/component"
	"github.com/Comcast/rxfsm/core"
	"github.com/Comcast/rxfsm/drivers"
	"github.com/Comcast/rxfsm/match"
	"github.com/Comcast/rxfsm/patch"
	"github.com/Comcast/rxfsm/script"
	"github.com/Comcast/rxfsm/stream"
)

// Machine is a compiled definition.
type Machine struct {
	Name        string
	Doc         string
	Events      core.Events
	Transitions core.Transitions
	Entries     core.EntryComponents
	Settings    *core.Settings
}

// Make calls core.MakeFSM.
func (m *Machine) Make(opts ...core.Option) (component.Component, error) {
	return core.MakeFSM(m.Events, m.Transitions, m.Entries, m.Settings, opts...)
}

// Table checks and indexes the transitions.
func (m *Machine) Table() (*core.Table, error) {
	return core.NewTable(m.Transitions)
}

type compiler struct {
	i        *script.Interpreter
	problems []string
}

func (c *compiler) problem(where string, err error) {
	c.problems = append(c.problems, (&Problem{Where: where, Err: err}).Error())
}

// Compile turns the definition into core values.  Scripts are compiled
// with the given interpreter (or a default one).
//
// All the problems found are reported together as a
// *core.InvalidMachine.
func (s *Spec) Compile(i *script.Interpreter) (*Machine, error) {
	if i == nil {
		i = script.NewInterpreter()
	}
	c := &compiler{i: i}

	m := &Machine{
		Name:        s.Name,
		Doc:         s.Doc,
		Events:      make(core.Events, len(s.Events)),
		Transitions: make(core.Transitions, len(s.Transitions)),
		Entries:     make(core.EntryComponents, len(s.States)),
		Settings:    s.Settings(),
	}

	for _, name := range sortedKeys(s.Events) {
		if f := c.event("event "+name, s.Events[name]); f != nil {
			m.Events[name] = f
		}
	}

	for _, name := range sortedKeys(s.States) {
		if name == core.InitState {
			c.problem("state "+name, errors.New("INIT can't have an entry component"))
			continue
		}
		if f := c.state("state "+name, s.States[name]); f != nil {
			m.Entries[name] = f
		}
	}

	for _, name := range s.TransitionNames() {
		if t := c.transition("transition "+name, s.Transitions[name]); t != nil {
			m.Transitions[name] = t
		}
	}

	if 0 < len(c.problems) {
		return nil, &core.InvalidMachine{Problems: c.problems}
	}
	return m, nil
}

func sortedKeys[V any](m map[string]V) []string {
	acc := make([]string, 0, len(m))
	for k := range m {
		acc = append(acc, k)
	}
	sort.Strings(acc)
	return acc
}

func (c *compiler) pattern(where string, p interface{}) interface{} {
	p, err := patch.Canonicalize(p)
	if err != nil {
		c.problem(where, err)
		return nil
	}
	// A pattern always matches itself, so this finds bad patterns.
	if _, err = match.Match(p, p, nil); err != nil {
		c.problem(where, err)
		return nil
	}
	return p
}

func (c *compiler) event(where string, e *Event) core.EventFactory {
	if e == nil {
		c.problem(where, errors.New("empty"))
		return nil
	}
	switch {
	case e.Source != "" && e.Cron != "":
		c.problem(where, errors.New("both source and cron"))
		return nil
	case e.Cron != "":
		s, err := drivers.Cron(e.Cron)
		if err != nil {
			c.problem(where, err)
			return nil
		}
		return func(component.Sources, component.Settings) stream.Stream {
			return s
		}
	case e.Source == "":
		c.problem(where, errors.New("neither source nor cron"))
		return nil
	}

	var (
		source  = e.Source
		pattern interface{}
	)
	if e.Pattern != nil {
		if pattern = c.pattern(where, e.Pattern); pattern == nil {
			return nil
		}
	}

	return func(sources component.Sources, _ component.Settings) stream.Stream {
		s, have := sources[source]
		if !have {
			return stream.Throw(fmt.Errorf("no source %q", source))
		}
		if pattern == nil {
			return s
		}
		return stream.Filter(s, func(x interface{}) bool {
			ok, err := match.Matches(pattern, x)
			return err == nil && ok
		})
	}
}

type emitter func(model interface{}) (interface{}, error)

func (c *compiler) emit(where string, e *Emit) emitter {
	if e == nil {
		return func(interface{}) (interface{}, error) {
			return nil, nil
		}
	}
	switch {
	case e.JS != "":
		f, err := c.i.Value(e.JS)
		if err != nil {
			c.problem(where, err)
			return nil
		}
		return f
	case e.Pointer != "":
		ptr := e.Pointer
		if _, err := patch.Get(nil, ptr); errors.Is(err, patch.ErrInvalidPath) {
			c.problem(where, err)
			return nil
		}
		return func(model interface{}) (interface{}, error) {
			return patch.Get(model, ptr)
		}
	default:
		x, err := patch.Canonicalize(e.Value)
		if err != nil {
			c.problem(where, err)
			return nil
		}
		return func(interface{}) (interface{}, error) {
			return patch.Clone(x), nil
		}
	}
}

func (c *compiler) state(where string, s *State) core.EntryFactory {
	if s == nil {
		s = &State{}
	}
	var (
		sinks    = sortedKeys(s.Emit)
		emitters = make(map[string]emitter, len(sinks))
		ok       = true
	)
	for _, sink := range sinks {
		f := c.emit(where+" emit "+sink, s.Emit[sink])
		if f == nil {
			ok = false
			continue
		}
		emitters[sink] = f
	}
	if !ok {
		return nil
	}

	return func(model interface{}) component.Component {
		return func(component.Sources, component.Settings) component.Sinks {
			acc := make(component.Sinks, len(emitters))
			for sink, f := range emitters {
				x, err := f(model)
				if err != nil {
					acc[sink] = stream.Throw(err)
					continue
				}
				acc[sink] = stream.Of(x)
			}
			return acc
		}
	}
}

// guard compiles a guard.  Patterns are matched against the event
// data for event guards and against the response for action guards.
func (c *compiler) guard(where string, g *Guard, action bool) (core.Predicate, bool) {
	if g == nil {
		return nil, true
	}
	switch {
	case g.JS != "" && g.Pattern != nil:
		c.problem(where, errors.New("guard has both pattern and js"))
		return nil, false
	case g.JS != "":
		var (
			p   core.Predicate
			err error
		)
		if action {
			p, err = c.i.ActionGuard(g.JS)
		} else {
			p, err = c.i.EventGuard(g.JS)
		}
		if err != nil {
			c.problem(where, err)
			return nil, false
		}
		return p, true
	case g.Pattern != nil:
		pattern := c.pattern(where, g.Pattern)
		if pattern == nil {
			return nil, false
		}
		return func(_, data interface{}) (bool, error) {
			return match.Matches(pattern, data)
		}, true
	default:
		return nil, true
	}
}

func (c *compiler) request(where string, r *Request) *core.ActionRequest {
	if r.Driver == "" {
		c.problem(where, errors.New("request without a driver"))
		return nil
	}
	if r.JS != "" {
		f, err := c.i.Request(r.JS)
		if err != nil {
			c.problem(where, err)
			return nil
		}
		return &core.ActionRequest{Driver: r.Driver, Request: f}
	}
	x, err := patch.Canonicalize(r.Value)
	if err != nil {
		c.problem(where, err)
		return nil
	}
	return &core.ActionRequest{
		Driver: r.Driver,
		Request: func(interface{}, interface{}) (interface{}, error) {
			return patch.Clone(x), nil
		},
	}
}

func (c *compiler) update(where string, u interface{}) (core.ModelUpdate, bool) {
	u, err := patch.Canonicalize(u)
	if err != nil {
		c.problem(where, err)
		return nil, false
	}
	switch vv := u.(type) {
	case nil:
		return nil, true
	case []interface{}:
		ops, err := script.Operations(vv)
		if err != nil {
			c.problem(where, err)
			return nil, false
		}
		return func(interface{}, interface{}, interface{}) ([]patch.Operation, error) {
			return ops, nil
		}, true
	case map[string]interface{}:
		src, is := vv["js"].(string)
		if !is || len(vv) != 1 {
			c.problem(where, errors.New("update should be a list of operations or {js: ...}"))
			return nil, false
		}
		f, err := c.i.ModelUpdate(src)
		if err != nil {
			c.problem(where, err)
			return nil, false
		}
		return f, true
	default:
		c.problem(where, fmt.Errorf("bad update %#v", u))
		return nil, false
	}
}

func (c *compiler) transition(where string, t *Transition) *core.Transition {
	if t == nil {
		c.problem(where, errors.New("empty"))
		return nil
	}
	acc := &core.Transition{
		OriginState: t.From,
		Event:       t.EventName(),
		Doc:         t.Doc,
	}
	ok := true
	for i, k := range t.To {
		where := fmt.Sprintf("%s to %d", where, i)
		if k == nil {
			c.problem(where, errors.New("empty"))
			ok = false
			continue
		}
		cont := &core.Continuation{}
		var good bool
		if cont.EventGuard, good = c.guard(where+" guard", k.Guard, false); !good {
			ok = false
		}
		if k.Request != nil {
			if cont.ActionRequest = c.request(where+" request", k.Request); cont.ActionRequest == nil {
				ok = false
			}
		}
		for j, e := range k.Then {
			where := fmt.Sprintf("%s then %d", where, j)
			if e == nil {
				c.problem(where, errors.New("empty"))
				ok = false
				continue
			}
			ev := &core.Evaluation{TargetState: e.Target}
			if ev.ActionGuard, good = c.guard(where+" guard", e.Guard, true); !good {
				ok = false
			}
			if ev.ModelUpdate, good = c.update(where+" update", e.Update); !good {
				ok = false
			}
			cont.Evaluations = append(cont.Evaluations, ev)
		}
		acc.TargetStates = append(acc.TargetStates, cont)
	}
	if !ok {
		return nil
	}
	return acc
}
