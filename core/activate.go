package core

import (
	"github.com/Comcast/rxfsm/component"
	"github.com/Comcast/rxfsm/stream"
)

// activate starts the entry component of a state and switches every
// sink over to it.  Called only from q.
//
// The previous component's subscription for a sink is released before
// the new one is made.  A sink the new component doesn't produce stays
// quiet until the next activation.
func (m *machine) activate(a *Activation) {
	var sinks component.Sinks
	err := protect("entry component", func() error {
		c := m.f.entries[a.State](a.Model)
		if c != nil {
			sinks = component.Reduce(c(m.sources, m.settings), nil, m.f.settings.SinkNames, m.f.policies)
		}
		return nil
	})
	if err != nil {
		m.fail(err)
		return
	}

	m.generation++
	gen := m.generation

	for _, name := range m.f.settings.SinkNames {
		if sub, have := m.active[name]; have {
			sub.Unsubscribe()
			delete(m.active, name)
		}
		s := sinks[name]
		if s == nil {
			continue
		}
		m.active[name] = m.subscribeEntry(s, gen, a.State, name)
	}

	m.log.Debug("activated", "state", a.State, "sinks", len(sinks))
	m.f.hooks.activate(m.id, a.State)
}

func (m *machine) subscribeEntry(s stream.Stream, gen int, state, name string) stream.Subscription {
	o := m.outlets[name]
	current := func() bool {
		return !m.stopped && m.generation == gen
	}
	return s.Subscribe(stream.Funcs{
		OnNext: func(x interface{}) {
			m.q.Do(func() {
				if current() {
					o.push(x)
				}
			})
		},
		OnError: func(err error) {
			m.q.Do(func() {
				if current() {
					m.fail(&ComponentFailure{
						State: state,
						Sink:  name,
						Err:   err,
					})
				}
			})
		},
	})
}
