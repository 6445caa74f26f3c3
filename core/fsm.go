/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package core

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/Comcast/rxfsm/component"
	"github.com/Comcast/rxfsm/patch"
	"github.com/Comcast/rxfsm/stream"
)

// Logger is the default logger for machines.
var Logger = slog.Default()

// Option configures MakeFSM.
type Option func(*fsm)

// WithLogger sets the logger of the machines.
func WithLogger(logger *slog.Logger) Option {
	return func(f *fsm) {
		f.log = logger
	}
}

// WithHooks sets the hooks of the machines.
func WithHooks(h Hooks) Option {
	return func(f *fsm) {
		f.hooks = h
	}
}

// WithPolicies sets the merge policies used to reduce entry component
// sinks.
func WithPolicies(ps component.Policies) Option {
	return func(f *fsm) {
		f.policies = ps
	}
}

// WithID gives machines this id instead of a random one.
func WithID(id string) Option {
	return func(f *fsm) {
		f.id = id
	}
}

// fsm is a checked machine definition.
type fsm struct {
	table    *Table
	events   Events
	entries  EntryComponents
	settings *Settings

	log      *slog.Logger
	hooks    Hooks
	policies component.Policies
	id       string
}

// MakeFSM checks a machine definition and returns it as a Component.
//
// Each time the Component is called, it makes a new machine instance
// whose sinks are named by settings.SinkNames.  The instance connects
// to its sources (and receives INIT) when the first of its sinks is
// subscribed, and it disconnects when all of its sinks have been
// unsubscribed.  An instance runs only once: after it disconnects,
// its sinks just complete.
//
// A sink buffers up to MaxBuffered values until it is first
// subscribed, dropping the oldest beyond that, so a host should
// subscribe every sink it cares about (drivers.Run does).
//
// A sink carries the values of the active entry component's sink of
// the same name and the action requests whose driver is that name.
func MakeFSM(events Events, transitions Transitions, entries EntryComponents, settings *Settings, opts ...Option) (component.Component, error) {
	if err := settings.Check(); err != nil {
		return nil, err
	}
	t, err := NewTable(transitions)
	if err != nil {
		return nil, err
	}
	if err := t.Validate(events, entries, settings.SinkNames); err != nil {
		return nil, err
	}

	f := &fsm{
		table:    t,
		events:   events,
		entries:  entries,
		settings: settings,
		log:      Logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f.instance, nil
}

func (f *fsm) instance(sources component.Sources, settings component.Settings) component.Sinks {
	id := f.id
	if id == "" {
		id = uuid.NewString()
	}
	m := &machine{
		f:        f,
		id:       id,
		log:      f.log.With("machine", id),
		sources:  sources,
		settings: settings,
		outlets:  make(map[string]*outlet, len(f.settings.SinkNames)),
		inputs:   &stream.Group{},
		active:   make(map[string]stream.Subscription),
	}
	sinks := make(component.Sinks, len(f.settings.SinkNames))
	for _, name := range f.settings.SinkNames {
		o := &outlet{m: m, name: name}
		m.outlets[name] = o
		sinks[name] = o
	}
	return sinks
}

// machine is one running instance.
type machine struct {
	f        *fsm
	id       string
	log      *slog.Logger
	sources  component.Sources
	settings component.Settings
	outlets  map[string]*outlet

	q stream.Queue

	sync.Mutex
	refs      int
	connected bool

	// The rest is touched only by work running in q.
	stopped    bool
	state      *State
	inputs     *stream.Group
	active     map[string]stream.Subscription
	generation int
}

func (m *machine) retain() {
	m.Lock()
	m.refs++
	connect := !m.connected
	m.connected = true
	m.Unlock()
	if connect {
		m.q.Do(m.connect)
	}
}

func (m *machine) release() {
	m.Lock()
	m.refs--
	last := m.refs == 0
	m.Unlock()
	if last {
		m.q.Do(m.disconnect)
	}
}

func (m *machine) stateName() string {
	if m.state == nil {
		return ""
	}
	return m.state.Name
}

func (m *machine) connect() {
	st, err := m.f.settings.Seed()
	if err != nil {
		m.fail(err)
		return
	}
	m.state = st
	m.log.Debug("connecting")

	m.input(EventInput(InitEvent, patch.Clone(m.f.settings.InitEventData)))

	for _, name := range m.f.events.Names() {
		if m.stopped {
			return
		}
		var s stream.Stream
		err := protect("event factory", func() error {
			s = m.f.events[name](m.sources, m.settings)
			return nil
		})
		if err != nil {
			m.fail(err)
			return
		}
		if s == nil {
			m.log.Warn("event has no stream", "event", name)
			continue
		}
		m.inputs.Add(m.subscribeInput(s, EventKind, name))
	}

	for _, driver := range m.f.table.Drivers() {
		if m.stopped {
			return
		}
		s := m.sources[driver]
		if s == nil {
			m.log.Warn("no source for driver; its requests will never be answered", "driver", driver)
			continue
		}
		m.inputs.Add(m.subscribeInput(s, ResponseKind, driver))
	}
}

func (m *machine) subscribeInput(s stream.Stream, kind InputKind, name string) stream.Subscription {
	return s.Subscribe(stream.Funcs{
		OnNext: func(x interface{}) {
			in := Input{Kind: kind, Name: name, Data: x}
			m.q.Do(func() {
				m.input(in)
			})
		},
		OnError: func(err error) {
			m.q.Do(func() {
				m.fail(&SourceFailure{
					Source: name,
					Err:    err,
				})
			})
		},
	})
}

// input processes one input.  Called only from q.
func (m *machine) input(in Input) {
	if m.stopped {
		return
	}

	stride, err := m.f.table.Step(m.state, in)
	m.f.hooks.step(m.id, stride, err)
	if err != nil {
		m.fail(err)
		return
	}
	m.logStride(stride)

	if stride.To != nil {
		m.state = stride.To
	}
	if r := stride.Request; r != nil {
		m.outlets[r.Driver].push(r.Value)
	}
	if a := stride.Activation; a != nil {
		m.activate(a)
	}
}

func (m *machine) logStride(stride *Stride) {
	level := slog.LevelDebug
	if m.f.settings.Debug {
		level = slog.LevelInfo
	}
	switch {
	case stride.Discarded != "":
		m.log.Log(context.Background(), level, "discarded", "state", stride.From.Name, "input", stride.Input.String(), "why", stride.Discarded)
	case !stride.Consumed:
		m.log.Log(context.Background(), level, "no event guard satisfied", "state", stride.From.Name, "input", stride.Input.String())
	case stride.Request != nil:
		m.log.Log(context.Background(), level, "requested", "state", stride.From.Name, "input", stride.Input.String(), "driver", stride.Request.Driver)
	default:
		m.log.Log(context.Background(), level, "transitioned", "from", stride.From.Name, "to", stride.To.Name, "input", stride.Input.String(), "patches", len(stride.Patches))
	}
}

// fail stops the machine after sending err on every sink.  Called only
// from q.
func (m *machine) fail(err error) {
	if m.stopped {
		return
	}
	m.stopped = true
	m.log.Error("machine failed", "state", m.stateName(), "error", err)
	for _, name := range m.f.settings.SinkNames {
		m.outlets[name].terminate(err)
	}
	m.f.hooks.fail(m.id, err)
	m.halt()
}

func (m *machine) disconnect() {
	if m.stopped {
		return
	}
	m.stopped = true
	m.log.Debug("disconnecting", "state", m.stateName())
	m.halt()
	for _, name := range m.f.settings.SinkNames {
		m.outlets[name].terminate(nil)
	}
}

func (m *machine) halt() {
	m.inputs.Unsubscribe()
	for name, sub := range m.active {
		sub.Unsubscribe()
		delete(m.active, name)
	}
}
