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

// Package spec reads machine definitions written in YAML (or JSON) and
// compiles them into the values core.MakeFSM wants.
//
// A definition looks like
//
//    name: turnstile
//    sinks: [display, log]
//    initialModel: {coins: 0}
//    events:
//      coin: {source: io, pattern: {coin: "?amount"}}
//      push: {source: io, pattern: {push: true}}
//    states:
//      locked:
//        emit: {display: {value: locked}}
//      unlocked:
//        emit: {display: {pointer: /coins}}
//    transitions:
//      init:
//        from: INIT
//        to: [{then: [{target: locked}]}]
//      pay:
//        from: locked
//        event: coin
//        to:
//          - then:
//              - target: unlocked
//                update: {js: 'return [{op: "replace", path: "/coins", value: _.model.coins + _.event.coin}];'}
//
// Guards are {pattern: ...} (matched against the event data or the
// action response) or {js: ...}.
package spec

import (
	"fmt"
	"sort"

	"github.com/Comcast/rxfsm/core"

	"github.com/jsccast/yaml"
	"github.com/mitchellh/mapstructure"
)

// Spec is a machine definition.
type Spec struct {
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	Doc  string `json:"doc,omitempty" yaml:"doc,omitempty"`

	Sinks         []string    `json:"sinks" yaml:"sinks"`
	InitialModel  interface{} `json:"initialModel,omitempty" yaml:"initialModel,omitempty"`
	InitEventData interface{} `json:"initEventData,omitempty" yaml:"initEventData,omitempty"`
	Debug         bool        `json:"debug,omitempty" yaml:"debug,omitempty"`

	Events      map[string]*Event      `json:"events,omitempty" yaml:"events,omitempty"`
	States      map[string]*State      `json:"states,omitempty" yaml:"states,omitempty"`
	Transitions map[string]*Transition `json:"transitions" yaml:"transitions"`
}

// Event says where an event comes from.
//
// Exactly one of Source and Cron should be given.  Values from Source
// become events when they match Pattern (if any).
type Event struct {
	Doc     string      `json:"doc,omitempty" yaml:"doc,omitempty"`
	Source  string      `json:"source,omitempty" yaml:"source,omitempty"`
	Pattern interface{} `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Cron    string      `json:"cron,omitempty" yaml:"cron,omitempty"`
}

// State describes what a state's entry component emits.
type State struct {
	Doc  string           `json:"doc,omitempty" yaml:"doc,omitempty"`
	Emit map[string]*Emit `json:"emit,omitempty" yaml:"emit,omitempty"`
}

// Emit gives the value a state emits once on a sink when it's entered:
// a constant, the model value at a JSON pointer, or the result of a
// script.
type Emit struct {
	Value   interface{} `json:"value,omitempty" yaml:"value,omitempty"`
	Pointer string      `json:"pointer,omitempty" yaml:"pointer,omitempty"`
	JS      string      `json:"js,omitempty" yaml:"js,omitempty"`
}

// Transition is a rule for an event in a state.
type Transition struct {
	Doc   string          `json:"doc,omitempty" yaml:"doc,omitempty"`
	From  string          `json:"from" yaml:"from"`
	Event string          `json:"event,omitempty" yaml:"event,omitempty"`
	To    []*Continuation `json:"to" yaml:"to"`
}

// Continuation is one way to follow a transition.
type Continuation struct {
	Guard   *Guard        `json:"guard,omitempty" yaml:"guard,omitempty"`
	Request *Request      `json:"request,omitempty" yaml:"request,omitempty"`
	Then    []*Evaluation `json:"then" yaml:"then"`
}

// Guard is a pattern or a script.
type Guard struct {
	Pattern interface{} `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	JS      string      `json:"js,omitempty" yaml:"js,omitempty"`
}

// Request is an action request: a constant value or a script.
type Request struct {
	Driver string      `json:"driver" yaml:"driver"`
	Value  interface{} `json:"value,omitempty" yaml:"value,omitempty"`
	JS     string      `json:"js,omitempty" yaml:"js,omitempty"`
}

// Evaluation is one candidate resolution.
//
// Update is either a list of patch operations or {js: ...}.
type Evaluation struct {
	Guard  *Guard      `json:"guard,omitempty" yaml:"guard,omitempty"`
	Target string      `json:"target" yaml:"target"`
	Update interface{} `json:"update,omitempty" yaml:"update,omitempty"`
}

// Problem reports something wrong with a definition.
type Problem struct {
	Where string
	Err   error
}

func (p *Problem) Error() string {
	return fmt.Sprintf("%s: %v", p.Where, p.Err)
}

func (p *Problem) Unwrap() error {
	return p.Err
}

// Parse parses YAML (or JSON, which is YAML).
func Parse(src []byte) (*Spec, error) {
	var s Spec
	if err := yaml.Unmarshal(src, &s); err != nil {
		return nil, fmt.Errorf("bad machine definition: %w", err)
	}
	return &s, nil
}

// Load reads and parses the file after replacing '%inline("NAME")'
// with the contents of NAME.  This way scripts can live in their own
// files.
func Load(filename string) (*Spec, error) {
	bs, err := ReadFileWithInlines(filename)
	if err != nil {
		return nil, err
	}
	s, err := Parse(bs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if s.Name == "" {
		s.Name = filename
	}
	return s, nil
}

// FromMap decodes a definition given as a generic map (as found in a
// larger document).
func FromMap(m map[string]interface{}) (*Spec, error) {
	var s Spec
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "yaml",
		ErrorUnused: true,
		Result:      &s,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(m); err != nil {
		return nil, fmt.Errorf("bad machine definition: %w", err)
	}
	return &s, nil
}

// Settings returns the machine settings.
func (s *Spec) Settings() *core.Settings {
	return &core.Settings{
		InitialModel:  s.InitialModel,
		InitEventData: s.InitEventData,
		SinkNames:     s.Sinks,
		Debug:         s.Debug,
	}
}

// StateNames returns the names of the states that are declared or
// used by a transition, in sorted order.
func (s *Spec) StateNames() []string {
	seen := make(map[string]bool)
	for name := range s.States {
		seen[name] = true
	}
	for _, t := range s.Transitions {
		if t == nil {
			continue
		}
		seen[t.From] = true
		for _, c := range t.To {
			if c == nil {
				continue
			}
			for _, e := range c.Then {
				if e != nil {
					seen[e.Target] = true
				}
			}
		}
	}
	acc := make([]string, 0, len(seen))
	for name := range seen {
		acc = append(acc, name)
	}
	sort.Strings(acc)
	return acc
}

// TransitionNames returns the transition names in sorted order.
func (s *Spec) TransitionNames() []string {
	acc := make([]string, 0, len(s.Transitions))
	for name := range s.Transitions {
		acc = append(acc, name)
	}
	sort.Strings(acc)
	return acc
}

// EventName is the transition's event.  A transition from INIT
// without an event is for INIT.
func (t *Transition) EventName() string {
	if t.Event == "" && t.From == core.InitState {
		return core.InitEvent
	}
	return t.Event
}
