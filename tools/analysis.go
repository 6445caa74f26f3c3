/* Copyright 2018 Comcast Cable Communications Management, LLC
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

// Package tools has utilities for machine definitions: analysis,
// graphs, HTML documentation and scripted test sessions.
package tools

import (
	"fmt"
	"sort"

	"github.com/Comcast/rxfsm/core"
	"github.com/Comcast/rxfsm/spec"
)

// Analysis summarizes a definition and reports likely mistakes.
type Analysis struct {
	States        int `json:"states"`
	Transitions   int `json:"transitions"`
	Continuations int `json:"continuations"`
	Evaluations   int `json:"evaluations"`
	Requests      int `json:"requests"`
	Guards        int `json:"guards"`
	Scripts       int `json:"scripts"`

	// Terminal states have no transitions out.
	Terminal []string `json:"terminal,omitempty"`

	// Unreachable states are never a target.
	Unreachable []string `json:"unreachable,omitempty"`

	// MissingStates are targets without a declared state, which
	// won't have an entry component.
	MissingStates []string `json:"missingStates,omitempty"`

	// UnknownEvents are named by transitions but not declared.
	UnknownEvents []string `json:"unknownEvents,omitempty"`

	// UnusedEvents are declared but no transition uses them.
	UnusedEvents []string `json:"unusedEvents,omitempty"`

	// Drivers are the drivers of action requests.
	Drivers []string `json:"drivers,omitempty"`

	// Errors are problems that will stop the machine from being
	// made.
	Errors []string `json:"errors,omitempty"`
}

// Analyze looks at a definition without compiling it.
func Analyze(s *spec.Spec) *Analysis {
	var (
		a = &Analysis{
			States:      len(s.StateNames()),
			Transitions: len(s.Transitions),
		}
		targeted   = make(map[string]bool)
		origins    = make(map[string]bool)
		usedEvents = make(map[string]bool)
		unknown    = make(map[string]bool)
		missing    = make(map[string]bool)
		drivers    = make(map[string]bool)
		sinks      = make(map[string]bool, len(s.Sinks))
		seen       = make(map[[2]string]string)
		hasInit    = false
	)
	for _, name := range s.Sinks {
		sinks[name] = true
	}

	guard := func(g *spec.Guard) {
		if g == nil {
			return
		}
		a.Guards++
		if g.JS != "" {
			a.Scripts++
		}
	}

	for _, name := range s.TransitionNames() {
		t := s.Transitions[name]
		if t == nil {
			continue
		}
		origins[t.From] = true
		event := t.EventName()
		if t.From == core.InitState {
			hasInit = true
		}
		key := [2]string{t.From, event}
		if other, have := seen[key]; have {
			a.Errors = append(a.Errors, fmt.Sprintf("transitions %s and %s are both for %q in %q", other, name, event, t.From))
		}
		seen[key] = name
		if event != core.InitEvent {
			if _, have := s.Events[event]; have {
				usedEvents[event] = true
			} else {
				unknown[event] = true
			}
		}

		for _, k := range t.To {
			if k == nil {
				continue
			}
			a.Continuations++
			guard(k.Guard)
			if r := k.Request; r != nil {
				a.Requests++
				if r.JS != "" {
					a.Scripts++
				}
				drivers[r.Driver] = true
				if !sinks[r.Driver] {
					a.Errors = append(a.Errors, fmt.Sprintf("transition %s requests from %q, which isn't a sink", name, r.Driver))
				}
			}
			for _, e := range k.Then {
				if e == nil {
					continue
				}
				a.Evaluations++
				guard(e.Guard)
				if m, is := e.Update.(map[string]interface{}); is && m["js"] != nil {
					a.Scripts++
				}
				targeted[e.Target] = true
				if _, have := s.States[e.Target]; !have {
					missing[e.Target] = true
				}
			}
		}
	}

	if !hasInit {
		a.Errors = append(a.Errors, "no transition from INIT")
	}
	for event := range unknown {
		a.Errors = append(a.Errors, fmt.Sprintf("event %q isn't declared", event))
	}
	for state := range missing {
		a.Errors = append(a.Errors, fmt.Sprintf("state %q has no entry component", state))
	}

	var terminal, unreachable []string
	for _, name := range s.StateNames() {
		if !origins[name] {
			terminal = append(terminal, name)
		}
		if name != core.InitState && !targeted[name] {
			unreachable = append(unreachable, name)
		}
	}
	var unused []string
	for name := range s.Events {
		if !usedEvents[name] {
			unused = append(unused, name)
		}
	}

	a.Terminal = terminal
	a.Unreachable = unreachable
	a.MissingStates = keys(missing)
	a.UnknownEvents = keys(unknown)
	a.Drivers = keys(drivers)
	sort.Strings(unused)
	a.UnusedEvents = unused
	sort.Strings(a.Errors)

	return a
}

// keys returns the sorted keys of the map.
func keys(m map[string]bool) []string {
	var acc []string
	for k := range m {
		acc = append(acc, k)
	}
	sort.Strings(acc)
	return acc
}
