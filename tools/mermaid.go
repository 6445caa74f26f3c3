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

package tools

import (
	"fmt"
	"io"
	"strings"

	"github.com/Comcast/rxfsm/core"
	"github.com/Comcast/rxfsm/spec"
)

type MermaidOpts struct {
	// Direction is the graph direction ("TB", "LR", ...).
	Direction string `json:"direction,omitempty"`

	// RequestFill is the fill color for states that make action
	// requests.  Empty means no styling.
	RequestFill string `json:"requestFill,omitempty"`

	// ShowGuards marks guarded edges.
	ShowGuards bool `json:"showGuards"`
}

var DefaultMermaidOpts = &MermaidOpts{
	Direction:   "TB",
	RequestFill: "#bcf2db",
	ShowGuards:  true,
}

// edgeLabel describes how a transition reaches one target.
func edgeLabel(t *spec.Transition, k *spec.Continuation, j int, showGuards bool) string {
	label := t.EventName()
	if showGuards && k.Guard != nil {
		label += " [guarded]"
	}
	if k.Request != nil {
		label += " / " + k.Request.Driver
		if 1 < len(k.Then) {
			label += fmt.Sprintf(" #%d", j)
		}
	}
	return label
}

func requesters(s *spec.Spec) map[string]bool {
	acc := make(map[string]bool)
	for _, t := range s.Transitions {
		if t == nil {
			continue
		}
		for _, k := range t.To {
			if k != nil && k.Request != nil {
				acc[t.From] = true
			}
		}
	}
	return acc
}

// Mermaid writes a Mermaid (https://mermaid.js.org/) flowchart of the
// definition.
//
// INIT is drawn as a circle, states that emit something as boxes and
// other states with rounded corners.  Output is deterministic.
func Mermaid(s *spec.Spec, w io.Writer, opts *MermaidOpts) error {
	if opts == nil {
		opts = DefaultMermaidOpts
	}
	dir := opts.Direction
	if dir == "" {
		dir = "TB"
	}

	var (
		b    strings.Builder
		nids = make(map[string]string)
		reqs = requesters(s)
	)
	fmt.Fprintf(&b, "graph %s\n", dir)

	for i, name := range s.StateNames() {
		nid := fmt.Sprintf("n%d", i+1)
		nids[name] = nid
		st := s.States[name]
		switch {
		case name == core.InitState:
			fmt.Fprintf(&b, "  %s((\"%s\"))\n", nid, name)
		case st != nil && 0 < len(st.Emit):
			fmt.Fprintf(&b, "  %s[\"%s\"]\n", nid, name)
		default:
			fmt.Fprintf(&b, "  %s(\"%s\")\n", nid, name)
		}
		if reqs[name] && opts.RequestFill != "" {
			fmt.Fprintf(&b, "  style %s fill:%s\n", nid, opts.RequestFill)
		}
	}

	for _, name := range s.TransitionNames() {
		t := s.Transitions[name]
		if t == nil {
			continue
		}
		for _, k := range t.To {
			if k == nil {
				continue
			}
			for j, e := range k.Then {
				if e == nil {
					continue
				}
				label := strings.Replace(edgeLabel(t, k, j, opts.ShowGuards), `"`, `'`, -1)
				fmt.Fprintf(&b, "  %s -- \"%s\" --> %s\n", nids[t.From], label, nids[e.Target])
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
