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

package component

import (
	"fmt"

	"github.com/Comcast/rxfsm/stream"
)

// DisplaySink is the default name of the structural (display)
// channel.
var DisplaySink = "DOM"

// ContainerSel is the selector of the VNode that wraps several
// display contributions.
var ContainerSel = "div"

// VNode is an opaque display tree node.
//
// Nothing here renders a VNode.  The reducer only wraps several
// display contributions in a container node.
type VNode struct {
	Sel      string        `json:"sel"`
	Data     interface{}   `json:"data,omitempty"`
	Children []interface{} `json:"children,omitempty"`
	Text     string        `json:"text,omitempty"`
}

// MergeKind says how contributions to a sink are combined.
type MergeKind int

const (
	// Default is Structural for the display sink and Multiplex for
	// the others.
	Default MergeKind = iota

	// Multiplex interleaves all contributions in arrival order.
	Multiplex

	// Structural combines the latest value of every contribution.
	// One contribution goes through unwrapped; several are wrapped
	// in a container VNode.
	Structural

	// Custom uses the Policy's Merge function.
	Custom
)

func (k MergeKind) String() string {
	switch k {
	case Default:
		return "default"
	case Multiplex:
		return "multiplex"
	case Structural:
		return "structural"
	case Custom:
		return "custom"
	default:
		return fmt.Sprintf("MergeKind(%d)", int(k))
	}
}

// MergeFunc combines a component's own stream (which can be nil) with
// its children's streams for one sink.  The children streams are never
// nil.
type MergeFunc func(own stream.Stream, children []stream.Stream) stream.Stream

// Policy is the merge configuration for one sink.
type Policy struct {
	Kind MergeKind

	// Merge is required when Kind is Custom.
	Merge MergeFunc
}

// Policies configures a reduction.  The zero value uses DisplaySink
// and the default policies.
type Policies struct {
	// Display is the name of the structural channel.  DisplaySink is
	// used when Display is empty.
	Display string

	// Sinks gives the policies of individual sinks.
	Sinks map[string]Policy
}

func (ps Policies) display() string {
	if ps.Display == "" {
		return DisplaySink
	}
	return ps.Display
}

func (ps Policies) policy(name string) Policy {
	p, have := ps.Sinks[name]
	if !have || p.Kind == Default || (p.Kind == Custom && p.Merge == nil) {
		if name == ps.display() {
			return Policy{Kind: Structural}
		}
		return Policy{Kind: Multiplex}
	}
	return p
}

// Reduce merges own sinks with the children's sinks for each of the
// given sink names.
//
// Sink names without any contribution are omitted from the result.
func Reduce(own Sinks, children []Sinks, sinkNames []string, policies Policies) Sinks {
	acc := make(Sinks, len(sinkNames))
	for _, name := range sinkNames {
		var mine stream.Stream
		if own != nil {
			mine = own[name]
		}
		kids := make([]stream.Stream, 0, len(children))
		for _, sinks := range children {
			if s := sinks[name]; s != nil {
				kids = append(kids, s)
			}
		}
		if mine == nil && len(kids) == 0 {
			continue
		}

		switch p := policies.policy(name); p.Kind {
		case Custom:
			acc[name] = p.Merge(mine, kids)
		case Structural:
			acc[name] = structural(contributors(mine, kids))
		default:
			acc[name] = multiplex(contributors(mine, kids))
		}
	}
	return acc
}

func contributors(own stream.Stream, children []stream.Stream) []stream.Stream {
	if own == nil {
		return children
	}
	return append([]stream.Stream{own}, children...)
}

func multiplex(ss []stream.Stream) stream.Stream {
	if len(ss) == 1 {
		return ss[0]
	}
	return stream.Merge(ss...)
}

func structural(ss []stream.Stream) stream.Stream {
	if len(ss) == 1 {
		return ss[0]
	}
	return stream.CombineLatest(ss, func(xs []interface{}) interface{} {
		return VNode{
			Sel:      ContainerSel,
			Children: xs,
		}
	})
}

// Compose makes a component that runs the parent and the children on
// the same sources and settings and reduces their sinks.
func Compose(parent Component, children []Component, sinkNames []string, policies Policies) Component {
	return func(sources Sources, settings Settings) Sinks {
		var own Sinks
		if parent != nil {
			own = parent(sources, settings)
		}
		kids := make([]Sinks, 0, len(children))
		for _, c := range children {
			if c == nil {
				continue
			}
			kids = append(kids, c(sources, settings))
		}
		return Reduce(own, kids, sinkNames, policies)
	}
}
