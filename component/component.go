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

// Package component defines components (functions from named input
// streams to named output streams) and the reducer that combines a
// component's own sinks with its children's sinks.
package component

import (
	"sort"

	"github.com/Comcast/rxfsm/stream"
)

// Sources are a component's named input streams.
type Sources map[string]stream.Stream

// Sinks are a component's named output streams.
type Sinks map[string]stream.Stream

// Settings are the (read-only) settings a component is run with.
type Settings map[string]interface{}

// Component turns sources into sinks.
//
// A Component should do no work until its sinks are subscribed.
type Component func(sources Sources, settings Settings) Sinks

// Names returns the sink names in sorted order.
func (s Sinks) Names() []string {
	acc := make([]string, 0, len(s))
	for name := range s {
		acc = append(acc, name)
	}
	sort.Strings(acc)
	return acc
}

// Copy makes a shallow copy of the Settings.
func (s Settings) Copy() Settings {
	acc := make(Settings, len(s))
	for k, v := range s {
		acc[k] = v
	}
	return acc
}

// Empty is a component with no sinks.
func Empty(Sources, Settings) Sinks {
	return Sinks{}
}

// Const returns a component that emits the given value once on each
// of the named sinks.
func Const(x interface{}, sinkNames ...string) Component {
	return func(Sources, Settings) Sinks {
		acc := make(Sinks, len(sinkNames))
		for _, name := range sinkNames {
			acc[name] = stream.Of(x)
		}
		return acc
	}
}
