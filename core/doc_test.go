/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
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
	"fmt"

	"github.com/Comcast/rxfsm/patch"
	. "github.com/Comcast/rxfsm/util/testutil"
)

// Example demonstrates Replay()ing a turnstile.
func Example() {
	pay := func(model, data, _ interface{}) ([]patch.Operation, error) {
		coins := model.(map[string]interface{})["coins"].(float64)
		return []patch.Operation{
			patch.Replace("/coins", coins+float64(data.(int))),
		}, nil
	}

	table, err := NewTable(Transitions{
		"start": {
			OriginState: InitState,
			Event:       InitEvent,
			TargetStates: []*Continuation{
				{Evaluations: []*Evaluation{{TargetState: "locked"}}},
			},
		},
		"pay": {
			OriginState: "locked",
			Event:       "coin",
			TargetStates: []*Continuation{
				{Evaluations: []*Evaluation{{TargetState: "unlocked", ModelUpdate: pay}}},
			},
		},
		"pass": {
			OriginState: "unlocked",
			Event:       "push",
			TargetStates: []*Continuation{
				{Evaluations: []*Evaluation{{TargetState: "locked"}}},
			},
		},
	})
	if err != nil {
		panic(err)
	}

	settings := &Settings{
		InitialModel: map[string]interface{}{"coins": 0},
		SinkNames:    []string{"DOM"},
	}

	strides, _, err := Replay(table, settings, []Input{
		EventInput("coin", 25),
		EventInput("push", nil),
		EventInput("coin", 50),
	})
	if err != nil {
		panic(err)
	}

	for _, s := range strides {
		fmt.Printf("%s %s -> %s %s\n", s.Input, s.From.Name, s.Activation.State, JS(s.Activation.Model))
	}

	// Output:
	// event:INIT INIT -> locked {"coins":0}
	// event:coin locked -> unlocked {"coins":25}
	// event:push unlocked -> locked {"coins":25}
	// event:coin locked -> unlocked {"coins":75}
}
