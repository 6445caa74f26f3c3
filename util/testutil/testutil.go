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

// Package testutil has helpers for tests of streams and machines.
package testutil

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// JS renders its argument as JSON or as a string indicating an error.
func JS(x interface{}) string {
	bs, err := json.Marshal(&x)
	if err != nil {
		return fmt.Sprintf("%#v", x)
	}
	return string(bs)
}

// Dwimjs, when given a string or bytes, parses that data as JSON.
// A string that isn't JSON is returned as is.  When given anything
// else, just returns what's given.
//
// See https://en.wikipedia.org/wiki/DWIM.
func Dwimjs(x interface{}) interface{} {
	switch vv := x.(type) {
	case []byte:
		return Dwimjs(string(vv))
	case string:
		var v interface{}
		if err := json.Unmarshal([]byte(vv), &v); err != nil {
			return vv
		}
		return v
	default:
		return x
	}
}

// Recorder is a stream Observer that remembers what it saw.
type Recorder struct {
	sync.Mutex
	values    []interface{}
	err       error
	completed bool
	changed   chan struct{}
}

// NewRecorder makes an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		changed: make(chan struct{}, 1),
	}
}

func (r *Recorder) poke() {
	select {
	case r.changed <- struct{}{}:
	default:
	}
}

func (r *Recorder) Next(x interface{}) {
	r.Lock()
	r.values = append(r.values, x)
	r.Unlock()
	r.poke()
}

func (r *Recorder) Error(err error) {
	r.Lock()
	r.err = err
	r.Unlock()
	r.poke()
}

func (r *Recorder) Complete() {
	r.Lock()
	r.completed = true
	r.Unlock()
	r.poke()
}

// Values returns a copy of the values seen so far.
func (r *Recorder) Values() []interface{} {
	r.Lock()
	defer r.Unlock()
	acc := make([]interface{}, len(r.values))
	copy(acc, r.values)
	return acc
}

// Err returns the terminal error (if any).
func (r *Recorder) Err() error {
	r.Lock()
	defer r.Unlock()
	return r.err
}

// Completed reports whether the stream completed normally.
func (r *Recorder) Completed() bool {
	r.Lock()
	defer r.Unlock()
	return r.completed
}

// Wait waits until the Recorder has seen at least n values or a
// terminal notification.  Returns false on timeout.
func (r *Recorder) Wait(n int, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		r.Lock()
		enough := n <= len(r.values) || r.err != nil || r.completed
		r.Unlock()
		if enough {
			return true
		}
		select {
		case <-r.changed:
		case <-deadline.C:
			return false
		}
	}
}
