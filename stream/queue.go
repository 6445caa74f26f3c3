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

package stream

import "sync"

// Queue runs work items one at a time in the order they were added.
//
// Do runs the given item right away if nothing else is running.
// Otherwise the item is appended and Do returns; whoever is currently
// draining the Queue (another goroutine or an outer call on this
// goroutine's stack) will run it.  The zero value is ready to use.
type Queue struct {
	sync.Mutex
	pending  []func()
	draining bool
}

// Do adds the item and drains the Queue if nobody else is.
func (q *Queue) Do(f func()) {
	q.Lock()
	q.pending = append(q.pending, f)
	if q.draining {
		q.Unlock()
		return
	}
	q.draining = true
	q.Unlock()

	q.drain()
}

func (q *Queue) drain() {
	// If an item panics, let the next Do drain what's left.
	defer func() {
		if r := recover(); r != nil {
			q.Lock()
			q.draining = false
			q.Unlock()
			panic(r)
		}
	}()

	for {
		q.Lock()
		if len(q.pending) == 0 {
			q.draining = false
			q.pending = nil
			q.Unlock()
			return
		}
		f := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.Unlock()

		f()
	}
}

// Busy reports whether the Queue is currently draining.
func (q *Queue) Busy() bool {
	q.Lock()
	defer q.Unlock()
	return q.draining
}
