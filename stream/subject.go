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

// Subject is a hot Stream that is also an Observer: whatever is pushed
// into it goes to its current subscribers.
//
// A Subject that has terminated replays its terminal notification to
// late subscribers.  Pushes are serialized with a Queue, so a Subject
// can be fed from several goroutines.
type Subject struct {
	q Queue

	sync.Mutex
	observers []*subjectEntry
	done      bool
	err       error
}

type subjectEntry struct {
	o Observer
}

// NewSubject makes a Subject with no subscribers.
func NewSubject() *Subject {
	return &Subject{}
}

// Subscribe implements Stream.
func (s *Subject) Subscribe(o Observer) Subscription {
	return Func(s.subscribe).Subscribe(o)
}

func (s *Subject) subscribe(o Observer) Subscription {
	s.Lock()
	if s.done {
		err := s.err
		s.Unlock()
		if err != nil {
			o.Error(err)
		} else {
			o.Complete()
		}
		return nil
	}
	e := &subjectEntry{o: o}
	s.observers = append(s.observers, e)
	s.Unlock()

	return SubscriptionFunc(func() {
		s.Lock()
		for i, x := range s.observers {
			if x == e {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				break
			}
		}
		s.Unlock()
	})
}

// Observers returns the number of current subscribers.
func (s *Subject) Observers() int {
	s.Lock()
	defer s.Unlock()
	return len(s.observers)
}

func (s *Subject) snapshot() []*subjectEntry {
	s.Lock()
	defer s.Unlock()
	if s.done {
		return nil
	}
	acc := make([]*subjectEntry, len(s.observers))
	copy(acc, s.observers)
	return acc
}

// Next sends x to every current subscriber.
func (s *Subject) Next(x interface{}) {
	s.q.Do(func() {
		for _, e := range s.snapshot() {
			e.o.Next(x)
		}
	})
}

// Error terminates the Subject with the given error.
func (s *Subject) Error(err error) {
	s.terminate(err)
}

// Complete terminates the Subject normally.
func (s *Subject) Complete() {
	s.terminate(nil)
}

func (s *Subject) terminate(err error) {
	s.q.Do(func() {
		s.Lock()
		if s.done {
			s.Unlock()
			return
		}
		s.done = true
		s.err = err
		observers := s.observers
		s.observers = nil
		s.Unlock()

		for _, e := range observers {
			if err != nil {
				e.o.Error(err)
			} else {
				e.o.Complete()
			}
		}
	})
}
