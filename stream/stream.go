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

import (
	"sync"
	"sync/atomic"
)

// Observer receives the notifications of a Stream.
//
// After Error or Complete, an Observer receives nothing else.
type Observer interface {
	Next(x interface{})
	Error(err error)
	Complete()
}

// Funcs makes an Observer out of optional functions.
type Funcs struct {
	OnNext     func(x interface{})
	OnError    func(err error)
	OnComplete func()
}

func (f Funcs) Next(x interface{}) {
	if f.OnNext != nil {
		f.OnNext(x)
	}
}

func (f Funcs) Error(err error) {
	if f.OnError != nil {
		f.OnError(err)
	}
}

func (f Funcs) Complete() {
	if f.OnComplete != nil {
		f.OnComplete()
	}
}

// Subscription releases whatever a subscription holds.
//
// Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe()
}

// SubscriptionFunc is a Subscription that calls the function (at most
// once).
func SubscriptionFunc(f func()) Subscription {
	return &funcSubscription{f: f}
}

type funcSubscription struct {
	once sync.Once
	f    func()
}

func (s *funcSubscription) Unsubscribe() {
	s.once.Do(func() {
		if s.f != nil {
			s.f()
		}
	})
}

// Stream is something that can be subscribed to.
type Stream interface {
	Subscribe(o Observer) Subscription
}

// Func is a Stream given by a subscribe function.
//
// The function receives an Observer that enforces the Observer
// contract (nothing after a terminal notification or after
// Unsubscribe) and returns the teardown (which can be nil).  The
// teardown runs when the subscriber unsubscribes or right after a
// terminal notification, whichever comes first.
type Func func(o Observer) Subscription

// Subscribe implements Stream.
func (f Func) Subscribe(o Observer) Subscription {
	s := &safeObserver{o: o}
	s.attach(f(s))
	return s
}

// safeObserver guards an Observer and owns the teardown of one
// subscription.
type safeObserver struct {
	o    Observer
	done atomic.Bool

	sync.Mutex
	released bool
	teardown Subscription
}

func (s *safeObserver) Next(x interface{}) {
	if s.done.Load() {
		return
	}
	s.o.Next(x)
}

func (s *safeObserver) Error(err error) {
	if !s.done.CompareAndSwap(false, true) {
		return
	}
	s.o.Error(err)
	s.release()
}

func (s *safeObserver) Complete() {
	if !s.done.CompareAndSwap(false, true) {
		return
	}
	s.o.Complete()
	s.release()
}

// Unsubscribe implements Subscription.
func (s *safeObserver) Unsubscribe() {
	s.done.Store(true)
	s.release()
}

func (s *safeObserver) attach(teardown Subscription) {
	if teardown == nil {
		return
	}
	s.Lock()
	if s.released {
		s.Unlock()
		teardown.Unsubscribe()
		return
	}
	s.teardown = teardown
	s.Unlock()
}

func (s *safeObserver) release() {
	s.Lock()
	t := s.teardown
	s.teardown = nil
	s.released = true
	s.Unlock()
	if t != nil {
		t.Unsubscribe()
	}
}

// Group is a Subscription that releases a set of Subscriptions.
//
// A Subscription added after the Group has been released is released
// immediately.
type Group struct {
	sync.Mutex
	subs     []Subscription
	released bool
}

// Add adds a Subscription (which can be nil) to the Group.
func (g *Group) Add(sub Subscription) {
	if sub == nil {
		return
	}
	g.Lock()
	if g.released {
		g.Unlock()
		sub.Unsubscribe()
		return
	}
	g.subs = append(g.subs, sub)
	g.Unlock()
}

// Unsubscribe releases every Subscription in the Group.
func (g *Group) Unsubscribe() {
	g.Lock()
	subs := g.subs
	g.subs = nil
	g.released = true
	g.Unlock()
	for _, sub := range subs {
		sub.Unsubscribe()
	}
}
