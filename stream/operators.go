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

// Of emits the given values and then completes.
func Of(xs ...interface{}) Stream {
	return Func(func(o Observer) Subscription {
		for _, x := range xs {
			o.Next(x)
		}
		o.Complete()
		return nil
	})
}

// Empty completes immediately.
func Empty() Stream {
	return Of()
}

// Never never emits anything.
func Never() Stream {
	return Func(func(o Observer) Subscription {
		return nil
	})
}

// Throw terminates immediately with the given error.
func Throw(err error) Stream {
	return Func(func(o Observer) Subscription {
		o.Error(err)
		return nil
	})
}

// Map applies f to every value.
func Map(s Stream, f func(x interface{}) interface{}) Stream {
	return Func(func(o Observer) Subscription {
		return s.Subscribe(Funcs{
			OnNext: func(x interface{}) {
				o.Next(f(x))
			},
			OnError:    o.Error,
			OnComplete: o.Complete,
		})
	})
}

// Filter passes the values for which the predicate is true.
func Filter(s Stream, p func(x interface{}) bool) Stream {
	return Func(func(o Observer) Subscription {
		return s.Subscribe(Funcs{
			OnNext: func(x interface{}) {
				if p(x) {
					o.Next(x)
				}
			},
			OnError:    o.Error,
			OnComplete: o.Complete,
		})
	})
}

// StartWith emits the given values before the values of s.
func StartWith(s Stream, xs ...interface{}) Stream {
	return Func(func(o Observer) Subscription {
		for _, x := range xs {
			o.Next(x)
		}
		return s.Subscribe(o)
	})
}

// Merge interleaves the values of all the given streams in arrival
// order.
//
// The merged stream completes when all inputs have completed, and it
// fails as soon as any input fails.
func Merge(ss ...Stream) Stream {
	return Func(func(o Observer) Subscription {
		if len(ss) == 0 {
			o.Complete()
			return nil
		}
		var (
			q         = &Queue{}
			g         = &Group{}
			remaining = len(ss)
		)
		for _, s := range ss {
			g.Add(s.Subscribe(Funcs{
				OnNext: func(x interface{}) {
					q.Do(func() { o.Next(x) })
				},
				OnError: func(err error) {
					q.Do(func() { o.Error(err) })
				},
				OnComplete: func() {
					q.Do(func() {
						if remaining--; remaining == 0 {
							o.Complete()
						}
					})
				},
			}))
		}
		return g
	})
}

// CombineLatest emits f(latest values) whenever any input emits, once
// every input has emitted at least once.
//
// The result completes when every input has completed or when an
// input completes without ever emitting.  It fails as soon as any
// input fails.
func CombineLatest(ss []Stream, f func(xs []interface{}) interface{}) Stream {
	return Func(func(o Observer) Subscription {
		if len(ss) == 0 {
			o.Complete()
			return nil
		}
		var (
			q         = &Queue{}
			g         = &Group{}
			latest    = make([]interface{}, len(ss))
			have      = make([]bool, len(ss))
			missing   = len(ss)
			remaining = len(ss)
		)
		for i, s := range ss {
			i := i
			g.Add(s.Subscribe(Funcs{
				OnNext: func(x interface{}) {
					q.Do(func() {
						latest[i] = x
						if !have[i] {
							have[i] = true
							missing--
						}
						if missing == 0 {
							xs := make([]interface{}, len(latest))
							copy(xs, latest)
							o.Next(f(xs))
						}
					})
				},
				OnError: func(err error) {
					q.Do(func() { o.Error(err) })
				},
				OnComplete: func() {
					q.Do(func() {
						remaining--
						if !have[i] || remaining == 0 {
							o.Complete()
						}
					})
				},
			}))
		}
		return g
	})
}
