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

// Package stream provides the small push-based stream vocabulary that
// components are written in.
//
// A Stream delivers values to an Observer until it sends a terminal
// notification (Error or Complete) or the Subscription returned by
// Subscribe is released.  Notifications to a single Observer never
// overlap: every multi-input operator in this package funnels its
// inputs through a Queue, which runs work one item at a time and
// defers re-entrant work until the current item is finished.
//
// Delivery is synchronous.  A value pushed into a Subject reaches its
// observers before Next returns unless another goroutine (or an outer
// frame of the same goroutine) is already draining that Subject.
package stream
