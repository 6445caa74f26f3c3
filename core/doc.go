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

// Package core provides a finite-state-machine component: a
// declarative machine whose model is changed only through patches,
// which can issue action requests to drivers and which activates an
// entry component whenever it enters a state.
//
// A machine is given by Events (named event stream factories),
// Transitions (rules keyed by origin state and event) and
// EntryComponents (a component factory per state).  The primary
// operations are Table.Step, a pure function that moves a State
// forward given one Input, and MakeFSM, which wires Step to live
// streams and returns a component.Component.
//
// Every machine starts in the INIT state and receives the INIT event
// (carrying the init_event_data setting) once, when it's connected.
// The transition out of INIT is how a machine picks its first real
// state.
//
// When a continuation has an action request, Step emits the request on
// the sink named by the request's driver and the machine becomes
// pending.  While pending the machine accepts only a response from
// that driver (read from the source of the same name).  Everything
// else is discarded.  The response selects the continuation's first
// evaluation whose action guard holds, and that evaluation's model
// update and target state finish the transition.
//
// An event whose event guards all fail does nothing at all.  Every
// other problem (an unconfigured state/event pair, a response that no
// action guard accepts, a failing user function, a failing patch) is
// fatal: the machine sends the error on every sink and stops.
//
// See https://github.com/Comcast/sheens for the message-processing
// machines this package grew out of.
package core
