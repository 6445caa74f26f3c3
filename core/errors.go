package core

// These errors are user errors (a machine that's wrong or misused),
// not internal errors.

import (
	"errors"
	"fmt"
	"strings"
)

// GuardContractViolation occurs when no action guard accepts a value.
//
// For a pending machine, the value is the action response.  For a
// continuation without an action request, it's nil.
type GuardContractViolation struct {
	State        string
	Transition   string
	Continuation int
	Driver       string
	Response     interface{}
}

func (e *GuardContractViolation) Error() string {
	if e.Driver == "" {
		return fmt.Sprintf(`no action guard satisfied for continuation %d of transition "%s" in state "%s"`,
			e.Continuation, e.Transition, e.State)
	}
	return fmt.Sprintf(`no action guard satisfied by the response from "%s" for continuation %d of transition "%s" in state "%s"`,
		e.Driver, e.Continuation, e.Transition, e.State)
}

// UnconfiguredTransition occurs when an event arrives in a state that
// has no transition for it.
type UnconfiguredTransition struct {
	State string
	Event string
}

func (e *UnconfiguredTransition) Error() string {
	return `event "` + e.Event + `" not configured for state "` + e.State + `"`
}

// PatchFailure occurs when the patches from a model update can't be
// applied.
type PatchFailure struct {
	State      string
	Transition string
	Err        error
}

func (e *PatchFailure) Error() string {
	return fmt.Sprintf(`model update of transition "%s" from "%s" failed: %v`, e.Transition, e.State, e.Err)
}

func (e *PatchFailure) Unwrap() error {
	return e.Err
}

// Panic reports a user function that panicked.
type Panic struct {
	// Where names the function: "event guard", "model update" etc.
	Where string
	Value interface{}
}

func (e *Panic) Error() string {
	return fmt.Sprintf("%s panicked: %v", e.Where, e.Value)
}

// Unwrap returns the panic value if it's an error.
func (e *Panic) Unwrap() error {
	if err, is := e.Value.(error); is {
		return err
	}
	return nil
}

// InvalidMachine reports the problems found when checking a machine
// definition.
type InvalidMachine struct {
	Problems []string
}

func (e *InvalidMachine) Error() string {
	return "invalid machine: " + strings.Join(e.Problems, "; ")
}

// BadSettings occurs for missing or malformed machine settings.
type BadSettings struct {
	Setting string
	Err     error
}

func (e *BadSettings) Error() string {
	if e.Setting == "" {
		return fmt.Sprintf("bad settings: %v", e.Err)
	}
	return fmt.Sprintf(`bad setting "%s": %v`, e.Setting, e.Err)
}

func (e *BadSettings) Unwrap() error {
	return e.Err
}

// ComponentFailure occurs when an entry component's sink fails.
type ComponentFailure struct {
	State string
	Sink  string
	Err   error
}

func (e *ComponentFailure) Error() string {
	return fmt.Sprintf(`entry component of "%s" failed on sink "%s": %v`, e.State, e.Sink, e.Err)
}

func (e *ComponentFailure) Unwrap() error {
	return e.Err
}

// SourceFailure occurs when an event stream or a driver's response
// stream fails.
type SourceFailure struct {
	Source string
	Err    error
}

func (e *SourceFailure) Error() string {
	return fmt.Sprintf(`source "%s" failed: %v`, e.Source, e.Err)
}

func (e *SourceFailure) Unwrap() error {
	return e.Err
}

// ErrNil is returned by Step for a nil State.
var ErrNil = errors.New("nil state")
