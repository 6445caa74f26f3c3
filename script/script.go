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

// Package script turns ECMAScript source into the functions a machine
// needs: guards, model updates, request factories and emitted values.
//
// A script is the body of a function, so it must "return" its result.
// The runtime exposes the following at "_":
//
//    model:     (a copy of) the current model.
//    event:     the event data (guards, updates and requests).
//    response:  the action response (action guards and updates).
//
// and these utilities:
//
//    randstr():       a random string.
//    esc(s):          URL query-escape the given string.
//    match(pat, x):   run the pattern matcher and return the bindings.
//    cronNext(expr):  the next time (RFC3339, UTC) for a cron expression.
//    log(x):          log x at debug level.
//
// Scripts are compiled once.  Every evaluation gets a fresh runtime.
package script

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/Comcast/rxfsm/core"
	"github.com/Comcast/rxfsm/match"
	"github.com/Comcast/rxfsm/patch"

	"github.com/dop251/goja"
	"github.com/google/uuid"
	"github.com/gorhill/cronexpr"
	"github.com/mitchellh/mapstructure"
)

var (
	// InterruptedMessage is the string value of Interrupted.
	InterruptedMessage = "RuntimeError: timeout"

	// Interrupted is returned when an evaluation runs past the
	// interpreter's Timeout.
	Interrupted = errors.New(InterruptedMessage)
)

// Interpreter compiles and runs scripts with goja, a Go implementation
// of ECMAScript 5.1+.
//
// See https://github.com/dop251/goja.
type Interpreter struct {
	// Timeout bounds each evaluation.  Zero means no bound.
	Timeout time.Duration

	// Testing exposes sleep(ms).
	Testing bool

	// Logger gets the output of log().  Nil means slog.Default().
	Logger *slog.Logger

	// Now is the clock used by cronNext.  Nil means time.Now.
	Now func() time.Time
}

// NewInterpreter makes an Interpreter with no timeout.
func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

// Program is a compiled script.
type Program struct {
	Src string
	p   *goja.Program
}

// CompileError reports a script that doesn't compile.
type CompileError struct {
	Src string
	Err error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("script compilation: %v: %s", e.Err, e.Src)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// ResultError reports a script that returned the wrong sort of thing.
type ResultError struct {
	Want string
	Got  interface{}
}

func (e *ResultError) Error() string {
	return fmt.Sprintf("script returned %#v (%T), not %s", e.Got, e.Got, e.Want)
}

func wrapSrc(src string) string {
	return fmt.Sprintf("(function() {\n%s\n}());\n", src)
}

// Compile compiles the source.
func (i *Interpreter) Compile(src string) (*Program, error) {
	p, err := goja.Compile("", wrapSrc(src), true)
	if err != nil {
		return nil, &CompileError{Src: src, Err: err}
	}
	return &Program{Src: src, p: p}, nil
}

// Env is what a script sees at "_".
type Env struct {
	Model    interface{}
	Event    interface{}
	Response interface{}
}

func (i *Interpreter) logger() *slog.Logger {
	if i.Logger == nil {
		return slog.Default()
	}
	return i.Logger
}

func (i *Interpreter) now() time.Time {
	if i.Now == nil {
		return time.Now()
	}
	return i.Now()
}

func protest(o *goja.Runtime, x interface{}) {
	panic(o.ToValue(x))
}

func export(x interface{}) interface{} {
	if v, is := x.(goja.Value); is {
		return v.Export()
	}
	return x
}

// Exec runs the program and returns its (canonicalized) result.
func (i *Interpreter) Exec(ctx context.Context, p *Program, e Env) (interface{}, error) {
	o := goja.New()

	env := map[string]interface{}{
		"model":    e.Model,
		"event":    e.Event,
		"response": e.Response,
	}

	env["randstr"] = func() interface{} {
		return uuid.NewString()
	}

	env["esc"] = func(x interface{}) interface{} {
		s, is := export(x).(string)
		if !is {
			protest(o, "not a string")
		}
		return url.QueryEscape(s)
	}

	env["cronNext"] = func(x interface{}) interface{} {
		s, is := export(x).(string)
		if !is {
			protest(o, "not a string")
		}
		c, err := cronexpr.Parse(s)
		if err != nil {
			protest(o, err.Error())
		}
		return c.Next(i.now()).UTC().Format(time.RFC3339Nano)
	}

	env["match"] = func(pat, x goja.Value) interface{} {
		p, err := patch.Canonicalize(pat.Export())
		if err != nil {
			protest(o, err.Error())
		}
		fact, err := patch.Canonicalize(x.Export())
		if err != nil {
			protest(o, err.Error())
		}
		bss, err := match.Match(p, fact, match.NewBindings())
		if err != nil {
			protest(o, err.Error())
		}
		acc := make([]interface{}, 0, len(bss))
		for _, bs := range bss {
			acc = append(acc, bs.Unquestion())
		}
		return acc
	}

	env["log"] = func(x interface{}) interface{} {
		x = export(x)
		js, err := json.Marshal(&x)
		if err != nil {
			i.logger().Debug("script log", "unmarshalable", fmt.Sprintf("%#v", x))
		} else {
			i.logger().Debug("script log", "value", string(js))
		}
		return x
	}

	if i.Testing {
		env["sleep"] = func(ms int) {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		}
	}

	if err := o.Set("_", env); err != nil {
		return nil, err
	}

	if i.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.Timeout)
		defer cancel()
	}

	// The goroutine ends when RunProgram returns.
	ictx, cancel := context.WithCancel(ctx)
	go func() {
		<-ictx.Done()
		o.Interrupt(InterruptedMessage)
	}()

	v, err := o.RunProgram(p.p)
	cancel()

	if err != nil {
		if _, is := err.(*goja.InterruptedError); is {
			return nil, Interrupted
		}
		return nil, err
	}

	return patch.Canonicalize(v.Export())
}

func (i *Interpreter) run(p *Program, e Env) (interface{}, error) {
	return i.Exec(context.Background(), p, e)
}

func (i *Interpreter) guard(src string, env func(model, data interface{}) Env) (core.Predicate, error) {
	p, err := i.Compile(src)
	if err != nil {
		return nil, err
	}
	return func(model, data interface{}) (bool, error) {
		x, err := i.run(p, env(model, data))
		if err != nil {
			return false, err
		}
		b, is := x.(bool)
		if !is {
			return false, &ResultError{Want: "a boolean", Got: x}
		}
		return b, nil
	}, nil
}

// EventGuard makes a predicate that sees the event data at _.event.
func (i *Interpreter) EventGuard(src string) (core.Predicate, error) {
	return i.guard(src, func(model, data interface{}) Env {
		return Env{Model: model, Event: data}
	})
}

// ActionGuard makes a predicate that sees the action response at
// _.response.
func (i *Interpreter) ActionGuard(src string) (core.Predicate, error) {
	return i.guard(src, func(model, data interface{}) Env {
		return Env{Model: model, Response: data}
	})
}

// ModelUpdate makes a model update from a script that returns an array
// of patch operations (or null for none).
func (i *Interpreter) ModelUpdate(src string) (core.ModelUpdate, error) {
	p, err := i.Compile(src)
	if err != nil {
		return nil, err
	}
	return func(model, event, response interface{}) ([]patch.Operation, error) {
		x, err := i.run(p, Env{Model: model, Event: event, Response: response})
		if err != nil {
			return nil, err
		}
		return Operations(x)
	}, nil
}

// Operations decodes a JSON array of patch operations.
func Operations(x interface{}) ([]patch.Operation, error) {
	switch x.(type) {
	case nil:
		return nil, nil
	case []interface{}:
	default:
		return nil, &ResultError{Want: "an array of operations", Got: x}
	}
	var ops []patch.Operation
	if err := mapstructure.Decode(x, &ops); err != nil {
		return nil, fmt.Errorf("bad operations: %w", err)
	}
	return ops, nil
}

// Request makes a request factory.
func (i *Interpreter) Request(src string) (core.RequestFactory, error) {
	p, err := i.Compile(src)
	if err != nil {
		return nil, err
	}
	return func(model, event interface{}) (interface{}, error) {
		return i.run(p, Env{Model: model, Event: event})
	}, nil
}

// Value makes a function of the model.  Entry components use these to
// compute their emitted values.
func (i *Interpreter) Value(src string) (func(model interface{}) (interface{}, error), error) {
	p, err := i.Compile(src)
	if err != nil {
		return nil, err
	}
	return func(model interface{}) (interface{}, error) {
		return i.run(p, Env{Model: model})
	}, nil
}
