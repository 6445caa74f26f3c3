package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Comcast/rxfsm/component"
	"github.com/Comcast/rxfsm/core"
	"github.com/Comcast/rxfsm/match"
	"github.com/Comcast/rxfsm/patch"
	"github.com/Comcast/rxfsm/script"
	"github.com/Comcast/rxfsm/stream"

	"github.com/jsccast/yaml"
)

// Input is a value to send on a source.
type Input struct {
	Source string      `json:"source" yaml:"source"`
	Value  interface{} `json:"value" yaml:"value"`
}

// Output describes a value that's expected on a sink.
type Output struct {
	// Doc is an opaque documentation string.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	Sink string `json:"sink" yaml:"sink"`

	// Pattern must be matched by an emitted value.
	Pattern interface{} `json:"pattern,omitempty" yaml:"pattern,omitempty"`

	// JS is an optional guard that sees the pattern's bindings (without
	// the '?'s) at _.model and the value at _.event.
	JS string `json:"js,omitempty" yaml:"js,omitempty"`

	guard core.Predicate
}

// IO is a batch of inputs and the set (not a list) of outputs they
// should cause.
type IO struct {
	Doc       string    `json:"doc,omitempty" yaml:"doc,omitempty"`
	Inputs    []Input   `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	OutputSet []*Output `json:"outputSet,omitempty" yaml:"outputSet,omitempty"`
	Timeout   string    `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Session is a sequence of IOs run against one component.
type Session struct {
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`
	IOs []*IO  `json:"ios" yaml:"ios"`

	// DefaultTimeout is the timeout for an IO without its own.
	// Timeouts are durations like "2s".
	DefaultTimeout string `json:"defaultTimeout,omitempty" yaml:"defaultTimeout,omitempty"`

	Logger *slog.Logger `json:"-" yaml:"-"`
}

// Unmet reports the outputs an IO didn't see.
type Unmet struct {
	IO      int
	Outputs []string
	Err     error
}

func (e *Unmet) Error() string {
	why := "timeout"
	if e.Err != nil {
		why = e.Err.Error()
	}
	return fmt.Sprintf("io %d (%s): didn't see %s", e.IO, why, strings.Join(e.Outputs, ", "))
}

func (e *Unmet) Unwrap() error {
	return e.Err
}

var ErrNoTimeout = errors.New("no timeout")

// LoadSession reads a session from a YAML file.
func LoadSession(filename string) (*Session, error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var s Session
	if err = yaml.Unmarshal(bs, &s); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return &s, nil
}

func (s *Session) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (o *Output) String() string {
	if o.Doc != "" {
		return o.Doc
	}
	return o.Sink + " " + fmt.Sprint(o.Pattern)
}

func (o *Output) matches(x interface{}) (bool, error) {
	bss, err := match.Match(o.Pattern, x, nil)
	if err != nil || len(bss) == 0 {
		return false, err
	}
	if o.guard == nil {
		return true, nil
	}
	for _, bs := range bss {
		ok, err := o.guard(bs.Unquestion(), x)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

type emitted struct {
	sink  string
	value interface{}
}

// collector gathers what the sinks emit.
type collector struct {
	sync.Mutex
	values  []emitted
	err     error
	changed chan struct{}
}

func (c *collector) add(e emitted, err error) {
	c.Lock()
	if err != nil {
		if c.err == nil {
			c.err = err
		}
	} else {
		c.values = append(c.values, e)
	}
	c.Unlock()
	select {
	case c.changed <- struct{}{}:
	default:
	}
}

func (c *collector) since(i int) ([]emitted, error) {
	c.Lock()
	defer c.Unlock()
	return c.values[i:], c.err
}

// Run runs the IOs of the session against the component, which gets a
// source for every source named by an input.
//
// The values a sink emits before an IO's outputs are all seen are
// consumed by that IO.  A sink error ends the session.
func (s *Session) Run(ctx context.Context, c component.Component, settings component.Settings) error {
	i := script.NewInterpreter()
	subjects := make(map[string]*stream.Subject)
	sources := make(component.Sources)
	for n, io := range s.IOs {
		for _, in := range io.Inputs {
			if _, have := subjects[in.Source]; !have {
				subjects[in.Source] = stream.NewSubject()
				sources[in.Source] = subjects[in.Source]
			}
		}
		for _, o := range io.OutputSet {
			p, err := patch.Canonicalize(o.Pattern)
			if err != nil {
				return fmt.Errorf("io %d output %s: %w", n, o, err)
			}
			o.Pattern = p
			if o.JS == "" {
				continue
			}
			g, err := i.EventGuard(o.JS)
			if err != nil {
				return fmt.Errorf("io %d output %s: %w", n, o, err)
			}
			o.guard = g
		}
	}

	col := &collector{changed: make(chan struct{}, 1)}
	sinks := c(sources, settings)
	var subs stream.Group
	defer subs.Unsubscribe()
	for _, name := range sinks.Names() {
		name := name
		subs.Add(sinks[name].Subscribe(stream.Funcs{
			OnNext: func(x interface{}) {
				col.add(emitted{sink: name, value: x}, nil)
			},
			OnError: func(err error) {
				col.add(emitted{}, fmt.Errorf("sink %s: %w", name, err))
			},
		}))
	}

	cursor := 0
	for n, io := range s.IOs {
		timeout, err := s.timeout(io)
		if err != nil {
			return fmt.Errorf("io %d: %w", n, err)
		}

		for _, in := range io.Inputs {
			x, err := patch.Canonicalize(in.Value)
			if err != nil {
				return fmt.Errorf("io %d input: %w", n, err)
			}
			s.logger().Debug("input", "io", n, "source", in.Source)
			subjects[in.Source].Next(x)
		}

		if err := s.await(ctx, n, io, col, &cursor, timeout); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) timeout(io *IO) (time.Duration, error) {
	src := io.Timeout
	if src == "" {
		src = s.DefaultTimeout
	}
	if src == "" {
		return 0, ErrNoTimeout
	}
	d, err := time.ParseDuration(src)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, ErrNoTimeout
	}
	return d, nil
}

func (s *Session) await(ctx context.Context, n int, io *IO, col *collector, cursor *int, timeout time.Duration) error {
	var (
		need  = make(map[*Output]bool, len(io.OutputSet))
		timer = time.NewTimer(timeout)
	)
	defer timer.Stop()
	for _, o := range io.OutputSet {
		need[o] = true
	}
	unmet := func(err error) error {
		acc := &Unmet{IO: n, Err: err}
		for _, o := range io.OutputSet {
			if need[o] {
				acc.Outputs = append(acc.Outputs, o.String())
			}
		}
		return acc
	}

	remaining := len(io.OutputSet)
	for {
		es, err := col.since(*cursor)
		for _, e := range es {
			if remaining == 0 {
				break
			}
			*cursor++
			for _, o := range io.OutputSet {
				if !need[o] || o.Sink != e.sink {
					continue
				}
				ok, err := o.matches(e.value)
				if err != nil {
					return unmet(err)
				}
				if ok {
					need[o] = false
					remaining--
					s.logger().Debug("matched", "io", n, "output", o.String())
					break
				}
			}
		}
		if remaining == 0 {
			return nil
		}
		if err != nil {
			return unmet(err)
		}

		select {
		case <-ctx.Done():
			return unmet(ctx.Err())
		case <-timer.C:
			return unmet(nil)
		case <-col.changed:
		}
	}
}
