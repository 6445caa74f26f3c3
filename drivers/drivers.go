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

// Package drivers couples a component to the outside world.
//
// A Driver consumes the sink with its name (requests) and produces
// the source with its name (responses or events).  Run wires a set of
// Drivers to a component and runs it until failure, completion, or
// cancellation.
package drivers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Comcast/rxfsm/component"
	"github.com/Comcast/rxfsm/stream"
)

// Driver turns the stream of requests for a sink into the stream of
// values for the source of the same name.
//
// The context is cancelled when Run returns.
type Driver func(ctx context.Context, requests stream.Stream) stream.Stream

// Drivers are keyed by sink/source name.
type Drivers map[string]Driver

// Names returns the driver names in sorted order.
func (ds Drivers) Names() []string {
	acc := make([]string, 0, len(ds))
	for name := range ds {
		acc = append(acc, name)
	}
	sort.Strings(acc)
	return acc
}

// SinkError reports the failure of one of a component's sinks.
type SinkError struct {
	Sink string
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink %s: %v", e.Sink, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// Config is optional configuration for Run.
type Config struct {
	// Settings are given to the component.
	Settings component.Settings

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Run calls the component with the drivers' sources and subscribes to
// every sink it returns.  Values on a sink without a driver are
// logged.
//
// Run returns nil when every sink has completed or when the context
// is done, and a *SinkError when a sink fails.  Either way every sink
// is unsubscribed before Run returns.
func Run(ctx context.Context, c component.Component, ds Drivers, cfg *Config) error {
	if cfg == nil {
		cfg = &Config{}
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		names    = ds.Names()
		proxies  = make(map[string]*stream.Subject, len(ds))
		sources  = make(component.Sources, len(ds))
		requests = make(map[string]*stream.Subject, len(ds))
		g        = &stream.Group{}
	)
	defer g.Unsubscribe()

	for _, name := range names {
		proxies[name] = stream.NewSubject()
		sources[name] = proxies[name]
		requests[name] = stream.NewSubject()
	}

	sinks := c(sources, cfg.Settings)

	// Drivers see their requests before anything is subscribed to
	// the component, and their sources are subscribed after the
	// component's sinks.
	srcs := make(map[string]stream.Stream, len(ds))
	for _, name := range names {
		srcs[name] = ds[name](ctx, requests[name])
	}

	sinkNames := sinks.Names()

	var (
		done      = make(chan error, len(sinkNames))
		remaining = len(sinkNames)
	)
	for _, name := range sinkNames {
		name := name
		obs := stream.Funcs{
			OnError: func(err error) {
				done <- &SinkError{Sink: name, Err: err}
			},
			OnComplete: func() {
				done <- nil
			},
		}
		if r, have := requests[name]; have {
			obs.OnNext = r.Next
		} else {
			log.Debug("no driver for sink", "sink", name)
			obs.OnNext = func(x interface{}) {
				log.Info("unhandled", "sink", name, "value", x)
			}
		}
		g.Add(sinks[name].Subscribe(obs))
	}

	for _, name := range names {
		name, proxy, src := name, proxies[name], srcs[name]
		if src == nil {
			continue
		}
		g.Add(src.Subscribe(stream.Funcs{
			OnNext: proxy.Next,
			OnError: func(err error) {
				log.Warn("driver failed", "driver", name, "error", err)
				proxy.Error(err)
			},
		}))
	}

	if len(sinkNames) == 0 {
		<-ctx.Done()
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-done:
			if err != nil {
				var se *SinkError
				if errors.As(err, &se) {
					log.Error("sink failed", "sink", se.Sink, "error", se.Err)
				}
				return err
			}
			if remaining--; remaining == 0 {
				return nil
			}
		}
	}
}
