package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Comcast/rxfsm/drivers"

	"gopkg.in/yaml.v2"
)

// Config is the optional configuration file for "run".
type Config struct {
	// Drivers maps driver names to kinds: io, log, timers or http.
	// The default is {io: io}.
	Drivers map[string]string `yaml:"drivers"`

	// MQTT configures the io driver for "--io mqtt".
	MQTT drivers.MQTTConfig `yaml:"mqtt"`

	// WebSocket is the URL for "--io ws".
	WebSocket string `yaml:"websocket"`

	// Journal and Metrics are defaults for the flags of the same
	// names.
	Journal string `yaml:"journal"`
	Metrics string `yaml:"metrics"`
}

// LoadConfig reads a YAML config file.  Unknown keys are errors.
func LoadConfig(filename string) (*Config, error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var c Config
	if err = yaml.UnmarshalStrict(bs, &c); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return &c, nil
}

// ioOpts say how to make the io driver.
type ioOpts struct {
	kind string
	tags bool
	echo bool

	// in and out default to stdin and stdout.
	in  io.Reader
	out io.Writer
}

// makeDrivers makes the configured drivers.  The returned channel,
// which is nil unless the io driver reads stdin, is closed when the
// input ends.
func (c *Config) makeDrivers(o ioOpts, log *slog.Logger) (drivers.Drivers, <-chan bool, error) {
	kinds := c.Drivers
	if len(kinds) == 0 {
		kinds = map[string]string{"io": "io"}
	}

	var (
		ds  = make(drivers.Drivers, len(kinds))
		eof <-chan bool
		ios = 0
	)
	for name, kind := range kinds {
		switch kind {
		case "io":
			if ios++; 1 < ios {
				return nil, nil, fmt.Errorf("driver %s: only one io driver", name)
			}
			d, ch, err := c.ioDriver(o, log)
			if err != nil {
				return nil, nil, fmt.Errorf("driver %s: %w", name, err)
			}
			ds[name] = d
			eof = ch
		case "log":
			ds[name] = drivers.Log(log, slog.LevelInfo, name)
		case "timers":
			ts := drivers.NewTimers()
			ts.Logger = log
			ds[name] = ts.Driver()
		case "http":
			h, err := drivers.NewHTTP()
			if err != nil {
				return nil, nil, err
			}
			h.Logger = log
			ds[name] = h.Driver()
		default:
			return nil, nil, fmt.Errorf("driver %s: unknown kind %q", name, kind)
		}
	}
	return ds, eof, nil
}

func (c *Config) ioDriver(o ioOpts, log *slog.Logger) (drivers.Driver, <-chan bool, error) {
	switch o.kind {
	case "", "std":
		in, out := o.in, o.out
		if in == nil {
			in = os.Stdin
		}
		if out == nil {
			out = os.Stdout
		}
		std := drivers.NewStdio(in, out)
		std.Tags = o.tags
		std.EchoInput = o.echo
		std.Logger = log
		return std.Driver(), std.InputEOF, nil
	case "mqtt":
		if c.MQTT.Broker == "" {
			return nil, nil, fmt.Errorf("mqtt needs a broker")
		}
		d := &drivers.MQTT{Config: &c.MQTT, Logger: log}
		return d.Driver(), nil, nil
	case "ws":
		if c.WebSocket == "" {
			return nil, nil, fmt.Errorf("ws needs a websocket URL")
		}
		d := &drivers.WebSocket{URL: c.WebSocket, Logger: log}
		return d.Driver(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown io %q", o.kind)
	}
}
