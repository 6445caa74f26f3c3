package drivers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Comcast/rxfsm/stream"
)

// Stdio writes requests as JSON lines and reads JSON lines as values.
//
// Blank lines and lines starting with '#' are skipped.  The source
// completes at EOF or on a line that's just "quit".
type Stdio struct {
	In  io.Reader
	Out io.Writer

	// EchoInput writes input lines (tagged "input") to Out.
	EchoInput bool

	// Tags prefixes output lines with "emit".
	Tags bool

	// Timestamps prepends a timestamp to each output line.
	Timestamps bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// InputEOF is closed when the input ends.
	InputEOF chan bool

	sync.Mutex
	eof sync.Once
}

// NewStdio makes a Stdio for the given input and output.
func NewStdio(in io.Reader, out io.Writer) *Stdio {
	return &Stdio{
		In:       in,
		Out:      out,
		InputEOF: make(chan bool),
	}
}

func (s *Stdio) ended() {
	s.eof.Do(func() {
		if s.InputEOF != nil {
			close(s.InputEOF)
		}
	})
}

func (s *Stdio) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Stdio) printf(tag, format string, args ...interface{}) {
	if s.Tags {
		format = tag + " " + format
	}
	if s.Timestamps {
		ts := fmt.Sprintf("%-31s", time.Now().UTC().Format(time.RFC3339Nano))
		format = ts + " " + format
	}
	s.Lock()
	fmt.Fprintf(s.Out, format, args...)
	s.Unlock()
}

// Driver returns the Driver.
func (s *Stdio) Driver() Driver {
	return func(ctx context.Context, requests stream.Stream) stream.Stream {
		sub := requests.Subscribe(stream.Funcs{
			OnNext: func(x interface{}) {
				js, err := json.Marshal(&x)
				if err != nil {
					s.logger().Error("stdio can't serialize", "error", err)
					return
				}
				s.printf("emit", "%s\n", js)
			},
		})
		go func() {
			<-ctx.Done()
			sub.Unsubscribe()
		}()

		return stream.Func(func(o stream.Observer) stream.Subscription {
			ictx, cancel := context.WithCancel(ctx)
			go s.read(ictx, o)
			return stream.SubscriptionFunc(cancel)
		})
	}
}

func (s *Stdio) read(ctx context.Context, o stream.Observer) {
	in := bufio.NewReader(s.In)
	for {
		line, err := in.ReadString('\n')
		if ctx.Err() != nil {
			return
		}
		if err != nil && err != io.EOF {
			o.Error(err)
			return
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "quit" {
			s.ended()
			o.Complete()
			return
		}
		if s.EchoInput && trimmed != "" {
			s.printf("input", "%s\n", trimmed)
		}
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			var x interface{}
			if jerr := json.Unmarshal([]byte(trimmed), &x); jerr != nil {
				s.logger().Warn("bad input", "line", trimmed, "error", jerr)
			} else {
				o.Next(x)
			}
		}
		if err == io.EOF {
			s.ended()
			o.Complete()
			return
		}
	}
}
