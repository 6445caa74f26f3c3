package drivers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Comcast/rxfsm/stream"

	"github.com/mitchellh/mapstructure"
)

var (
	Exists   = errors.New("id exists")
	NotFound = errors.New("not found")
)

// TimerRequest asks the Timers driver to emit a message later (or,
// with Cancel, to forget a timer).
type TimerRequest struct {
	Id      string      `json:"id" mapstructure:"id"`
	In      string      `json:"in,omitempty" mapstructure:"in"`
	Message interface{} `json:"message,omitempty" mapstructure:"message"`
	Cancel  bool        `json:"cancel,omitempty" mapstructure:"cancel"`
}

// TimerEntry is a pending timer.
type TimerEntry struct {
	Id      string      `json:"id"`
	Message interface{} `json:"message"`
	At      time.Time   `json:"at"`

	ctl chan bool
}

// Timers emits messages after delays.
type Timers struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger

	sync.Mutex
	timers map[string]*TimerEntry
	emit   func(x interface{})
}

// NewTimers makes an empty Timers.
func NewTimers() *Timers {
	return &Timers{
		timers: make(map[string]*TimerEntry, 32),
	}
}

func (ts *Timers) logger() *slog.Logger {
	if ts.Logger == nil {
		return slog.Default()
	}
	return ts.Logger
}

func (ts *Timers) MarshalJSON() ([]byte, error) {
	ts.Lock()
	m := map[string]interface{}{
		"map": ts.timers,
	}
	bs, err := json.Marshal(&m)
	ts.Unlock()
	return bs, err
}

// Pending returns the number of pending timers.
func (ts *Timers) Pending() int {
	ts.Lock()
	defer ts.Unlock()
	return len(ts.timers)
}

// Add schedules the message.
func (ts *Timers) Add(ctx context.Context, id string, message interface{}, in time.Duration) error {
	ts.Lock()
	defer ts.Unlock()

	if _, have := ts.timers[id]; have {
		return Exists
	}

	te := &TimerEntry{
		Id:      id,
		Message: message,
		At:      time.Now().UTC().Add(in),
		ctl:     make(chan bool),
	}

	ts.timers[id] = te

	go func() {
		timer := time.NewTimer(time.Until(te.At))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			ts.Rem(id)
		case <-te.ctl:
			// Only via Rem.
		case <-timer.C:
			ts.Lock()
			delete(ts.timers, id)
			emit := ts.emit
			ts.Unlock()
			ts.logger().Debug("timer firing", "id", id)
			if emit != nil {
				emit(te.Message)
			}
		}
	}()

	return nil
}

// Rem cancels the timer.
func (ts *Timers) Rem(id string) error {
	ts.Lock()
	defer ts.Unlock()

	te, have := ts.timers[id]
	if !have {
		return NotFound
	}
	delete(ts.timers, id)
	close(te.ctl)
	return nil
}

func (ts *Timers) handle(ctx context.Context, x interface{}) error {
	var req TimerRequest
	if err := mapstructure.Decode(x, &req); err != nil {
		return fmt.Errorf("bad timer request: %w", err)
	}
	if req.Id == "" {
		return errors.New("timer request without an id")
	}
	if req.Cancel {
		return ts.Rem(req.Id)
	}
	d, err := time.ParseDuration(req.In)
	if err != nil {
		return fmt.Errorf("bad timer delay %q: %w", req.In, err)
	}
	return ts.Add(ctx, req.Id, req.Message, d)
}

// Driver returns the Driver.  Timer messages go to the source's
// subscribers.
func (ts *Timers) Driver() Driver {
	return func(ctx context.Context, requests stream.Stream) stream.Stream {
		out := stream.NewSubject()
		ts.Lock()
		ts.emit = out.Next
		ts.Unlock()

		sub := requests.Subscribe(stream.Funcs{
			OnNext: func(x interface{}) {
				if err := ts.handle(ctx, x); err != nil {
					ts.logger().Warn("timer request failed", "request", x, "error", err)
				}
			},
		})
		go func() {
			<-ctx.Done()
			sub.Unsubscribe()
		}()
		return out
	}
}
