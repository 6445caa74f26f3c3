package drivers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Comcast/rxfsm/component"
	"github.com/Comcast/rxfsm/stream"
	"github.com/Comcast/rxfsm/util"
	. "github.com/Comcast/rxfsm/util/testutil"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer that's safe to read while a driver
// writes.
type syncBuffer struct {
	sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.Lock()
	defer b.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.Lock()
	defer b.Unlock()
	return b.buf.String()
}

// doubler sends back twice every number it hears on "io".
func doubler(sources component.Sources, _ component.Settings) component.Sinks {
	return component.Sinks{
		"io": stream.Map(sources["io"], func(x interface{}) interface{} {
			return map[string]interface{}{
				"double": 2 * x.(map[string]interface{})["n"].(float64),
			}
		}),
	}
}

func TestRunStdio(t *testing.T) {
	var (
		out = &syncBuffer{}
		std = NewStdio(strings.NewReader("{\"n\":1}\n# comment\n\n{\"n\":2}\n"), out)
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-std.InputEOF
		cancel()
	}()

	err := Run(ctx, doubler, Drivers{"io": std.Driver()}, &Config{Logger: util.NopLogger()})
	require.NoError(t, err)
	assert.Equal(t, "{\"double\":2}\n{\"double\":4}\n", out.String())
}

func TestRunStdioTagsAndQuit(t *testing.T) {
	var (
		out = &syncBuffer{}
		std = NewStdio(strings.NewReader("{\"n\":3}\nquit\n{\"n\":4}\n"), out)
	)
	std.Tags = true
	std.EchoInput = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-std.InputEOF
		cancel()
	}()

	require.NoError(t, Run(ctx, doubler, Drivers{"io": std.Driver()}, nil))
	assert.Equal(t, "input {\"n\":3}\nemit {\"double\":6}\n", out.String())
}

func TestRunSinkError(t *testing.T) {
	boom := errors.New("boom")
	c := func(component.Sources, component.Settings) component.Sinks {
		return component.Sinks{
			"a": stream.Never(),
			"b": stream.Throw(boom),
		}
	}
	err := Run(context.Background(), c, nil, &Config{Logger: util.NopLogger()})

	var se *SinkError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, "b", se.Sink)
	assert.True(t, errors.Is(err, boom))
}

func TestRunCompletes(t *testing.T) {
	var logged []interface{}
	c := func(component.Sources, component.Settings) component.Sinks {
		return component.Sinks{
			"a": stream.Of(1, 2),
			"b": stream.Empty(),
		}
	}
	ds := Drivers{
		"a": func(ctx context.Context, requests stream.Stream) stream.Stream {
			requests.Subscribe(stream.Funcs{
				OnNext: func(x interface{}) { logged = append(logged, x) },
			})
			return nil
		},
	}
	require.NoError(t, Run(context.Background(), c, ds, &Config{Logger: util.NopLogger()}))
	assert.Equal(t, []interface{}{1, 2}, logged)
}

func TestTimers(t *testing.T) {
	ts := NewTimers()
	ts.Logger = util.NopLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	requests := stream.NewSubject()
	rec := NewRecorder()
	ts.Driver()(ctx, requests).Subscribe(rec)

	requests.Next(map[string]interface{}{"id": "t1", "in": "10ms", "message": "hi"})
	requests.Next(map[string]interface{}{"id": "t2", "in": "1h", "message": "never"})
	requests.Next(map[string]interface{}{"id": "t2", "cancel": true})

	require.True(t, rec.Wait(1, 5*time.Second))
	assert.Equal(t, []interface{}{"hi"}, rec.Values())
	assert.Equal(t, 0, ts.Pending())
}

func TestTimersDuplicate(t *testing.T) {
	ts := NewTimers()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, ts.Add(ctx, "x", 1, time.Hour))
	assert.Equal(t, Exists, ts.Add(ctx, "x", 1, time.Hour))
	require.NoError(t, ts.Rem("x"))
	assert.Equal(t, NotFound, ts.Rem("x"))
}

func TestCronBadExpression(t *testing.T) {
	_, err := Cron("not cron")
	assert.Error(t, err)
}

func TestCronEverySecond(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the clock")
	}
	s, err := Cron("* * * * * * *")
	require.NoError(t, err)

	rec := NewRecorder()
	sub := s.Subscribe(rec)
	defer sub.Unsubscribe()

	require.True(t, rec.Wait(1, 3*time.Second))
	_, err = time.Parse(time.RFC3339, rec.Values()[0].(string))
	assert.NoError(t, err)
}

func TestHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Method", r.Method)
		w.Write([]byte("hello " + r.URL.Query().Get("who")))
	}))
	defer srv.Close()

	h, err := NewHTTP()
	require.NoError(t, err)
	h.Logger = util.NopLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	requests := stream.NewSubject()
	rec := NewRecorder()
	h.Driver()(ctx, requests).Subscribe(rec)

	requests.Next(map[string]interface{}{
		"id":     "r1",
		"method": "POST",
		"url":    srv.URL + "/?who=world",
	})

	require.True(t, rec.Wait(1, 5*time.Second))
	resp := rec.Values()[0].(map[string]interface{})
	assert.Equal(t, "r1", resp["id"])
	assert.Equal(t, float64(200), resp["statusCode"])
	assert.Equal(t, "hello world", resp["body"])
	assert.Equal(t, []interface{}{"POST"}, resp["headers"].(map[string]interface{})["X-Method"])
}

func TestHTTPFailureIsAResponse(t *testing.T) {
	h, err := NewHTTP()
	require.NoError(t, err)

	resp := h.Do(context.Background(), &HTTPRequest{Id: "bad", URL: "http://[::1"})
	assert.Equal(t, "bad", resp.Id)
	assert.NotEmpty(t, resp.Error)
	assert.Equal(t, "bad", resp.Map()["id"])
}

func TestWebSocket(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, bs, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err = conn.WriteMessage(mt, bs); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ws := &WebSocket{
		URL:    "ws" + strings.TrimPrefix(srv.URL, "http"),
		Logger: util.NopLogger(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	requests := stream.NewSubject()
	rec := NewRecorder()
	ws.Driver()(ctx, requests).Subscribe(rec)

	requests.Next(map[string]interface{}{"say": "hi"})

	require.True(t, rec.Wait(1, 5*time.Second))
	assert.Equal(t, []interface{}{map[string]interface{}{"say": "hi"}}, rec.Values())
}

func TestWebSocketDialFailure(t *testing.T) {
	ws := &WebSocket{URL: "ws://127.0.0.1:1", Logger: util.NopLogger()}
	rec := NewRecorder()
	ws.Driver()(context.Background(), stream.Never()).Subscribe(rec)
	assert.Error(t, rec.Err())
}

func TestParseTopic(t *testing.T) {
	tests := []struct {
		in    string
		topic string
		qos   byte
	}{
		{"a/b", "a/b", 0},
		{"a/b:1", "a/b", 1},
		{"a/b:2", "a/b", 2},
		{"a/b:7", "a/b:7", 0},
		{"a:b", "a:b", 0},
	}
	for _, tt := range tests {
		topic, qos := ParseTopic(tt.in)
		assert.Equal(t, tt.topic, topic, tt.in)
		assert.Equal(t, tt.qos, qos, tt.in)
	}
}

func TestMQTTMessages(t *testing.T) {
	c := &MQTTConfig{
		InjectTopic:          true,
		WrapWithTopic:        true,
		DefaultOutboundTopic: "misc:1",
	}

	assert.Equal(t, map[string]interface{}{"n": float64(1), "topic": "t"},
		c.Incoming("t", []byte(`{"n":1}`)))
	assert.Equal(t, map[string]interface{}{"payload": "plain", "topic": "t"},
		c.Incoming("t", []byte(`plain`)))

	topic, qos, js, err := c.Outgoing(map[string]interface{}{
		"topic":   "here",
		"payload": map[string]interface{}{"x": 1},
	})
	require.NoError(t, err)
	assert.Equal(t, "here", topic)
	assert.Equal(t, byte(1), qos)
	assert.JSONEq(t, `{"x":1}`, string(js))

	topic, qos, js, err = c.Outgoing("just this")
	require.NoError(t, err)
	assert.Equal(t, "misc", topic)
	assert.Equal(t, byte(1), qos)
	assert.Equal(t, `"just this"`, string(js))
}
