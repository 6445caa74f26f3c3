package component

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Comcast/rxfsm/stream"
	. "github.com/Comcast/rxfsm/util/testutil"
)

func TestReduceOmitsEmptySinks(t *testing.T) {
	got := Reduce(Sinks{"A": stream.Of(1)}, []Sinks{{"B": stream.Of(2)}}, []string{"A", "B", "C"}, Policies{})
	assert.Equal(t, []string{"A", "B"}, got.Names())
}

func TestReduceMultiplex(t *testing.T) {
	own, kid := stream.NewSubject(), stream.NewSubject()
	got := Reduce(Sinks{"HTTP": own}, []Sinks{{"HTTP": kid}}, []string{"HTTP"}, Policies{})

	r := NewRecorder()
	got["HTTP"].Subscribe(r)
	own.Next("a")
	kid.Next("b")
	own.Next("c")

	assert.Equal(t, []interface{}{"a", "b", "c"}, r.Values())
}

func TestReduceDisplaySingleIsUnwrapped(t *testing.T) {
	node := VNode{Sel: "p", Text: "hi"}
	got := Reduce(nil, []Sinks{{DisplaySink: stream.Of(node)}, {}}, []string{DisplaySink}, Policies{})

	r := NewRecorder()
	got[DisplaySink].Subscribe(r)
	assert.Equal(t, []interface{}{node}, r.Values())
}

func TestReduceDisplayWrapsSeveral(t *testing.T) {
	a, b := stream.NewSubject(), stream.NewSubject()
	got := Reduce(Sinks{DisplaySink: a}, []Sinks{{DisplaySink: b}}, []string{DisplaySink}, Policies{})

	r := NewRecorder()
	got[DisplaySink].Subscribe(r)
	a.Next("a1")
	require.Empty(t, r.Values())
	b.Next("b1")
	a.Next("a2")

	assert.Equal(t, []interface{}{
		VNode{Sel: "div", Children: []interface{}{"a1", "b1"}},
		VNode{Sel: "div", Children: []interface{}{"a2", "b1"}},
	}, r.Values())
}

func TestReduceCustomDisplayName(t *testing.T) {
	ps := Policies{Display: "screen"}
	got := Reduce(Sinks{"screen": stream.Of("x")}, []Sinks{{"screen": stream.Of("y")}}, []string{"screen", DisplaySink}, ps)

	r := NewRecorder()
	got["screen"].Subscribe(r)
	assert.Equal(t, []interface{}{VNode{Sel: "div", Children: []interface{}{"x", "y"}}}, r.Values())
}

func TestReduceCustomPolicy(t *testing.T) {
	called := 0
	ps := Policies{
		Sinks: map[string]Policy{
			"log": {
				Kind: Custom,
				Merge: func(own stream.Stream, children []stream.Stream) stream.Stream {
					called++
					assert.Nil(t, own)
					assert.Len(t, children, 2)
					return children[1]
				},
			},
		},
	}
	got := Reduce(nil, []Sinks{{"log": stream.Of(1)}, {"log": stream.Of(2)}}, []string{"log"}, ps)
	require.Equal(t, 1, called)

	r := NewRecorder()
	got["log"].Subscribe(r)
	assert.Equal(t, []interface{}{2}, r.Values())
}

func TestReduceStructuralOverride(t *testing.T) {
	ps := Policies{
		Sinks: map[string]Policy{
			"panel": {Kind: Structural},
			DisplaySink: {Kind: Multiplex},
		},
	}
	got := Reduce(Sinks{"panel": stream.Of(1), DisplaySink: stream.Of(1)},
		[]Sinks{{"panel": stream.Of(2), DisplaySink: stream.Of(2)}},
		[]string{"panel", DisplaySink}, ps)

	panel, display := NewRecorder(), NewRecorder()
	got["panel"].Subscribe(panel)
	got[DisplaySink].Subscribe(display)

	assert.Equal(t, []interface{}{VNode{Sel: "div", Children: []interface{}{1, 2}}}, panel.Values())
	assert.Equal(t, []interface{}{1, 2}, display.Values())
}

func TestCompose(t *testing.T) {
	parent := Const("p", "A")
	kid := func(sources Sources, settings Settings) Sinks {
		return Sinks{
			"A": stream.Of(settings["greeting"]),
			"B": sources["in"],
		}
	}
	c := Compose(parent, []Component{kid, nil}, []string{"A", "B"}, Policies{})

	in := stream.NewSubject()
	sinks := c(Sources{"in": in}, Settings{"greeting": "hi"})

	a, b := NewRecorder(), NewRecorder()
	sinks["A"].Subscribe(a)
	sinks["B"].Subscribe(b)
	in.Next("x")

	assert.Equal(t, []interface{}{"p", "hi"}, a.Values())
	assert.True(t, a.Completed())
	assert.Equal(t, []interface{}{"x"}, b.Values())
}
