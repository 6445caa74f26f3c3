package spec

import (
	"strings"
	"testing"

	"github.com/Comcast/rxfsm/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInline(t *testing.T) {
	input := `
I like %inline("tacos"), and
I also like %inline ("queso").
Both are delicious.
`
	want := `
I like TACOS, and
I also like QUESO.
Both are delicious.
`
	got, err := Inline([]byte(input), func(name string) ([]byte, error) {
		return []byte(strings.ToUpper(name)), nil
	})
	require.NoError(t, err)
	assert.Equal(t, want, string(got))
}

func TestLoadInlines(t *testing.T) {
	s, err := Load("testdata/inline.yaml")
	require.NoError(t, err)
	assert.Equal(t, "return 0 < _.event.n;", s.Transitions["check"].To[0].Guard.JS)

	m, err := s.Compile(nil)
	require.NoError(t, err)
	table, err := m.Table()
	require.NoError(t, err)

	_, st, err := core.Replay(table, m.Settings, []core.Input{
		core.EventInput("n", float64(-1)),
		core.EventInput("n", float64(3)),
	})
	require.NoError(t, err)
	assert.Equal(t, "pos", st.Name)
}

func TestInlineMissingFile(t *testing.T) {
	_, err := Inline([]byte(`%inline("nope")`), func(name string) ([]byte, error) {
		return ReadFileWithInlines("testdata/" + name)
	})
	assert.Error(t, err)
}
