package journal

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/Comcast/rxfsm/component"
	"github.com/Comcast/rxfsm/core"
	"github.com/Comcast/rxfsm/spec"
	"github.com/Comcast/rxfsm/stream"
	"github.com/Comcast/rxfsm/util"
	. "github.com/Comcast/rxfsm/util/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func open(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	j.Logger = util.NopLogger()
	t.Cleanup(func() { j.Close() })
	return j
}

func TestAppendRead(t *testing.T) {
	j := open(t)

	require.NoError(t, j.Append("m1", &Record{Error: "one"}))
	require.NoError(t, j.Append("m1", &Record{Error: "two"}))
	require.NoError(t, j.Append("m0", &Record{Error: "zero"}))

	ms, err := j.Machines()
	require.NoError(t, err)
	assert.Equal(t, []string{"m0", "m1"}, ms)

	rs, err := j.Read("m1")
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, uint64(1), rs[0].Seq)
	assert.Equal(t, "one", rs[0].Error)
	assert.Equal(t, uint64(2), rs[1].Seq)
	assert.False(t, rs[1].At.IsZero())

	_, err = j.Read("nope")
	assert.ErrorIs(t, err, NotFound)
}

func TestRemove(t *testing.T) {
	j := open(t)
	require.NoError(t, j.Append("m", &Record{}))
	require.NoError(t, j.Remove("m"))
	assert.ErrorIs(t, j.Remove("m"), NotFound)

	ms, err := j.Machines()
	require.NoError(t, err)
	assert.Empty(t, ms)
}

func TestRecordAndReplay(t *testing.T) {
	j := open(t)

	s, err := spec.Load("../spec/testdata/turnstile.yaml")
	require.NoError(t, err)
	m, err := s.Compile(nil)
	require.NoError(t, err)
	c, err := m.Make(
		core.WithLogger(util.NopLogger()),
		core.WithHooks(j.Hooks()),
		core.WithID("turnstile-1"))
	require.NoError(t, err)

	var (
		io      = stream.NewSubject()
		audit   = stream.NewSubject()
		sinks   = c(component.Sources{"io": io, "audit": audit}, nil)
		display = NewRecorder()
	)
	sinks["display"].Subscribe(display)
	sinks["audit"].Subscribe(NewRecorder())

	io.Next(map[string]interface{}{"coin": float64(25)})
	io.Next(map[string]interface{}{"push": true})
	audit.Next(map[string]interface{}{"ok": true})

	rs, err := j.Read("turnstile-1")
	require.NoError(t, err)
	require.Len(t, rs, 4)
	assert.Equal(t, core.InitEvent, rs[0].Stride.Input.Name)
	assert.Equal(t, "pay", rs[1].Stride.Transition)
	assert.Equal(t, core.ResponseKind, rs[3].Stride.Input.Kind)
	assert.Equal(t, "locked", rs[3].Stride.To.Name)

	inputs, err := j.Inputs("turnstile-1")
	require.NoError(t, err)
	require.Len(t, inputs, 3)

	table, err := m.Table()
	require.NoError(t, err)
	_, st, err := core.Replay(table, m.Settings, inputs)
	require.NoError(t, err)
	assert.Equal(t, "locked", st.Name)
	assert.Equal(t, map[string]interface{}{
		"coins":    float64(25),
		"lastPush": true,
	}, st.Model)
}

func TestRecordsFailure(t *testing.T) {
	j := open(t)
	h := j.Hooks()

	h.OnStep("m", nil, errors.New("bad step"))
	h.OnFail("m", errors.New("fatal"))

	rs, err := j.Read("m")
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Nil(t, rs[0].Stride)
	assert.Equal(t, "bad step", rs[0].Error)
	assert.True(t, rs[1].Fatal)

	inputs, err := j.Inputs("m")
	require.NoError(t, err)
	assert.Empty(t, inputs)
}
