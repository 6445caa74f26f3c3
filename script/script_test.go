package script

import (
	"errors"
	"testing"
	"time"

	"github.com/Comcast/rxfsm/patch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventGuard(t *testing.T) {
	i := NewInterpreter()
	g, err := i.EventGuard(`return _.event.n > _.model.min;`)
	require.NoError(t, err)

	model := map[string]interface{}{"min": 2}

	ok, err := g(model, map[string]interface{}{"n": 3})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g(model, map[string]interface{}{"n": 1})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestActionGuardSeesResponse(t *testing.T) {
	i := NewInterpreter()
	g, err := i.ActionGuard(`return _.response === "ok" && _.event === null;`)
	require.NoError(t, err)

	ok, err := g(nil, "ok")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGuardMustReturnBoolean(t *testing.T) {
	i := NewInterpreter()
	g, err := i.EventGuard(`return "yes";`)
	require.NoError(t, err)

	_, err = g(nil, nil)
	var re *ResultError
	require.True(t, errors.As(err, &re), "got %v", err)
	assert.Equal(t, "yes", re.Got)
}

func TestModelUpdate(t *testing.T) {
	i := NewInterpreter()
	u, err := i.ModelUpdate(`
return [
  {op: "add", path: "/count", value: _.model.count + 1},
  {op: "add", path: "/last", value: _.response},
];`)
	require.NoError(t, err)

	ops, err := u(map[string]interface{}{"count": 1}, nil, "r")
	require.NoError(t, err)
	assert.Equal(t, []patch.Operation{
		{Op: patch.OpAdd, Path: "/count", Value: float64(2)},
		{Op: patch.OpAdd, Path: "/last", Value: "r"},
	}, ops)
}

func TestModelUpdateNull(t *testing.T) {
	i := NewInterpreter()
	u, err := i.ModelUpdate(`return null;`)
	require.NoError(t, err)

	ops, err := u(nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestModelUpdateBadResult(t *testing.T) {
	i := NewInterpreter()
	u, err := i.ModelUpdate(`return {op: "add"};`)
	require.NoError(t, err)

	_, err = u(nil, nil, nil)
	var re *ResultError
	assert.True(t, errors.As(err, &re))
}

func TestRequest(t *testing.T) {
	i := NewInterpreter()
	r, err := i.Request(`return {url: "/q?x=" + _.esc(_.event.q), id: _.model.id};`)
	require.NoError(t, err)

	x, err := r(map[string]interface{}{"id": "m1"}, map[string]interface{}{"q": "a b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"url": "/q?x=a+b", "id": "m1"}, x)
}

func TestValue(t *testing.T) {
	i := NewInterpreter()
	v, err := i.Value(`return "count is " + _.model.count;`)
	require.NoError(t, err)

	x, err := v(map[string]interface{}{"count": 3})
	require.NoError(t, err)
	assert.Equal(t, "count is 3", x)
}

func TestMatchUtility(t *testing.T) {
	i := NewInterpreter()
	v, err := i.Value(`return _.match({"likes": "?x"}, _.model);`)
	require.NoError(t, err)

	x, err := v(map[string]interface{}{"likes": "tacos", "wants": "chips"})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{
		map[string]interface{}{"x": "tacos"},
	}, x)
}

func TestCronNext(t *testing.T) {
	i := NewInterpreter()
	i.Now = func() time.Time {
		return time.Date(2019, 3, 1, 10, 30, 0, 0, time.UTC)
	}
	v, err := i.Value(`return _.cronNext("0 0 12 * * * *");`)
	require.NoError(t, err)

	x, err := v(nil)
	require.NoError(t, err)
	assert.Equal(t, "2019-03-01T12:00:00Z", x)
}

func TestRandstr(t *testing.T) {
	i := NewInterpreter()
	v, err := i.Value(`return [_.randstr(), _.randstr()];`)
	require.NoError(t, err)

	x, err := v(nil)
	require.NoError(t, err)
	xs := x.([]interface{})
	require.Len(t, xs, 2)
	assert.NotEqual(t, xs[0], xs[1])
}

func TestThrow(t *testing.T) {
	i := NewInterpreter()
	v, err := i.Value(`throw new Error("nope");`)
	require.NoError(t, err)

	_, err = v(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestCompileError(t *testing.T) {
	i := NewInterpreter()
	_, err := i.Value(`return (;`)
	var ce *CompileError
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, `return (;`, ce.Src)
}

func TestTimeout(t *testing.T) {
	i := NewInterpreter()
	i.Timeout = 50 * time.Millisecond
	v, err := i.Value(`for (;;) {}`)
	require.NoError(t, err)

	then := time.Now()
	_, err = v(nil)
	assert.Equal(t, Interrupted, err)
	assert.Less(t, time.Since(then), 5*time.Second)
}

func TestSleepNeedsTesting(t *testing.T) {
	i := NewInterpreter()
	v, err := i.Value(`_.sleep(1); return true;`)
	require.NoError(t, err)
	_, err = v(nil)
	assert.Error(t, err)

	i.Testing = true
	x, err := v(nil)
	require.NoError(t, err)
	assert.Equal(t, true, x)
}
