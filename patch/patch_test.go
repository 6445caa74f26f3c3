package patch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func model() map[string]interface{} {
	return map[string]interface{}{
		"k": "v1",
		"xs": []interface{}{
			"a", "b",
		},
		"o": map[string]interface{}{
			"n": float64(1),
		},
	}
}

func TestApplyInPlace(t *testing.T) {
	m := model()
	got, err := Apply(m, []Operation{Replace("/k", "v2")})
	require.NoError(t, err)
	assert.Equal(t, "v2", m["k"])
	assert.Equal(t, map[string]interface{}(m), got)
}

func TestOperations(t *testing.T) {
	tests := []struct {
		name string
		ops  []Operation
		want interface{}
	}{
		{
			name: "empty list",
			ops:  nil,
			want: model(),
		},
		{
			name: "noop",
			ops:  []Operation{{}},
			want: model(),
		},
		{
			name: "add member",
			ops:  []Operation{Add("/new", true)},
			want: func() interface{} {
				m := model()
				m["new"] = true
				return m
			}(),
		},
		{
			name: "add creates intermediate objects",
			ops:  []Operation{Add("/a/b/c", "deep")},
			want: func() interface{} {
				m := model()
				m["a"] = map[string]interface{}{
					"b": map[string]interface{}{"c": "deep"},
				}
				return m
			}(),
		},
		{
			name: "add inserts into array",
			ops:  []Operation{Add("/xs/1", "x")},
			want: func() interface{} {
				m := model()
				m["xs"] = []interface{}{"a", "x", "b"}
				return m
			}(),
		},
		{
			name: "add appends with dash",
			ops:  []Operation{Add("/xs/-", "c")},
			want: func() interface{} {
				m := model()
				m["xs"] = []interface{}{"a", "b", "c"}
				return m
			}(),
		},
		{
			name: "remove from array",
			ops:  []Operation{Remove("/xs/0")},
			want: func() interface{} {
				m := model()
				m["xs"] = []interface{}{"b"}
				return m
			}(),
		},
		{
			name: "move",
			ops:  []Operation{Move("/o/n", "/n")},
			want: func() interface{} {
				m := model()
				m["o"] = map[string]interface{}{}
				m["n"] = float64(1)
				return m
			}(),
		},
		{
			name: "copy",
			ops:  []Operation{Copy("/o", "/p")},
			want: func() interface{} {
				m := model()
				m["p"] = map[string]interface{}{"n": float64(1)}
				return m
			}(),
		},
		{
			name: "test passes with a different number type",
			ops:  []Operation{Test("/o/n", 1)},
			want: model(),
		},
		{
			name: "order matters",
			ops: []Operation{
				Replace("/k", "v2"),
				Copy("/k", "/k2"),
				Replace("/k", "v3"),
			},
			want: func() interface{} {
				m := model()
				m["k"] = "v3"
				m["k2"] = "v2"
				return m
			}(),
		},
		{
			name: "replace root",
			ops:  []Operation{Replace("", "everything")},
			want: "everything",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(model(), tt.ops)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFailures(t *testing.T) {
	tests := []struct {
		name string
		op   Operation
		err  error
	}{
		{"remove absent", Remove("/nope"), ErrPathNotFound},
		{"replace absent", Replace("/nope", 1), ErrPathNotFound},
		{"test mismatch", Test("/k", "other"), ErrTestFailed},
		{"test absent", Test("/nope", "v1"), ErrPathNotFound},
		{"bad pointer", Add("k", 1), ErrInvalidPath},
		{"leading zero", Add("/xs/01", 1), ErrInvalidPath},
		{"index past end", Add("/xs/3", 1), ErrPathNotFound},
		{"through a scalar", Add("/k/x", 1), ErrInvalidPath},
		{"move into own child", Move("/o", "/o/inner"), ErrInvalidPath},
		{"unknown op", Operation{Op: "frobnicate", Path: "/k"}, ErrUnknownOp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Apply(model(), []Operation{{}, tt.op})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.err), "got %v", err)

			var pe *Error
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, 1, pe.Index)
		})
	}
}

func TestValuesAreNotAliased(t *testing.T) {
	v := map[string]interface{}{"x": "original"}
	m := model()
	_, err := Apply(m, []Operation{Add("/v", v)})
	require.NoError(t, err)

	v["x"] = "changed"
	got, err := Get(m, "/v/x")
	require.NoError(t, err)
	assert.Equal(t, "original", got)
}

func TestEscapedPointer(t *testing.T) {
	m := map[string]interface{}{}
	_, err := Apply(m, []Operation{Add("/a~1b", 1), Add("/c~0d", 2)})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"a/b": float64(1), "c~d": float64(2)}, m)
}

func TestGoValuesBecomeJSON(t *testing.T) {
	m := map[string]interface{}{}
	_, err := Apply(m, []Operation{
		Add("/xs", []string{"a"}),
		Add("/xs/-", "b"),
		Add("/p", map[string]int{"x": 1}),
		Replace("/p/x", 2),
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{
		"xs": []interface{}{"a", "b"},
		"p":  map[string]interface{}{"x": float64(2)},
	}, m)

	_, err = Apply(m, []Operation{Add("/n", 3), Test("/n", int64(3))})
	require.NoError(t, err)
	assert.IsType(t, float64(0), m["n"])
}

func TestInvalidValue(t *testing.T) {
	for _, op := range []Operation{
		Add("/f", func() {}),
		Replace("/k", make(chan int)),
		Test("/k", func() {}),
	} {
		_, err := Apply(model(), []Operation{op})
		assert.True(t, errors.Is(err, ErrInvalidValue), "%s: got %v", op, err)
	}
}
