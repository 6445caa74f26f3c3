package match

import (
	"encoding/json"
	"errors"
	"math/rand"
	"reflect"
	"testing"
)

func js(s string) interface{} {
	var x interface{}
	if err := json.Unmarshal([]byte(s), &x); err != nil {
		panic(err)
	}
	return x
}

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern, fact string
		want          int
		binds         map[string]interface{}
	}{
		{`"hi"`, `"hi"`, 1, nil},
		{`"hi"`, `"ho"`, 0, nil},
		{`"?x"`, `{"a":1}`, 1, map[string]interface{}{"?x": js(`{"a":1}`)}},
		{`{"a":"?x"}`, `{"a":1,"b":2}`, 1, map[string]interface{}{"?x": 1.0}},
		{`{"a":"?x","b":"?x"}`, `{"a":1,"b":2}`, 0, nil},
		{`{"a":"?x","b":"?x"}`, `{"a":2,"b":2}`, 1, map[string]interface{}{"?x": 2.0}},
		{`{"a":"?"}`, `{"a":[1]}`, 1, map[string]interface{}{}},
		{`{"a":"?"}`, `{"b":1}`, 0, nil},
		{`{"a":"??x"}`, `{"b":1}`, 1, map[string]interface{}{}},
		{`{"a":1}`, `[1]`, 0, nil},
		{`[1,"?x"]`, `[3,1,2]`, 2, nil},
		{`[1,1]`, `[1]`, 0, nil},
		{`null`, `null`, 1, nil},
		{`true`, `false`, 0, nil},
		{`{"n":{"m":"?m"}}`, `{"n":{"m":"deep"}}`, 1, map[string]interface{}{"?m": "deep"}},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.fact, func(t *testing.T) {
			bss, err := Match(js(tt.pattern), js(tt.fact), nil)
			if err != nil {
				t.Fatal(err)
			}
			if len(bss) != tt.want {
				t.Fatalf("%d bindings: %v", len(bss), bss)
			}
			if tt.binds == nil {
				return
			}
			for k, v := range tt.binds {
				if !reflect.DeepEqual(bss[0][k], v) {
					t.Fatalf("%s: %v", k, bss[0][k])
				}
			}
			if len(bss[0]) != len(tt.binds) {
				t.Fatalf("extra bindings: %v", bss[0])
			}
		})
	}
}

func TestMatchRespectsBindings(t *testing.T) {
	bs := Bindings{"?x": 1}
	bss, err := Match(js(`{"a":"?x"}`), map[string]interface{}{"a": 1.0}, bs)
	if err != nil || len(bss) != 1 {
		t.Fatal(bss, err)
	}
	if bss, _ = Match(js(`{"a":"?x"}`), js(`{"a":2}`), bs); len(bss) != 0 {
		t.Fatal(bss)
	}
	if bss, _ = Match(js(`{"a":"?y"}`), js(`{"a":2}`), bs); len(bs) != 1 || len(bss[0]) != 2 {
		t.Fatal("input bindings modified")
	}
}

func TestMatchErrors(t *testing.T) {
	_, err := Match(js(`{"?p":1}`), js(`{"a":1}`), nil)
	var pv *PropertyVariable
	if !errors.As(err, &pv) {
		t.Fatal(err)
	}

	_, err = Match(struct{}{}, nil, nil)
	var upt *UnknownPatternType
	if !errors.As(err, &upt) {
		t.Fatal(err)
	}
}

func TestUnquestion(t *testing.T) {
	got := Bindings{"?x": 1, "??y": 2}.Unquestion()
	if got["x"] != 1 || got["y"] != 2 {
		t.Fatal(got)
	}
}

// gen generates a random message without variables.
func gen(r *rand.Rand, d int) interface{} {
	n := 4
	if 0 < d {
		n = 6
	}
	switch r.Intn(n) {
	case 0:
		return nil
	case 1:
		return string(rune('a' + r.Intn(5)))
	case 2:
		return float64(r.Intn(10))
	case 3:
		return r.Intn(2) == 0
	case 4:
		xs := make([]interface{}, r.Intn(4))
		for i := range xs {
			xs[i] = gen(r, d-1)
		}
		return xs
	default:
		m := make(map[string]interface{})
		for i := r.Intn(4); 0 < i; i-- {
			m[string(rune('a'+r.Intn(5)))] = gen(r, d-1)
		}
		return m
	}
}

// TestMatchFuzz verifies that random messages match themselves
// without producing bindings.
func TestMatchFuzz(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		msg := gen(r, 3)
		bss, err := Match(msg, msg, nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(bss) == 0 {
			t.Fatalf("%#v doesn't match itself", msg)
		}
		for _, bs := range bss {
			if len(bs) != 0 {
				t.Fatalf("%#v: bindings %v", msg, bs)
			}
		}
	}
}
