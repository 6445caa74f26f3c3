package core

import (
	"errors"
	"testing"

	. "github.com/Comcast/rxfsm/util/testutil"
)

func TestDecodeSettings(t *testing.T) {
	s, err := DecodeSettings(map[string]interface{}{
		"initial_model":   map[string]interface{}{"k": "v1"},
		"init_event_data": nil,
		"sinkNames":       []interface{}{"DOM", "HTTP"},
		"debug":           true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if JS(s.SinkNames) != `["DOM","HTTP"]` || !s.Debug || JS(s.InitialModel) != `{"k":"v1"}` {
		t.Fatalf("%#v", s)
	}
}

func TestDecodeSettingsProblems(t *testing.T) {
	good := func() map[string]interface{} {
		return map[string]interface{}{
			"initial_model":   map[string]interface{}{},
			"init_event_data": nil,
			"sinkNames":       []interface{}{"DOM"},
		}
	}

	tests := []struct {
		name    string
		mod     func(map[string]interface{})
		setting string
	}{
		{"missing model", func(m map[string]interface{}) { delete(m, "initial_model") }, "initial_model"},
		{"missing init data", func(m map[string]interface{}) { delete(m, "init_event_data") }, "init_event_data"},
		{"no sinks", func(m map[string]interface{}) { m["sinkNames"] = []interface{}{} }, "sinkNames"},
		{"unknown key", func(m map[string]interface{}) { m["colour"] = "blue" }, ""},
		{"bad sink type", func(m map[string]interface{}) { m["sinkNames"] = "DOM" }, ""},
		{"not JSON", func(m map[string]interface{}) { m["initial_model"] = func() {} }, "initial_model"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := good()
			tt.mod(m)
			_, err := DecodeSettings(m)
			var bs *BadSettings
			if !errors.As(err, &bs) {
				t.Fatalf("got %v", err)
			}
			if bs.Setting != tt.setting {
				t.Fatalf("setting %q: %v", bs.Setting, err)
			}
		})
	}
}

func TestSeedCanonicalizes(t *testing.T) {
	type thing struct {
		N int `json:"n"`
	}
	st, err := (&Settings{InitialModel: thing{3}, InitEventData: "go"}).Seed()
	if err != nil {
		t.Fatal(err)
	}
	m, is := st.Model.(map[string]interface{})
	if !is || m["n"] != float64(3) {
		t.Fatalf("%#v", st.Model)
	}
	if st.Name != InitState || st.EventData != "go" || st.Pending != nil {
		t.Fatal(st)
	}
}
