package core

import (
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/Comcast/rxfsm/patch"
)

// Settings configure a machine.
type Settings struct {
	// InitialModel is the seed model.  It's canonicalized (via JSON)
	// when the machine starts.
	InitialModel interface{} `mapstructure:"initial_model" json:"initial_model" yaml:"initialModel"`

	// InitEventData is the data of the INIT event.
	InitEventData interface{} `mapstructure:"init_event_data" json:"init_event_data" yaml:"initEventData"`

	// SinkNames are the sinks the machine produces, in order.
	SinkNames []string `mapstructure:"sinkNames" json:"sinkNames" yaml:"sinks"`

	// Debug logs every step at info level.
	Debug bool `mapstructure:"debug" json:"debug,omitempty" yaml:"debug,omitempty"`
}

// RequiredSettings must be present in a settings map given to
// DecodeSettings.
var RequiredSettings = []string{"initial_model", "init_event_data", "sinkNames"}

// DecodeSettings decodes a loose settings map.
//
// Unknown keys are errors, and so are missing required keys (even
// though init_event_data can be null).
func DecodeSettings(m map[string]interface{}) (*Settings, error) {
	for _, k := range RequiredSettings {
		if _, have := m[k]; !have {
			return nil, &BadSettings{
				Setting: k,
				Err:     errors.New("required"),
			}
		}
	}

	var s Settings
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: false,
		Result:           &s,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(m); err != nil {
		return nil, &BadSettings{Err: err}
	}
	if err := s.Check(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Check reports obviously bad settings.
func (s *Settings) Check() error {
	if s == nil {
		return &BadSettings{Err: errors.New("no settings")}
	}
	if len(s.SinkNames) == 0 {
		return &BadSettings{
			Setting: "sinkNames",
			Err:     errors.New("no sinks"),
		}
	}
	for _, name := range s.SinkNames {
		if name == "" {
			return &BadSettings{
				Setting: "sinkNames",
				Err:     errors.New("empty sink name"),
			}
		}
	}
	if _, err := patch.Canonicalize(s.InitialModel); err != nil {
		return &BadSettings{
			Setting: "initial_model",
			Err:     fmt.Errorf("not JSON: %w", err),
		}
	}
	return nil
}

// Seed makes the State a machine starts with.
func (s *Settings) Seed() (*State, error) {
	model, err := patch.Canonicalize(s.InitialModel)
	if err != nil {
		return nil, &BadSettings{
			Setting: "initial_model",
			Err:     err,
		}
	}
	return &State{
		Name:      InitState,
		Model:     model,
		EventData: patch.Clone(s.InitEventData),
	}, nil
}
