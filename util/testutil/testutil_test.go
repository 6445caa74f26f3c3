package testutil

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

type Person struct {
	Name string
	Age  int
}

func TestJS(t *testing.T) {
	tests := []struct {
		name string
		arg  interface{}
		want string
	}{
		{
			name: "simple struct",
			arg:  Person{"John Doe", 30},
			want: `{"Name":"John Doe","Age":30}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JS(tt.arg); got != tt.want {
				t.Errorf("JS() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJSUnmarshalable(t *testing.T) {
	if got := JS(func() {}); got == "" {
		t.Fatal("JS() returned nothing")
	}
}

func TestDwimjs(t *testing.T) {
	tests := []struct {
		name string
		arg  interface{}
		want interface{}
	}{
		{
			name: "valid JSON string",
			arg:  `{"name":"John Doe","age":30}`,
			want: map[string]interface{}{"name": "John Doe", "age": float64(30)},
		},
		{
			name: "valid JSON bytes",
			arg:  []byte(`{"name":"Jane Doe","age":25}`),
			want: map[string]interface{}{"name": "Jane Doe", "age": float64(25)},
		},
		{
			name: "non-JSON string",
			arg:  "hello world",
			want: "hello world",
		},
		{
			name: "non-string, non-byte-slice type",
			arg:  12345,
			want: 12345,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Dwimjs(tt.arg); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Dwimjs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecorderWait(t *testing.T) {
	r := NewRecorder()
	go func() {
		r.Next(1)
		r.Next(2)
	}()
	if !r.Wait(2, time.Second) {
		t.Fatal("timeout")
	}
	if got := r.Values(); !reflect.DeepEqual(got, []interface{}{1, 2}) {
		t.Fatalf("got %#v", got)
	}

	r = NewRecorder()
	r.Error(errors.New("boom"))
	if !r.Wait(10, time.Second) {
		t.Fatal("error didn't end the wait")
	}
	if r.Completed() {
		t.Fatal("completed")
	}
}
