package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Comcast/rxfsm/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "rxfsm.yaml")
	require.NoError(t, os.WriteFile(filename, []byte(`
drivers: {io: io, audit: log, t: timers, web: http}
mqtt:
  broker: tcp://localhost:1883
  keepAlive: 30s
  topics: [in/#]
journal: j.db
`), 0644))

	c, err := LoadConfig(filename)
	require.NoError(t, err)
	assert.Equal(t, "tcp://localhost:1883", c.MQTT.Broker)
	assert.Equal(t, []string{"in/#"}, c.MQTT.SubTopics)
	assert.Equal(t, "j.db", c.Journal)

	ds, eof, err := c.makeDrivers(ioOpts{in: strings.NewReader("")}, util.NopLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"audit", "io", "t", "web"}, ds.Names())
	assert.NotNil(t, eof)

	ds, eof, err = c.makeDrivers(ioOpts{kind: "mqtt"}, util.NopLogger())
	require.NoError(t, err)
	assert.Len(t, ds, 4)
	assert.Nil(t, eof)
}

func TestLoadConfigStrict(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "rxfsm.yaml")
	require.NoError(t, os.WriteFile(filename, []byte("drivrs: {}\n"), 0644))
	_, err := LoadConfig(filename)
	assert.Error(t, err)
}

func TestMakeDriversErrors(t *testing.T) {
	log := util.NopLogger()
	for _, tt := range []struct {
		c *Config
		o ioOpts
	}{
		{&Config{Drivers: map[string]string{"x": "nope"}}, ioOpts{}},
		{&Config{Drivers: map[string]string{"a": "io", "b": "io"}}, ioOpts{in: strings.NewReader("")}},
		{&Config{}, ioOpts{kind: "ws"}},
		{&Config{}, ioOpts{kind: "mqtt"}},
		{&Config{}, ioOpts{kind: "carrier pigeon"}},
	} {
		_, _, err := tt.c.makeDrivers(tt.o, log)
		assert.Error(t, err)
	}
}
