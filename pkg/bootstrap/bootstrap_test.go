package bootstrap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcooper33/bacnet4linux-go/pkg/object"
)

const sampleConfig = `{
  "device_description": "test rig",
  "pins": {
    "17": {"enabled": true, "name": "relay-1", "direction": "output", "high_unit": "ON", "low_unit": "OFF", "instance": 18},
    "27": {"enabled": true, "name": "motion", "direction": "input", "instance": 19},
    "22": {"enabled": false, "name": "unused"}
  }
}`

func TestLoadFromPopulatesStore(t *testing.T) {
	res, err := LoadFrom(strings.NewReader(sampleConfig), nil)
	require.NoError(t, err)
	assert.Equal(t, "test rig", res.DeviceDescription)
	assert.Equal(t, 2, res.Store.Count())

	rec, ok := res.Store.Find(object.ID{Type: object.TypeBinaryOutput, Instance: 4018})
	require.True(t, ok)
	assert.Equal(t, "relay-1", rec.Name)
	assert.Equal(t, "ON", rec.ActiveText)
	assert.NotNil(t, rec.Priorities)
	assert.Equal(t, 17, res.Pins[4018])

	in, ok := res.Store.Find(object.ID{Type: object.TypeBinaryInput, Instance: 3019})
	require.True(t, ok)
	assert.Equal(t, "motion", in.Name)
	assert.Nil(t, in.Priorities)
	assert.Equal(t, "High", in.ActiveText, "defaults when high_unit is omitted")
}

func TestLoadFromSkipsDisabledPins(t *testing.T) {
	res, err := LoadFrom(strings.NewReader(sampleConfig), nil)
	require.NoError(t, err)
	for _, id := range res.Store.Iterate() {
		rec, _ := res.Store.Find(id)
		assert.NotEqual(t, "unused", rec.Name)
	}
}

func TestLoadFromRejectsUnknownDirection(t *testing.T) {
	_, err := LoadFrom(strings.NewReader(`{"pins":{"5":{"enabled":true,"direction":"sideways"}}}`), nil)
	assert.Error(t, err)
}

func TestLoadFromDefaultsInstanceToPinNumber(t *testing.T) {
	res, err := LoadFrom(strings.NewReader(`{"pins":{"6":{"enabled":true,"direction":"output"}}}`), nil)
	require.NoError(t, err)
	_, ok := res.Store.Find(object.ID{Type: object.TypeBinaryOutput, Instance: 4006})
	assert.True(t, ok)
}
