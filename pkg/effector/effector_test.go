package effector

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderWriteRead(t *testing.T) {
	r := NewRecorder()
	require.NoError(t, r.Write(4018, Value{Binary: true, Bit: 1}))
	v, err := r.Read(4018)
	require.NoError(t, err)
	assert.Equal(t, Value{Binary: true, Bit: 1}, v)
	assert.Len(t, r.Writes(), 1)
	assert.Equal(t, uint32(4018), r.Writes()[0].Instance)
}

func TestRecorderSeed(t *testing.T) {
	r := NewRecorder()
	r.Seed(2021, Value{Analog: 42.5})
	v, err := r.Read(2021)
	require.NoError(t, err)
	assert.Equal(t, float32(42.5), v.Analog)
	assert.Empty(t, r.Writes())
}

func TestSysfsGPIOWriteRead(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "gpio17"), 0755))
	valuePath := filepath.Join(dir, "gpio17", "value")
	require.NoError(t, os.WriteFile(valuePath, []byte("0"), 0644))

	sg := NewSysfsGPIO(dir, map[uint32]int{4018: 17}, nil)
	require.NoError(t, sg.Write(4018, Value{Binary: true, Bit: 1}))

	raw, err := os.ReadFile(valuePath)
	require.NoError(t, err)
	assert.Equal(t, "1", string(raw))

	v, err := sg.Read(4018)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), v.Bit)
}

func TestSysfsGPIOUnmappedInstance(t *testing.T) {
	sg := NewSysfsGPIO(t.TempDir(), map[uint32]int{}, nil)
	_, err := sg.Read(9999)
	assert.Error(t, err)
}
