package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsWindows1251(t *testing.T) {
	assert.Equal(t, "windows-1251", Default().Name())
}

func TestLookupUnknownFails(t *testing.T) {
	_, ok := Lookup("nonexistent-charset")
	assert.False(t, ok)
}

func TestWindows1251RoundTrips(t *testing.T) {
	c, ok := Lookup("windows-1251")
	require.True(t, ok)

	encoded, err := c.Encode("Привет") // "Привет"
	require.NoError(t, err)

	decoded, err := c.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, "Привет", decoded)
}

func TestZeroValueFallsBackToDefault(t *testing.T) {
	var c Codec
	decoded, err := c.Decode([]byte{0x41})
	require.NoError(t, err)
	assert.Equal(t, "A", decoded)
}
