package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Ethiopian Coffee", "ethiopian coffee"},
		{"  ethiopian   coffee  ", "ethiopian coffee"},
		{"ETHIOPIAN COFFEE", "ethiopian coffee"},
		{"ethiopian\tcoffee\n", "ethiopian coffee"},
		{"", ""},
		{"   \t\n  ", ""},
		{"Kaffee aus ÄTHIOPIEN", "kaffee aus äthiopien"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "input %q", tt.in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"Fruity Ethiopian Coffee", "  WASHED   yirgacheffe ", "", "Straße"}
	for _, s := range inputs {
		once := Normalize(s)
		assert.Equal(t, once, Normalize(once), "input %q", s)
	}
}

func TestTextEquivalence(t *testing.T) {
	a := Text("Ethiopian Coffee")
	b := Text("  ethiopian   coffee  ")
	c := Text("ETHIOPIAN COFFEE")
	assert.Equal(t, a, b)
	assert.Equal(t, a, c)
	assert.NotEqual(t, a, Text("colombian coffee"))
	assert.Len(t, a, 64)
}

func TestTextEmpty(t *testing.T) {
	// Empty after normalization is still a valid, stable key.
	assert.Equal(t, Text(""), Text("   \t  "))
	assert.Len(t, Text(""), 64)
}

func TestImageIdentity(t *testing.T) {
	img := []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10}

	k1, err := Image(img)
	require.NoError(t, err)
	k2, err := Image([]byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10})
	require.NoError(t, err)
	assert.Equal(t, k1, k2)

	flipped := append([]byte(nil), img...)
	flipped[3] ^= 0x01
	k3, err := Image(flipped)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)
}

func TestImageAbsent(t *testing.T) {
	_, err := Image(nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	// Present-but-empty is valid.
	k, err := Image([]byte{})
	require.NoError(t, err)
	assert.Len(t, k, 64)
}
