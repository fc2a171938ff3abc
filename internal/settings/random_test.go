// ABOUTME: Tests for synthetic value generator formats
// ABOUTME: Asserts length, charset, and non-constant output over many draws

package settings

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

func TestRandomDeviceIDFormat(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := randomDeviceID()
		require.Len(t, id, 15)
		require.True(t, allDigits(id), "non-digit in %q", id)
		seen[id] = true
	}
	assert.Greater(t, len(seen), 1, "generator returned a constant")
}

func TestRandomSubscriberIDFormat(t *testing.T) {
	for i := 0; i < 100; i++ {
		id := randomSubscriberID()
		require.Len(t, id, 15)
		require.True(t, allDigits(id))
	}
}

func TestRandomLine1NumberFormat(t *testing.T) {
	// the plus sign counts toward the 13 characters
	for i := 0; i < 100; i++ {
		n := randomLine1Number()
		require.True(t, strings.HasPrefix(n, "+"))
		require.Len(t, n, 13)
		require.True(t, allDigits(n[1:]))
	}
}

func TestRandomSimSerialIsDigits(t *testing.T) {
	for i := 0; i < 100; i++ {
		require.True(t, allDigits(randomSimSerial()))
	}
}

func TestRandomCoordinatesInRange(t *testing.T) {
	for i := 0; i < 100; i++ {
		lat, err := strconv.ParseFloat(randomLatitude(), 64)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, lat, -90.0)
		assert.LessOrEqual(t, lat, 90.0)

		lon, err := strconv.ParseFloat(randomLongitude(), 64)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, lon, -180.0)
		assert.LessOrEqual(t, lon, 180.0)
	}
}

func TestRandomCoordinateHasSixDecimals(t *testing.T) {
	lat := randomLatitude()
	dot := strings.IndexByte(lat, '.')
	require.NotEqual(t, -1, dot)
	assert.Len(t, lat[dot+1:], 6)
}

func TestRandomAndroidIDNeverEmitsLastSymbol(t *testing.T) {
	// the historical generator's index bound excludes 'f'; that
	// distribution is part of the contract
	for i := 0; i < 200; i++ {
		id := randomAndroidID()
		require.Len(t, id, 16)
		require.NotContains(t, id, "f")
		for _, c := range id {
			require.Contains(t, androidIDAlphabet, string(c))
		}
	}
}

func TestEffectiveRandomChangesPerRead(t *testing.T) {
	r := &Record{DeviceIDMode: ModeRandom}
	a := r.EffectiveDeviceID()
	b := r.EffectiveDeviceID()
	c := r.EffectiveDeviceID()
	assert.False(t, a == b && b == c, "three reads returned identical values")
}
