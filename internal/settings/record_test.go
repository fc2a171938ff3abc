// ABOUTME: Tests for mode resolution and effective-value accessors
// ABOUTME: Covers EMPTY substitution, CUSTOM passthrough, and category lookup

package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModeValid(t *testing.T) {
	assert.True(t, ModeReal.Valid())
	assert.True(t, ModeEmpty.Valid())
	assert.True(t, ModeCustom.Valid())
	assert.True(t, ModeRandom.Valid())
	assert.False(t, Mode(4).Valid())
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "real", ModeReal.String())
	assert.Equal(t, "empty", ModeEmpty.String())
	assert.Equal(t, "custom", ModeCustom.String())
	assert.Equal(t, "random", ModeRandom.String())
	assert.Equal(t, "invalid", Mode(9).String())
}

func TestEffectiveEmptySubstitution(t *testing.T) {
	r := &Record{
		PackageName:      "com.example.app",
		DeviceIDMode:     ModeEmpty,
		Line1NumberMode:  ModeEmpty,
		LocationGPSMode:  ModeEmpty,
		SimSerialMode:    ModeEmpty,
		SubscriberIDMode: ModeEmpty,
		AndroidIDMode:    ModeEmpty,
		DeviceID:         "should-not-leak",
		Line1Number:      "+15551234567",
	}

	assert.Empty(t, r.EffectiveDeviceID())
	assert.Empty(t, r.EffectiveLine1Number())
	assert.Empty(t, r.EffectiveLocationGPSLat())
	assert.Empty(t, r.EffectiveLocationGPSLon())
	assert.Empty(t, r.EffectiveSimSerial())
	assert.Empty(t, r.EffectiveSubscriberID())

	// android ID has a fixed placeholder instead of ""
	assert.Equal(t, EmptyAndroidID, r.EffectiveAndroidID())
}

func TestEffectiveCustomPassthrough(t *testing.T) {
	r := &Record{
		DeviceIDMode:        ModeCustom,
		DeviceID:            "012345678901234",
		LocationNetworkMode: ModeCustom,
		LocationNetworkLat:  "48.858844",
		LocationNetworkLon:  "2.294351",
	}
	assert.Equal(t, "012345678901234", r.EffectiveDeviceID())
	assert.Equal(t, "48.858844", r.EffectiveLocationNetworkLat())
	assert.Equal(t, "2.294351", r.EffectiveLocationNetworkLon())
}

func TestEffectiveRealPassthrough(t *testing.T) {
	r := &Record{SimSerialMode: ModeReal, SimSerial: "8944500112"}
	assert.Equal(t, "8944500112", r.EffectiveSimSerial())
}

func TestModeForCoversAllCategories(t *testing.T) {
	r := &Record{}
	for _, c := range Categories {
		_, ok := r.ModeFor(c)
		require.True(t, ok, "category %q not resolvable", c)
	}
	_, ok := r.ModeFor(Category("bogus"))
	assert.False(t, ok)
}

func TestModeForMMSSMSUnion(t *testing.T) {
	r := &Record{MMSMode: ModeReal, SMSMode: ModeEmpty}
	m, ok := r.ModeFor(DataMMSSMS)
	require.True(t, ok)
	assert.Equal(t, ModeEmpty, m)

	r = &Record{MMSMode: ModeRandom, SMSMode: ModeReal}
	m, _ = r.ModeFor(DataMMSSMS)
	assert.Equal(t, ModeRandom, m)
}

func TestEffectiveValueLocationPair(t *testing.T) {
	r := &Record{
		LocationGPSMode: ModeCustom,
		LocationGPSLat:  "1.000000",
		LocationGPSLon:  "2.000000",
	}
	assert.Equal(t, "1.000000,2.000000", r.EffectiveValue(DataLocationGPS))

	r.LocationGPSMode = ModeEmpty
	assert.Empty(t, r.EffectiveValue(DataLocationGPS))
}

func TestEffectiveValueModeOnlyCategory(t *testing.T) {
	r := &Record{CameraMode: ModeEmpty}
	assert.Empty(t, r.EffectiveValue(DataCamera))
}

func TestKey(t *testing.T) {
	r := &Record{PackageName: "org.example", UID: 10042}
	assert.Equal(t, "org.example", r.Key())
}
