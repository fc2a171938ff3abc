// ABOUTME: Synthetic value generators for RANDOM-mode reads
// ABOUTME: Output formats are frozen; consumers compare against recorded values

package settings

import (
	"math"
	"math/rand/v2"
	"strconv"
)

// EmptyAndroidID is the placeholder returned for an EMPTY android ID.
// A literally empty string makes some consumers fail to start.
const EmptyAndroidID = "q4a5w896ay21dr46"

const androidIDAlphabet = "0123456789abcdef"

// randomDigits produces prefix plus a decimal string, truncated to maxLen
// when longer, padded with digits 0-8 up to padTo then cut to maxLen when
// shorter. The bounds cover the whole string, prefix included.
func randomDigits(prefix string, maxLen, padTo int) string {
	v := rand.Int64()
	if v < 0 {
		v = -v
	}
	s := prefix + strconv.FormatInt(v, 10)
	if len(s) > maxLen {
		return s[:maxLen]
	}
	for i := len(s); i <= padTo; i++ {
		s += strconv.Itoa(rand.IntN(9))
	}
	return s[:maxLen]
}

func randomDeviceID() string { return randomDigits("", 15, 16) }

func randomSubscriberID() string { return randomDigits("", 15, 16) }

// randomLine1Number is 13 characters total, the plus sign included.
func randomLine1Number() string { return randomDigits("+", 13, 14) }

// randomSimSerial is an unbounded digit string.
func randomSimSerial() string {
	v := rand.Int64()
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 10)
}

func roundCoord(v float64) string {
	v = math.Round(v*1e6) / 1e6
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func randomLatitude() string {
	v := rand.Float64() * 180
	if v > 90 {
		v -= 90
	} else {
		v = -v
	}
	return roundCoord(v)
}

func randomLongitude() string {
	v := rand.Float64() * 360
	if v > 180 {
		v -= 180
	} else {
		v = -v
	}
	return roundCoord(v)
}

// randomAndroidID draws 16 symbols from the hex alphabet. The index bound
// excludes the last symbol, so 'f' is never produced; recorded outputs
// depend on that distribution, keep it.
func randomAndroidID() string {
	b := make([]byte, 16)
	for i := range b {
		b[i] = androidIDAlphabet[rand.IntN(len(androidIDAlphabet)-1)]
	}
	return string(b)
}
