package sntp

import (
	"math"
	"time"

	"golang.org/x/sys/unix"
)

const eraLength int64 = 4_294_967_296     // 2^32
const unixEraOffset int64 = 2_208_988_800 // 1970 - 1900 in seconds

// TimestampEncoded is a 64-bit NTP timestamp: seconds since the protocol
// epoch in the high 32 bits, fractional seconds in the low 32 bits.
type TimestampEncoded = uint64

func GetSystemTime() TimestampEncoded {
	var unixTime unix.Timespec
	unix.ClockGettime(unix.CLOCK_REALTIME, &unixTime)
	return UnixToTimestampEncoded(unixTime)
}

func UnixToTimestampEncoded(time unix.Timespec) TimestampEncoded {
	return uint64((time.Sec+unixEraOffset)<<32) +
		uint64(float64(time.Nsec)/1e9*float64(eraLength))
}

func TimeToTimestampEncoded(t time.Time) TimestampEncoded {
	return uint64((t.Unix()+unixEraOffset)<<32) +
		uint64(float64(t.Nanosecond())/1e9*float64(eraLength))
}

func TimestampEncodedToTime(ntpTimestamp TimestampEncoded) time.Time {
	Sec := int64(ntpTimestamp >> 32)
	Usec := int32(math.Round(float64(int64(ntpTimestamp)-(Sec<<
		32)) / float64(eraLength) * 1e6))
	Sec -= unixEraOffset
	return time.Unix(Sec, int64(Usec)*1e3)
}

// TimestampDifferenceToDouble converts a first-order difference of two
// encoded timestamps, computed in 64-bit integer arithmetic, to seconds.
func TimestampDifferenceToDouble(difference int64) float64 {
	return float64(difference) / float64(eraLength)
}

func DoubleToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
