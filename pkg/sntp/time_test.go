package sntp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimestampRoundTrip(t *testing.T) {
	now := time.Now()
	roundTripped := TimestampEncodedToTime(TimeToTimestampEncoded(now))
	assert.WithinDuration(t, now, roundTripped, time.Millisecond)
}

func TestGetSystemTimeTracksWallClock(t *testing.T) {
	converted := TimestampEncodedToTime(GetSystemTime())
	assert.WithinDuration(t, time.Now(), converted, time.Second)
}

func TestTimestampDifferenceToDouble(t *testing.T) {
	later := timestampAt(1000.5)
	earlier := timestampAt(1000.0)

	assert.InDelta(t, 0.5, TimestampDifferenceToDouble(int64(later-earlier)), 1e-9)
	// Differences are signed even though the timestamps are unsigned.
	assert.InDelta(t, -0.5, TimestampDifferenceToDouble(int64(earlier-later)), 1e-9)
}

func TestDoubleToDuration(t *testing.T) {
	assert.Equal(t, 450*time.Millisecond, DoubleToDuration(0.45))
	assert.Equal(t, -100*time.Millisecond, DoubleToDuration(-0.1))
}
