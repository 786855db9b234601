package sntp

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// timestampAt builds an encoded NTP timestamp a given number of seconds
// into some arbitrary era, enough for exercising the correction math.
func timestampAt(seconds float64) TimestampEncoded {
	return TimestampEncoded(seconds * float64(eraLength))
}

func TestCorrection(t *testing.T) {
	// T1=1000.000s, T2=1000.500s, T3=1000.600s, T4=1000.200s:
	// delay = (0.200) - (0.100) = 0.100s, offset = (0.500+0.400)/2 = 0.450s
	offset, delay := correction(
		timestampAt(1000.000),
		timestampAt(1000.500),
		timestampAt(1000.600),
		timestampAt(1000.200),
	)

	assert.InDelta(t, 0.450, offset.Seconds(), 1e-6)
	assert.InDelta(t, 0.100, delay.Seconds(), 1e-6)
}

func TestCorrectionNegativeOffset(t *testing.T) {
	offset, delay := correction(
		timestampAt(1000.500),
		timestampAt(1000.100),
		timestampAt(1000.200),
		timestampAt(1000.700),
	)

	assert.InDelta(t, -0.450, offset.Seconds(), 1e-6)
	assert.InDelta(t, 0.100, delay.Seconds(), 1e-6)
}

func TestCorrectionClampsNegativeDelay(t *testing.T) {
	// Server's receive->transmit interval exceeds the whole round trip,
	// which can only happen with clock rate skew. The raw delay is -0.5s.
	offset, delay := correction(
		timestampAt(1000.000),
		timestampAt(1001.000),
		timestampAt(1002.000),
		timestampAt(1000.500),
	)

	assert.Equal(t, time.Duration(0), delay)
	assert.InDelta(t, 1.25, offset.Seconds(), 1e-6)
}

func TestValidateReply(t *testing.T) {
	org := GetSystemTime()

	goodReply := func() *Packet {
		return &Packet{
			Leap:    0,
			Version: VERSION,
			Mode:    SERVER,
			PacketFields: PacketFields{
				Stratum: 2,
				Org:     org,
				Rec:     org + 1,
				Xmt:     org + 2,
			},
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validateReply(goodReply(), org))
	})

	t.Run("origin mismatch", func(t *testing.T) {
		reply := goodReply()
		reply.Org = org + 1
		assert.ErrorIs(t, validateReply(reply, org), ErrBogusReply)
	})

	t.Run("wrong mode", func(t *testing.T) {
		reply := goodReply()
		reply.Mode = BROADCAST_SERVER
		assert.ErrorIs(t, validateReply(reply, org), ErrBogusReply)
	})

	t.Run("zero transmit timestamp", func(t *testing.T) {
		reply := goodReply()
		reply.Xmt = 0
		assert.ErrorIs(t, validateReply(reply, org), ErrBogusReply)
	})

	t.Run("kiss of death", func(t *testing.T) {
		reply := goodReply()
		reply.Stratum = 0
		reply.Refid = 0x52415445 // "RATE"
		err := validateReply(reply, org)
		assert.ErrorIs(t, err, ErrServerRejected)
		assert.Contains(t, err.Error(), "RATE")
	})

	t.Run("unsynchronized leap", func(t *testing.T) {
		reply := goodReply()
		reply.Leap = NOSYNC
		assert.ErrorIs(t, validateReply(reply, org), ErrServerRejected)
	})

	t.Run("invalid stratum", func(t *testing.T) {
		reply := goodReply()
		reply.Stratum = MAXSTRAT
		assert.ErrorIs(t, validateReply(reply, org), ErrServerRejected)
	})
}

// serveReplies runs a loopback UDP server that answers each query through
// the handler. Returning nil from the handler drops the query.
func serveReplies(t *testing.T, handler func(query *Packet) *Packet) (host string, port int) {
	t.Helper()

	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	go func() {
		buffer := make([]byte, MTU)
		for {
			n, addr, err := conn.ReadFrom(buffer)
			if err != nil {
				return
			}
			query, err := decodePacket(buffer[:n])
			if err != nil {
				continue
			}
			reply := handler(query)
			if reply == nil {
				continue
			}
			conn.WriteTo(encodePacket(reply), addr)
		}
	}()

	addr := conn.LocalAddr().(*net.UDPAddr)
	return "127.0.0.1", addr.Port
}

func serverReply(query *Packet) *Packet {
	now := GetSystemTime()
	return &Packet{
		Leap:    0,
		Version: query.Version,
		Mode:    SERVER,
		PacketFields: PacketFields{
			Stratum: 2,
			Org:     query.Xmt,
			Rec:     now,
			Xmt:     now,
		},
	}
}

func TestQuery(t *testing.T) {
	host, port := serveReplies(t, serverReply)

	client := NewClient(host, WithPort(port))
	response, err := client.Query()
	require.NoError(t, err)

	require.NotNil(t, response.Packet)
	assert.GreaterOrEqual(t, response.Delay, time.Duration(0))
	// Loopback exchange against our own clock: offset must be tiny.
	assert.Less(t, response.Offset.Abs(), time.Second)
	assert.WithinDuration(t, time.Now(), response.Time, time.Second)
}

func TestOffset(t *testing.T) {
	host, port := serveReplies(t, serverReply)

	client := NewClient(host, WithPort(port))
	offset, err := client.Offset()
	require.NoError(t, err)
	assert.Less(t, offset.Abs(), time.Second)
}

func TestQueryTimeout(t *testing.T) {
	host, port := serveReplies(t, func(query *Packet) *Packet {
		return nil // never answer
	})

	client := NewClient(host, WithPort(port), WithTimeout(50*time.Millisecond))

	// Repeated timeouts must each release their socket and fail cleanly.
	for i := 0; i < 3; i++ {
		response, err := client.Query()
		assert.Nil(t, response)
		assert.ErrorIs(t, err, ErrTimeout)
	}
}

func TestQueryRejectsForeignOrigin(t *testing.T) {
	host, port := serveReplies(t, func(query *Packet) *Packet {
		reply := serverReply(query)
		reply.Org = query.Xmt + 1
		return reply
	})

	client := NewClient(host, WithPort(port), WithTimeout(time.Second))
	_, err := client.Query()
	assert.ErrorIs(t, err, ErrBogusReply)
}

func TestQueryRejectsKissOfDeath(t *testing.T) {
	host, port := serveReplies(t, func(query *Packet) *Packet {
		reply := serverReply(query)
		reply.Stratum = 0
		reply.Refid = 0x44454e59 // "DENY"
		return reply
	})

	client := NewClient(host, WithPort(port), WithTimeout(time.Second))
	_, err := client.Query()
	assert.ErrorIs(t, err, ErrServerRejected)
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient("pool.ntp.org")
	assert.Equal(t, "123", client.port)
	assert.Equal(t, DefaultTimeout, client.Timeout)

	client = NewClient("pool.ntp.org", WithPort(1123), WithTimeout(250*time.Millisecond))
	assert.Equal(t, "1123", client.port)
	assert.Equal(t, 250*time.Millisecond, client.Timeout)
}

func TestSuspectDelay(t *testing.T) {
	assert.False(t, (&Response{Delay: 100 * time.Millisecond}).SuspectDelay())
	assert.True(t, (&Response{Delay: MAXDIST + time.Millisecond}).SuspectDelay())
}
