package sntp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePacketFirstByte(t *testing.T) {
	packet := &Packet{Leap: 0, Version: 4, Mode: CLIENT}
	encoded := encodePacket(packet)

	require.Len(t, encoded, PacketLength)
	// 00 100 011: no leap warning, version 4, client mode
	assert.Equal(t, byte(0x23), encoded[0])
}

func TestDecodePacket(t *testing.T) {
	packet := &Packet{
		Leap:    NOSYNC,
		Version: VERSION,
		Mode:    SERVER,
		PacketFields: PacketFields{
			Stratum:   3,
			Poll:      6,
			Precision: -18,
			Refid:     0x7f000001,
			Org:       0x0102030405060708,
			Rec:       0x1112131415161718,
			Xmt:       0x2122232425262728,
		},
	}

	decoded, err := decodePacket(encodePacket(packet))
	require.NoError(t, err)
	assert.Equal(t, packet, decoded)
}

func TestDecodePacketTooShort(t *testing.T) {
	_, err := decodePacket(make([]byte, PacketLength-1))
	assert.Error(t, err)
}

func TestKissCode(t *testing.T) {
	packet := &Packet{PacketFields: PacketFields{Stratum: 0, Refid: 0x44454e59}}
	assert.Equal(t, "DENY", packet.KissCode())

	packet.Stratum = 2
	assert.Equal(t, "", packet.KissCode())
}
