package sntp

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const VERSION byte = 4   // NTP version number
const NOSYNC byte = 0x3  // leap unsync
const MAXSTRAT byte = 16 // maximum stratum number

const PacketLength = 48

type Mode byte

const (
	RESERVED Mode = iota
	SYMMETRIC_ACTIVE
	SYMMETRIC_PASSIVE
	CLIENT
	SERVER
	BROADCAST_SERVER
	BROADCAST_CLIENT
	RESERVED_PRIVATE_USE
)

// PacketFields are the fields that can be read directly from the packet
// bytes following the packed leap/version/mode byte.
type PacketFields struct {
	Stratum   byte             /* stratum */
	Poll      int8             /* poll interval */
	Precision int8             /* precision */
	Rootdelay uint32           /* root delay */
	Rootdisp  uint32           /* root dispersion */
	Refid     uint32           /* reference ID */
	Reftime   TimestampEncoded /* reference time */
	Org       TimestampEncoded /* origin timestamp */
	Rec       TimestampEncoded /* receive timestamp */
	Xmt       TimestampEncoded /* transmit timestamp */
}

type Packet struct {
	Leap    byte /* leap indicator */
	Version byte /* version number */
	Mode    Mode /* mode */
	PacketFields
}

func encodePacket(packet *Packet) []byte {
	var buffer bytes.Buffer
	firstByte := (packet.Leap << 6) | (packet.Version << 3) | byte(packet.Mode)
	binary.Write(&buffer, binary.BigEndian, firstByte)
	binary.Write(&buffer, binary.BigEndian, &packet.PacketFields)
	return buffer.Bytes()
}

func decodePacket(encoded []byte) (*Packet, error) {
	if len(encoded) < PacketLength {
		return nil, fmt.Errorf("packet too short: %d bytes", len(encoded))
	}

	reader := bytes.NewReader(encoded)
	firstByte, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	packetFields := PacketFields{}
	if err := binary.Read(reader, binary.BigEndian, &packetFields); err != nil {
		return nil, err
	}

	return &Packet{
		Leap:         firstByte >> 6,
		Version:      (firstByte >> 3) & 0b111,
		Mode:         Mode(firstByte & 0b111),
		PacketFields: packetFields,
	}, nil
}

// KissCode returns the ASCII code carried in the reference ID of a
// stratum 0 kiss-of-death packet, or "" for any other packet.
func (packet *Packet) KissCode() string {
	if packet.Stratum != 0 {
		return ""
	}
	codeBin := make([]byte, 4)
	binary.BigEndian.PutUint32(codeBin, packet.Refid)
	return string(codeBin)
}
