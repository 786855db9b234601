// Package sntp implements an SNTP (RFC 4330) client: a single
// query/response exchange with a time server over UDP and the standard
// clock offset and round-trip delay computation over the four protocol
// timestamps. It never steps or slews the local clock, and it performs no
// retries or logging; both belong to the caller.
package sntp

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

const PORT = 123 // NTP port number
const MAXDIST = 1 * time.Second
const DefaultTimeout = 1 * time.Second

var (
	ErrBogusReply     = errors.New("reply does not match the query")
	ErrServerRejected = errors.New("server is not synchronized")
)

// Client queries a single NTP server. The endpoint is fixed at
// construction; Timeout may be changed between calls but must not be
// mutated while a Query is in flight. Each call opens its own socket, so a
// Client is safe for concurrent queries.
type Client struct {
	host string
	port string

	Timeout time.Duration
}

type Option func(*Client)

func WithPort(port int) Option {
	return func(client *Client) {
		client.port = strconv.Itoa(port)
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(client *Client) {
		client.Timeout = timeout
	}
}

// NewClient returns a client for the given server, which may be a host
// name or a literal IPv4/IPv6 address. The port defaults to 123 and the
// timeout to one second.
func NewClient(host string, options ...Option) *Client {
	client := &Client{
		host:    host,
		port:    strconv.Itoa(PORT),
		Timeout: DefaultTimeout,
	}
	for _, option := range options {
		option(client)
	}
	return client
}

// Response is the correction computed from one completed exchange.
type Response struct {
	Offset time.Duration // estimated local clock offset from server time
	Delay  time.Duration // estimated round-trip network delay
	Time   time.Time     // server transmit time
	Packet *Packet       // raw reply, for inspection
}

// SuspectDelay reports whether the measured round-trip delay exceeds the
// distance threshold. Such a sample is still returned, but callers should
// treat the offset with suspicion rather than fail.
func (response *Response) SuspectDelay() bool {
	return response.Delay > MAXDIST
}

// Query performs one complete exchange with the configured server and
// returns the correction result. Timeouts surface as ErrTimeout, invalid
// replies as ErrBogusReply, and unsynchronized or kiss-of-death replies as
// ErrServerRejected; all are detectable with errors.Is.
func (client *Client) Query() (*Response, error) {
	org := GetSystemTime()
	query := encodePacket(&Packet{
		Version: VERSION,
		Mode:    CLIENT,
		PacketFields: PacketFields{
			Xmt: org,
		},
	})

	raw, dst, err := client.exchange(query)
	if err != nil {
		return nil, err
	}

	reply, err := decodePacket(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBogusReply, err)
	}

	if err := validateReply(reply, org); err != nil {
		return nil, err
	}

	offset, delay := correction(org, reply.Rec, reply.Xmt, dst)

	return &Response{
		Offset: offset,
		Delay:  delay,
		Time:   TimestampEncodedToTime(reply.Xmt),
		Packet: reply,
	}, nil
}

// Offset queries the configured server and returns only the clock offset.
func (client *Client) Offset() (time.Duration, error) {
	response, err := client.Query()
	if err != nil {
		return 0, err
	}
	return response.Offset, nil
}

func validateReply(reply *Packet, org TimestampEncoded) error {
	// A reply that does not echo our transmit timestamp is stale or
	// unsolicited traffic on the socket, not an answer to this query.
	if reply.Org != org {
		return fmt.Errorf("%w: originate timestamp not echoed", ErrBogusReply)
	}

	if reply.Version > VERSION {
		return fmt.Errorf("%w: version %d", ErrBogusReply, reply.Version)
	}

	if reply.Mode != SERVER {
		return fmt.Errorf("%w: mode %d", ErrBogusReply, reply.Mode)
	}

	if reply.Xmt == 0 {
		return fmt.Errorf("%w: zero transmit timestamp", ErrBogusReply)
	}

	if reply.Stratum == 0 {
		return fmt.Errorf("%w: kiss of death %q", ErrServerRejected, reply.KissCode())
	}

	if reply.Leap == NOSYNC || reply.Stratum >= MAXSTRAT {
		return fmt.Errorf("%w: leap %d, stratum %d", ErrServerRejected, reply.Leap, reply.Stratum)
	}

	return nil
}

// correction computes the clock offset and round-trip delay from the four
// exchange timestamps. The first-order differences are done in 64-bit
// integer arithmetic and only then converted to floating double, to avoid
// overflow and preserve precision. A negative delay can appear when the
// server and client clocks run at different rates on a very fast network;
// it is clamped to zero.
func correction(org, rec, xmt, dst TimestampEncoded) (offset, delay time.Duration) {
	offsetSeconds := (TimestampDifferenceToDouble(int64(rec-org)) +
		TimestampDifferenceToDouble(int64(xmt-dst))) / 2
	delaySeconds := TimestampDifferenceToDouble(int64(dst-org)) -
		TimestampDifferenceToDouble(int64(xmt-rec))
	if delaySeconds < 0 {
		delaySeconds = 0
	}
	return DoubleToDuration(offsetSeconds), DoubleToDuration(delaySeconds)
}
