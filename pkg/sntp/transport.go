package sntp

import (
	"errors"
	"fmt"
	"net"
	"time"
)

const MTU = 1300

var ErrTimeout = errors.New("server did not respond within the timeout")

// udpNetwork picks the address family for an endpoint host. Literal
// addresses use their own family; a host name's family is unknown until
// resolution, so it gets Go's dual-stack "udp" family, which leaves
// IPV6_V6ONLY disabled and keeps IPv4 servers reachable.
func udpNetwork(host string) string {
	ip := net.ParseIP(host)
	switch {
	case ip == nil:
		return "udp"
	case ip.To4() != nil:
		return "udp4"
	default:
		return "udp6"
	}
}

// exchange performs one blocking send/receive round trip: it resolves the
// endpoint, opens a fresh socket with the receive deadline applied, sends
// the encoded query, and blocks for a single reply. The reply bytes are
// returned together with the local arrival timestamp. The socket is closed
// before returning, on every path.
func (client *Client) exchange(query []byte) ([]byte, TimestampEncoded, error) {
	network := udpNetwork(client.host)

	addr, err := net.ResolveUDPAddr(network, net.JoinHostPort(client.host, client.port))
	if err != nil {
		return nil, 0, fmt.Errorf("resolve %s: %w", client.host, err)
	}

	conn, err := net.DialUDP(network, nil, addr)
	if err != nil {
		return nil, 0, fmt.Errorf("dial %s/udp: %w", addr, err)
	}
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(client.Timeout)); err != nil {
		return nil, 0, fmt.Errorf("set read deadline: %w", err)
	}

	if _, err := conn.Write(query); err != nil {
		return nil, 0, fmt.Errorf("send to %s: %w", addr, err)
	}

	reply := make([]byte, MTU)
	n, err := conn.Read(reply)
	dst := GetSystemTime()
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, 0, fmt.Errorf("%w (%v)", ErrTimeout, client.Timeout)
		}
		return nil, 0, fmt.Errorf("receive from %s: %w", addr, err)
	}

	return reply[:n], dst, nil
}
