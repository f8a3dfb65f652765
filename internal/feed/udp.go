package feed

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// UDPSource receives telemetry datagrams on a local UDP port. A datagram may
// carry one line or several newline-separated lines; each is forwarded
// individually.
type UDPSource struct {
	conn *net.UDPConn
}

// ListenUDP binds a UDP listener on the given address (e.g. ":55001").
func ListenUDP(addr string) (*UDPSource, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP address %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return &UDPSource{conn: conn}, nil
}

// LocalAddr returns the bound address, useful when listening on port 0.
func (s *UDPSource) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

// Run receives datagrams and forwards their lines until the context is
// cancelled or the socket fails.
func (s *UDPSource) Run(ctx context.Context, lines chan<- string) error {
	// unblock the pending read when the context ends
	stop := context.AfterFunc(ctx, func() {
		s.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	buf := make([]byte, 65536)
	for {
		n, _, err := s.conn.ReadFromUDP(buf)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return err
		}
		for _, line := range splitDatagram(string(buf[:n])) {
			select {
			case lines <- line:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Close closes the UDP socket.
func (s *UDPSource) Close() error {
	return s.conn.Close()
}

// splitDatagram breaks a datagram payload into newline-stripped lines,
// dropping empties and carriage returns from CRLF-terminated feeds.
func splitDatagram(payload string) []string {
	var out []string
	for _, line := range strings.Split(payload, "\n") {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
