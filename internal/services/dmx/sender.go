package dmx

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"
)

// Sender hands encoded packets to the network.
type Sender interface {
	Send(ctx context.Context, ip string, port int, data []byte) error
}

// UDPSender sends packets over UDP, keeping one socket per destination.
type UDPSender struct {
	mu    sync.Mutex
	conns map[string]*net.UDPConn
}

// NewUDPSender creates a UDP sender.
func NewUDPSender() *UDPSender {
	return &UDPSender{conns: make(map[string]*net.UDPConn)}
}

// Send writes one datagram. The context deadline, if any, bounds the write.
func (s *UDPSender) Send(ctx context.Context, ip string, port int, data []byte) error {
	conn, err := s.conn(ip, port)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	} else {
		_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
	}
	if _, err := conn.Write(data); err != nil {
		s.drop(ip, port)
		return fmt.Errorf("failed to send to %s:%d: %w", ip, port, err)
	}
	return nil
}

func (s *UDPSender) conn(ip string, port int) (*net.UDPConn, error) {
	key := net.JoinHostPort(ip, strconv.Itoa(port))

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.conns[key]; ok {
		return c, nil
	}

	addr, err := net.ResolveUDPAddr("udp4", key)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", key, err)
	}
	c, err := net.DialUDP("udp4", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to open socket to %s: %w", key, err)
	}
	s.conns[key] = c
	return c, nil
}

func (s *UDPSender) drop(ip string, port int) {
	key := net.JoinHostPort(ip, strconv.Itoa(port))
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.conns[key]; ok {
		_ = c.Close()
		delete(s.conns, key)
	}
}

// Close closes every socket.
func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, c := range s.conns {
		_ = c.Close()
		delete(s.conns, key)
	}
	return nil
}
