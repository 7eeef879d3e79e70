// Package transport adapts real TCP sockets to the non-blocking
// interfaces the FTP engine polls. Readiness is probed with zero
// deadlines so no call ever waits on the network.
package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"strconv"
	"time"

	"github.com/telebroad/ftpengine/ftp"
)

// writeTimeout bounds a single Write so a stalled peer cannot wedge the
// poll loop for long.
const writeTimeout = 5 * time.Second

// Listen opens a TCP listener on addr, e.g. "0.0.0.0:21".
func Listen(addr string) (*TCPListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("error listening on %s: %w", addr, err)
	}
	return &TCPListener{ln: ln.(*net.TCPListener)}, nil
}

// TCPListener implements ftp.Listener over a net.TCPListener. HasPending
// probes with an already-expired accept deadline and stashes the
// connection for the following Accept call.
type TCPListener struct {
	ln      *net.TCPListener
	pending net.Conn
}

func (l *TCPListener) HasPending() bool {
	if l.pending != nil {
		return true
	}
	if err := l.ln.SetDeadline(time.Now()); err != nil {
		return false
	}
	conn, err := l.ln.Accept()
	if err != nil {
		return false
	}
	l.pending = conn
	return true
}

func (l *TCPListener) Accept() (ftp.Socket, error) {
	if l.pending == nil {
		return nil, errors.New("no pending connection")
	}
	conn := l.pending
	l.pending = nil
	return NewSocket(conn), nil
}

func (l *TCPListener) Close() error {
	if l.pending != nil {
		_ = l.pending.Close()
		l.pending = nil
	}
	return l.ln.Close()
}

// Addr returns the bound address, useful when listening on port 0.
func (l *TCPListener) Addr() net.Addr {
	return l.ln.Addr()
}

// NewSocket wraps an established connection as an ftp.Socket.
func NewSocket(conn net.Conn) *TCPSocket {
	return &TCPSocket{conn: conn}
}

// TCPSocket implements the non-blocking ftp.Socket contract: reads drain
// an internal buffer that fill tops up with an expired read deadline, so
// the caller sees (0, nil) when nothing is pending and io.EOF only after
// the peer closed and the buffer drained.
type TCPSocket struct {
	conn   net.Conn
	buf    []byte
	eof    bool
	closed bool
}

// fill pulls whatever the kernel already has without waiting.
func (s *TCPSocket) fill() {
	if s.eof || s.closed {
		return
	}
	if err := s.conn.SetReadDeadline(time.Now()); err != nil {
		s.eof = true
		return
	}
	var chunk [4096]byte
	n, err := s.conn.Read(chunk[:])
	if n > 0 {
		s.buf = append(s.buf, chunk[:n]...)
	}
	if err != nil {
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			return
		}
		s.eof = true
	}
}

func (s *TCPSocket) Available() int {
	s.fill()
	return len(s.buf)
}

func (s *TCPSocket) Read(p []byte) (int, error) {
	s.fill()
	if len(s.buf) > 0 {
		n := copy(p, s.buf)
		s.buf = s.buf[n:]
		return n, nil
	}
	if s.eof || s.closed {
		return 0, io.EOF
	}
	return 0, nil
}

func (s *TCPSocket) Write(p []byte) (int, error) {
	if s.closed {
		return 0, net.ErrClosed
	}
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return 0, err
	}
	return s.conn.Write(p)
}

func (s *TCPSocket) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}

func (s *TCPSocket) Connected() bool {
	s.fill()
	return (!s.eof && !s.closed) || len(s.buf) > 0
}

// TCPDialer implements ftp.Dialer for active (PORT) mode. A dial blocks
// for at most Timeout.
type TCPDialer struct {
	Timeout time.Duration
}

func (d *TCPDialer) Dial(addr netip.Addr, port uint16) (ftp.Socket, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	hostPort := net.JoinHostPort(addr.String(), strconv.Itoa(int(port)))
	conn, err := net.DialTimeout("tcp", hostPort, timeout)
	if err != nil {
		return nil, fmt.Errorf("error dialing %s: %w", hostPort, err)
	}
	return NewSocket(conn), nil
}
