package ftp

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/netip"
	"testing"
	"time"

	"github.com/telebroad/ftpengine/filesystem"
	"github.com/telebroad/ftpengine/users"
)

// fakeSocket is an in-memory Socket. Bytes queued in `in` are what the
// engine reads; everything the engine writes lands in `out`.
type fakeSocket struct {
	in         bytes.Buffer
	out        bytes.Buffer
	closed     bool
	peerClosed bool
	failWrites bool
}

func (f *fakeSocket) Read(p []byte) (int, error) {
	if f.in.Len() > 0 {
		return f.in.Read(p)
	}
	if f.peerClosed || f.closed {
		return 0, io.EOF
	}
	return 0, nil
}

func (f *fakeSocket) Write(p []byte) (int, error) {
	if f.failWrites {
		return 0, errors.New("write failed")
	}
	return f.out.Write(p)
}

func (f *fakeSocket) Close() error {
	f.closed = true
	return nil
}

func (f *fakeSocket) Available() int {
	return f.in.Len()
}

func (f *fakeSocket) Connected() bool {
	return (!f.peerClosed && !f.closed) || f.in.Len() > 0
}

// send queues one command line for the engine to read.
func (f *fakeSocket) send(line string) {
	f.in.WriteString(line + "\r\n")
}

// takeOutput drains and returns everything the engine has written so far.
func (f *fakeSocket) takeOutput() string {
	s := f.out.String()
	f.out.Reset()
	return s
}

type fakeListener struct {
	queue  []Socket
	closed bool
}

func (l *fakeListener) HasPending() bool {
	return len(l.queue) > 0
}

func (l *fakeListener) Accept() (Socket, error) {
	if len(l.queue) == 0 {
		return nil, errors.New("no pending connection")
	}
	sock := l.queue[0]
	l.queue = l.queue[1:]
	return sock, nil
}

func (l *fakeListener) Close() error {
	l.closed = true
	return nil
}

func (l *fakeListener) push(sock Socket) {
	l.queue = append(l.queue, sock)
}

type fakeDialer struct {
	sock  Socket
	err   error
	calls int

	gotAddr netip.Addr
	gotPort uint16
}

func (d *fakeDialer) Dial(addr netip.Addr, port uint16) (Socket, error) {
	d.calls++
	d.gotAddr = addr
	d.gotPort = port
	if d.err != nil {
		return nil, d.err
	}
	return d.sock, nil
}

// harness drives one engine with fake transports over a real temp-dir
// filesystem. Every tick advances a synthetic clock by 10ms.
type harness struct {
	t    *testing.T
	s    *Server
	fs   filesystem.FS
	ctrl *fakeListener
	data *fakeListener
	dial *fakeDialer
	now  time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	creds, err := users.New("admin", "secret")
	if err != nil {
		t.Fatalf("creating credentials: %v", err)
	}
	h := &harness{
		t:    t,
		fs:   filesystem.NewLocalFS(t.TempDir()),
		ctrl: &fakeListener{},
		data: &fakeListener{},
		dial: &fakeDialer{},
		now:  time.Unix(1700000000, 0),
	}
	h.s = NewServer(h.ctrl, h.data, h.dial, h.fs, creds)
	h.s.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := h.s.SetPublicServerIPv4("127.0.0.1"); err != nil {
		t.Fatalf("setting public ip: %v", err)
	}
	return h
}

// tick polls n times, 10ms apart.
func (h *harness) tick(n int) {
	for i := 0; i < n; i++ {
		h.now = h.now.Add(10 * time.Millisecond)
		h.s.Poll(h.now)
	}
}

// advance jumps the clock by d and polls once.
func (h *harness) advance(d time.Duration) {
	h.now = h.now.Add(d)
	h.s.Poll(h.now)
}

// connect attaches a fresh control connection and ticks until the
// greeting has been sent.
func (h *harness) connect() *fakeSocket {
	h.t.Helper()
	sock := &fakeSocket{}
	h.ctrl.push(sock)
	h.tick(3)
	if h.s.phase != phaseWaitUser {
		h.t.Fatalf("after connect: phase = %v, want WaitUser", h.s.phase)
	}
	return sock
}

// login connects and completes the USER/PASS challenge.
func (h *harness) login() *fakeSocket {
	h.t.Helper()
	sock := h.connect()
	sock.send("USER admin")
	h.tick(1)
	sock.send("PASS secret")
	h.tick(1)
	if h.s.phase != phaseWaitCommand {
		h.t.Fatalf("after login: phase = %v, want WaitCommand", h.s.phase)
	}
	sock.takeOutput()
	return sock
}

// command sends one line and ticks once so it is processed.
func (h *harness) command(sock *fakeSocket, line string) string {
	h.t.Helper()
	sock.send(line)
	h.tick(1)
	return sock.takeOutput()
}

func (h *harness) writeFile(name, content string) {
	h.t.Helper()
	f, err := h.fs.Create(name)
	if err != nil {
		h.t.Fatalf("creating %s: %v", name, err)
	}
	if _, err := f.Write([]byte(content)); err != nil {
		h.t.Fatalf("writing %s: %v", name, err)
	}
	if err := f.Close(); err != nil {
		h.t.Fatalf("closing %s: %v", name, err)
	}
}

func (h *harness) readFile(name string) string {
	h.t.Helper()
	f, err := h.fs.Open(name)
	if err != nil {
		h.t.Fatalf("opening %s: %v", name, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		h.t.Fatalf("reading %s: %v", name, err)
	}
	return string(data)
}
