package ftp

import (
	"fmt"
	"io"
	"log/slog"
	"net/netip"
	"time"

	"github.com/telebroad/ftpengine/filesystem"
	"github.com/telebroad/ftpengine/tools"
	"github.com/telebroad/ftpengine/users"
)

// Recorder receives login and transfer outcomes, typically for an audit
// trail. Implementations must not block the caller for long.
type Recorder interface {
	RecordLogin(username string, ok bool)
	RecordTransfer(verb Command, path string, bytes int64, elapsed time.Duration, ok bool)
}

// Server is the single-session FTP protocol engine. All work happens
// inside Poll, which the owner must call serially from one goroutine or
// loop; the engine holds no locks and starts no goroutines of its own.
type Server struct {
	ctrlListener Listener
	dataListener Listener
	dialer       Dialer
	fs           filesystem.FS
	creds        *users.Credentials

	logger   *slog.Logger
	recorder Recorder
	handlers map[Command]func(param string)

	// WelcomeMessage is the first line of the 220 greeting block.
	WelcomeMessage string

	// PublicServerIPv4 is the address advertised in the 227 passive
	// reply. It must be the address clients can reach, which behind NAT
	// is not the local one.
	PublicServerIPv4 [4]byte

	// PassivePort is the fixed port of the passive data listener,
	// advertised in the 227 reply.
	PassivePort uint16

	// SessionTimeout is the inactivity deadline armed on login and
	// refreshed after every accepted command.
	SessionTimeout time.Duration

	// MaxLoginAttempts is how many failed USER or PASS attempts force
	// the session back to idle.
	MaxLoginAttempts int

	phase      phase
	ctrl       Socket
	writer     io.Writer
	line       lineBuffer
	workingDir string
	username   string
	attempts   int
	deadline   time.Time
	delayUntil time.Time

	renameFrom string
	rnfrSeen   bool

	data     dataChannel
	transfer transfer

	// now is the clock instant of the current Poll call. All timing
	// decisions inside one tick observe the same instant.
	now time.Time
}

// NewServer wires the engine to its collaborators. ctrl is the control
// listener, data the fixed passive-mode data listener, dialer the
// active-mode connector.
func NewServer(ctrl, data Listener, dialer Dialer, fs filesystem.FS, creds *users.Credentials) *Server {
	s := &Server{
		ctrlListener:     ctrl,
		dataListener:     data,
		dialer:           dialer,
		fs:               fs,
		creds:            creds,
		logger:           slog.Default(),
		WelcomeMessage:   "Welcome to ftpengine FTP server",
		PassivePort:      55600,
		SessionTimeout:   5 * time.Minute,
		MaxLoginAttempts: 3,
		phase:            phaseWaitConnection,
		workingDir:       "/",
	}
	s.handlers = map[Command]func(string){
		CDUP: s.handleCdup,
		CWD:  s.handleCwd,
		PWD:  s.handlePwd,
		QUIT: s.handleQuit,
		PASV: s.handlePasv,
		PORT: s.handlePort,
		TYPE: s.handleType,
		LIST: s.handleList,
		MLSD: s.handleMlsd,
		RETR: s.handleRetr,
		STOR: s.handleStor,
		DELE: s.handleDele,
		MKD:  s.handleMkd,
		RMD:  s.handleRmd,
		RNFR: s.handleRnfr,
		RNTO: s.handleRnto,
		SIZE: s.handleSize,
		SYST: s.handleSyst,
		FEAT: s.handleFeat,
		NOOP: s.handleNoop,
		ABOR: s.handleAbor,
	}
	return s
}

// SetLogger replaces the engine logger.
func (s *Server) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// SetRecorder attaches an audit recorder. Passing nil disables recording.
func (s *Server) SetRecorder(r Recorder) {
	s.recorder = r
}

// SetPublicServerIPv4 parses and stores the address advertised in the
// 227 passive reply.
func (s *Server) SetPublicServerIPv4(ip string) error {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return fmt.Errorf("parsing public server ip: %w", err)
	}
	if !addr.Is4() {
		return fmt.Errorf("public server ip %q is not IPv4", ip)
	}
	s.PublicServerIPv4 = addr.As4()
	return nil
}

// Poll advances the engine by one tick: it accepts a waiting client,
// processes at most one command, moves at most one transfer chunk (or
// makes one data-connection attempt), then runs the timeout check. It
// never blocks. The return value reports whether a session or transfer
// is still in flight, so the caller can tighten its polling interval.
func (s *Server) Poll(now time.Time) bool {
	s.now = now

	// A scheduled pacing delay gates everything, including reads, so a
	// throttled client cannot push bytes through early.
	if now.Before(s.delayUntil) {
		return s.busy()
	}

	s.acceptControl()

	switch s.phase {
	case phaseIdle:
		if s.ctrl != nil {
			s.disconnectClient()
		}
		s.phase = phaseWaitConnection

	case phaseWaitConnection:
		s.abortTransfer()
		s.resetSession()
		s.phase = phaseReady

	case phaseReady:
		if s.ctrl != nil && s.ctrl.Connected() {
			s.greet()
			s.deadline = now.Add(loginDeadline)
			s.phase = phaseWaitUser
		}

	case phaseWaitUser, phaseWaitPass, phaseWaitCommand:
		if s.ctrl != nil {
			if line, ok := s.line.readLine(s.ctrl); ok {
				s.processLine(line)
			}
		}
	}

	s.transferTick()
	s.checkDeadline()

	return s.busy()
}

// acceptControl installs a waiting client as the control connection. A
// client arriving while another is being served replaces it and restarts
// the connection cycle, so the newcomer must authenticate from scratch.
func (s *Server) acceptControl() {
	// During Idle a lingering connection is being torn down; leave any
	// newcomer queued in the listener until the cycle restarts.
	if s.phase == phaseIdle {
		return
	}
	if !s.ctrlListener.HasPending() {
		return
	}
	sock, err := s.ctrlListener.Accept()
	if err != nil {
		s.logger.Error("accepting control connection", "error", err)
		return
	}
	if s.ctrl != nil {
		s.abortTransfer()
		if err := s.ctrl.Close(); err != nil {
			s.logger.Debug("closing replaced control connection", "error", err)
		}
		if s.phase != phaseIdle {
			s.phase = phaseWaitConnection
		}
	}
	s.ctrl = sock
	s.writer = tools.NewLogWriter(sock, s.logger)
	s.line.reset()
}

// processLine parses one received line and feeds it to whichever step of
// the session the engine is in. Phases below WaitUser never reach here.
func (s *Server) processLine(line string) {
	verb, param := parseCommandLine(line)
	s.logger.Debug("command received", "verb", verb, "param", param)

	switch s.phase {
	case phaseIdle, phaseWaitConnection, phaseReady:
		return

	case phaseWaitUser:
		if s.authenticateUser(verb, param) {
			s.phase = phaseWaitPass
		}

	case phaseWaitPass:
		if s.authenticatePassword(verb, param) {
			s.phase = phaseWaitCommand
			s.deadline = s.now.Add(s.SessionTimeout)
		}

	case phaseWaitCommand:
		s.dispatch(verb, param)
		if s.phase == phaseWaitCommand {
			s.deadline = s.now.Add(s.SessionTimeout)
		}
	}
}

func (s *Server) dispatch(verb Command, param string) {
	handler, ok := s.handlers[verb]
	if !ok {
		s.reply(StatusSyntaxError, "Unknown command")
		s.logger.Warn("unknown command", "verb", verb)
		return
	}
	handler(param)
}

// checkDeadline forces the session back to idle when the control
// connection has dropped or the deadline elapsed. The overshoot beyond
// the deadline is bounded only by the caller's polling frequency.
func (s *Server) checkDeadline() {
	if !s.phase.inService() {
		return
	}
	if s.ctrl != nil && s.ctrl.Connected() && !s.now.After(s.deadline) {
		return
	}
	s.reply(StatusNotLoggedIn, "Timeout")
	s.delayResponse(cooldownDelay)
	s.logger.Info("session timed out", "phase", s.phase)
	s.phase = phaseIdle
}

// busy reports whether a client session or a transfer is in flight.
func (s *Server) busy() bool {
	return s.transfer.kind != transferNone || s.phase.inService()
}

// reply writes one three-digit reply line to the control connection.
func (s *Server) reply(code StatusCode, text string) {
	if s.writer == nil {
		return
	}
	fmt.Fprintf(s.writer, "%d %s\r\n", code, text)
}

func (s *Server) recordLogin(ok bool) {
	if s.recorder != nil {
		s.recorder.RecordLogin(s.username, ok)
	}
}

func (s *Server) recordTransfer(verb Command, path string, bytes int64, elapsed time.Duration, ok bool) {
	if s.recorder != nil {
		s.recorder.RecordTransfer(verb, path, bytes, elapsed, ok)
	}
}
