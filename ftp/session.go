package ftp

import (
	"fmt"
	"time"
)

// phase is the session state. The zero value is phaseIdle; every switch
// over a phase lists all six states so an unhandled state cannot compile
// in silently.
type phase uint8

const (
	phaseIdle phase = iota
	phaseWaitConnection
	phaseReady
	phaseWaitUser
	phaseWaitPass
	phaseWaitCommand
)

func (p phase) String() string {
	switch p {
	case phaseIdle:
		return "Idle"
	case phaseWaitConnection:
		return "WaitConnection"
	case phaseReady:
		return "Ready"
	case phaseWaitUser:
		return "WaitUser"
	case phaseWaitPass:
		return "WaitPass"
	case phaseWaitCommand:
		return "WaitCommand"
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// inService reports whether the phase has a live client session, i.e. the
// timeout and disconnection checks apply.
func (p phase) inService() bool {
	switch p {
	case phaseIdle, phaseWaitConnection, phaseReady:
		return false
	case phaseWaitUser, phaseWaitPass, phaseWaitCommand:
		return true
	}
	return false
}

const (
	// loginDeadline is how long a freshly connected client has to
	// complete USER/PASS.
	loginDeadline = 10 * time.Second

	// failureDelay paces ordinary authentication mismatches;
	// lockoutDelay paces a lockout, to blunt brute-force retries.
	failureDelay = 100 * time.Millisecond
	lockoutDelay = time.Second

	// cooldownDelay follows a timeout or forced disconnect so the engine
	// does not immediately re-enter the connection cycle in the same
	// tick burst.
	cooldownDelay = 200 * time.Millisecond
)

// resetSession restores the per-connection fields for a new connection
// cycle. The control socket itself is not touched.
func (s *Server) resetSession() {
	s.workingDir = "/"
	s.username = ""
	s.attempts = 0
	s.renameFrom = ""
	s.rnfrSeen = false
	s.line.reset()
	s.data.mode = dataPassive
	s.closeDataSocket()
}

// greet sends the multi-line welcome block and clears any stale input.
func (s *Server) greet() {
	fmt.Fprintf(s.writer, "%d-%s\r\n", StatusServiceReadyForNewUser, s.WelcomeMessage)
	fmt.Fprintf(s.writer, "%d Version %s\r\n", StatusServiceReadyForNewUser, ServerVersion)
	s.line.reset()
	s.logger.Info("client connected")
}

// disconnectClient aborts any transfer, says goodbye and drops the
// control connection.
func (s *Server) disconnectClient() {
	s.abortTransfer()
	s.reply(StatusServiceClosingControlConnection, "Goodbye")
	if s.ctrl != nil {
		if err := s.ctrl.Close(); err != nil {
			s.logger.Debug("closing control connection", "error", err)
		}
	}
	s.ctrl = nil
	s.writer = nil
	s.logger.Info("client disconnected")
}

// delayResponse suspends all processing until d from now. Used to pace
// authentication failures and post-disconnect cooldowns.
func (s *Server) delayResponse(d time.Duration) {
	s.delayUntil = s.now.Add(d)
}
