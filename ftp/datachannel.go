package ftp

import (
	"errors"
	"net/netip"
	"strconv"
	"strings"
)

// dataMode selects how the data connection is established.
type dataMode uint8

const (
	dataPassive dataMode = iota // server listens, client connects
	dataActive                  // server connects out to the client
)

// dataChannel describes the secondary connection. The socket is present
// only while a data connection is open and never persists across
// transfers.
type dataChannel struct {
	mode dataMode

	// Active-mode target, recorded by PORT.
	activeAddr netip.Addr
	activePort uint16

	sock Socket
}

var errInvalidHostPort = errors.New("invalid host-port parameter")

// parseHostPort parses the PORT parameter: exactly four decimal address
// octets followed by the two port bytes (high, low), comma separated.
// Anything malformed or short is rejected.
func parseHostPort(param string) (netip.Addr, uint16, error) {
	parts := strings.Split(param, ",")
	if len(parts) != 6 {
		return netip.Addr{}, 0, errInvalidHostPort
	}

	var octets [6]byte
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 || v > 255 {
			return netip.Addr{}, 0, errInvalidHostPort
		}
		octets[i] = byte(v)
	}

	addr := netip.AddrFrom4([4]byte{octets[0], octets[1], octets[2], octets[3]})
	port := uint16(octets[4])<<8 | uint16(octets[5])
	return addr, port, nil
}

// dataConnectTick makes exactly one non-blocking attempt to establish the
// data connection: in passive mode it checks the data listener for a
// waiting client, in active mode it dials the recorded address. Expiry of
// the connect deadline fails the pending operation with a 425.
func (s *Server) dataConnectTick() {
	switch s.data.mode {
	case dataPassive:
		if s.dataListener.HasPending() {
			sock, err := s.dataListener.Accept()
			if err != nil {
				s.logger.Error("accepting data connection", "error", err)
			} else {
				s.data.sock = sock
				s.logger.Debug("data connection accepted")
				return
			}
		}

	case dataActive:
		sock, err := s.dialer.Dial(s.data.activeAddr, s.data.activePort)
		if err == nil {
			s.data.sock = sock
			s.logger.Debug("data connection dialed",
				"addr", s.data.activeAddr, "port", s.data.activePort)
			return
		}
		s.logger.Debug("data connection dial attempt failed", "error", err)
	}

	if s.now.After(s.transfer.connectDeadline) {
		s.failDataConnection()
	}
}

// closeDataSocket drops the data connection if one is open.
func (s *Server) closeDataSocket() {
	if s.data.sock == nil {
		return
	}
	if err := s.data.sock.Close(); err != nil {
		s.logger.Debug("closing data connection", "error", err)
	}
	s.data.sock = nil
}
