package ftp

import (
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/telebroad/ftpengine/filesystem"
)

// transferBufSize is the chunk moved per poll tick.
const transferBufSize = 512

// dataConnectTimeout bounds how long a pending transfer waits for its
// data connection before failing with a 425.
const dataConnectTimeout = 10 * time.Second

// transferKind tags the data operation in flight. At most one exists per
// session; command handlers reject a second while one is active.
type transferKind uint8

const (
	transferNone transferKind = iota
	transferRetrieve
	transferStore
	transferList
	transferMLSD
)

func (k transferKind) verb() Command {
	switch k {
	case transferRetrieve:
		return RETR
	case transferStore:
		return STOR
	case transferList:
		return LIST
	case transferMLSD:
		return MLSD
	}
	return ""
}

// transfer is the data-operation sub-state. The file handle, when
// present, is exclusively owned here: opened by the starting handler and
// closed exactly once on completion, failure or abort.
type transfer struct {
	kind transferKind

	file         filesystem.File
	path         string
	removeOnFail bool // STOR: drop the partial file when the channel never opens

	// Listing transfers stream a pre-rendered payload instead of a file.
	payload []byte
	off     int
	matches int

	bytes           int64
	start           time.Time
	connectDeadline time.Time

	buf [transferBufSize]byte
}

// startTransfer arms a file transfer. The data connection is established
// by subsequent ticks; the 150 preliminary reply has already been sent.
func (s *Server) startTransfer(kind transferKind, file filesystem.File, path string, removeOnFail bool) {
	s.transfer = transfer{
		kind:            kind,
		file:            file,
		path:            path,
		removeOnFail:    removeOnFail,
		start:           s.now,
		connectDeadline: s.now.Add(dataConnectTimeout),
	}
}

// startListing arms a directory-listing transfer with a payload
// snapshotted at command time.
func (s *Server) startListing(kind transferKind, path string, payload []byte, matches int) {
	s.transfer = transfer{
		kind:            kind,
		path:            path,
		payload:         payload,
		matches:         matches,
		start:           s.now,
		connectDeadline: s.now.Add(dataConnectTimeout),
	}
}

// transferTick advances the in-flight data operation by at most one
// chunk, or by one connection attempt while the channel is still down.
func (s *Server) transferTick() {
	if s.transfer.kind == transferNone {
		return
	}
	if s.data.sock == nil {
		s.dataConnectTick()
		return
	}

	switch s.transfer.kind {
	case transferNone:
		return
	case transferRetrieve:
		s.retrieveTick()
	case transferStore:
		s.storeTick()
	case transferList, transferMLSD:
		s.listTick()
	}
}

// retrieveTick moves one chunk from the file to the data socket. Zero
// bytes read means end-of-file and finalizes the transfer.
func (s *Server) retrieveTick() {
	t := &s.transfer
	n, err := t.file.Read(t.buf[:])
	if n > 0 {
		if _, werr := s.data.sock.Write(t.buf[:n]); werr != nil {
			s.logger.Error("data connection write failed", "error", werr)
			s.abortTransfer()
			return
		}
		t.bytes += int64(n)
		return
	}
	if err != nil && err != io.EOF {
		s.logger.Error("file read failed", "path", t.path, "error", err)
		s.abortTransfer()
		return
	}
	s.closeTransfer()
}

// storeTick moves one chunk from the data socket to the file. The client
// signals end-of-transfer by closing its side; a drained socket after
// disconnection finalizes, it is not an error.
func (s *Server) storeTick() {
	t := &s.transfer
	n, err := s.data.sock.Read(t.buf[:])
	if n > 0 {
		if _, werr := t.file.Write(t.buf[:n]); werr != nil {
			s.logger.Error("file write failed", "path", t.path, "error", werr)
			s.abortTransfer()
			return
		}
		t.bytes += int64(n)
		return
	}
	if err == io.EOF || !s.data.sock.Connected() {
		s.closeTransfer()
	}
	// No bytes pending this tick; keep waiting.
}

// listTick streams one chunk of the rendered listing.
func (s *Server) listTick() {
	t := &s.transfer
	if t.off < len(t.payload) {
		end := t.off + transferBufSize
		if end > len(t.payload) {
			end = len(t.payload)
		}
		n, err := s.data.sock.Write(t.payload[t.off:end])
		t.off += n
		t.bytes += int64(n)
		if err != nil {
			s.logger.Error("data connection write failed", "error", err)
			s.abortTransfer()
		}
		return
	}
	s.closeTransfer()
}

// closeTransfer finalizes a completed transfer: final reply, throughput
// report when it is meaningful, and teardown of the file handle and data
// socket.
func (s *Server) closeTransfer() {
	t := &s.transfer
	elapsed := s.now.Sub(t.start)

	switch t.kind {
	case transferNone:
		return
	case transferList, transferMLSD:
		s.reply(StatusClosingDataConnection, fmt.Sprintf("%d matches total", t.matches))
	case transferRetrieve, transferStore:
		ms := elapsed.Milliseconds()
		if ms > 0 && t.bytes > 0 {
			rate := float64(t.bytes) * 1000 / (float64(ms) * 1024)
			s.reply(StatusClosingDataConnection, fmt.Sprintf("Transfer complete (%.2f kB/s)", rate))
		} else {
			s.reply(StatusClosingDataConnection, "Transfer complete")
		}
	}

	s.logger.Info("transfer complete",
		"verb", t.kind.verb(), "path", t.path, "bytes", t.bytes, "elapsed", elapsed)
	s.recordTransfer(t.kind.verb(), t.path, t.bytes, elapsed, true)
	s.teardownTransfer()
}

// failDataConnection ends a transfer whose data channel never opened:
// a 425 reply, plus removal of the file a STOR had just created.
func (s *Server) failDataConnection() {
	t := &s.transfer
	s.reply(StatusCantOpenDataConnection, "Can't open data connection")
	s.logger.Warn("data connection failed", "verb", t.kind.verb(), "path", t.path)
	s.recordTransfer(t.kind.verb(), t.path, t.bytes, s.now.Sub(t.start), false)

	removePath := ""
	if t.removeOnFail {
		removePath = t.path
	}
	s.teardownTransfer()
	if removePath != "" {
		if err := s.fs.Remove(removePath); err != nil {
			s.logger.Error("removing partial file", "path", removePath, "error", err)
		}
	}
}

// abortTransfer cancels any in-flight transfer immediately. It is safe to
// call at any point and is a no-op without one; it runs on ABOR, on
// disconnection and on every new connection cycle.
func (s *Server) abortTransfer() {
	t := &s.transfer
	if t.kind == transferNone {
		return
	}
	s.reply(StatusTransferAborted, "Transfer aborted")
	s.logger.Warn("transfer aborted",
		"verb", t.kind.verb(), "path", t.path, "bytes", t.bytes)
	s.recordTransfer(t.kind.verb(), t.path, t.bytes, s.now.Sub(t.start), false)
	s.teardownTransfer()
}

// teardownTransfer closes the file handle and data socket exactly once
// and resets the transfer state.
func (s *Server) teardownTransfer() {
	var errs *multierror.Error
	if s.transfer.file != nil {
		errs = multierror.Append(errs, s.transfer.file.Close())
	}
	if s.data.sock != nil {
		errs = multierror.Append(errs, s.data.sock.Close())
		s.data.sock = nil
	}
	if err := errs.ErrorOrNil(); err != nil {
		s.logger.Debug("transfer teardown", "error", err)
	}
	s.transfer = transfer{}
}
