package ftp

import (
	"fmt"
	"strings"
)

func (s *Server) handlePwd(string) {
	s.reply(StatusPathnameCreated, fmt.Sprintf("%q is current directory", s.workingDir))
}

func (s *Server) handleCdup(string) {
	if s.workingDir == "" {
		s.reply(StatusFileUnavailable, "Current directory not set")
		return
	}
	if s.workingDir == "/" {
		s.reply(StatusFileActionOK, "Already at root directory")
		return
	}
	parent := s.workingDir[:strings.LastIndex(s.workingDir, "/")]
	if parent == "" {
		parent = "/"
	}
	s.workingDir = parent
	s.reply(StatusFileActionOK, fmt.Sprintf("CDUP command successful. Current directory: %q", s.workingDir))
}

func (s *Server) handleCwd(param string) {
	if param == "." {
		s.reply(StatusPathnameCreated, fmt.Sprintf("%q is current directory", s.workingDir))
		return
	}
	path, err := resolvePath(s.workingDir, param)
	if err != nil {
		s.reply(StatusFileUnavailable, "Invalid path")
		return
	}
	if !s.fs.IsDir(path) {
		s.reply(StatusFileUnavailable, "Directory not found")
		return
	}
	s.workingDir = path
	s.reply(StatusFileActionOK, "CWD command successful")
}

func (s *Server) handleQuit(string) {
	s.logger.Info("client quit", "username", s.username)
	s.disconnectClient()
	s.phase = phaseIdle
}

func (s *Server) handlePasv(string) {
	s.closeDataSocket()
	s.data.mode = dataPassive
	ip := s.PublicServerIPv4
	s.reply(StatusEnteringPassiveMode, fmt.Sprintf("Entering Passive Mode (%d,%d,%d,%d,%d,%d)",
		ip[0], ip[1], ip[2], ip[3], s.PassivePort>>8, s.PassivePort&0xff))
}

func (s *Server) handlePort(param string) {
	s.closeDataSocket()
	addr, port, err := parseHostPort(param)
	if err != nil {
		s.reply(StatusSyntaxErrorInParameters, "Invalid PORT format")
		return
	}
	s.data.mode = dataActive
	s.data.activeAddr = addr
	s.data.activePort = port
	s.reply(StatusCommandOK, "PORT command successful")
}

func (s *Server) handleType(param string) {
	switch strings.ToUpper(param) {
	case "A":
		s.reply(StatusCommandOK, "Type set to ASCII")
	case "I":
		s.reply(StatusCommandOK, "Type set to binary")
	default:
		s.reply(StatusCommandNotImplementedForParam, "Unsupported type")
	}
}

func (s *Server) handleList(param string) {
	s.startDirectoryListing(transferList, param)
}

func (s *Server) handleMlsd(param string) {
	if param == "" {
		param = "."
	}
	s.startDirectoryListing(transferMLSD, param)
}

// startDirectoryListing renders the directory once, at command time, and
// arms the listing transfer. The payload streams out chunk by chunk as
// soon as the data connection is up.
func (s *Server) startDirectoryListing(kind transferKind, param string) {
	if s.transfer.kind != transferNone {
		s.reply(StatusFileActionNotTaken, "Transfer already in progress")
		return
	}
	path := s.workingDir
	if param != "" && param != "." {
		resolved, err := resolvePath(s.workingDir, param)
		if err != nil {
			s.reply(StatusFileUnavailable, "Invalid path")
			return
		}
		path = resolved
	}
	if !s.fs.IsDir(path) {
		s.reply(StatusFileUnavailable, "Directory not found")
		return
	}
	entries, err := s.fs.ReadDir(path)
	if err != nil {
		s.reply(StatusFileUnavailable, "Directory not found")
		return
	}

	var b strings.Builder
	for _, e := range entries {
		if kind == transferMLSD {
			typ := "file"
			if e.IsDir {
				typ = "dir"
			}
			fmt.Fprintf(&b, "Type=%s;Size=%d;Modify=20000101000000; %s\r\n", typ, e.Size, e.Name)
		} else {
			mode := "-rw-r--r--"
			if e.IsDir {
				mode = "drwxr-xr-x"
			}
			fmt.Fprintf(&b, "%s 1 owner group %d Jan 1 2000 %s\r\n", mode, e.Size, e.Name)
		}
	}

	if kind == transferMLSD {
		s.reply(StatusFileStatusOK, "Opening ASCII mode data connection for MLSD")
	} else {
		s.reply(StatusFileStatusOK, "Opening ASCII mode data connection for file list")
	}
	s.startListing(kind, path, []byte(b.String()), len(entries))
	s.logger.Info("listing directory", "verb", kind.verb(), "path", path, "entries", len(entries))
}

func (s *Server) handleRetr(param string) {
	if param == "" {
		s.reply(StatusSyntaxErrorInParameters, "No filename given")
		return
	}
	if s.transfer.kind != transferNone {
		s.reply(StatusFileActionNotTaken, "Transfer already in progress")
		return
	}
	path, err := resolvePath(s.workingDir, param)
	if err != nil {
		s.reply(StatusFileUnavailable, "Invalid path")
		return
	}
	file, err := s.fs.Open(path)
	if err != nil {
		s.reply(StatusFileUnavailable, "File not found")
		return
	}
	s.reply(StatusFileStatusOK, "Opening data connection")
	s.startTransfer(transferRetrieve, file, path, false)
	s.logger.Info("retrieving file", "path", path)
}

func (s *Server) handleStor(param string) {
	if param == "" {
		s.reply(StatusSyntaxErrorInParameters, "No filename given")
		return
	}
	if s.transfer.kind != transferNone {
		s.reply(StatusFileActionNotTaken, "Transfer already in progress")
		return
	}
	path, err := resolvePath(s.workingDir, param)
	if err != nil {
		s.reply(StatusFileUnavailable, "Invalid path")
		return
	}
	if s.fs.Exists(path) {
		probe, err := s.fs.Append(path)
		if err != nil {
			s.reply(StatusFileUnavailable, "File exists but can't be opened")
			return
		}
		if err := probe.Close(); err != nil {
			s.logger.Debug("closing probe handle", "path", path, "error", err)
		}
	}
	file, err := s.fs.Create(path)
	if err != nil {
		s.reply(StatusLocalProcessingError, "Can't create file")
		return
	}
	s.reply(StatusFileStatusOK, "Ready to receive data")
	s.startTransfer(transferStore, file, path, true)
	s.logger.Info("storing file", "path", path)
}

func (s *Server) handleDele(param string) {
	if param == "" {
		s.reply(StatusSyntaxErrorInParameters, "No filename given")
		return
	}
	path, err := resolvePath(s.workingDir, param)
	if err != nil {
		s.reply(StatusFileUnavailable, "Invalid path")
		return
	}
	if !s.fs.Exists(path) {
		s.reply(StatusFileUnavailable, "File not found")
		return
	}
	if err := s.fs.Remove(path); err != nil {
		s.reply(StatusFileActionNotTaken, "Could not delete file")
		s.logger.Error("deleting file", "path", path, "error", err)
		return
	}
	s.reply(StatusFileActionOK, "File deleted")
	s.logger.Info("file deleted", "path", path)
}

func (s *Server) handleMkd(param string) {
	if param == "" {
		s.reply(StatusSyntaxErrorInParameters, "No directory name given")
		return
	}
	path, err := resolvePath(s.workingDir, param)
	if err != nil {
		s.reply(StatusFileUnavailable, "Invalid path")
		return
	}
	if err := s.fs.MakeDir(path); err != nil {
		s.reply(StatusFileUnavailable, "Can't create directory")
		s.logger.Error("creating directory", "path", path, "error", err)
		return
	}
	s.reply(StatusPathnameCreated, fmt.Sprintf("%q created", path))
	s.logger.Info("directory created", "path", path)
}

func (s *Server) handleRmd(param string) {
	if param == "" {
		s.reply(StatusSyntaxErrorInParameters, "No directory name given")
		return
	}
	path, err := resolvePath(s.workingDir, param)
	if err != nil {
		s.reply(StatusFileUnavailable, "Invalid path")
		return
	}
	if !s.fs.IsDir(path) {
		s.reply(StatusFileUnavailable, "Not a directory or doesn't exist")
		return
	}
	entries, err := s.fs.ReadDir(path)
	if err != nil {
		s.reply(StatusFileUnavailable, "Not a directory or doesn't exist")
		return
	}
	if len(entries) > 0 {
		s.reply(StatusFileUnavailable, "Directory not empty")
		return
	}
	if err := s.fs.RemoveDir(path); err != nil {
		s.reply(StatusFileUnavailable, "Could not remove directory")
		s.logger.Error("removing directory", "path", path, "error", err)
		return
	}
	s.reply(StatusFileActionOK, "Directory removed")
	s.logger.Info("directory removed", "path", path)
}

func (s *Server) handleRnfr(param string) {
	if param == "" {
		s.reply(StatusSyntaxErrorInParameters, "No filename given")
		return
	}
	path, err := resolvePath(s.workingDir, param)
	if err != nil {
		s.reply(StatusFileUnavailable, "Invalid path")
		return
	}
	if !s.fs.Exists(path) && !s.fs.IsDir(path) {
		s.reply(StatusFileUnavailable, "File not found")
		return
	}
	s.renameFrom = path
	s.rnfrSeen = true
	s.reply(StatusFileActionPending, "RNFR accepted - ready for destination")
}

func (s *Server) handleRnto(param string) {
	if !s.rnfrSeen {
		s.reply(StatusBadSequenceOfCommands, "RNFR required first")
		return
	}
	from := s.renameFrom
	s.renameFrom = ""
	s.rnfrSeen = false

	if param == "" {
		s.reply(StatusSyntaxErrorInParameters, "No filename given")
		return
	}
	path, err := resolvePath(s.workingDir, param)
	if err != nil {
		s.reply(StatusFileUnavailable, "Invalid path")
		return
	}
	if s.fs.Exists(path) || s.fs.IsDir(path) {
		s.reply(StatusFileNameNotAllowed, "Destination already exists")
		return
	}
	if err := s.fs.Rename(from, path); err != nil {
		s.reply(StatusFileNameNotAllowed, "Rename failed")
		s.logger.Error("renaming", "from", from, "to", path, "error", err)
		return
	}
	s.reply(StatusFileActionOK, "Rename successful")
	s.logger.Info("renamed", "from", from, "to", path)
}

func (s *Server) handleSize(param string) {
	if param == "" {
		s.reply(StatusSyntaxErrorInParameters, "No filename given")
		return
	}
	path, err := resolvePath(s.workingDir, param)
	if err != nil {
		s.reply(StatusFileUnavailable, "Invalid path")
		return
	}
	if !s.fs.Exists(path) || s.fs.IsDir(path) {
		s.reply(StatusFileUnavailable, "File not found")
		return
	}
	size, err := s.fs.Size(path)
	if err != nil {
		s.reply(StatusFileUnavailable, "File not found")
		return
	}
	s.reply(StatusFileStatus, fmt.Sprintf("%d", size))
}

func (s *Server) handleSyst(string) {
	s.reply(StatusNameSystemType, "UNIX Type: L8")
}

func (s *Server) handleFeat(string) {
	fmt.Fprintf(s.writer, "%d-Extensions supported:\r\n", StatusSystemStatus)
	fmt.Fprintf(s.writer, " MLSD\r\n")
	fmt.Fprintf(s.writer, " SIZE\r\n")
	fmt.Fprintf(s.writer, " MDTM\r\n")
	s.reply(StatusSystemStatus, "End")
}

func (s *Server) handleNoop(string) {
	s.reply(StatusCommandOK, "NOOP command successful")
}

func (s *Server) handleAbor(string) {
	s.abortTransfer()
	s.reply(StatusClosingDataConnection, "ABOR command successful")
}
