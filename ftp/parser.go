package ftp

import "strings"

// maxLineLen bounds the command line accumulator. Bytes beyond the bound
// are dropped; the truncated line is still terminated normally so the
// parser never desynchronizes from the stream.
const maxLineLen = 256

// lineBuffer accumulates control-connection bytes until a CR or LF.
type lineBuffer struct {
	buf [maxLineLen]byte
	n   int
}

func (b *lineBuffer) reset() {
	b.n = 0
}

// readLine pulls available bytes off the socket until the first complete
// line. Backslashes are normalized to forward slashes as they arrive.
// It returns ok=false when no full line has been received yet; any bytes
// after the returned line stay buffered in the socket for the next poll.
func (b *lineBuffer) readLine(sock Socket) (line string, ok bool) {
	for sock.Available() > 0 {
		var one [1]byte
		n, _ := sock.Read(one[:])
		if n == 0 {
			break
		}

		c := one[0]
		if c == '\\' {
			c = '/'
		}

		if c != '\r' && c != '\n' {
			if b.n < len(b.buf) {
				b.buf[b.n] = c
				b.n++
			}
			continue
		}

		// Terminator with nothing accumulated is a no-op (the LF half
		// of a CRLF pair, or a bare keepalive newline).
		if b.n == 0 {
			continue
		}

		line = string(b.buf[:b.n])
		b.n = 0
		return line, true
	}
	return "", false
}

// parseCommandLine splits a raw line into an upper-cased verb and its
// parameter. The parameter starts after the first space; additional
// leading spaces are skipped.
func parseCommandLine(line string) (verb Command, param string) {
	verb = line
	if i := strings.IndexByte(line, ' '); i >= 0 {
		verb = line[:i]
		param = strings.TrimLeft(line[i+1:], " ")
	}
	return strings.ToUpper(verb), param
}
