// Package tools holds small I/O helpers shared across the engine.
package tools

import (
	"io"
	"log/slog"
)

// LogWriter wraps a writer and logs everything written through it. The
// engine wraps the control connection with it so every reply line lands
// in the debug log.
type LogWriter struct {
	Writer io.Writer
	logger *slog.Logger
}

func (rw *LogWriter) Write(b []byte) (int, error) {
	if rw.logger != nil {
		rw.logger.Debug("Respond", "body", string(b))
	}
	return rw.Writer.Write(b)
}
func NewLogWriter(w io.Writer, logger *slog.Logger) *LogWriter {
	return &LogWriter{Writer: w, logger: logger}
}
