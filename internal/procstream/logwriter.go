package procstream

import (
	"bytes"
	"context"
	"log/slog"
)

// An [io.Writer] that logs every complete line written to it.
//
// Partial lines are buffered until a newline arrives or the writer is closed.
type LogWriter struct {
	log   *slog.Logger
	level slog.Level
	buf   bytes.Buffer
}

// Creates a writer logging lines at the given level.
func NewLogWriter(log *slog.Logger, level slog.Level) *LogWriter {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &LogWriter{log: log, level: level}
}

// Implements [io.Writer].
func (w *LogWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadBytes('\n')
		if err != nil {
			// No newline left; keep the partial line for the next write.
			rest := bytes.Clone(line)
			w.buf.Reset()
			w.buf.Write(rest)
			return len(p), nil
		}
		w.emit(line)
	}
}

// Logs any buffered partial line.
func (w *LogWriter) Close() error {
	if w.buf.Len() > 0 {
		w.emit(w.buf.Bytes())
		w.buf.Reset()
	}
	return nil
}

func (w *LogWriter) emit(line []byte) {
	w.log.Log(context.Background(), w.level, string(bytes.TrimRight(line, "\r\n")))
}
