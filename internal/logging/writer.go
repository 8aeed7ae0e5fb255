package logging

import (
	"bytes"
	"log/slog"
	"sync"
)

// Writer is an io.Writer implementation that forwards command output to slog,
// one record per line. Partial lines are held until a newline or Flush.
type Writer struct {
	logger *slog.Logger
	msg    string

	mu  sync.Mutex
	buf bytes.Buffer
}

// NewWriter constructs a Writer bound to the provided logger. Each line is
// logged at info level with msg as the record message.
func NewWriter(logger *slog.Logger, msg string) *Writer {
	if msg == "" {
		msg = "command output"
	}
	return &Writer{logger: logger, msg: msg}
}

// Write logs every complete line in p.
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		idx := bytes.IndexByte(w.buf.Bytes(), '\n')
		if idx < 0 {
			break
		}
		line := string(bytes.TrimRight(w.buf.Next(idx+1), "\r\n"))
		w.emit(line)
	}
	return len(p), nil
}

// Flush logs any buffered partial line.
func (w *Writer) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf.Len() == 0 {
		return
	}
	line := string(bytes.TrimRight(w.buf.Bytes(), "\r\n"))
	w.buf.Reset()
	w.emit(line)
}

func (w *Writer) emit(line string) {
	if w.logger == nil || line == "" {
		return
	}
	w.logger.Info(w.msg, "line", line)
}
