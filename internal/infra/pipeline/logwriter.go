package pipeline

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/runoshun/git-murm/internal/domain"
)

// logWriter serializes stdout and stderr into one log, one stamped line at a time.
type logWriter struct {
	out     io.Writer
	echo    io.Writer // Optional live copy of output lines
	clock   domain.Clock
	slug    string
	streams []*streamWriter
	mu      sync.Mutex
}

func newLogWriter(out io.Writer, clock domain.Clock) *logWriter {
	return &logWriter{out: out, clock: clock}
}

// echoTo copies every output line to w, prefixed with slug.
func (w *logWriter) echoTo(echo io.Writer, slug string) {
	w.echo = echo
	w.slug = slug
}

// banner writes an orchestrator line. A leading newline in format is kept.
func (w *logWriter) banner(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	lead := ""
	if strings.HasPrefix(msg, "\n") {
		lead = "\n"
		msg = strings.TrimPrefix(msg, "\n")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, _ = fmt.Fprintf(w.out, "%s[%s] %s\n", lead, timestamp(w.clock.Now()), msg)
}

// stream returns a writer that tags complete lines with kind.
func (w *logWriter) stream(kind string) io.Writer {
	s := &streamWriter{parent: w, kind: kind}
	w.streams = append(w.streams, s)
	return s
}

// flush writes any trailing partial lines.
func (w *logWriter) flush() {
	for _, s := range w.streams {
		s.flush()
	}
}

func (w *logWriter) line(kind string, line []byte) {
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}
	line = bytes.TrimRight(line, "\r")
	w.mu.Lock()
	defer w.mu.Unlock()
	_, _ = fmt.Fprintf(w.out, "[%s] [%s] %s\n", timestamp(w.clock.Now()), kind, line)
	if w.echo != nil {
		_, _ = fmt.Fprintf(w.echo, "[%s] %s\n", w.slug, line)
	}
}

type streamWriter struct {
	parent *logWriter
	kind   string
	buf    []byte
}

func (s *streamWriter) Write(p []byte) (int, error) {
	s.buf = append(s.buf, p...)
	for {
		i := bytes.IndexByte(s.buf, '\n')
		if i < 0 {
			break
		}
		s.parent.line(s.kind, s.buf[:i])
		s.buf = s.buf[i+1:]
	}
	return len(p), nil
}

func (s *streamWriter) flush() {
	if len(s.buf) > 0 {
		s.parent.line(s.kind, s.buf)
		s.buf = nil
	}
}
