// Package lineio turns command output streams into whole lines delivered to
// a callback. Several writers created from one Emitter share its lock, so
// stdout and stderr copied on separate goroutines never call the callback
// concurrently.
package lineio

import (
	"bytes"
	"strings"
	"sync"
)

const StderrPrefix = "[STDERR] "

type Emitter struct {
	mu sync.Mutex
	fn func(string)
}

func NewEmitter(fn func(string)) *Emitter {
	if fn == nil {
		fn = func(string) {}
	}
	return &Emitter{fn: fn}
}

// Writer returns an io.Writer that emits every completed line with prefix
// prepended. Call Flush once the stream is done to emit a trailing partial
// line.
func (e *Emitter) Writer(prefix string) *Writer {
	return &Writer{e: e, prefix: prefix}
}

func (e *Emitter) emit(line string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fn(line)
}

type Writer struct {
	e      *Emitter
	prefix string

	mu  sync.Mutex
	buf []byte
}

func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimSuffix(string(w.buf[:i]), "\r")
		w.buf = w.buf[i+1:]
		w.e.emit(w.prefix + line)
	}
	return len(p), nil
}

func (w *Writer) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.buf) == 0 {
		return
	}
	line := strings.TrimSuffix(string(w.buf), "\r")
	w.buf = nil
	w.e.emit(w.prefix + line)
}
