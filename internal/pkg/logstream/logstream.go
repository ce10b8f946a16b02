// Package logstream tails a remote log command, optionally for a bounded
// time.
package logstream

import (
	"context"
	"sync"
	"time"
)

// Executor runs one remote command and forwards its output lines.
type Executor interface {
	Execute(command string, onOutput func(string)) error
}

type Result int

const (
	// Ended means the command exited on its own with status 0.
	Ended Result = iota
	// TimedOut means the deadline passed first. The remote command is left
	// running; only this client stops listening.
	TimedOut
)

func (r Result) String() string {
	switch r {
	case Ended:
		return "ended"
	case TimedOut:
		return "timed out"
	default:
		return "unknown"
	}
}

// Tail runs command through e and forwards its output to onOutput. With a
// positive deadline, reaching it is a normal result, not an error. A
// command failing before the deadline is returned as its error. Once Tail
// returns, onOutput is never called again.
func Tail(ctx context.Context, e Executor, command string, onOutput func(string), deadline time.Duration) (Result, error) {
	g := &gate{fn: onOutput}
	done := make(chan error, 1)
	go func() {
		done <- e.Execute(command, g.emit)
	}()

	var timeout <-chan time.Time
	if deadline > 0 {
		timer := time.NewTimer(deadline)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case err := <-done:
		g.close()
		return Ended, err
	case <-timeout:
		g.close()
		return TimedOut, nil
	case <-ctx.Done():
		g.close()
		return Ended, ctx.Err()
	}
}

type gate struct {
	mu     sync.Mutex
	closed bool
	fn     func(string)
}

func (g *gate) emit(line string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed || g.fn == nil {
		return
	}
	g.fn(line)
}

func (g *gate) close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
}
