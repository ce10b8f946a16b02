// Package local runs deployment commands on the machine the deployer runs on.
package local

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"

	"deployer-backend/internal/pkg/deployerr"
	"deployer-backend/internal/pkg/lineio"
)

// Runner executes one command line through the platform shell.
type Runner struct {
	shell     string
	shellArgs []string
	enc       encoding.Encoding
}

type Option func(*Runner)

// WithShell overrides the shell used to interpret command lines.
func WithShell(shell string, args ...string) Option {
	return func(r *Runner) {
		r.shell = shell
		r.shellArgs = args
	}
}

// WithEncoding decodes command output from enc instead of the console code
// page. A nil encoding means the output is already UTF-8.
func WithEncoding(enc encoding.Encoding) Option {
	return func(r *Runner) {
		r.enc = enc
	}
}

func New(opts ...Option) *Runner {
	r := &Runner{enc: ConsoleEncoding()}

	switch runtime.GOOS {
	case "windows":
		r.shell = "cmd"
		r.shellArgs = []string{"/C"}
	default:
		r.shell = "/bin/sh"
		r.shellArgs = []string{"-c"}
	}

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute runs command in dir with the caller's environment. Every output
// line reaches onOutput; stderr lines carry lineio.StderrPrefix and are also
// collected into the error returned for a non-zero exit.
func (r *Runner) Execute(ctx context.Context, command, dir string, onOutput func(string)) error {
	args := append(append([]string{}, r.shellArgs...), command)
	cmd := exec.CommandContext(ctx, r.shell, args...)
	cmd.Dir = dir
	cmd.Env = os.Environ()

	em := lineio.NewEmitter(onOutput)
	stdoutLines := em.Writer("")
	stderrLines := em.Writer(lineio.StderrPrefix)

	var stderrText strings.Builder
	stdout := r.decoding(stdoutLines)
	stderr := r.decoding(io.MultiWriter(stderrLines, &stderrText))
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()

	_ = stdout.Close()
	_ = stderr.Close()
	stdoutLines.Flush()
	stderrLines.Flush()

	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &deployerr.LocalCommandError{
			Command:  command,
			ExitCode: exitErr.ExitCode(),
			Stderr:   stderrText.String(),
		}
	}
	return &deployerr.LaunchError{Command: command, Err: err}
}

func (r *Runner) decoding(w io.Writer) io.WriteCloser {
	if r.enc == nil {
		return nopCloser{w}
	}
	return transform.NewWriter(w, r.enc.NewDecoder())
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
