// Package deployerr holds the error kinds a deployment run can fail with.
package deployerr

import (
	"errors"
	"fmt"
)

var (
	// ErrLogTimeout marks a log tail that hit its deadline. It is an
	// informational outcome and never fails a run.
	ErrLogTimeout = errors.New("log viewing timeout")

	ErrNotConnected = errors.New("SSH connection not established")
	ErrNoLogCommand = errors.New("no log command configured")
)

// LocalCommandError is a local command that exited with a non-zero code.
type LocalCommandError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *LocalCommandError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("local command %q failed with code %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("local command %q failed with code %d.\nDetails:\n%s", e.Command, e.ExitCode, e.Stderr)
}

// LaunchError is a local command that could not be started at all.
type LaunchError struct {
	Command string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to start local command %q: %v", e.Command, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("SSH connection to %s failed: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// AuthConfigError is a server record whose credentials do not match its
// auth mode. It is reported before any dial.
type AuthConfigError struct {
	Reason string
}

func (e *AuthConfigError) Error() string {
	return "invalid SSH auth config: " + e.Reason
}

type RemoteCommandError struct {
	Command  string
	ExitCode int
}

func (e *RemoteCommandError) Error() string {
	return fmt.Sprintf("remote command %q failed with code %d", e.Command, e.ExitCode)
}

type ArtifactNotFoundError struct {
	Path string
}

func (e *ArtifactNotFoundError) Error() string {
	return "artifact not found: " + e.Path
}

// TransferError identifies the file whose upload aborted the transfer.
type TransferError struct {
	File string
	Err  error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("upload of %s failed: %v", e.File, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }
