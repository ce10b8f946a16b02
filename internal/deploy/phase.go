package deploy

import (
	"errors"
	"fmt"
)

type Phase string

const (
	PhasePreDeploy   Phase = "pre-deploy"
	PhaseBuild       Phase = "build"
	PhaseConnect     Phase = "connect"
	PhaseUpload      Phase = "upload"
	PhasePostDeploy  Phase = "post-deploy"
	PhaseStart       Phase = "start"
	PhaseAutoViewLog Phase = "auto-view-log"
	PhaseViewLog     Phase = "view-log"
)

// PhaseError is the failure that aborted a run.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s phase failed: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// Outcome is the terminal state of one run.
type Outcome struct {
	Success bool
	Phase   Phase
	Err     error
}

func OutcomeOf(err error) Outcome {
	if err == nil {
		return Outcome{Success: true}
	}
	var pe *PhaseError
	if errors.As(err, &pe) {
		return Outcome{Phase: pe.Phase, Err: pe.Err}
	}
	return Outcome{Err: err}
}
