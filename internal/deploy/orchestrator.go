// Package deploy drives a deployment run through its phases and reports
// progress as a stream of log events.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"deployer-backend/internal/model"
	"deployer-backend/internal/pkg/deployerr"
	"deployer-backend/internal/pkg/logger"
	"deployer-backend/internal/pkg/logstream"
	"deployer-backend/internal/pkg/upload"
)

const (
	// AutoViewLogWindow bounds the log tail that follows a deployment.
	AutoViewLogWindow = 5 * time.Second
	// ViewLogWindow bounds a standalone log viewing session.
	ViewLogWindow = 5 * time.Minute
)

// CommandRunner runs a shell command on the local machine.
type CommandRunner interface {
	Execute(ctx context.Context, command, dir string, onOutput func(string)) error
}

// RemoteSession is one authenticated connection to a target server.
type RemoteSession interface {
	Connect(ctx context.Context, server model.ServerConfig) error
	Execute(command string, onOutput func(string)) error
	UploadPath(localPath, remotePath string, obs upload.Observer) error
	Disconnect()
}

type Orchestrator struct {
	runner     CommandRunner
	newSession func() RemoteSession
	logger     *logger.Logger
	now        func() time.Time

	autoViewLogWindow time.Duration
	viewLogWindow     time.Duration
}

// NewOrchestrator builds an orchestrator. newSession is called once per
// run; each run owns its session exclusively.
func NewOrchestrator(runner CommandRunner, newSession func() RemoteSession, log *logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.NewNop()
	}
	return &Orchestrator{
		runner:            runner,
		newSession:        newSession,
		logger:            log,
		now:               time.Now,
		autoViewLogWindow: AutoViewLogWindow,
		viewLogWindow:     ViewLogWindow,
	}
}

// WithLogger returns a copy of o that logs through log.
func (o *Orchestrator) WithLogger(log *logger.Logger) *Orchestrator {
	cp := *o
	cp.logger = log
	return &cp
}

// run carries the per-invocation state.
type run struct {
	o       *Orchestrator
	sink    Sink
	project *model.DeployConfig
}

func (o *Orchestrator) begin(project *model.DeployConfig, sink Sink) *run {
	if sink == nil {
		sink = func(model.LogEvent) {}
	}
	return &run{o: o, sink: sink, project: project}
}

func (r *run) emit(kind model.LogKind, format string, args ...any) {
	r.sink(model.LogEvent{
		Message:   fmt.Sprintf(format, args...),
		Kind:      kind,
		Timestamp: r.o.now(),
	})
}

func (r *run) info(format string, args ...any)    { r.emit(model.LogInfo, format, args...) }
func (r *run) success(format string, args ...any) { r.emit(model.LogSuccess, format, args...) }
func (r *run) fail(format string, args ...any)    { r.emit(model.LogError, format, args...) }

// output forwards a command output line verbatim.
func (r *run) output(line string) {
	r.emit(model.LogInfo, "%s", line)
}

func (r *run) step(p Phase) {
	r.o.logger.DeploymentStep(string(p), r.project.ProjectName)
}

// Deploy executes the full pipeline for project against server. Events are
// delivered to sink synchronously, in order. The session is released
// exactly once before Deploy returns, whatever the outcome. A failure is
// returned as a *PhaseError naming the phase that aborted the run.
func (o *Orchestrator) Deploy(ctx context.Context, project *model.DeployConfig, server model.ServerConfig, sink Sink) error {
	r := o.begin(project, sink)
	sess := o.newSession()
	defer sess.Disconnect()

	r.info("Starting deployment for %s...", project.ProjectName)

	if err := r.deploy(ctx, sess, server); err != nil {
		var pe *PhaseError
		if errors.As(err, &pe) {
			o.logger.DeploymentError(string(pe.Phase), pe.Err)
			r.fail("Deployment failed in %s phase: %v", pe.Phase, pe.Err)
		} else {
			o.logger.DeploymentError("", err)
			r.fail("Deployment failed: %v", err)
		}
		return err
	}
	return nil
}

func (r *run) deploy(ctx context.Context, sess RemoteSession, server model.ServerConfig) error {
	p := r.project

	if err := r.preDeploy(ctx); err != nil {
		return err
	}

	if p.UploadEnabled() {
		if err := r.build(ctx); err != nil {
			return err
		}
		if strings.TrimSpace(p.ArtifactPath) == "" {
			r.info("No artifact path configured, skipping upload")
			if err := r.connect(ctx, sess, server); err != nil {
				return err
			}
		} else {
			localArtifact, remoteArtifact, info, err := r.artifact()
			if err != nil {
				return &PhaseError{Phase: PhaseUpload, Err: err}
			}
			if err := r.connect(ctx, sess, server); err != nil {
				return err
			}
			if err := r.upload(sess, localArtifact, remoteArtifact, info); err != nil {
				return err
			}
		}
	} else {
		r.info("Upload disabled, skipping build and upload")
		if err := r.connect(ctx, sess, server); err != nil {
			return err
		}
	}

	if err := r.postDeploy(sess); err != nil {
		return err
	}
	if err := r.start(sess); err != nil {
		return err
	}

	r.success("Deployment finished successfully!")
	r.o.logger.DeploymentSuccess("deploy")

	if p.AutoViewLog && strings.TrimSpace(p.LogCommand) != "" {
		r.autoViewLog(ctx, sess)
	}
	return nil
}

func (r *run) preDeploy(ctx context.Context) error {
	started := false
	for i, item := range r.project.PreDeployCommands {
		cmd := strings.TrimSpace(item.Command)
		if !item.Enabled || cmd == "" {
			continue
		}
		if !started {
			r.step(PhasePreDeploy)
			started = true
		}
		r.info("Executing pre-deploy command #%d: %s", i+1, cmd)
		if err := r.o.runner.Execute(ctx, cmd, r.project.LocalPath, r.output); err != nil {
			return &PhaseError{Phase: PhasePreDeploy, Err: err}
		}
	}
	return nil
}

func (r *run) build(ctx context.Context) error {
	cmd := strings.TrimSpace(r.project.BuildCommand)
	if cmd == "" {
		return nil
	}
	r.step(PhaseBuild)
	r.info("Executing build command: %s", cmd)
	if err := r.o.runner.Execute(ctx, cmd, r.project.LocalPath, r.output); err != nil {
		return &PhaseError{Phase: PhaseBuild, Err: err}
	}
	r.success("Build completed successfully")
	return nil
}

// artifact resolves the local artifact and its remote destination. The
// artifact keeps its base name under the remote path.
func (r *run) artifact() (string, string, os.FileInfo, error) {
	p := r.project
	local := filepath.Join(p.LocalPath, filepath.FromSlash(strings.TrimSpace(p.ArtifactPath)))
	info, err := os.Stat(local)
	if err != nil {
		return "", "", nil, &deployerr.ArtifactNotFoundError{Path: local}
	}
	remote := path.Join(p.RemotePath, path.Base(filepath.ToSlash(filepath.Clean(local))))
	return local, remote, info, nil
}

func (r *run) connect(ctx context.Context, sess RemoteSession, server model.ServerConfig) error {
	r.step(PhaseConnect)
	target := fmt.Sprintf("%s:%d", server.Host, server.Port)
	r.info("Connecting to %s...", target)
	r.o.logger.SSHConnectionAttempt(string(server.AuthType), target)
	if err := sess.Connect(ctx, server); err != nil {
		return &PhaseError{Phase: PhaseConnect, Err: err}
	}
	r.success("Connected to %s", target)
	return nil
}

func (r *run) upload(sess RemoteSession, local, remote string, info os.FileInfo) error {
	r.step(PhaseUpload)
	r.info("Uploading %s to %s", local, remote)

	var total int
	obs := upload.Observer{
		OnScan: func(n int) {
			total = n
			if info.IsDir() {
				r.info("Found %d files to upload", n)
			}
		},
		OnFile: func(p upload.Progress) {
			r.o.logger.UploadProgress(p.File, p.Uploaded, p.Total, p.Percent)
			r.info("%s", p.String())
		},
	}
	if !info.IsDir() {
		r.info("Uploading file: %s (%.2f MB)", filepath.Base(local), float64(info.Size())/1024/1024)
	}

	if err := sess.UploadPath(local, remote, obs); err != nil {
		return &PhaseError{Phase: PhaseUpload, Err: err}
	}
	if info.IsDir() {
		r.success("All %d files uploaded successfully", total)
	} else {
		r.success("Upload completed")
	}
	return nil
}

func (r *run) postDeploy(sess RemoteSession) error {
	started := false
	for i, item := range r.project.PostDeployCommands {
		cmd := strings.TrimSpace(item.Command)
		if !item.Enabled || cmd == "" {
			continue
		}
		if !started {
			r.step(PhasePostDeploy)
			started = true
		}
		r.info("Executing post-deploy command #%d: %s", i+1, cmd)
		if err := sess.Execute(cmd, r.output); err != nil {
			return &PhaseError{Phase: PhasePostDeploy, Err: err}
		}
	}
	return nil
}

func (r *run) start(sess RemoteSession) error {
	cmd := strings.TrimSpace(r.project.StartCommand)
	if cmd == "" {
		return nil
	}
	r.step(PhaseStart)
	r.info("Executing start command: %s", cmd)
	if err := sess.Execute(cmd, r.output); err != nil {
		return &PhaseError{Phase: PhaseStart, Err: err}
	}
	return nil
}

// autoViewLog tails the log briefly. The deployment has already succeeded,
// so nothing here can fail the run.
func (r *run) autoViewLog(ctx context.Context, sess RemoteSession) {
	r.step(PhaseAutoViewLog)
	cmd := strings.TrimSpace(r.project.LogCommand)
	r.info("Viewing logs for %s: %s", r.o.autoViewLogWindow, cmd)

	res, err := logstream.Tail(ctx, sess, cmd, r.output, r.o.autoViewLogWindow)
	switch {
	case err != nil:
		r.o.logger.Warn("auto log view ended with error", zap.Error(err))
		r.info("Log viewing stopped: %v", err)
	case res == logstream.TimedOut:
		r.info("Log viewing window elapsed")
	default:
		r.info("Log command finished")
	}
}

// ViewLog connects to server and tails the project's log command for up to
// the view log window. Reaching the window is a normal end.
func (o *Orchestrator) ViewLog(ctx context.Context, project *model.DeployConfig, server model.ServerConfig, sink Sink) error {
	r := o.begin(project, sink)

	cmd := strings.TrimSpace(project.LogCommand)
	if cmd == "" {
		r.fail("No log command configured for %s", project.ProjectName)
		return deployerr.ErrNoLogCommand
	}

	sess := o.newSession()
	defer sess.Disconnect()

	if err := r.connect(ctx, sess, server); err != nil {
		r.fail("Failed to view logs: %v", err)
		return err
	}

	r.step(PhaseViewLog)
	r.info("Executing log command: %s", cmd)
	res, err := logstream.Tail(ctx, sess, cmd, r.output, o.viewLogWindow)
	if err != nil {
		o.logger.DeploymentError(string(PhaseViewLog), err)
		r.fail("Failed to view logs: %v", err)
		return &PhaseError{Phase: PhaseViewLog, Err: err}
	}
	if res == logstream.TimedOut {
		r.info("Log viewing session ended: %v after %s", deployerr.ErrLogTimeout, o.viewLogWindow)
	} else {
		r.info("Log viewing session ended")
	}
	return nil
}
