package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"deployer-backend/internal/deploy"
	"deployer-backend/internal/model"
	applog "deployer-backend/internal/pkg/logger"
)

var (
	ErrRunInProgress = errors.New("a run is already in progress for this project")
	ErrRunNotFound   = errors.New("run not found")
)

// ConfigSource resolves the stored configuration a run needs.
type ConfigSource interface {
	Project(id string) (model.DeployConfig, error)
	Server(id string) (model.ServerConfig, error)
}

type DeployService struct {
	configs ConfigSource
	orch    *deploy.Orchestrator
	logger  *applog.Logger
	runs    *registry
	now     func() time.Time
	newID   func() string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDeployService(configs ConfigSource, orch *deploy.Orchestrator, logger *applog.Logger) *DeployService {
	if logger == nil {
		logger = applog.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &DeployService{
		configs: configs,
		orch:    orch,
		logger:  logger,
		runs:    newRegistry(defaultRunHistory),
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
		ctx:     ctx,
		cancel:  cancel,
	}
}

// StartDeploy starts a deployment of the stored project in the background
// and returns its run id.
func (s *DeployService) StartDeploy(projectID string) (string, error) {
	return s.start(projectID, RunDeploy)
}

// StartViewLog starts a log viewing run for the stored project in the
// background and returns its run id.
func (s *DeployService) StartViewLog(projectID string) (string, error) {
	return s.start(projectID, RunViewLog)
}

func (s *DeployService) start(projectID string, kind RunKind) (string, error) {
	project, server, err := s.resolve(projectID)
	if err != nil {
		return "", err
	}
	st, err := s.reserve(kind, &project)
	if err != nil {
		return "", err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(s.ctx, st, kind, &project, server, nil)
	}()
	return st.run.ID, nil
}

// Execute runs synchronously, forwarding events to sink as well as to the
// run's subscribers.
func (s *DeployService) Execute(ctx context.Context, kind RunKind, project *model.DeployConfig, server model.ServerConfig, sink deploy.Sink) (Run, error) {
	st, err := s.reserve(kind, project)
	if err != nil {
		return Run{}, err
	}
	err = s.execute(ctx, st, kind, project, server, sink)
	return st.snapshot(), err
}

func (s *DeployService) resolve(projectID string) (model.DeployConfig, model.ServerConfig, error) {
	project, err := s.configs.Project(projectID)
	if err != nil {
		return model.DeployConfig{}, model.ServerConfig{}, err
	}
	server, err := s.configs.Server(project.ServerID)
	if err != nil {
		return model.DeployConfig{}, model.ServerConfig{}, fmt.Errorf("project %s: %w", project.ProjectName, err)
	}
	return project, server, nil
}

func (s *DeployService) reserve(kind RunKind, project *model.DeployConfig) (*runState, error) {
	st, ok := s.runs.reserve(Run{
		ID:          s.newID(),
		ProjectID:   project.ID,
		ProjectName: project.ProjectName,
		Kind:        kind,
		Status:      RunRunning,
		Logs:        []model.LogEvent{},
		StartedAt:   s.now(),
	})
	if !ok {
		return nil, ErrRunInProgress
	}
	return st, nil
}

func (s *DeployService) execute(ctx context.Context, st *runState, kind RunKind, project *model.DeployConfig, server model.ServerConfig, sink deploy.Sink) error {
	runID := st.run.ID
	log := s.logger.With(zap.String("run", runID), zap.String("kind", string(kind)))
	log.Info("run started", zap.String("project", project.ProjectName))

	orch := s.orch.WithLogger(log)
	out := deploy.MultiSink(st.append, sink)

	var err error
	switch kind {
	case RunViewLog:
		err = orch.ViewLog(ctx, project, server, out)
	default:
		err = orch.Deploy(ctx, project, server, out)
	}

	s.runs.release(project.ID, runID)
	st.finish(err, s.now())
	if err != nil {
		log.Warn("run failed", zap.Error(err))
	} else {
		log.Info("run finished")
	}
	return err
}

func (s *DeployService) Run(id string) (Run, error) {
	st, ok := s.runs.get(id)
	if !ok {
		return Run{}, ErrRunNotFound
	}
	return st.snapshot(), nil
}

// Runs lists known runs, newest first.
func (s *DeployService) Runs() []Run {
	states := s.runs.list()
	out := make([]Run, len(states))
	for i, st := range states {
		out[i] = st.snapshot()
	}
	return out
}

// Subscribe returns the events recorded so far and a channel delivering the
// rest. The channel closes when the run finishes or the subscriber falls
// too far behind; a closed channel while Run still reports RunRunning
// means the subscriber was dropped. cancel releases the subscription early.
func (s *DeployService) Subscribe(id string) (backlog []model.LogEvent, live <-chan model.LogEvent, cancel func(), err error) {
	st, ok := s.runs.get(id)
	if !ok {
		return nil, nil, nil, ErrRunNotFound
	}
	backlog, live, cancel = st.subscribe()
	return backlog, live, cancel, nil
}

// Wait blocks until run id has finished.
func (s *DeployService) Wait(ctx context.Context, id string) (Run, error) {
	st, ok := s.runs.get(id)
	if !ok {
		return Run{}, ErrRunNotFound
	}
	select {
	case <-st.done:
		return st.snapshot(), nil
	case <-ctx.Done():
		return Run{}, ctx.Err()
	}
}

// Shutdown cancels background runs and waits for them to return.
func (s *DeployService) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
