package service

import (
	"sync"
	"time"

	"deployer-backend/internal/deploy"
	"deployer-backend/internal/model"
)

type RunKind string

const (
	RunDeploy  RunKind = "deploy"
	RunViewLog RunKind = "view-log"
)

type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
)

// Run is a point-in-time snapshot of one deployment or log viewing run.
type Run struct {
	ID          string           `json:"id"`
	ProjectID   string           `json:"projectId"`
	ProjectName string           `json:"projectName"`
	Kind        RunKind          `json:"kind"`
	Status      RunStatus        `json:"status"`
	Phase       deploy.Phase     `json:"phase,omitempty"`
	Error       string           `json:"error,omitempty"`
	Logs        []model.LogEvent `json:"logs"`
	StartedAt   time.Time        `json:"startedAt"`
	FinishedAt  *time.Time       `json:"finishedAt,omitempty"`
}

const (
	defaultRunHistory = 100
	subscriberBuffer  = 256
)

type runState struct {
	mu   sync.Mutex
	run  Run
	subs map[chan model.LogEvent]struct{}
	done chan struct{}
}

func (s *runState) append(ev model.LogEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.run.Logs = append(s.run.Logs, ev)
	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
			// subscriber fell behind; cut it loose
			delete(s.subs, ch)
			close(ch)
		}
	}
}

func (s *runState) finish(err error, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := deploy.OutcomeOf(err)
	if out.Success {
		s.run.Status = RunSuccess
	} else {
		s.run.Status = RunFailed
		s.run.Phase = out.Phase
		s.run.Error = err.Error()
	}
	s.run.FinishedAt = &now
	for ch := range s.subs {
		close(ch)
	}
	s.subs = nil
	close(s.done)
}

func (s *runState) snapshot() Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.run
	r.Logs = append([]model.LogEvent(nil), s.run.Logs...)
	return r
}

// subscribe returns the events so far and a channel for the rest. The
// channel is closed when the run finishes. For a finished run it is
// already closed.
func (s *runState) subscribe() ([]model.LogEvent, <-chan model.LogEvent, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	backlog := append([]model.LogEvent(nil), s.run.Logs...)
	ch := make(chan model.LogEvent, subscriberBuffer)
	if s.subs == nil {
		close(ch)
		return backlog, ch, func() {}
	}
	s.subs[ch] = struct{}{}
	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
	return backlog, ch, cancel
}

// registry tracks runs by id, bounded to the most recent entries, and the
// active run of each project.
type registry struct {
	mu     sync.Mutex
	runs   map[string]*runState
	order  []string
	active map[string]string
	limit  int
}

func newRegistry(limit int) *registry {
	return &registry{
		runs:   make(map[string]*runState),
		active: make(map[string]string),
		limit:  limit,
	}
}

// reserve registers a new running run unless the project already has one.
func (r *registry) reserve(run Run) (*runState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.active[run.ProjectID]; busy {
		return nil, false
	}
	st := &runState{
		run:  run,
		subs: make(map[chan model.LogEvent]struct{}),
		done: make(chan struct{}),
	}
	r.runs[run.ID] = st
	r.order = append(r.order, run.ID)
	r.active[run.ProjectID] = run.ID
	r.evict()
	return st, true
}

func (r *registry) release(projectID, runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active[projectID] == runID {
		delete(r.active, projectID)
	}
}

// evict drops the oldest finished runs beyond the limit. Running runs are
// never dropped.
func (r *registry) evict() {
	if len(r.order) <= r.limit {
		return
	}
	excess := len(r.order) - r.limit
	kept := r.order[:0]
	for _, id := range r.order {
		st := r.runs[id]
		if excess > 0 && r.active[st.run.ProjectID] != id {
			delete(r.runs, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
}

func (r *registry) get(id string) (*runState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.runs[id]
	return st, ok
}

func (r *registry) list() []*runState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*runState, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		out = append(out, r.runs[r.order[i]])
	}
	return out
}
