// Package jobs runs background work on a small in-process worker pool and remembers the outcome of
// recent jobs so callers can poll for them.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Job states.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

const defaultHistorySize = 100

// ErrNotStarted is returned by Enqueue before Start or after Stop.
var ErrNotStarted = errors.New("jobs: queue not running")

// Job is a unit of background work. Attempt counts retries already performed.
type Job struct {
	ID         string
	Type       string
	Attempt    int
	EnqueuedAt time.Time
}

// State is the observable lifecycle of a job.
type State struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Status     string     `json:"status"`
	Attempt    int        `json:"attempt"`
	Error      string     `json:"error,omitempty"`
	EnqueuedAt time.Time  `json:"enqueuedAt"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// QueueConfig tunes a Queue. MaxRetries counts attempts after the first; zero disables retries.
type QueueConfig struct {
	Workers     int
	BufferSize  int
	MaxRetries  int
	RetryDelay  time.Duration
	HistorySize int
	Logger      *zap.Logger
}

// Queue dispatches jobs to a fixed set of worker goroutines.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig
	logger  *zap.Logger
	pending chan Job

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	ctx      context.Context
	workers  sync.WaitGroup
	states   map[string]*State
	finished []string
}

// NewQueue returns an idle queue; call Start before enqueueing.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 4 * cfg.Workers
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = defaultHistorySize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		name:    name,
		handler: handler,
		cfg:     cfg,
		logger:  logger.With(zap.String("queue", name)),
		pending: make(chan Job, cfg.BufferSize),
		states:  make(map[string]*State),
	}
}

// Start launches the workers. Calling it on a running queue does nothing.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	q.running = true
	for i := 1; i <= q.cfg.Workers; i++ {
		q.workers.Add(1)
		go q.work(i)
	}
	q.logger.Info("queue started", zap.Int("workers", q.cfg.Workers))
}

// Stop cancels in-flight jobs and waits for every worker to return.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	q.cancel()
	q.mu.Unlock()

	q.workers.Wait()
	q.logger.Info("queue stopped")
}

// Enqueue assigns the job an ID when it has none and hands it to a worker.
func (q *Queue) Enqueue(job Job) (Job, error) {
	q.mu.Lock()
	running, ctx := q.running, q.ctx
	q.mu.Unlock()
	if !running {
		return job, fmt.Errorf("%w: %s", ErrNotStarted, q.name)
	}

	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	q.update(job, func(s *State) { s.Status = StatusQueued })

	select {
	case q.pending <- job:
		return job, nil
	case <-ctx.Done():
		q.complete(job, StatusFailed, ctx.Err().Error())
		return job, fmt.Errorf("%w: %s: %v", ErrNotStarted, q.name, ctx.Err())
	}
}

// State returns a copy of the job's last known state.
func (q *Queue) State(id string) (State, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if s, ok := q.states[id]; ok {
		return *s, true
	}
	return State{}, false
}

func (q *Queue) work(id int) {
	defer q.workers.Done()
	log := q.logger.With(zap.Int("worker", id))
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.pending:
			q.run(log, job)
		}
	}
}

// run executes the job, retrying in place up to MaxRetries times.
func (q *Queue) run(log *zap.Logger, job Job) {
	for {
		q.update(job, func(s *State) {
			now := time.Now().UTC()
			s.Status = StatusRunning
			s.StartedAt = &now
		})

		err := q.handler(q.ctx, job)
		if err == nil {
			q.complete(job, StatusSucceeded, "")
			return
		}

		fields := []zap.Field{zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempt", job.Attempt), zap.Error(err)}
		if job.Attempt >= q.cfg.MaxRetries {
			log.Error("job failed", fields...)
			q.complete(job, StatusFailed, err.Error())
			return
		}
		log.Warn("job failed, retrying", fields...)

		timer := time.NewTimer(q.cfg.RetryDelay)
		select {
		case <-q.ctx.Done():
			timer.Stop()
			q.complete(job, StatusFailed, q.ctx.Err().Error())
			return
		case <-timer.C:
		}
		job.Attempt++
	}
}

func (q *Queue) update(job Job, apply func(*State)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	s, ok := q.states[job.ID]
	if !ok {
		s = &State{ID: job.ID, Type: job.Type, EnqueuedAt: job.EnqueuedAt}
		q.states[job.ID] = s
	}
	s.Attempt = job.Attempt
	apply(s)
}

// complete records the terminal state and evicts the oldest finished jobs beyond HistorySize.
func (q *Queue) complete(job Job, status, errMsg string) {
	q.update(job, func(s *State) {
		now := time.Now().UTC()
		s.Status = status
		s.Error = errMsg
		s.FinishedAt = &now
	})

	q.mu.Lock()
	defer q.mu.Unlock()
	q.finished = append(q.finished, job.ID)
	for len(q.finished) > q.cfg.HistorySize {
		delete(q.states, q.finished[0])
		q.finished = q.finished[1:]
	}
}
