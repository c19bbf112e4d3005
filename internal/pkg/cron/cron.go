package cron

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrJobNotFound = errors.New("job not found")

type JobStatus string

const (
	StatusIdle      JobStatus = "idle"
	StatusRunning   JobStatus = "running"
	StatusSucceeded JobStatus = "succeeded"
	StatusFailed    JobStatus = "failed"
)

// Job is a named function run every Interval.
type Job struct {
	Name        string
	Description string
	Interval    time.Duration
	Fn          func(ctx context.Context) error
}

// ListItem describes a job for the staff API.
type ListItem struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      JobStatus  `json:"status"`
	Interval    string     `json:"interval"`
	NextRunAt   time.Time  `json:"next_run_at"`
	LastRunAt   *time.Time `json:"last_run_at,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

// TaskResult is the outcome of the latest run of a job.
type TaskResult struct {
	Status  JobStatus     `json:"status"`
	Message string        `json:"message,omitempty"`
	Took    time.Duration `json:"took_ns,omitempty"`
}

type jobState struct {
	job Job

	mu      sync.Mutex
	status  JobStatus
	lastErr string
	lastRun *time.Time
	took    time.Duration
	next    time.Time
}

func (js *jobState) snapshot() ListItem {
	js.mu.Lock()
	defer js.mu.Unlock()
	return ListItem{
		Name:        js.job.Name,
		Description: js.job.Description,
		Status:      js.status,
		Interval:    js.job.Interval.String(),
		NextRunAt:   js.next,
		LastRunAt:   js.lastRun,
		LastError:   js.lastErr,
	}
}

// Scheduler runs registered jobs on their intervals. Each job runs at most
// once at a time; a tick that lands on a running job is skipped.
type Scheduler struct {
	mu     sync.RWMutex
	jobs   map[string]*jobState
	logger *zap.Logger
	now    func() time.Time
}

func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{jobs: make(map[string]*jobState), logger: logger, now: time.Now}
}

// Register adds or replaces a job. Jobs registered after Start are not
// scheduled, only runnable by hand.
func (s *Scheduler) Register(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.Name] = &jobState{job: job, status: StatusIdle, next: s.now().Add(job.Interval)}
}

// Start schedules every registered job until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, js := range s.jobs {
		go s.loop(ctx, js)
	}
}

func (s *Scheduler) loop(ctx context.Context, js *jobState) {
	timer := time.NewTimer(js.job.Interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		s.execute(ctx, js)

		js.mu.Lock()
		js.next = s.now().Add(js.job.Interval)
		js.mu.Unlock()
		timer.Reset(js.job.Interval)
	}
}

// execute runs the job unless it is already running and reports whether it ran.
func (s *Scheduler) execute(ctx context.Context, js *jobState) bool {
	js.mu.Lock()
	if js.status == StatusRunning {
		js.mu.Unlock()
		return false
	}
	js.status = StatusRunning
	js.mu.Unlock()

	started := s.now()
	err := js.job.Fn(ctx)
	took := s.now().Sub(started)

	js.mu.Lock()
	js.lastRun = &started
	js.took = took
	js.status, js.lastErr = StatusSucceeded, ""
	if err != nil {
		js.status, js.lastErr = StatusFailed, err.Error()
	}
	js.mu.Unlock()

	log := s.logger.With(zap.String("job", js.job.Name), zap.Duration("took", took))
	if err != nil {
		log.Warn("cron job failed", zap.Error(err))
	} else {
		log.Debug("cron job done")
	}
	return true
}

func (s *Scheduler) lookup(name string) (*jobState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if js, ok := s.jobs[name]; ok {
		return js, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrJobNotFound, name)
}

// Run starts a job in the background, detached from ctx cancellation.
func (s *Scheduler) Run(ctx context.Context, name string) error {
	js, err := s.lookup(name)
	if err != nil {
		return err
	}
	go s.execute(context.WithoutCancel(ctx), js)
	return nil
}

// RunSync runs a job in the caller's goroutine and returns its outcome.
// If the job is already running the current state is returned instead.
func (s *Scheduler) RunSync(ctx context.Context, name string) (*TaskResult, error) {
	js, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	s.execute(ctx, js)
	return s.GetTask(name)
}

// GetTask returns the latest run outcome of a job.
func (s *Scheduler) GetTask(name string) (*TaskResult, error) {
	js, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	js.mu.Lock()
	defer js.mu.Unlock()
	return &TaskResult{Status: js.status, Message: js.lastErr, Took: js.took}, nil
}

// List returns all jobs sorted by name.
func (s *Scheduler) List() []ListItem {
	s.mu.RLock()
	items := make([]ListItem, 0, len(s.jobs))
	for _, js := range s.jobs {
		items = append(items, js.snapshot())
	}
	s.mu.RUnlock()
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items
}
