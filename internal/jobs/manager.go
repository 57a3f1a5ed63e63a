package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"vigil/pkg/logger"
)

// Job represents a periodic background task.
type Job interface {
	Name() string
	Interval() time.Duration
	Run(ctx context.Context) error
}

// BackoffJob is a job that waits a shorter, fixed delay before its next run
// when the previous one failed, instead of sleeping the full interval.
type BackoffJob interface {
	Job
	Backoff() time.Duration
}

// Manager orchestrates the lifecycle of background jobs.
type Manager struct {
	ctx     context.Context
	cancel  context.CancelFunc
	jobs    []Job
	started bool

	mu sync.Mutex
	wg sync.WaitGroup
}

// NewManager creates a job manager bound to the provided context.
func NewManager(parent context.Context) *Manager {
	ctx, cancel := context.WithCancel(parent)
	return &Manager{
		ctx:    ctx,
		cancel: cancel,
		jobs:   make([]Job, 0),
	}
}

// Register adds a job to the manager.
func (m *Manager) Register(job Job) {
	if job == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
}

// Start launches all registered jobs.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	jobs := append([]Job(nil), m.jobs...)
	m.mu.Unlock()

	for _, job := range jobs {
		m.wg.Add(1)
		go m.runJob(job)
	}
}

// Stop signals all jobs to stop.
func (m *Manager) Stop() {
	m.cancel()
}

// Wait blocks until all jobs exit.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) runJob(job Job) {
	defer m.wg.Done()

	interval := job.Interval()
	if interval <= 0 {
		interval = time.Minute
	}

	// Run immediately once.
	err := m.executeJob(job)

	timer := time.NewTimer(m.nextDelay(job, interval, err))
	defer timer.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-timer.C:
			err = m.executeJob(job)
			timer.Reset(m.nextDelay(job, interval, err))
		}
	}
}

// nextDelay picks the wait before a job's next run: the job's backoff after
// a failed run, its regular interval otherwise.
func (m *Manager) nextDelay(job Job, interval time.Duration, err error) time.Duration {
	if err != nil {
		if backoffJob, ok := job.(BackoffJob); ok {
			if backoff := backoffJob.Backoff(); backoff > 0 {
				return backoff
			}
		}
	}
	return interval
}

func (m *Manager) executeJob(job Job) error {
	// Each run gets its own id so one cycle's log lines correlate.
	ctx := logger.WithRequestID(m.ctx, uuid.New().String()[:8])
	if err := job.Run(ctx); err != nil {
		logger.WarnCtx(ctx, "background job %s failed: %v", job.Name(), err)
		return err
	}
	return nil
}
