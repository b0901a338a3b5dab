package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gcbaptista/go-facet-search/internal/errors"
	"github.com/gcbaptista/go-facet-search/internal/metrics"
	"github.com/gcbaptista/go-facet-search/model"
)

// DefaultRetention is how long finished jobs stay queryable.
const DefaultRetention = time.Hour

// Func is the body of a job. It receives a snapshot of the job and returns
// an optional result stored on completion.
type Func func(ctx context.Context, job *model.Job) (interface{}, error)

// Manager handles background job execution and tracking
type Manager struct {
	mu        sync.RWMutex
	jobs      map[string]*model.Job
	workers   chan struct{} // limits concurrent jobs
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	retention time.Duration
	logger    *zap.Logger
	metrics   *metrics.Metrics
	stopped   bool // guarded by mu; no wg.Add after it is set
	stopOnce  sync.Once
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithMetrics records job counters on the given metrics.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithRetention sets how long finished jobs are kept.
func WithRetention(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.retention = d
		}
	}
}

// NewManager creates a new job manager with specified worker count
func NewManager(maxWorkers int, opts ...Option) *Manager {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		jobs:      make(map[string]*model.Job),
		workers:   make(chan struct{}, maxWorkers),
		ctx:       ctx,
		cancel:    cancel,
		retention: DefaultRetention,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start launches the cleanup routine
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	m.logger.Info("job manager started", zap.Int("max_workers", cap(m.workers)), zap.Duration("retention", m.retention))
	m.wg.Add(1)
	go m.cleanupRoutine()
}

// Stop cancels running jobs and waits for them to return.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		m.stopped = true
		m.mu.Unlock()

		m.cancel()
		m.wg.Wait()
		m.logger.Info("job manager stopped")
	})
}

// CreateJob creates a new pending job and returns its ID
func (m *Manager) CreateJob(jobType model.JobType, indexName string, metadata map[string]string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	job := &model.Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Status:    model.JobStatusPending,
		IndexName: indexName,
		CreatedAt: time.Now(),
		Metadata:  metadata,
	}
	m.jobs[job.ID] = job
	m.logger.Debug("job created", zap.String("job_id", job.ID), zap.String("type", string(jobType)), zap.String("index", indexName))
	return job.ID
}

// GetJob retrieves a copy of a job by ID
func (m *Manager) GetJob(jobID string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return nil, errors.NewJobNotFoundError(jobID)
	}
	return job.Copy(), nil
}

// ListJobs returns the jobs of an index, oldest first, optionally filtered by status
func (m *Manager) ListJobs(indexName string, status *model.JobStatus) []*model.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*model.Job, 0)
	for _, job := range m.jobs {
		if job.IndexName != indexName {
			continue
		}
		if status != nil && job.Status != *status {
			continue
		}
		result = append(result, job.Copy())
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// ExecuteJob schedules fn for a pending job. The job waits for a free worker
// slot in the background, so the caller never blocks.
func (m *Manager) ExecuteJob(jobID string, fn Func) error {
	m.mu.Lock()
	if m.stopped || m.ctx.Err() != nil {
		m.mu.Unlock()
		m.finish(jobID, model.JobStatusCancelled, nil, "job manager shutting down")
		return fmt.Errorf("job manager is shutting down")
	}
	job, exists := m.jobs[jobID]
	if !exists {
		m.mu.Unlock()
		return errors.NewJobNotFoundError(jobID)
	}
	if job.Status != model.JobStatusPending {
		status := job.Status
		m.mu.Unlock()
		return fmt.Errorf("job with ID '%s' is not in pending status (current: %s)", jobID, status)
	}
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()

		select {
		case m.workers <- struct{}{}:
		case <-m.ctx.Done():
			m.finish(jobID, model.JobStatusCancelled, nil, "job manager shutting down")
			return
		}
		defer func() { <-m.workers }()

		snapshot, ok := m.markRunning(jobID)
		if !ok {
			return
		}
		m.metrics.JobStarted()

		start := time.Now()
		result, err := fn(m.ctx, snapshot)
		elapsed := time.Since(start)

		switch {
		case err != nil && m.ctx.Err() != nil:
			m.finish(jobID, model.JobStatusCancelled, result, err.Error())
			m.logger.Warn("job cancelled", zap.String("job_id", jobID), zap.Duration("elapsed", elapsed), zap.Error(err))
		case err != nil:
			m.finish(jobID, model.JobStatusFailed, result, err.Error())
			m.logger.Error("job failed", zap.String("job_id", jobID), zap.Duration("elapsed", elapsed), zap.Error(err))
		default:
			m.finish(jobID, model.JobStatusCompleted, result, "")
			m.logger.Info("job completed", zap.String("job_id", jobID), zap.Duration("elapsed", elapsed))
		}
	}()
	return nil
}

// UpdateJobProgress updates the progress of a running job
func (m *Manager) UpdateJobProgress(jobID string, current, total int, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return
	}
	if job.Progress == nil {
		job.Progress = &model.JobProgress{}
	}
	job.Progress.Current = current
	job.Progress.Total = total
	job.Progress.Message = message
}

func (m *Manager) markRunning(jobID string) (*model.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists || job.Status != model.JobStatusPending {
		return nil, false
	}
	now := time.Now()
	job.Status = model.JobStatusRunning
	job.StartedAt = &now
	return job.Copy(), true
}

func (m *Manager) finish(jobID string, status model.JobStatus, result interface{}, errorMsg string) {
	m.mu.Lock()
	job, exists := m.jobs[jobID]
	if !exists || job.Status.Terminal() {
		m.mu.Unlock()
		return
	}
	wasRunning := job.Status == model.JobStatusRunning
	now := time.Now()
	job.Status = status
	job.Result = result
	job.Error = errorMsg
	job.CompletedAt = &now
	jobType := job.Type
	m.mu.Unlock()

	if wasRunning {
		m.metrics.JobFinished(string(jobType), string(status))
	}
}

func (m *Manager) cleanupRoutine() {
	defer m.wg.Done()

	interval := m.retention / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.CleanupOldJobs(m.retention)
		case <-m.ctx.Done():
			return
		}
	}
}

// CleanupOldJobs removes finished jobs completed more than maxAge ago and
// returns how many were removed.
func (m *Manager) CleanupOldJobs(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	cleaned := 0
	for jobID, job := range m.jobs {
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(m.jobs, jobID)
			cleaned++
		}
	}
	if cleaned > 0 {
		m.logger.Info("cleaned up old jobs", zap.Int("count", cleaned))
	}
	return cleaned
}

// ActiveJobs returns the number of pending or running jobs.
func (m *Manager) ActiveJobs() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, job := range m.jobs {
		if !job.Status.Terminal() {
			n++
		}
	}
	return n
}
