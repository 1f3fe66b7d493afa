// Package upload runs background ingestion jobs for uploaded photos so large
// images can be decoded without holding the request open.
package upload

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vending-visualizer/backend/internal/models"
	"github.com/vending-visualizer/backend/internal/visualizer"
)

// Status represents the job processing status.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusDecoding   Status = "decoding"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// Job represents an async ingestion job.
type Job struct {
	ID          string                 `json:"id"`
	SessionID   string                 `json:"sessionId"`
	FileID      string                 `json:"fileId"`
	FileName    string                 `json:"fileName"`
	Size        int64                  `json:"size"`
	Status      Status                 `json:"status"`
	Progress    float64                `json:"progress"`
	Stage       string                 `json:"stage"`
	Background  *models.BackgroundInfo `json:"background,omitempty"`
	Message     string                 `json:"message,omitempty"` // user-facing status
	Error       string                 `json:"error,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
	CompletedAt *time.Time             `json:"completedAt,omitempty"`
}

// Ingester makes a stored file the background of a session.
type Ingester interface {
	IngestFile(ctx context.Context, sessionID, fileID string) (*models.BackgroundInfo, error)
}

// Manager handles async ingestion jobs.
type Manager struct {
	jobs     map[string]*Job
	mu       sync.RWMutex
	ingester Ingester
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a job manager that ingests through ingester.
func NewManager(ingester Ingester, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		jobs:     make(map[string]*Job),
		ingester: ingester,
		logger:   logger.Named("upload"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// StartJob begins async ingestion of a stored file into a session.
func (m *Manager) StartJob(sessionID string, file *models.FileInfo) *Job {
	job := &Job{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		FileID:    file.ID,
		FileName:  file.Name,
		Size:      file.Size,
		Status:    StatusProcessing,
		Stage:     "queued",
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	snapshot := *job
	m.mu.Unlock()

	m.wg.Add(1)
	go m.processJob(job)

	return &snapshot
}

// GetJob returns a copy of a job by ID.
func (m *Manager) GetJob(id string) (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, false
	}
	copied := *job
	return &copied, true
}

// processJob handles the actual async processing.
func (m *Manager) processJob(job *Job) {
	defer m.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			m.markJobError(job, fmt.Errorf("ingestion panicked: %v", r))
		}
	}()

	m.logger.Debug("job started", zap.String("job", job.ID), zap.String("file", job.FileName))
	m.updateJobStatus(job, StatusDecoding, "decoding image", 10)

	background, err := m.ingester.IngestFile(m.ctx, job.SessionID, job.FileID)
	if err != nil {
		m.markJobError(job, err)
		return
	}

	m.markJobComplete(job, background)
	m.logger.Info("job complete",
		zap.String("job", job.ID),
		zap.String("session", job.SessionID),
		zap.Int("width", background.NaturalWidth),
		zap.Int("height", background.NaturalHeight),
	)
}

// updateJobStatus updates job progress (thread-safe).
func (m *Manager) updateJobStatus(job *Job, status Status, stage string, progress float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job.Status = status
	job.Stage = stage
	job.Progress = progress
}

// markJobComplete marks job as complete (thread-safe).
func (m *Manager) markJobComplete(job *Job, background *models.BackgroundInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job.Status = StatusComplete
	job.Stage = "done"
	job.Progress = 100
	job.Background = background
	job.Message = visualizer.MsgPhotoLoaded
	now := time.Now()
	job.CompletedAt = &now
}

// markJobError marks job as failed (thread-safe).
func (m *Manager) markJobError(job *Job, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job.Status = StatusError
	job.Stage = "failed"
	job.Error = err.Error()
	if msg, ok := visualizer.StatusMessage(err); ok {
		job.Message = msg
	}
	now := time.Now()
	job.CompletedAt = &now
	m.logger.Warn("job failed", zap.String("job", job.ID), zap.Error(err))
}

// CleanupOldJobs removes finished jobs older than maxAge and returns how
// many were removed.
func (m *Manager) CleanupOldJobs(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, job := range m.jobs {
		if job.Status == StatusComplete || job.Status == StatusError {
			if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
				delete(m.jobs, id)
				removed++
			}
		}
	}
	return removed
}

// Run removes old jobs every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CleanupOldJobs(maxAge)
		}
	}
}

// Wait blocks until every started job has finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Close cancels running jobs and waits for them to finish.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}
