package export

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/karaexport/pkg/adapters/logger"
	"github.com/user/karaexport/pkg/ffmpeg"
	"github.com/user/karaexport/pkg/ports"
)

// Batch errors.
var (
	ErrBatchRunning = errors.New("export: batch is running")
	ErrNoJobs       = errors.New("export: batch has no jobs")
	ErrBatchFailed  = errors.New("export: batch finished with failures")
)

// JobStatus is the lifecycle state of a batch job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Job is one export in a batch.
type Job struct {
	ID          string
	Settings    ffmpeg.ExportSettings
	Source      FrameSource
	TotalFrames int64
	AudioPath   string
}

// JobState is a snapshot of a job.
type JobState struct {
	ID      string    `json:"id"`
	Status  JobStatus `json:"status"`
	Percent float64   `json:"percent"`
	Error   string    `json:"error,omitempty"`
	Started time.Time `json:"started,omitempty"`
	Ended   time.Time `json:"ended,omitempty"`
	Result  *Result   `json:"result,omitempty"`
}

// Duration returns how long the job ran, or zero if it has not finished.
func (s JobState) Duration() time.Duration {
	if s.Started.IsZero() || s.Ended.IsZero() {
		return 0
	}
	return s.Ended.Sub(s.Started)
}

// BatchProgress summarizes all jobs.
type BatchProgress struct {
	Total     int           `json:"total"`
	Completed int           `json:"completed"`
	Failed    int           `json:"failed"`
	Cancelled int           `json:"cancelled"`
	Active    int           `json:"active"`
	Pending   int           `json:"pending"`
	Percent   float64       `json:"percent"`
	Elapsed   time.Duration `json:"elapsed"`
	Remaining time.Duration `json:"remaining"`
}

// CoordinatorFactory builds the coordinator for one job. The observer must
// be registered on it so the batch can follow the job's progress.
type CoordinatorFactory func(jobID string, obs Observer) *Coordinator

// BatchOption configures a Batch.
type BatchOption func(*Batch)

// WithMaxConcurrent sets how many jobs run at once.
func WithMaxConcurrent(n int) BatchOption {
	return func(b *Batch) {
		if n > 0 {
			b.maxConcurrent = n
		}
	}
}

// WithBatchLogger sets the logger.
func WithBatchLogger(l ports.Logger) BatchOption {
	return func(b *Batch) { b.logger = l.WithComponent("batch") }
}

// WithBatchProgress registers a callback for overall progress.
func WithBatchProgress(fn func(BatchProgress)) BatchOption {
	return func(b *Batch) { b.onProgress = fn }
}

type batchJob struct {
	job   Job
	state JobState
	coord *Coordinator
}

// Batch runs queued exports with bounded concurrency.
type Batch struct {
	factory       CoordinatorFactory
	maxConcurrent int
	logger        ports.Logger
	onProgress    func(BatchProgress)

	mu         sync.Mutex
	jobs       []*batchJob
	processing bool
	cancelled  bool
	started    time.Time
}

// NewBatch creates a batch whose jobs run on coordinators from factory.
func NewBatch(factory CoordinatorFactory, opts ...BatchOption) *Batch {
	b := &Batch{
		factory:       factory,
		maxConcurrent: 1,
		logger:        logger.NewNoop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Add queues a job and returns its ID. An empty ID is replaced by a UUID.
func (b *Batch) Add(job Job) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.processing {
		return "", ErrBatchRunning
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	for _, j := range b.jobs {
		if j.job.ID == job.ID {
			return "", fmt.Errorf("export: duplicate job id %s", job.ID)
		}
	}
	b.jobs = append(b.jobs, &batchJob{job: job, state: JobState{ID: job.ID, Status: JobPending}})
	return job.ID, nil
}

// Run processes pending jobs in order, at most MaxConcurrent at a time, and
// blocks until they all finish. Cancelling ctx cancels the batch.
func (b *Batch) Run(ctx context.Context) error {
	b.mu.Lock()
	if b.processing {
		b.mu.Unlock()
		return ErrBatchRunning
	}
	var pending []*batchJob
	for _, j := range b.jobs {
		if j.state.Status == JobPending {
			pending = append(pending, j)
		}
	}
	if len(pending) == 0 {
		b.mu.Unlock()
		return ErrNoJobs
	}
	b.processing = true
	b.cancelled = false
	b.started = time.Now()
	b.mu.Unlock()

	b.logger.Debug("Starting batch of %d jobs, %d at a time", len(pending), b.maxConcurrent)
	stop := context.AfterFunc(ctx, func() { b.CancelAll() })
	defer stop()

	sem := make(chan struct{}, b.maxConcurrent)
	var wg sync.WaitGroup
	for _, j := range pending {
		sem <- struct{}{}
		if b.isCancelled() {
			<-sem
			break
		}
		wg.Add(1)
		go func(j *batchJob) {
			defer wg.Done()
			defer func() { <-sem }()
			b.runJob(ctx, j)
		}(j)
	}
	wg.Wait()

	b.mu.Lock()
	b.processing = false
	for _, j := range b.jobs {
		if j.state.Status == JobPending && b.cancelled {
			j.state.Status = JobCancelled
		}
	}
	b.mu.Unlock()

	p := b.Progress()
	b.logger.Debug("Batch finished: %d completed, %d failed, %d cancelled", p.Completed, p.Failed, p.Cancelled)
	b.notify()
	if p.Failed > 0 || p.Cancelled > 0 {
		return fmt.Errorf("%w: %d failed, %d cancelled", ErrBatchFailed, p.Failed, p.Cancelled)
	}
	return nil
}

func (b *Batch) runJob(ctx context.Context, j *batchJob) {
	obs := ObserverFuncs{
		Progress: func(id string, p Progress) {
			b.mu.Lock()
			j.state.Percent = p.Percent
			b.mu.Unlock()
			b.notify()
		},
	}
	coord := b.factory(j.job.ID, obs)

	b.mu.Lock()
	if b.cancelled {
		j.state.Status = JobCancelled
		b.mu.Unlock()
		return
	}
	j.coord = coord
	j.state.Status = JobRunning
	j.state.Started = time.Now()
	b.mu.Unlock()
	b.notify()

	var res Result
	err := coord.Start(ctx, j.job.Settings, j.job.Source, j.job.TotalFrames, j.job.AudioPath)
	if err == nil {
		// CancelAll may have run between publishing coord and Start.
		if b.isCancelled() {
			coord.Cancel()
		}
		res, err = coord.Wait(context.Background())
	}
	if cerr := coord.Cleanup(); cerr != nil {
		b.logger.Debug("Cleanup of job %s: %v", j.job.ID, cerr)
	}

	b.mu.Lock()
	j.state.Ended = time.Now()
	j.coord = nil
	switch {
	case err == nil:
		j.state.Status = JobCompleted
		j.state.Percent = 100
		j.state.Result = &res
	case errors.Is(err, ErrCancelled):
		j.state.Status = JobCancelled
		j.state.Result = &res
	default:
		j.state.Status = JobFailed
		j.state.Error = err.Error()
		if res.ExportID != "" {
			j.state.Result = &res
		}
	}
	status := j.state.Status
	b.mu.Unlock()

	b.logger.Debug("Job %s %s", j.job.ID, status)
	b.notify()
}

func (b *Batch) isCancelled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cancelled
}

// CancelAll cancels running jobs and marks pending ones cancelled.
func (b *Batch) CancelAll() {
	b.mu.Lock()
	b.cancelled = true
	var running []*Coordinator
	for _, j := range b.jobs {
		switch {
		case j.state.Status == JobPending:
			j.state.Status = JobCancelled
		case j.coord != nil:
			running = append(running, j.coord)
		}
	}
	b.mu.Unlock()

	for _, c := range running {
		c.Cancel()
	}
}

// Status returns the state of one job.
func (b *Batch) Status(id string) (JobState, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, j := range b.jobs {
		if j.job.ID == id {
			return j.state, true
		}
	}
	return JobState{}, false
}

// Jobs returns the state of every job in queue order.
func (b *Batch) Jobs() []JobState {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]JobState, len(b.jobs))
	for i, j := range b.jobs {
		out[i] = j.state
	}
	return out
}

// IsRunning reports whether Run is in progress.
func (b *Batch) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.processing
}

// Progress returns the overall progress. Percent is the mean of the job
// percentages; Remaining extrapolates from the elapsed time.
func (b *Batch) Progress() BatchProgress {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := BatchProgress{Total: len(b.jobs)}
	var sum float64
	for _, j := range b.jobs {
		sum += j.state.Percent
		switch j.state.Status {
		case JobPending:
			p.Pending++
		case JobRunning:
			p.Active++
		case JobCompleted:
			p.Completed++
		case JobFailed:
			p.Failed++
		case JobCancelled:
			p.Cancelled++
		}
	}
	if p.Total > 0 {
		p.Percent = sum / float64(p.Total)
	}
	if !b.started.IsZero() {
		p.Elapsed = time.Since(b.started)
	}
	if p.Percent > 0 && p.Percent < 100 {
		total := time.Duration(float64(p.Elapsed) * 100 / p.Percent)
		p.Remaining = max(0, total-p.Elapsed)
	}
	return p
}

// ClearCompleted removes finished jobs from the queue.
func (b *Batch) ClearCompleted() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.processing {
		return ErrBatchRunning
	}
	kept := b.jobs[:0]
	for _, j := range b.jobs {
		if j.state.Status == JobPending || j.state.Status == JobRunning {
			kept = append(kept, j)
		}
	}
	b.jobs = kept
	return nil
}

func (b *Batch) notify() {
	if b.onProgress != nil {
		b.onProgress(b.Progress())
	}
}
