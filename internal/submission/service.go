package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/catalogue"
	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/config"
	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/event"
	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/metrics"
)

// ErrQueueFull is returned by Submit when no more jobs can be queued.
var ErrQueueFull = errors.New("submission queue full")

// JobStatus is the lifecycle of a submission job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobCancelled JobStatus = "cancelled"
)

// Job is the externally visible record of one submission.
type Job struct {
	ID              string         `json:"jobId"`
	SpecificationID string         `json:"specificationId"`
	ProjectID       string         `json:"projectId,omitempty"`
	Status          JobStatus      `json:"status"`
	Loading         bool           `json:"loading"`
	Caption         string         `json:"caption,omitempty"`
	Dialog          *event.Event   `json:"dialog,omitempty"`
	Events          []*event.Event `json:"events"`
	State           State          `json:"state,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	FinishedAt      *time.Time     `json:"finishedAt,omitempty"`
}

// job guards a Job shared between its worker and readers.
type job struct {
	mu  sync.Mutex
	rec Job
}

func (j *job) Emit(ev *event.Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	ev.JobID = j.rec.ID
	j.rec.Events = append(j.rec.Events, ev)
	switch ev.Kind {
	case event.KindCaption:
		j.rec.Caption = ev.Message
	case event.KindDialog:
		j.rec.Dialog = ev
	case event.KindFinished:
		j.rec.Loading = false
	}
	slog.Debug("submission event", "job", j.rec.ID, "kind", ev.Kind, "step", ev.Step, "message", ev.Message)
}

func (j *job) snapshot() Job {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := j.rec
	out.Events = append([]*event.Event(nil), j.rec.Events...)
	if j.rec.State != nil {
		out.State = j.rec.State.Clone()
		// generated file content stays out of status responses
		if fp, ok := out.State[KeyFileProperties].(*catalogue.FileProperties); ok {
			out.State[KeyFileProperties] = map[string]string{"fileName": fp.FileName, "contentType": fp.ContentType}
		}
	}
	return out
}

// Service runs submissions in the background on a bounded worker pool.
type Service struct {
	pipeline atomic.Pointer[Pipeline]
	pool     *workerPool[*job]
	conf     config.SubmissionConf

	mu   sync.RWMutex
	jobs map[string]*job
}

// NewService starts conf.Workers workers that run p.
func NewService(ctx context.Context, p *Pipeline, conf config.SubmissionConf) *Service {
	s := &Service{
		conf: conf,
		jobs: make(map[string]*job),
	}
	s.pipeline.Store(p)
	s.pool = newWorkerPool[*job](ctx, conf.Workers, conf.QueueDepth, s.process)
	return s
}

// SetPipeline replaces the pipeline used by jobs that have not started yet.
func (s *Service) SetPipeline(p *Pipeline) {
	s.pipeline.Store(p)
}

// Submit queues a submission of specificationID. projectID may be empty.
func (s *Service) Submit(specificationID, projectID string) (Job, error) {
	j := &job{rec: Job{
		ID:              uuid.NewString(),
		SpecificationID: specificationID,
		ProjectID:       projectID,
		Status:          JobQueued,
		Loading:         true,
		Events:          []*event.Event{},
		CreatedAt:       time.Now().UTC(),
	}}

	s.mu.Lock()
	s.jobs[j.rec.ID] = j
	s.mu.Unlock()

	if !s.pool.Submit(j) {
		s.mu.Lock()
		delete(s.jobs, j.rec.ID)
		s.mu.Unlock()
		metrics.SubmissionsDropped.Inc()
		return Job{}, fmt.Errorf("%w (capacity %d)", ErrQueueFull, s.conf.QueueDepth)
	}
	metrics.SubmissionsEnqueued.Inc()
	metrics.QueueUtilization.Set(s.QueueUtilization())
	return j.snapshot(), nil
}

// Job returns a snapshot of the job with the given id.
func (s *Service) Job(id string) (Job, bool) {
	s.mu.RLock()
	j, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return Job{}, false
	}
	return j.snapshot(), true
}

// QueueUtilization returns queue used / capacity (0 to 1).
func (s *Service) QueueUtilization() float64 {
	if s.pool.QueueCap() == 0 {
		return 0
	}
	return float64(s.pool.QueueLen()) / float64(s.pool.QueueCap())
}

func (s *Service) process(ctx context.Context, j *job) {
	metrics.QueueUtilization.Set(s.QueueUtilization())

	j.mu.Lock()
	j.rec.Status = JobRunning
	seed := State{KeySpecificationID: j.rec.SpecificationID}
	if j.rec.ProjectID != "" {
		seed[KeyProjectID] = j.rec.ProjectID
	}
	j.mu.Unlock()

	final := s.pipeline.Load().Run(ctx, seed, j)

	j.mu.Lock()
	defer j.mu.Unlock()
	now := time.Now().UTC()
	j.rec.State = final
	j.rec.Loading = false
	j.rec.FinishedAt = &now
	j.rec.Status = JobCompleted
	if final.Cancelled() {
		j.rec.Status = JobCancelled
	}
	slog.Info("submission finished", "job", j.rec.ID, "specification", j.rec.SpecificationID, "status", j.rec.Status)
}

// Shutdown drains the pool, letting queued jobs finish.
func (s *Service) Shutdown() {
	s.pool.Drain()
}
