package cron

import (
	"context"
	"slices"
	"sync"
	"time"
)

// Job represents a task run on every scheduler cycle.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry is the ordered job list a Service runs each cycle. Nil jobs are ignored.
type Registry struct {
	jobs []Job
}

func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{}
	r.Register(jobs...)
	return r
}

func (r *Registry) Register(jobs ...Job) {
	for _, job := range jobs {
		if job != nil {
			r.jobs = append(r.jobs, job)
		}
	}
}

// Jobs returns a copy in registration order.
func (r *Registry) Jobs() []Job {
	return slices.Clone(r.jobs)
}

type funcJob struct {
	name string
	fn   func(ctx context.Context) error
}

// NewFuncJob adapts a function into a Job.
func NewFuncJob(name string, fn func(ctx context.Context) error) Job {
	if fn == nil {
		return nil
	}
	return &funcJob{name: name, fn: fn}
}

func (j *funcJob) Name() string                  { return j.name }
func (j *funcJob) Run(ctx context.Context) error { return j.fn(ctx) }

type everyJob struct {
	Job
	interval time.Duration
	now      func() time.Time

	mu   sync.Mutex
	last time.Time
}

// Every runs job at most once per interval, no matter how fast the scheduler ticks. The first
// cycle always runs it.
func Every(interval time.Duration, job Job, now func() time.Time) Job {
	if job == nil {
		return nil
	}
	if now == nil {
		now = time.Now
	}
	return &everyJob{Job: job, interval: interval, now: now}
}

func (j *everyJob) Run(ctx context.Context) error {
	j.mu.Lock()
	current := j.now()
	if !j.last.IsZero() && current.Sub(j.last) < j.interval {
		j.mu.Unlock()
		return nil
	}
	j.last = current
	j.mu.Unlock()
	return j.Job.Run(ctx)
}
