package jobstore

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"immoval/server/internal/models"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrStoreClosed = errors.New("job store is closed")
)

// Job is the live state of one asynchronous report generation request.
type Job struct {
	ID        string      `json:"id"`
	Status    string      `json:"status"`
	Progress  int         `json:"progress"`
	Reason    string      `json:"reason,omitempty"`
	Result    interface{} `json:"result,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Store is a keyed in-memory job map with TTL eviction, injected into
// the API handler and the report generator.
type Store struct {
	ttl    time.Duration
	logger *logrus.Logger
	done   chan struct{}
	mu     sync.RWMutex
	jobs   map[string]*Job
	closed bool
}

func NewStore(ttl time.Duration, logger *logrus.Logger) *Store {
	return &Store{
		ttl:    ttl,
		logger: logger,
		done:   make(chan struct{}),
		jobs:   make(map[string]*Job),
	}
}

// Put registers a new pending job under the given id.
func (s *Store) Put(id, status string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	now := time.Now()
	job := &Job{
		ID:        id,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.jobs[id] = job
	return job, nil
}

// Get returns a copy of the job so callers cannot mutate shared state.
func (s *Store) Get(id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return *job, nil
}

// SetProgress updates the progress percentage and status of a job.
func (s *Store) SetProgress(id, status string, progress int) error {
	return s.update(id, func(job *Job) {
		job.Status = status
		job.Progress = progress
	})
}

// Complete marks a job finished and attaches its result payload.
func (s *Store) Complete(id string, result interface{}) error {
	return s.update(id, func(job *Job) {
		job.Status = models.JobStatusComplete
		job.Progress = 100
		job.Result = result
	})
}

// Fail marks a job failed with a human-readable reason.
func (s *Store) Fail(id, reason string) error {
	return s.update(id, func(job *Job) {
		job.Status = models.JobStatusFailed
		job.Reason = reason
	})
}

func (s *Store) update(id string, apply func(*Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	apply(job)
	job.UpdatedAt = time.Now()
	return nil
}

// Len returns the number of live jobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// Evict removes jobs not updated since the cutoff and returns how many
// were dropped.
func (s *Store) Evict(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, job := range s.jobs {
		if job.UpdatedAt.Before(cutoff) {
			delete(s.jobs, id)
			evicted++
		}
	}
	return evicted
}

// Start launches the TTL janitor.
func (s *Store) Start() {
	go s.janitor()
}

func (s *Store) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if n := s.Evict(time.Now().Add(-s.ttl)); n > 0 {
				s.logger.WithField("evicted", n).Debug("Evicted expired jobs")
			}
		}
	}
}

// Close stops the janitor and rejects further inserts.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	return nil
}

// IsClosed reports whether the store has been closed.
func (s *Store) IsClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
