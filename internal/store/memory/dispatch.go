// Package memory provides in-process repositories for single-node runs
// that use the file transcript backend and need no database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/voxroom/internal/domain"
)

// DispatchRepo keeps dispatch jobs in memory. Jobs do not survive a
// restart; the transcript files do.
type DispatchRepo struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*domain.DispatchJob
}

func NewDispatchRepo() *DispatchRepo {
	return &DispatchRepo{jobs: make(map[uuid.UUID]*domain.DispatchJob)}
}

func (r *DispatchRepo) Create(_ context.Context, job *domain.DispatchJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *DispatchRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.DispatchJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (r *DispatchRepo) UpdateStatus(_ context.Context, id uuid.UUID, status domain.DispatchStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	job.Status = status
	if job.StartedAt == nil {
		now := time.Now()
		job.StartedAt = &now
	}
	return nil
}

func (r *DispatchRepo) SetCompleted(_ context.Context, id uuid.UUID, status domain.DispatchStatus, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now()
	job.Status = status
	job.Error = errMsg
	job.CompletedAt = &now
	return nil
}

func (r *DispatchRepo) SetSummary(_ context.Context, id uuid.UUID, summary string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	job.Summary = summary
	return nil
}

func (r *DispatchRepo) ListByRoom(_ context.Context, roomName string) ([]*domain.DispatchJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.DispatchJob
	for _, job := range r.jobs {
		if job.RoomName == roomName {
			cp := *job
			out = append(out, &cp)
		}
	}
	sortJobs(out)
	return out, nil
}

func (r *DispatchRepo) ListRecent(_ context.Context, limit int) ([]*domain.DispatchJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.DispatchJob, 0, len(r.jobs))
	for _, job := range r.jobs {
		cp := *job
		out = append(out, &cp)
	}
	sortJobs(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// sortJobs orders newest first, matching the SQL backend.
func sortJobs(jobs []*domain.DispatchJob) {
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
}
