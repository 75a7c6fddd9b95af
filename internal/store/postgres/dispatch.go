package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/voxroom/internal/domain"
)

type DispatchRepo struct {
	pool *pgxpool.Pool
}

func NewDispatchRepo(pool *pgxpool.Pool) *DispatchRepo {
	return &DispatchRepo{pool: pool}
}

func (r *DispatchRepo) Create(ctx context.Context, job *domain.DispatchJob) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO dispatch_jobs (id, room_name, agent_type, language, status, error, summary, created_at, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		job.ID, job.RoomName, job.AgentType, job.Language, job.Status, job.Error, job.Summary,
		job.CreatedAt, job.StartedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("dispatchRepo.Create: %w", err)
	}

	return nil
}

func (r *DispatchRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.DispatchJob, error) {
	var job domain.DispatchJob

	err := r.pool.QueryRow(ctx,
		`SELECT id, room_name, agent_type, language, status, error, summary, created_at, started_at, completed_at
		 FROM dispatch_jobs WHERE id = $1`,
		id,
	).Scan(&job.ID, &job.RoomName, &job.AgentType, &job.Language, &job.Status, &job.Error, &job.Summary,
		&job.CreatedAt, &job.StartedAt, &job.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("dispatchRepo.GetByID: %w", err)
	}

	return &job, nil
}

func (r *DispatchRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.DispatchStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE dispatch_jobs
		 SET status = $2, started_at = COALESCE(started_at, $3)
		 WHERE id = $1`,
		id, status, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("dispatchRepo.UpdateStatus: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func (r *DispatchRepo) SetCompleted(ctx context.Context, id uuid.UUID, status domain.DispatchStatus, errMsg string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE dispatch_jobs
		 SET status = $2, error = $3, completed_at = $4
		 WHERE id = $1`,
		id, status, errMsg, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("dispatchRepo.SetCompleted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func (r *DispatchRepo) SetSummary(ctx context.Context, id uuid.UUID, summary string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE dispatch_jobs SET summary = $2 WHERE id = $1`,
		id, summary,
	)
	if err != nil {
		return fmt.Errorf("dispatchRepo.SetSummary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func (r *DispatchRepo) ListByRoom(ctx context.Context, roomName string) ([]*domain.DispatchJob, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, room_name, agent_type, language, status, error, summary, created_at, started_at, completed_at
		 FROM dispatch_jobs WHERE room_name = $1
		 ORDER BY created_at DESC`,
		roomName,
	)
	if err != nil {
		return nil, fmt.Errorf("dispatchRepo.ListByRoom: %w", err)
	}
	defer rows.Close()

	return scanJobs(rows, "dispatchRepo.ListByRoom")
}

func (r *DispatchRepo) ListRecent(ctx context.Context, limit int) ([]*domain.DispatchJob, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, room_name, agent_type, language, status, error, summary, created_at, started_at, completed_at
		 FROM dispatch_jobs
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("dispatchRepo.ListRecent: %w", err)
	}
	defer rows.Close()

	return scanJobs(rows, "dispatchRepo.ListRecent")
}

func scanJobs(rows pgx.Rows, op string) ([]*domain.DispatchJob, error) {
	var jobs []*domain.DispatchJob
	for rows.Next() {
		var job domain.DispatchJob

		err := rows.Scan(&job.ID, &job.RoomName, &job.AgentType, &job.Language, &job.Status, &job.Error,
			&job.Summary, &job.CreatedAt, &job.StartedAt, &job.CompletedAt)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		jobs = append(jobs, &job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}

	return jobs, nil
}
