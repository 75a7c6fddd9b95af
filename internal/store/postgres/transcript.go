package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/voxroom/internal/domain"
)

type TranscriptRepo struct {
	pool *pgxpool.Pool
}

func NewTranscriptRepo(pool *pgxpool.Pool) *TranscriptRepo {
	return &TranscriptRepo{pool: pool}
}

func (r *TranscriptRepo) Append(ctx context.Context, entry *domain.TranscriptEntry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO transcript_entries (id, room_name, role, text, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		entry.ID, entry.RoomName, entry.Role, entry.Text, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("transcriptRepo.Append: %w", err)
	}

	return nil
}

func (r *TranscriptRepo) ListByRoom(ctx context.Context, roomName string, limit, offset int) ([]*domain.TranscriptEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, room_name, role, text, created_at
		 FROM transcript_entries WHERE room_name = $1
		 ORDER BY created_at ASC
		 LIMIT $2 OFFSET $3`,
		roomName, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("transcriptRepo.ListByRoom: %w", err)
	}
	defer rows.Close()

	var entries []*domain.TranscriptEntry
	for rows.Next() {
		var e domain.TranscriptEntry

		err = rows.Scan(&e.ID, &e.RoomName, &e.Role, &e.Text, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("transcriptRepo.ListByRoom: scan: %w", err)
		}
		entries = append(entries, &e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("transcriptRepo.ListByRoom: rows: %w", err)
	}

	return entries, nil
}

func (r *TranscriptRepo) CountByRoom(ctx context.Context, roomName string) (int64, error) {
	var count int64

	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM transcript_entries WHERE room_name = $1`,
		roomName,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("transcriptRepo.CountByRoom: %w", err)
	}

	return count, nil
}
