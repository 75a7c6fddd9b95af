// Package file implements the transcript repository on append-only JSONL
// files, one file per room. It is the zero-dependency backend for local
// runs; production deployments use postgres.
package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gosuda/voxroom/internal/domain"
)

// TranscriptRepo writes one JSONL file per room under dir. A process-wide
// mutex per room serializes appends; reads tolerate a concurrently growing
// file because records are whole lines.
type TranscriptRepo struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewTranscriptRepo(dir string) (*TranscriptRepo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file.NewTranscriptRepo: %w", err)
	}
	return &TranscriptRepo{
		dir:   dir,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

func (r *TranscriptRepo) Append(ctx context.Context, entry *domain.TranscriptEntry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("file.TranscriptRepo.Append: %w", err)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("file.TranscriptRepo.Append: marshal: %w", err)
	}

	lock := r.lockFor(entry.RoomName)
	lock.Lock()
	defer lock.Unlock()

	f, err := os.OpenFile(r.path(entry.RoomName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("file.TranscriptRepo.Append: open: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("file.TranscriptRepo.Append: write: %w", err)
	}

	return nil
}

func (r *TranscriptRepo) ListByRoom(ctx context.Context, roomName string, limit, offset int) ([]*domain.TranscriptEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("file.TranscriptRepo.ListByRoom: %w", err)
	}

	f, err := os.Open(r.path(roomName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file.TranscriptRepo.ListByRoom: open: %w", err)
	}
	defer f.Close()

	var (
		entries []*domain.TranscriptEntry
		line    int
	)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line < offset {
			line++
			continue
		}
		if limit > 0 && len(entries) >= limit {
			break
		}

		var entry domain.TranscriptEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return nil, fmt.Errorf("file.TranscriptRepo.ListByRoom: line %d: %w", line+1, err)
		}
		entries = append(entries, &entry)
		line++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("file.TranscriptRepo.ListByRoom: scan: %w", err)
	}

	return entries, nil
}

func (r *TranscriptRepo) CountByRoom(ctx context.Context, roomName string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("file.TranscriptRepo.CountByRoom: %w", err)
	}

	f, err := os.Open(r.path(roomName))
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("file.TranscriptRepo.CountByRoom: open: %w", err)
	}
	defer f.Close()

	var count int64

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		count++
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("file.TranscriptRepo.CountByRoom: scan: %w", err)
	}

	return count, nil
}

func (r *TranscriptRepo) lockFor(roomName string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.locks[roomName]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[roomName] = lock
	}
	return lock
}

// path sanitizes the room name so it cannot escape the transcript
// directory.
func (r *TranscriptRepo) path(roomName string) string {
	safe := strings.Map(func(c rune) rune {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			return c
		case c == '-' || c == '_' || c == '.':
			return c
		default:
			return '_'
		}
	}, roomName)
	safe = strings.Trim(safe, ".")
	if safe == "" {
		safe = "room"
	}
	return filepath.Join(r.dir, safe+".jsonl")
}
