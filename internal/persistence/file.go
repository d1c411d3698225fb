package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fenwicklabs/reactor/pkg/reactmodel"
)

// FileRepository stores one JSON file per session under Dir, named
// "<session_id>.json".
type FileRepository struct {
	dir string
	mu  sync.Mutex
}

// NewFileRepository builds a FileRepository rooted at dir, creating it if
// it doesn't already exist.
func NewFileRepository(dir string) (*FileRepository, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("persistence: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("persistence: create directory: %w", err)
	}
	return &FileRepository{dir: dir}, nil
}

func (r *FileRepository) path(id string) string {
	return filepath.Join(r.dir, id+".json")
}

// Save writes session as a Record to its own file, overwriting any
// previous save for the same session id. The write goes to a temp file
// first and is renamed into place, so a crash mid-write never leaves a
// truncated record at the final path.
func (r *FileRepository) Save(ctx context.Context, session reactmodel.Session) error {
	record := RecordFromSession(session)
	payload, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("persistence: encode record: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	finalPath := r.path(session.ID)
	tmpPath := finalPath + ".tmp"
	if err := os.WriteFile(tmpPath, payload, 0o644); err != nil {
		return fmt.Errorf("persistence: write record: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("persistence: finalize record: %w", err)
	}
	return nil
}

// Get reads and decodes the record for id.
func (r *FileRepository) Get(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	raw, err := os.ReadFile(r.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Record{}, fmt.Errorf("persistence: read record: %w", err)
	}
	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return Record{}, fmt.Errorf("persistence: decode record: %w", err)
	}
	return record, nil
}

func (r *FileRepository) allRecords(ctx context.Context) ([]Record, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("persistence: list directory: %w", err)
	}

	type fileInfo struct {
		name    string
		modTime int64
	}
	files := make([]fileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{name: entry.Name(), modTime: info.ModTime().UnixNano()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].modTime > files[j].modTime })

	records := make([]Record, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := os.ReadFile(filepath.Join(r.dir, f.name))
		if err != nil {
			continue
		}
		var record Record
		if err := json.Unmarshal(raw, &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// List returns records sorted by file modification time descending.
func (r *FileRepository) List(ctx context.Context, limit, offset int) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	records, err := r.allRecords(ctx)
	if err != nil {
		return nil, err
	}
	if offset >= len(records) {
		return nil, nil
	}
	records = records[offset:]
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records, nil
}

// Search loads every record and returns those matching queryText across
// query, final answer, and step content.
func (r *FileRepository) Search(ctx context.Context, queryText string) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	records, err := r.allRecords(ctx)
	if err != nil {
		return nil, err
	}
	matches := make([]Record, 0)
	for _, record := range records {
		if matchesQuery(record, queryText) {
			matches = append(matches, record)
		}
	}
	return matches, nil
}

// Delete removes the session's file.
func (r *FileRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(r.path(id)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("persistence: delete record: %w", err)
	}
	return nil
}
