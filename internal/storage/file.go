package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// reservedName is kept in the tables directory so it exists in a fresh
// checkout; it is never a table.
const reservedName = ".gitignore"

// tempPrefix marks a write in progress. One left over from a crash was never
// renamed into place and holds no table.
const tempPrefix = ".table-"

// FileStore keeps one <id>.json file per table in a directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(id uint64) string {
	return filepath.Join(s.dir, strconv.FormatUint(id, 10)+".json")
}

// Save writes through a temporary file so a crash never leaves half a record.
func (s *FileStore) Save(_ context.Context, id uint64, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for table %d: %w", id, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write table %d: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write table %d: %w", id, err)
	}
	if err := os.Rename(tmp.Name(), s.path(id)); err != nil {
		return fmt.Errorf("failed to write table %d: %w", id, err)
	}
	return nil
}

// List fails if the directory is missing or holds anything that is not a
// table record. Leftover temporary files are skipped.
func (s *FileStore) List(_ context.Context) ([]Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read tables directory %s: %w", s.dir, err)
	}

	var records []Record
	for _, entry := range entries {
		name := entry.Name()
		if name == reservedName || entry.IsDir() || strings.HasPrefix(name, tempPrefix) {
			continue
		}

		base, ok := strings.CutSuffix(name, ".json")
		if !ok {
			return nil, fmt.Errorf("unexpected file in tables directory: %s", name)
		}
		id, err := strconv.ParseUint(base, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("unexpected file in tables directory: %s", name)
		}

		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read table %d: %w", id, err)
		}
		records = append(records, Record{ID: id, Data: data})
	}

	sortRecords(records)
	return records, nil
}

func (s *FileStore) Delete(_ context.Context, id uint64) error {
	err := os.Remove(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete table %d: %w", id, err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
