// Package storage persists PromptLab records as JSON files under the data
// directory. Records are addressed by path segments (for example "session",
// id) and written atomically behind per-file locks, so a crash mid-write
// never leaves a torn record behind.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNotFound is returned by Get when no record exists at the path.
var ErrNotFound = errors.New("not found")

// Storage is a file-backed JSON record store rooted at one directory.
type Storage struct {
	root  string
	mu    sync.Mutex
	locks map[string]*fileLock
}

// New creates a store rooted at root. Collections and the root itself are
// created lazily on first write.
func New(root string) *Storage {
	return &Storage{
		root:  root,
		locks: make(map[string]*fileLock),
	}
}

// filePath converts record path segments to the backing file path.
func (s *Storage) filePath(path []string) string {
	parts := append([]string{s.root}, path...)
	return filepath.Join(parts...) + ".json"
}

// dirPath converts collection path segments to the backing directory.
func (s *Storage) dirPath(path []string) string {
	parts := append([]string{s.root}, path...)
	return filepath.Join(parts...)
}

// Get reads the record at path into v. Returns ErrNotFound when absent.
func (s *Storage) Get(ctx context.Context, path []string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(s.filePath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to read record: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}

	return nil
}

// Put writes v as the record at path. The write goes to a temp file first
// and is renamed into place under the record's lock.
func (s *Storage) Put(ctx context.Context, path []string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	filePath := s.filePath(path)
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	lock := s.lockFor(filePath)
	if err := lock.lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer lock.unlock()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	tmpPath := filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace record: %w", err)
	}

	return nil
}

// Delete removes the record at path. Deleting an absent record is not an
// error.
func (s *Storage) Delete(ctx context.Context, path []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	filePath := s.filePath(path)

	lock := s.lockFor(filePath)
	if err := lock.lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer lock.unlock()

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete record: %w", err)
	}

	return nil
}

// List returns the keys of all records in the collection at path.
func (s *Storage) List(ctx context.Context, path []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dirPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read collection: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			keys = append(keys, name)
		} else if strings.HasSuffix(name, ".json") {
			keys = append(keys, strings.TrimSuffix(name, ".json"))
		}
	}

	return keys, nil
}

// Scan calls fn with the key and raw bytes of every record in the
// collection at path. Unreadable files are skipped; an error from fn stops
// the scan.
func (s *Storage) Scan(ctx context.Context, path []string, fn func(key string, data json.RawMessage) error) error {
	dirPath := s.dirPath(path)

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read collection: %w", err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dirPath, name))
		if err != nil {
			continue
		}

		key := strings.TrimSuffix(name, ".json")
		if err := fn(key, json.RawMessage(data)); err != nil {
			return err
		}
	}

	return nil
}

// Exists reports whether a record exists at path.
func (s *Storage) Exists(ctx context.Context, path []string) bool {
	_, err := os.Stat(s.filePath(path))
	return err == nil
}

// lockFor returns the lock guarding one record file.
func (s *Storage) lockFor(filePath string) *fileLock {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[filePath]
	if !ok {
		lock = &fileLock{path: filePath}
		s.locks[filePath] = lock
	}

	return lock
}
