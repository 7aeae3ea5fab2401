package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const (
	lockTimeout   = 3 * time.Second
	lockRetryWait = 100 * time.Millisecond
)

// FileStorage keeps every key in a single JSON document on disk. A sibling
// .lock file serializes access between processes.
type FileStorage struct {
	path     string
	fileLock *flock.Flock
	mu       sync.Mutex
}

var _ Storage = (*FileStorage)(nil)

// NewFileStorage creates a FileStorage at path, creating its directory.
func NewFileStorage(path string) (*FileStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &FileStorage{
		path:     path,
		fileLock: flock.New(path + ".lock"),
	}, nil
}

func (s *FileStorage) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		value string
		ok    bool
	)
	err := s.withLock(func() error {
		doc, err := s.read()
		if err != nil {
			return err
		}
		value, ok = doc[key]
		return nil
	})
	if err != nil || !ok {
		return nil, false, err
	}
	return []byte(value), true, nil
}

func (s *FileStorage) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withLock(func() error {
		doc, err := s.read()
		if err != nil {
			return err
		}
		doc[key] = string(value)
		return s.write(doc)
	})
}

func (s *FileStorage) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withLock(func() error {
		doc, err := s.read()
		if err != nil {
			return err
		}
		if _, ok := doc[key]; !ok {
			return nil
		}
		delete(doc, key)
		return s.write(doc)
	})
}

func (s *FileStorage) withLock(fn func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	locked, err := s.fileLock.TryLockContext(ctx, lockRetryWait)
	if err != nil {
		return fmt.Errorf("acquiring lock on %s: %w", s.path, err)
	}
	if !locked {
		return fmt.Errorf("could not acquire lock on %s", s.path)
	}
	defer func() { _ = s.fileLock.Unlock() }()

	return fn()
}

func (s *FileStorage) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return map[string]string{}, nil
	}

	doc := map[string]string{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.path, err)
	}
	return doc, nil
}

// write replaces the file atomically through a temp file and rename.
func (s *FileStorage) write(doc map[string]string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding storage: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}
	return nil
}
