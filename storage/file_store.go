package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"Bpsb/logger"
	"Bpsb/repository"

	"github.com/fsnotify/fsnotify"
	"github.com/goccy/go-json"
)

// FileKVStore keeps every key in a single JSON object on disk.
// Each write rewrites the whole file through a temp file and rename.
type FileKVStore struct {
	path string

	mu          sync.Mutex
	data        map[string]string
	lastWritten []byte
}

// NewFileKVStore opens (or lazily creates) the blob at path.
func NewFileKVStore(path string) (*FileKVStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	s := &FileKVStore{path: path, data: map[string]string{}}
	if _, err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file path.
func (s *FileKVStore) Path() string { return s.path }

// reload re-reads the file. It reports false when the content is what this
// store last wrote itself. The read happens under mu so a concurrent Set
// cannot slip between reading the file and comparing it with lastWritten.
func (s *FileKVStore) reload() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.data = map[string]string{}
			s.lastWritten = nil
			return true, nil
		}
		return false, fmt.Errorf("failed to read store file %s: %w", s.path, err)
	}

	if s.lastWritten != nil && bytes.Equal(raw, s.lastWritten) {
		return false, nil
	}

	data := map[string]string{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return false, fmt.Errorf("failed to parse store file %s: %w", s.path, err)
		}
	}
	s.data = data
	s.lastWritten = raw
	return true, nil
}

func (s *FileKVStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return "", repository.ErrKeyNotFound
	}
	return v, nil
}

func (s *FileKVStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.data[key]
	s.data[key] = value
	if err := s.flushLocked(); err != nil {
		if had {
			s.data[key] = prev
		} else {
			delete(s.data, key)
		}
		return err
	}
	return nil
}

func (s *FileKVStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.data[key]
	if !had {
		return nil
	}
	delete(s.data, key)
	if err := s.flushLocked(); err != nil {
		s.data[key] = prev
		return err
	}
	return nil
}

func (s *FileKVStore) Close() error { return nil }

func (s *FileKVStore) flushLocked() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace store file: %w", err)
	}

	s.lastWritten = raw
	return nil
}

// Watch reloads the store whenever the file is changed by another process and
// then calls onChange. It blocks until ctx is done.
func (s *FileKVStore) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// 监听目录而不是文件本身，rename 会替换 inode
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(s.path), err)
	}

	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			changed, err := s.reload()
			if err != nil {
				logger.Warn("store file reload failed", logger.String("path", s.path), logger.ErrorField(err))
				continue
			}
			if changed && onChange != nil {
				logger.Info("store file changed on disk", logger.String("path", s.path))
				onChange()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("store watcher error", logger.ErrorField(err))
		}
	}
}
