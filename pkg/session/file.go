package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// FileStore keeps values in a YAML map on disk. Every write rewrites the
// file through a temporary file and a rename.
type FileStore struct {
	path string
	mu   sync.Mutex
}

var _ Store = &FileStore{}

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("file session store: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "file session store: create directory")
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) load() (map[string]string, error) {
	values := map[string]string{}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return values, nil
		}
		return nil, errors.Wrap(err, "file session store: read")
	}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, errors.Wrapf(err, "file session store: parse %s", s.path)
	}
	if values == nil {
		values = map[string]string{}
	}
	return values, nil
}

func (s *FileStore) save(values map[string]string) error {
	data, err := yaml.Marshal(values)
	if err != nil {
		return errors.Wrap(err, "file session store: encode")
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*.yaml")
	if err != nil {
		return errors.Wrap(err, "file session store: create temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "file session store: write")
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "file session store: chmod")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "file session store: close")
	}
	return errors.Wrap(os.Rename(tmp.Name(), s.path), "file session store: rename")
}

func (s *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	key, err := normalizeKey("file", key)
	if err != nil {
		return "", false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (s *FileStore) Set(_ context.Context, key, value string) error {
	key, err := normalizeKey("file", key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value
	return s.save(values)
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	key, err := normalizeKey("file", key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.save(values)
}

func (s *FileStore) Close() error { return nil }
