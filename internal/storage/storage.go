package storage

import (
	"errors"
	"os"
	"path/filepath"
)

var ErrEmptyDataDir = errors.New("dataDir must not be empty")

// Store is the data directory layout shared by the corpus and findings.
type Store struct {
	DataDir string
}

func New(dataDir string) (*Store, error) {
	if dataDir == "" {
		return nil, ErrEmptyDataDir
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, err
	}
	return &Store{DataDir: dataDir}, nil
}

func (s *Store) Path(elem ...string) string {
	parts := append([]string{s.DataDir}, elem...)
	return filepath.Join(parts...)
}

// Dir returns Path(elem...) after making sure the directory exists.
func (s *Store) Dir(elem ...string) (string, error) {
	p := s.Path(elem...)
	if err := os.MkdirAll(p, 0o700); err != nil {
		return "", err
	}
	return p, nil
}

func (s *Store) CorpusDir() (string, error)   { return s.Dir("corpus") }
func (s *Store) FindingsDir() (string, error) { return s.Dir("findings") }

// WriteFile replaces path with data through a temporary file, so readers
// never observe a partial write.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
