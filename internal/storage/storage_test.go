package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	_, err := New("")
	require.ErrorIs(t, err, ErrEmptyDataDir)

	dir := filepath.Join(t.TempDir(), "a", "b")
	s, err := New(dir)
	require.NoError(t, err)
	require.DirExists(t, dir)
	require.Equal(t, filepath.Join(dir, "x", "y"), s.Path("x", "y"))

	c, err := s.CorpusDir()
	require.NoError(t, err)
	require.DirExists(t, c)
	f, err := s.FindingsDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "findings"), f)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "f.bin")
	require.NoError(t, WriteFile(path, []byte("one")))
	require.NoError(t, WriteFile(path, []byte("two")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "two", string(got))
	require.NoFileExists(t, path+".tmp")
}
