package fileutil

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.txt")

	require.NoError(t, WriteAtomic(path, []byte("hello"), 0644))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	require.NoError(t, WriteAtomic(path, []byte("replaced"), 0644))
	got, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "replaced", string(got))
}

func TestWriteAtomic_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteAtomic(filepath.Join(dir, "a.txt"), []byte("a"), 0644))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.txt", entries[0].Name())
}

func TestWriteAtomic_WriteError(t *testing.T) {
	orig := tempFileWrite
	defer func() { tempFileWrite = orig }()
	tempFileWrite = func(*os.File, []byte) (int, error) {
		return 0, errors.New("disk full")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(path, []byte("original"), 0644))

	err := WriteAtomic(path, []byte("new"), 0644)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	got, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "original", string(got), "failed write must leave the old file intact")

	entries, _ := os.ReadDir(dir)
	assert.Len(t, entries, 1)
}

func TestWriteAtomic_CloseError(t *testing.T) {
	orig := tempFileClose
	defer func() { tempFileClose = orig }()
	tempFileClose = func(f io.Closer) error {
		f.Close()
		return errors.New("close failed")
	}

	path := filepath.Join(t.TempDir(), "out.txt")
	err := WriteAtomic(path, []byte("x"), 0644)
	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteAtomic_RenameError(t *testing.T) {
	orig := osRename
	defer func() { osRename = orig }()
	osRename = func(string, string) error { return errors.New("rename failed") }

	dir := t.TempDir()
	err := WriteAtomic(filepath.Join(dir, "out.txt"), []byte("x"), 0644)
	require.Error(t, err)

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}
