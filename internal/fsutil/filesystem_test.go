package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFileSystem(t *testing.T) {
	var fsys FileSystem = OSFileSystem{}

	assert.True(t, fsys.Exists("filesystem.go"))
	assert.False(t, fsys.Exists("nonexistent_file_xyz.go"))

	data, err := fsys.ReadFile("filesystem.go")
	require.NoError(t, err)
	assert.Contains(t, string(data), "package fsutil")

	f, err := fsys.Open("filesystem.go")
	require.NoError(t, err)
	defer f.Close()
	head := make([]byte, 2)
	_, err = io.ReadFull(f, head)
	require.NoError(t, err)
	assert.Equal(t, "//", string(head))
}

func TestMemoryFileSystemCreateVisibleOnClose(t *testing.T) {
	mfs := NewMemoryFileSystem()

	w, err := mfs.Create("/out/hits.csv")
	require.NoError(t, err)
	_, err = w.Write([]byte("event,cell_id\n"))
	require.NoError(t, err)

	data, err := mfs.ReadFile("/out/hits.csv")
	require.NoError(t, err)
	assert.Empty(t, data, "content should not be visible before Close")

	require.NoError(t, w.Close())
	data, err = mfs.ReadFile("/out//hits.csv")
	require.NoError(t, err)
	assert.Equal(t, "event,cell_id\n", string(data))
}

func TestMemoryFileSystemOpen(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.WriteFile("tracks.txt", []byte("Event 1\n"))

	f, err := mfs.Open("./tracks.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "Event 1\n", string(data))

	_, err = mfs.Open("missing.txt")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestMemoryFileSystemReadFileCopies(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.WriteFile("a.txt", []byte("abc"))

	data, err := mfs.ReadFile("a.txt")
	require.NoError(t, err)
	data[0] = 'x'

	again, err := mfs.ReadFile("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

func TestMemoryFileSystemNames(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.WriteFile("b.txt", nil)
	mfs.WriteFile("a.txt", nil)

	assert.Equal(t, []string{"a.txt", "b.txt"}, mfs.Names())
	assert.True(t, mfs.Exists("a.txt"))
	assert.False(t, mfs.Exists("c.txt"))
}
