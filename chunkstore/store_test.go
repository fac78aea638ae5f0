package chunkstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chunkvault/gfs"
)

func tempStore(t *testing.T) *Store {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	return s
}

func makeBody(fill byte) []byte {
	body := make([]byte, gfs.ChunkSize)
	for i := range body {
		body[i] = fill
	}
	return body
}

func TestWriteThenRead(t *testing.T) {
	s := tempStore(t)
	body := makeBody('a')

	require.NoError(t, s.Write(42, body))
	got, err := s.Read(42)
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestWriteRejectsWrongLength(t *testing.T) {
	s := tempStore(t)
	err := s.Write(1, []byte("too short"))
	require.Error(t, err)
	assert.Equal(t, gfs.InvalidLength, gfs.CodeOf(err))
}

func TestReadMissingChunk(t *testing.T) {
	s := tempStore(t)
	_, err := s.Read(999)
	require.Error(t, err)
	assert.Equal(t, gfs.ChunkNotFound, gfs.CodeOf(err))
}

func TestReadDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, s.Write(7, makeBody('z')))

	// Corrupt the on-disk bytes directly; the in-memory CRC32 still
	// reflects the original write.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ch7"), makeBody('q'), 0o644))

	_, err = s.Read(7)
	require.Error(t, err)
	assert.Equal(t, gfs.CorruptChunk, gfs.CodeOf(err))
}

func TestOpenRecoversValidChunksAndSkipsMalformed(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Write(1, makeBody('a')))
	require.NoError(t, s.Write(2, makeBody('b')))

	// A malformed entry: wrong size.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ch3"), []byte("short"), 0o644))
	// A non-chunk file must be ignored entirely.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("hi"), 0o644))

	reopened, err := Open(dir)
	require.NoError(t, err)

	assert.True(t, reopened.Has(1))
	assert.True(t, reopened.Has(2))
	assert.False(t, reopened.Has(3))
	assert.Len(t, reopened.List(), 2)
}

func TestListAndDiskUsed(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Write(10, makeBody('a')))
	require.NoError(t, s.Write(11, makeBody('b')))

	assert.Len(t, s.List(), 2)
	assert.Equal(t, uint64(2*gfs.ChunkSize), s.DiskUsed())
}
