package master

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chunkvault/chunkcodec"
	"chunkvault/chunkserver"
	"chunkvault/directory"
	"chunkvault/gfs"
)

func newTestChunkServer(t *testing.T, dir *directory.Directory, id gfs.ServerAddress, master gfs.MasterHandle) *chunkserver.ChunkServer {
	cs, err := chunkserver.New(id, t.TempDir(), 100*gfs.ChunkSize, master)
	require.NoError(t, err)
	dir.Add(cs)
	return cs
}

// pushTo pushes one proto-chunk's body to every server named in locs, so
// that a following AppendFile can commit it there.
func pushTo(t *testing.T, dir *directory.Directory, locs []gfs.ServerAddress, body []byte) {
	for _, id := range locs {
		handle, err := dir.Get(id)
		require.NoError(t, err)
		_, err = handle.PushChunk(body)
		require.NoError(t, err)
	}
}

func TestSingleSmallAppendCreatesFile(t *testing.T) {
	dir := directory.New()
	m := New(dir, "")
	newTestChunkServer(t, dir, "cs0", m)
	newTestChunkServer(t, dir, "cs1", m)
	newTestChunkServer(t, dir, "cs2", m)

	data := []byte("hello, chunkvault")
	chunks := chunkcodec.Split(data)
	require.Len(t, chunks, 1)

	locs := []gfs.ServerAddress{"cs0", "cs1", "cs2"}
	seq := []gfs.ChunkHash{chunks[0].Hash}
	locations := map[gfs.ChunkHash][]gfs.ServerAddress{chunks[0].Hash: locs}
	pushTo(t, dir, locs, chunks[0].Body[:])

	require.NoError(t, m.AppendFile("/a", uint64(len(data)), seq, locations))

	info, err := m.Stat("/a")
	require.NoError(t, err)
	assert.Equal(t, gfs.Offset(len(data)), info.Length)
}

func TestTwoSequentialAppendsExtendFile(t *testing.T) {
	dir := directory.New()
	m := New(dir, "")
	newTestChunkServer(t, dir, "cs0", m)
	newTestChunkServer(t, dir, "cs1", m)
	newTestChunkServer(t, dir, "cs2", m)
	locs := []gfs.ServerAddress{"cs0", "cs1", "cs2"}

	first := []byte("first ")
	second := []byte("second")

	for _, data := range [][]byte{first, second} {
		chunks := chunkcodec.Split(data)
		seq := []gfs.ChunkHash{chunks[0].Hash}
		locations := map[gfs.ChunkHash][]gfs.ServerAddress{chunks[0].Hash: locs}
		pushTo(t, dir, locs, chunks[0].Body[:])
		require.NoError(t, m.AppendFile("/b", uint64(len(data)), seq, locations))
	}

	info, err := m.Stat("/b")
	require.NoError(t, err)
	assert.Equal(t, gfs.Offset(len(first)+len(second)), info.Length)
}

func TestAppendExceedingOneChunkAllocatesMultipleIds(t *testing.T) {
	dir := directory.New()
	m := New(dir, "")
	newTestChunkServer(t, dir, "cs0", m)
	newTestChunkServer(t, dir, "cs1", m)
	newTestChunkServer(t, dir, "cs2", m)
	locs := []gfs.ServerAddress{"cs0", "cs1", "cs2"}

	data := make([]byte, gfs.ChunkSize+1)
	for i := range data {
		data[i] = byte(i)
	}
	chunks := chunkcodec.Split(data)
	require.Len(t, chunks, 2)

	seq := make([]gfs.ChunkHash, len(chunks))
	locations := make(map[gfs.ChunkHash][]gfs.ServerAddress, len(chunks))
	for i, c := range chunks {
		seq[i] = c.Hash
		locations[c.Hash] = locs
		pushTo(t, dir, locs, c.Body[:])
	}

	require.NoError(t, m.AppendFile("/c", uint64(len(data)), seq, locations))

	info, err := m.Stat("/c")
	require.NoError(t, err)
	assert.Equal(t, gfs.Offset(len(data)), info.Length)

	plan, err := m.GetReadInfo("/c", 0, gfs.Offset(len(data)))
	require.NoError(t, err)
	assert.Len(t, plan.Chunks, 2)
}

func TestAppendFailsWhenAllReplicasUnreachable(t *testing.T) {
	dir := directory.New()
	m := New(dir, "")
	newTestChunkServer(t, dir, "cs0", m)

	data := []byte("orphaned")
	chunks := chunkcodec.Split(data)
	seq := []gfs.ChunkHash{chunks[0].Hash}
	// cs1 was never registered in the directory: every commit attempt
	// against it fails, and no other replica is named.
	locations := map[gfs.ChunkHash][]gfs.ServerAddress{chunks[0].Hash: {"cs1"}}

	err := m.AppendFile("/d", uint64(len(data)), seq, locations)
	require.Error(t, err)
	assert.Equal(t, gfs.CommitFailed, gfs.CodeOf(err))

	_, err = m.Stat("/d")
	assert.Equal(t, gfs.FileNotFound, gfs.CodeOf(err))
}

func TestAppendSucceedsWhenOneOfSeveralReplicasIsUnreachable(t *testing.T) {
	dir := directory.New()
	m := New(dir, "")
	newTestChunkServer(t, dir, "cs0", m)
	newTestChunkServer(t, dir, "cs1", m)

	data := []byte("partial replica loss")
	chunks := chunkcodec.Split(data)
	seq := []gfs.ChunkHash{chunks[0].Hash}
	// "gone" is named as a replica but never registered, modeling a
	// chunkserver that dropped out between placement and commit.
	locations := map[gfs.ChunkHash][]gfs.ServerAddress{chunks[0].Hash: {"cs0", "gone"}}
	pushTo(t, dir, []gfs.ServerAddress{"cs0"}, chunks[0].Body[:])

	require.NoError(t, m.AppendFile("/e", uint64(len(data)), seq, locations))

	info, err := m.Stat("/e")
	require.NoError(t, err)
	assert.Equal(t, gfs.Offset(len(data)), info.Length)
}
