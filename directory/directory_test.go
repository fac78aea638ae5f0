package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chunkvault/gfs"
)

type stubHandle struct{ id gfs.ServerAddress }

func (s stubHandle) ID() gfs.ServerAddress                             { return s.id }
func (s stubHandle) PushChunk(body []byte) (gfs.ChunkHash, error)      { return gfs.ChunkHash{}, nil }
func (s stubHandle) CommitChunk(h gfs.ChunkHash, id gfs.ChunkID) error { return nil }
func (s stubHandle) ReadChunk(id gfs.ChunkID) ([]byte, error)          { return nil, nil }

func TestAddThenGet(t *testing.T) {
	d := New()
	d.Add(stubHandle{id: "cs0"})

	h, err := d.Get("cs0")
	require.NoError(t, err)
	assert.Equal(t, gfs.ServerAddress("cs0"), h.ID())
}

func TestGetUnknown(t *testing.T) {
	d := New()
	_, err := d.Get("nope")
	require.Error(t, err)
}

func TestRemove(t *testing.T) {
	d := New()
	d.Add(stubHandle{id: "cs0"})
	d.Remove("cs0")

	_, err := d.Get("cs0")
	assert.Error(t, err)
}
