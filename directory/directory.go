// Package directory implements the Node Directory: the shared
// name-to-handle registry the master and client use to reach a
// chunkserver. The core protocol only ever adds to it; Remove exists
// so tests can model an unreachable chunkserver, and there is no
// membership subsystem that removes departed chunkservers.
package directory

import (
	"sync"

	"chunkvault/gfs"
)

// Directory is safe for concurrent use. It is the one shared mutable
// registry between master, client, and chunkserver startup.
type Directory struct {
	mu    sync.RWMutex
	nodes map[gfs.ServerAddress]gfs.ChunkServerHandle
}

// New returns an empty directory.
func New() *Directory {
	return &Directory{nodes: make(map[gfs.ServerAddress]gfs.ChunkServerHandle)}
}

// Add registers handle under the id it reports via handle.ID().
// Re-adding the same id overwrites the previous handle, which is how
// a restarted in-process chunkserver re-registers itself under test.
func (d *Directory) Add(handle gfs.ChunkServerHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nodes[handle.ID()] = handle
}

// Get resolves id to a handle, or returns UnknownError if nothing is
// registered under it.
func (d *Directory) Get(id gfs.ServerAddress) (gfs.ChunkServerHandle, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	handle, ok := d.nodes[id]
	if !ok {
		return nil, gfs.NewError(gfs.UnknownError, "no chunkserver registered under %q", id)
	}
	return handle, nil
}

// Remove drops id from the directory. This is not part of the
// specified core protocol (the directory is append-only there); it
// exists so tests can model "a chunkserver is unreachable" (spec §8
// scenario 5) without a full membership subsystem.
func (d *Directory) Remove(id gfs.ServerAddress) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.nodes, id)
}
