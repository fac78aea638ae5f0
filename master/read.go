package master

import (
	"chunkvault/gfs"
)

// GetReadInfo implements gfs.MasterHandle (spec §4.6 "Read planning").
func (m *Master) GetReadInfo(path string, offset gfs.Offset, length gfs.Offset) (gfs.ReadPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.files[path]
	if !ok {
		return gfs.ReadPlan{}, gfs.NewError(gfs.FileNotFound, "no such file %q", path)
	}
	if offset > entry.length {
		return gfs.ReadPlan{}, gfs.NewError(gfs.EndOfFile, "offset %d past length %d of %q", offset, entry.length, path)
	}

	first := int(offset) / gfs.ChunkSize
	numChunks := ceilDiv(int64(entry.length), gfs.ChunkSize)
	last := int(offset+length) / gfs.ChunkSize
	if last >= numChunks {
		last = numChunks - 1
	}
	if last < first {
		return gfs.ReadPlan{}, nil
	}

	reads := make([]gfs.ChunkRead, 0, last-first+1)
	for i := first; i <= last; i++ {
		id := entry.chunks[i]
		reads = append(reads, gfs.ChunkRead{
			ChunkID:   id,
			Locations: m.locationsLocked(id),
		})
	}
	return gfs.ReadPlan{Chunks: reads}, nil
}

// Stat implements gfs.MasterHandle.
func (m *Master) Stat(path string) (gfs.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.files[path]
	if !ok {
		return gfs.FileInfo{}, gfs.NewError(gfs.FileNotFound, "no such file %q", path)
	}
	return gfs.FileInfo{Length: entry.length}, nil
}

func (m *Master) locationsLocked(id gfs.ChunkID) []gfs.ServerAddress {
	set := m.chunkLocations[id]
	locs := make([]gfs.ServerAddress, 0, len(set))
	for serverID := range set {
		locs = append(locs, serverID)
	}
	return locs
}

func ceilDiv(n, d int64) int {
	if n <= 0 {
		return 0
	}
	return int((n + d - 1) / d)
}
