package master

import (
	"os"

	"gopkg.in/yaml.v2"

	"chunkvault/directory"
	"chunkvault/gfs"
)

// fileState is the on-disk shape of one file table entry (spec §6):
// self-describing and human-inspectable via YAML.
type fileState struct {
	Length uint64   `yaml:"length"`
	Chunks []uint64 `yaml:"chunks"`
}

// serverState is the full durable master state (spec §6
// MasterServerState). The chunk-location index and chunkserver
// registry are deliberately absent: spec §4.6 Durability names only
// (file_table, chunk_counter) as persistent. After a restart the
// registry is rebuilt from heartbeats, and the location index gains
// entries only for appends made after the restart: heartbeats carry no
// chunk list, so chunks committed before the restart have no known
// locations.
type serverState struct {
	FileTable    map[string]fileState `yaml:"file_table"`
	ChunkCounter uint64               `yaml:"chunk_counter"`
}

// Snapshot writes the master's durable state to its configured
// snapshot path. A no-op if no path was configured.
func (m *Master) Snapshot() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// snapshotLocked assumes m.mu is already held.
func (m *Master) snapshotLocked() error {
	if m.snapshotPath == "" {
		return nil
	}

	state := m.stateLocked()
	data, err := yaml.Marshal(state)
	if err != nil {
		return err
	}

	tmp := m.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, m.snapshotPath)
}

func (m *Master) stateLocked() serverState {
	state := serverState{
		FileTable:    make(map[string]fileState, len(m.files)),
		ChunkCounter: uint64(m.chunkCounter),
	}
	for path, entry := range m.files {
		chunks := make([]uint64, len(entry.chunks))
		for i, id := range entry.chunks {
			chunks[i] = uint64(id)
		}
		state.FileTable[path] = fileState{
			Length: uint64(entry.length),
			Chunks: chunks,
		}
	}
	return state
}

// Load reconstructs a master from a snapshot written by Snapshot. The
// chunk-location index starts empty (see serverState's comment); the
// chunk counter resumes strictly above every previously assigned id
// (spec invariant I3).
func Load(snapshotPath string, dir *directory.Directory) (*Master, error) {
	data, err := os.ReadFile(snapshotPath)
	if err != nil {
		return nil, err
	}

	var state serverState
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, err
	}

	m := New(dir, snapshotPath)
	m.chunkCounter = gfs.ChunkID(state.ChunkCounter)
	for path, fs := range state.FileTable {
		chunks := make([]gfs.ChunkID, len(fs.Chunks))
		for i, id := range fs.Chunks {
			chunks[i] = gfs.ChunkID(id)
		}
		m.files[path] = &fileEntry{
			length: gfs.Offset(fs.Length),
			chunks: chunks,
		}
	}
	return m, nil
}
