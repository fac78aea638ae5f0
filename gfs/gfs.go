// Package gfs holds the data model shared by every component of the
// chunk store: the master, the chunkservers, the client, and the Node
// Directory that connects them.
package gfs

import "time"

// ChunkSize is the fixed, padded size of every chunk body, on the wire
// and on disk.
const ChunkSize = 1024

// StageCapacity is the number of entries held in a chunkserver's Stage
// Cache before the LRU starts evicting.
const StageCapacity = 20

// MaxAppendBytes is the largest single append a client may submit.
const MaxAppendBytes = 1_000_000_000

// DefaultReplication is the replication factor the client requests
// when it has not been told otherwise.
const DefaultReplication = 3

// HeartbeatInterval is the cadence at which a chunkserver reports its
// status to the master.
const HeartbeatInterval = 30 * time.Second

// ChunkHash identifies a pushed-but-uncommitted chunk body by content.
type ChunkHash [32]byte

// ChunkID is the master-allocated, monotonically increasing identity
// of a committed chunk. Once assigned it is never reused.
type ChunkID uint64

// ServerAddress names a chunkserver in the Node Directory. In this
// core it need not be a real network address; it is just a lookup key.
type ServerAddress string

// Offset is a byte position within a file.
type Offset int64

// ChunkIndex is the position of a chunk within a file's chunk sequence.
type ChunkIndex int

// ProtoChunk is one padded, hashed piece of a client's append, before
// the master has assigned it a ChunkID.
type ProtoChunk struct {
	Body        [ChunkSize]byte
	Hash        ChunkHash
	OriginalLen uint64
}

// ChunkRead describes where to find one chunk of a file, for a client
// satisfying a read.
type ChunkRead struct {
	ChunkID   ChunkID
	Locations []ServerAddress
}

// ReadPlan is the ordered list of chunks a client must visit to read
// an offset range of a file.
type ReadPlan struct {
	Chunks []ChunkRead
}

// FileInfo is the subset of file metadata exposed to clients via stat.
type FileInfo struct {
	Length Offset
}

// ChunkRecord is what a chunk store reports about one on-disk chunk.
type ChunkRecord struct {
	ID     ChunkID
	Length uint64
	CRC32  uint32
}
