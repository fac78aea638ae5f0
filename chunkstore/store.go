// Package chunkstore implements a chunkserver's durable, on-disk set
// of committed chunks: one file per chunk, named ch{id}, plus an
// in-memory index of length and CRC32 rebuilt on open.
package chunkstore

import (
	"hash/crc32"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"chunkvault/gfs"
)

// Store owns a directory of chunk files and the in-memory record
// index describing them.
type Store struct {
	mu      sync.RWMutex
	dir     string
	records map[gfs.ChunkID]gfs.ChunkRecord
}

// Open creates dir if it does not exist, then scans it for files
// named ch{u64}. Any entry whose size is not exactly gfs.ChunkSize is
// skipped with a warning: the operator must clean it up by hand. This
// is the chunkserver's crash-recovery path.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	s := &Store{
		dir:     dir,
		records: make(map[gfs.ChunkID]gfs.ChunkRecord),
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, "ch") {
			continue
		}
		id, err := strconv.ParseUint(name[2:], 10, 64)
		if err != nil {
			log.Warningf("chunkstore: skipping malformed entry %q: %v", name, err)
			continue
		}

		info, err := entry.Info()
		if err != nil {
			log.Warningf("chunkstore: skipping unreadable entry %q: %v", name, err)
			continue
		}
		if info.Size() != gfs.ChunkSize {
			log.Warningf("chunkstore: skipping %q: size %d != chunk size %d", name, info.Size(), gfs.ChunkSize)
			continue
		}

		body, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warningf("chunkstore: skipping unreadable entry %q: %v", name, err)
			continue
		}

		s.records[gfs.ChunkID(id)] = gfs.ChunkRecord{
			ID:     gfs.ChunkID(id),
			Length: gfs.ChunkSize,
			CRC32:  crc32.ChecksumIEEE(body),
		}
	}

	return s, nil
}

func (s *Store) path(id gfs.ChunkID) string {
	return filepath.Join(s.dir, "ch"+strconv.FormatUint(uint64(id), 10))
}

// Write atomically stores body under id. body must be exactly
// gfs.ChunkSize bytes. Overwriting an existing id is a programmer
// error: the master guarantees id uniqueness (invariant I5), so Write
// does not check for a pre-existing record.
func (s *Store) Write(id gfs.ChunkID, body []byte) error {
	if len(body) != gfs.ChunkSize {
		return gfs.NewError(gfs.InvalidLength, "chunk body length %d != %d", len(body), gfs.ChunkSize)
	}

	tmp := s.path(id) + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path(id)); err != nil {
		return err
	}

	rec := gfs.ChunkRecord{
		ID:     id,
		Length: gfs.ChunkSize,
		CRC32:  crc32.ChecksumIEEE(body),
	}

	s.mu.Lock()
	s.records[id] = rec
	s.mu.Unlock()

	return nil
}

// Read returns the stored body for id, verifying it against the
// recorded CRC32. A corrupted chunk is reported distinctly so a
// caller can fall back to another replica instead of silently serving
// bad bytes.
func (s *Store) Read(id gfs.ChunkID) ([]byte, error) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, gfs.NewError(gfs.ChunkNotFound, "chunk %d not found", id)
	}

	body, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, gfs.NewError(gfs.ChunkNotFound, "chunk %d not found on disk", id)
		}
		return nil, err
	}

	if crc32.ChecksumIEEE(body) != rec.CRC32 {
		return nil, gfs.NewError(gfs.CorruptChunk, "chunk %d failed CRC32 check", id)
	}

	return body, nil
}

// List returns every record currently known to the store. Order is
// unspecified.
func (s *Store) List() []gfs.ChunkRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]gfs.ChunkRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out
}

// Has reports whether id is present, without reading the body.
func (s *Store) Has(id gfs.ChunkID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[id]
	return ok
}

// DiskUsed returns the number of bytes occupied by committed chunks,
// i.e. len(records) * ChunkSize.
func (s *Store) DiskUsed() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.records)) * gfs.ChunkSize
}
