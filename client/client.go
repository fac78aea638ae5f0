// Package client implements the write and read paths a caller uses to
// talk to a chunk store: splitting an append into chunks, placing and
// pushing each chunk's replicas, committing through the master, and
// reassembling a read from a master's read plan.
//
// Grounded on fengpf-zircon's client package for the shape of a thin
// client that holds only a master handle and a directory and does no
// local buffering of its own.
package client

import (
	log "github.com/sirupsen/logrus"

	"chunkvault/chunkcodec"
	"chunkvault/directory"
	"chunkvault/gfs"
)

// Client is the caller-facing entry point: every operation goes
// through master for coordination and dir to reach chunkservers
// directly for chunk bodies.
type Client struct {
	master      gfs.MasterHandle
	dir         *directory.Directory
	replication int
}

// New returns a client using gfs.DefaultReplication for new appends.
func New(master gfs.MasterHandle, dir *directory.Directory) *Client {
	return &Client{master: master, dir: dir, replication: gfs.DefaultReplication}
}

// Append splits data into chunks, places and pushes each chunk's
// replicas to distinct chunkservers, then commits the whole append
// through master in one call.
//
// Placement picks replication distinct servers per chunk by rotating
// through master's free-chunkserver list: chunk i's replicas start at
// offset i in that list and wrap around. Every entry in the list is
// already distinct (the master's registry cannot contain the same
// address twice), so a rotation can never repeat a server within one
// chunk's replica set. This is the corrected placement: picking the
// same chunkserver for every replica of a chunk -- as the source this
// was distilled from does -- defeats replication's entire purpose.
func (c *Client) Append(path string, data []byte) error {
	if len(data) > gfs.MaxAppendBytes {
		return gfs.NewError(gfs.TooLarge, "append of %d bytes exceeds limit %d", len(data), gfs.MaxAppendBytes)
	}
	if len(data) == 0 {
		return nil
	}

	chunks := chunkcodec.Split(data)

	ids, err := c.master.GetFreeChunkservers(c.replication)
	if err != nil {
		return err
	}

	seq := make([]gfs.ChunkHash, len(chunks))
	locations := make(map[gfs.ChunkHash][]gfs.ServerAddress, len(chunks))

	for i, pc := range chunks {
		replicas := pickReplicas(ids, i, c.replication)
		seq[i] = pc.Hash

		var pushed []gfs.ServerAddress
		for _, serverID := range replicas {
			handle, err := c.dir.Get(serverID)
			if err != nil {
				log.Warningf("client: append %s: chunkserver %s not reachable: %v", path, serverID, err)
				continue
			}
			if _, err := handle.PushChunk(pc.Body[:]); err != nil {
				log.Warningf("client: append %s: push of chunk %d to %s failed: %v", path, i, serverID, err)
				continue
			}
			pushed = append(pushed, serverID)
		}
		locations[pc.Hash] = pushed
	}

	return c.master.AppendFile(path, uint64(len(data)), seq, locations)
}

// pickReplicas returns up to n distinct entries of ids, starting at
// offset chunkIndex and wrapping around. ids is assumed to contain no
// duplicates.
func pickReplicas(ids []gfs.ServerAddress, chunkIndex, n int) []gfs.ServerAddress {
	if len(ids) == 0 {
		return nil
	}
	if n > len(ids) {
		n = len(ids)
	}
	out := make([]gfs.ServerAddress, n)
	start := chunkIndex % len(ids)
	for i := 0; i < n; i++ {
		out[i] = ids[(start+i)%len(ids)]
	}
	return out
}

// ReadFull reads path's entire contents, chunk by chunk, trying each
// chunk's known replicas in order until one answers.
func (c *Client) ReadFull(path string) ([]byte, error) {
	info, err := c.master.Stat(path)
	if err != nil {
		return nil, err
	}

	plan, err := c.master.GetReadInfo(path, 0, info.Length)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, info.Length)
	for _, read := range plan.Chunks {
		body, err := c.readChunk(read)
		if err != nil {
			return nil, err
		}
		out = append(out, body...)
	}

	if gfs.Offset(len(out)) > info.Length {
		out = out[:info.Length]
	}
	return out, nil
}

// readChunk tries every known location for one chunk in order,
// returning the first successfully read body.
func (c *Client) readChunk(read gfs.ChunkRead) ([]byte, error) {
	var lastErr error = gfs.NewError(gfs.ChunkNotFound, "chunk %d has no known locations", read.ChunkID)
	for _, serverID := range read.Locations {
		handle, err := c.dir.Get(serverID)
		if err != nil {
			lastErr = err
			continue
		}
		body, err := handle.ReadChunk(read.ChunkID)
		if err != nil {
			lastErr = err
			continue
		}
		return body, nil
	}
	return nil, lastErr
}
