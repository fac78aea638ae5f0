// Package chunkserver implements a single chunkserver: it owns one
// Stage Cache and one Chunk Store, exposes push/commit/read to the
// master and client, and periodically reports its status to the
// master.
//
// Grounded on wl4g-collect-goGFS's ChunkServer (mutex-guarded state,
// logrus logging, dedicated heartbeat goroutine) generalized to this
// spec's content-hash staging and commit-by-id protocol instead of
// that source's lease/version based write path.
package chunkserver

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"chunkvault/chunkstore"
	"chunkvault/gfs"
	"chunkvault/stagecache"
)

// ChunkServer holds one chunkserver's entire state: its identity, its
// staging area, its durable store, and a handle back to the master
// for heartbeats.
type ChunkServer struct {
	id             gfs.ServerAddress
	diskAllocation uint64

	master gfs.MasterHandle
	stage  *stagecache.Cache
	store  *chunkstore.Store

	mu       sync.Mutex
	stopOnce sync.Once
	cancel   context.CancelFunc
}

var _ gfs.ChunkServerHandle = (*ChunkServer)(nil)

// New opens (or recovers) a chunk store under dataDir and wires up a
// chunkserver named id with diskAllocation total bytes of storage
// budget, reporting to master.
func New(id gfs.ServerAddress, dataDir string, diskAllocation uint64, master gfs.MasterHandle) (*ChunkServer, error) {
	store, err := chunkstore.Open(dataDir)
	if err != nil {
		return nil, err
	}

	cs := &ChunkServer{
		id:             id,
		diskAllocation: diskAllocation,
		master:         master,
		stage:          stagecache.New(gfs.StageCapacity),
		store:          store,
	}
	return cs, nil
}

// ID implements gfs.ChunkServerHandle.
func (cs *ChunkServer) ID() gfs.ServerAddress {
	return cs.id
}

// PushChunk implements gfs.ChunkServerHandle.
func (cs *ChunkServer) PushChunk(body []byte) (gfs.ChunkHash, error) {
	if len(body) != gfs.ChunkSize {
		return gfs.ChunkHash{}, gfs.NewError(gfs.InvalidLength, "push: body length %d != %d", len(body), gfs.ChunkSize)
	}
	return cs.stage.Put(body), nil
}

// CommitChunk implements gfs.ChunkServerHandle.
func (cs *ChunkServer) CommitChunk(hash gfs.ChunkHash, id gfs.ChunkID) error {
	body, err := cs.stage.Take(hash)
	if err != nil {
		return err
	}
	if err := cs.store.Write(id, body); err != nil {
		return err
	}
	log.Infof("chunkserver %s: committed chunk %d", cs.id, id)
	return nil
}

// ReadChunk implements gfs.ChunkServerHandle.
func (cs *ChunkServer) ReadChunk(id gfs.ChunkID) ([]byte, error) {
	return cs.store.Read(id)
}

// diskStats computes (used, free) purely from the local store and
// the configured allocation: disk_used is chunks-on-disk * ChunkSize,
// disk_free is whatever of the allocation remains.
func (cs *ChunkServer) diskStats() (used, free uint64) {
	used = cs.store.DiskUsed()
	if used > cs.diskAllocation {
		return used, 0
	}
	return used, cs.diskAllocation - used
}

// Heartbeat sends a single status report to the master. StartHeartbeatLoop
// calls this on a fixed cadence; tests and one-shot callers can call
// it directly.
func (cs *ChunkServer) Heartbeat() {
	used, free := cs.diskStats()
	cs.master.ReceiveHeartbeat(cs.id, used, free)
}

// StartHeartbeatLoop sends one heartbeat immediately, then one every
// gfs.HeartbeatInterval, until ctx is cancelled or Stop is called.
// Grounded on wl4g-collect-goGFS's dedicated per-chunkserver heartbeat
// goroutine; the cadence itself comes from the GFS design note ("every
// 30s") supplemented from original_source/src/lib.rs.
func (cs *ChunkServer) StartHeartbeatLoop(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	cs.mu.Lock()
	cs.cancel = cancel
	cs.mu.Unlock()

	go func() {
		cs.Heartbeat()
		ticker := time.NewTicker(gfs.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cs.Heartbeat()
			}
		}
	}()
}

// Stop ends the heartbeat loop, if one is running.
func (cs *ChunkServer) Stop() {
	cs.stopOnce.Do(func() {
		cs.mu.Lock()
		cancel := cs.cancel
		cs.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	})
}
