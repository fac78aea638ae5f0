// Package mountpoint exposes a master and client pair as a real,
// mounted filesystem via FUSE. It adapts the node-types and
// read/write-stream abstractions of fengpf-zircon's
// lib/filesystem/fs.go (Filesystem, ReadOnlyFile, WritableFile,
// fileStream) to this store's model: paths are flat, content is
// read by chunk-aligned full-file fetch, and the only write operation
// is append -- there is no in-place write or truncate, so a write at
// any offset but the current end of file is rejected.
package mountpoint

import (
	"context"
	"path"
	"sync"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	log "github.com/sirupsen/logrus"

	"chunkvault/client"
	"chunkvault/gfs"
)

// Mount starts a FUSE server rooted at mountPoint, backed by cli and
// master. The caller is responsible for calling Wait or Unmount on the
// returned server.
func Mount(mountPoint string, cli *client.Client, master gfs.MasterHandle) (*fuse.Server, error) {
	root := &rootNode{client: cli, master: master}
	opts := &fs.Options{}
	opts.MountOptions.FsName = "chunkvault"
	opts.MountOptions.Name = "chunkvault"

	server, err := fs.Mount(mountPoint, root, opts)
	if err != nil {
		return nil, err
	}
	return server, nil
}

// rootNode is the single flat directory every stored path lives
// under. Nested paths (spec's namespace is a flat string-prefix
// space, not a directory tree) are rendered as their full path with
// leading slash stripped, matching this core's Ls/LsTree semantics.
type rootNode struct {
	fs.Inode
	client *client.Client
	master gfs.MasterHandle
}

var (
	_ fs.NodeLookuper  = (*rootNode)(nil)
	_ fs.NodeReaddirer = (*rootNode)(nil)
)

func (r *rootNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	p := "/" + name
	info, err := r.master.Stat(p)
	if err != nil {
		return nil, syscall.ENOENT
	}

	child := &fileNode{client: r.client, master: r.master, path: p}
	out.Size = uint64(info.Length)
	stable := fs.StableAttr{Mode: fuse.S_IFREG}
	return r.NewInode(ctx, child, stable), 0
}

func (r *rootNode) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	names, err := r.master.LsTree("/")
	if err != nil {
		log.Errorf("mountpoint: readdir: %v", err)
		return nil, syscall.EIO
	}

	entries := make([]fuse.DirEntry, 0, len(names))
	for _, p := range names {
		entries = append(entries, fuse.DirEntry{
			Name: path.Base(p),
			Mode: fuse.S_IFREG,
		})
	}
	return fs.NewListDirStream(entries), 0
}

// fileNode is one stored file. Reads fetch the whole file on first
// access and serve offsets out of that copy; appends are buffered
// until Flush or Release and then committed as a single call to
// Client.Append, since this store has no notion of a partial or
// in-progress write.
type fileNode struct {
	fs.Inode

	client *client.Client
	master gfs.MasterHandle
	path   string

	mu      sync.Mutex
	content []byte
	loaded  bool
	pending []byte
}

var (
	_ fs.NodeOpener    = (*fileNode)(nil)
	_ fs.NodeReader    = (*fileNode)(nil)
	_ fs.NodeWriter    = (*fileNode)(nil)
	_ fs.NodeFlusher   = (*fileNode)(nil)
	_ fs.NodeGetattrer = (*fileNode)(nil)
)

func (f *fileNode) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

func (f *fileNode) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	info, err := f.master.Stat(f.path)
	if err != nil {
		return syscall.ENOENT
	}
	out.Size = uint64(info.Length)
	out.Mode = fuse.S_IFREG | 0o644
	return 0
}

func (f *fileNode) Read(ctx context.Context, fh fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.loaded {
		body, err := f.client.ReadFull(f.path)
		if err != nil {
			return nil, syscall.EIO
		}
		f.content = body
		f.loaded = true
	}

	if off >= int64(len(f.content)) {
		return fuse.ReadResultData(nil), 0
	}
	end := off + int64(len(dest))
	if end > int64(len(f.content)) {
		end = int64(len(f.content))
	}
	return fuse.ReadResultData(f.content[off:end]), 0
}

// Write only accepts an append at the file's current end: this store
// has no in-place write. The bytes are buffered in pending and
// committed on the next Flush or Release.
func (f *fileNode) Write(ctx context.Context, fh fs.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	f.mu.Lock()
	defer f.mu.Unlock()

	info, err := f.master.Stat(f.path)
	if err != nil {
		return 0, syscall.ENOENT
	}
	if off != int64(info.Length)+int64(len(f.pending)) {
		return 0, syscall.EINVAL
	}

	f.pending = append(f.pending, data...)
	return uint32(len(data)), 0
}

func (f *fileNode) Flush(ctx context.Context, fh fs.FileHandle) syscall.Errno {
	return f.commitPending()
}

func (f *fileNode) Release(ctx context.Context, fh fs.FileHandle) syscall.Errno {
	return f.commitPending()
}

func (f *fileNode) commitPending() syscall.Errno {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.pending) == 0 {
		return 0
	}
	if err := f.client.Append(f.path, f.pending); err != nil {
		log.Errorf("mountpoint: flush append to %s failed: %v", f.path, err)
		return syscall.EIO
	}
	f.pending = nil
	f.loaded = false // next read must re-fetch the now-longer file
	return 0
}
