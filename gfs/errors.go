package gfs

import (
	"errors"
	"fmt"
)

// ErrorCode enumerates the error kinds callers of this module must be
// able to distinguish (see spec ERROR HANDLING DESIGN).
type ErrorCode int

const (
	// UnknownError wraps a lower-level failure (RPC, I/O) that does not
	// map onto one of the kinds below.
	UnknownError ErrorCode = iota
	// InvalidLength means a pushed chunk body was not exactly ChunkSize
	// bytes. Programmer error; the caller must not retry.
	InvalidLength
	// ChunkNotFound means a staged hash or a committed chunk id is
	// absent from a chunkserver.
	ChunkNotFound
	// FileNotFound means the path has no entry in the master's file
	// table.
	FileNotFound
	// EndOfFile means a read offset is past the file's length.
	EndOfFile
	// TooLarge means an append exceeds MaxAppendBytes.
	TooLarge
	// NotEnoughChunkservers means fewer chunkservers are registered
	// than the requested replication factor.
	NotEnoughChunkservers
	// CommitFailed means every replica of some chunk in an append
	// failed to commit, so the append lost data and must be surfaced.
	CommitFailed
	// CorruptChunk means a chunk read back from disk failed its CRC32
	// check.
	CorruptChunk
)

func (c ErrorCode) String() string {
	switch c {
	case InvalidLength:
		return "invalid-length"
	case ChunkNotFound:
		return "chunk-not-found"
	case FileNotFound:
		return "file-not-found"
	case EndOfFile:
		return "end-of-file"
	case TooLarge:
		return "too-large"
	case NotEnoughChunkservers:
		return "not-enough-chunkservers"
	case CommitFailed:
		return "commit-failed"
	case CorruptChunk:
		return "corrupt-chunk"
	default:
		return "unknown-error"
	}
}

// Error is the typed error every operation in this module returns
// instead of an opaque error, so callers can branch on Code.
type Error struct {
	Code ErrorCode
	Msg  string
}

func (e Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Code, e.Msg)
}

// NewError builds an Error with a formatted message.
func NewError(code ErrorCode, format string, args ...interface{}) Error {
	return Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the ErrorCode from err if it is (or wraps) a
// gfs.Error, otherwise returns UnknownError.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return UnknownError
	}
	var ge Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return UnknownError
}

// Is reports whether err is a gfs.Error with the given code.
func Is(err error, code ErrorCode) bool {
	ge, ok := err.(Error)
	return ok && ge.Code == code
}
