// Package chunkcodec splits an append's byte string into fixed-size,
// zero-padded, content-hashed chunks. It is the client-side half of
// the append protocol: every other component only ever sees the
// output of Split.
package chunkcodec

import (
	"crypto/sha256"

	"chunkvault/gfs"
)

// Split divides data into ceil(len(data)/ChunkSize) proto-chunks. Each
// body is data[i*S : min((i+1)*S, len(data))], right-padded with
// zeroes to exactly ChunkSize bytes. The padding is part of the
// content identity: two appends of the same bytes produce identical
// hashes for every resulting chunk.
//
// An empty data slice produces zero chunks, preserving the file
// invariant ceil(length/ChunkSize) == len(chunks): appending nothing
// is a no-op that allocates no chunk ids.
func Split(data []byte) []gfs.ProtoChunk {
	n := len(data)
	numChunks := (n + gfs.ChunkSize - 1) / gfs.ChunkSize

	chunks := make([]gfs.ProtoChunk, numChunks)
	for i := 0; i < numChunks; i++ {
		start := i * gfs.ChunkSize
		end := start + gfs.ChunkSize
		if end > n {
			end = n
		}

		var pc gfs.ProtoChunk
		pc.OriginalLen = uint64(n)
		if start < end {
			copy(pc.Body[:], data[start:end])
		}
		pc.Hash = sha256.Sum256(pc.Body[:])
		chunks[i] = pc
	}
	return chunks
}
