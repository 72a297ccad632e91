package container

import (
	"crypto/rand"
	"encoding/binary"
)

// Each lane's data (the CBOR-encoded entry list) is chunked across as
// many physical blocks as it takes to hold it, rather than one block
// per entry: that keeps the design correct regardless of the group's
// bit size (spec.md allows gp_bits as low as 128 for tests, where a
// single block's plaintext capacity can be a few bytes), and it means
// growing a container never requires re-keying existing entries —
// only appending more blocks to the chain.
const (
	laneList byte = iota
	laneSecret
	laneAppend
)

const lengthPrefixSize = 4

func chunksNeeded(blobLen, capacity int) int {
	avail := capacity - lengthPrefixSize
	if avail <= 0 {
		avail = 1
	}
	n := 1
	if blobLen > avail {
		remaining := blobLen - avail
		n += (remaining + capacity - 1) / capacity
	}
	return n
}

// chunkBlob splits blob into exactly numChunks capacity-sized pieces:
// the first carries a big-endian uint32 total length followed by as
// much of blob as fits, later chunks carry blob continuation, and any
// leftover room in the final chunk is filled with random padding.
func chunkBlob(blob []byte, capacity, numChunks int) [][]byte {
	chunks := make([][]byte, numChunks)
	pos := 0
	for i := 0; i < numChunks; i++ {
		buf := make([]byte, capacity)
		off := 0
		if i == 0 {
			binary.BigEndian.PutUint32(buf[0:4], uint32(len(blob)))
			off = 4
		}
		n := copy(buf[off:], blob[pos:])
		pos += n
		if off+n < capacity {
			rand.Read(buf[off+n:])
		}
		chunks[i] = buf
	}
	return chunks
}

// assembleBlob reverses chunkBlob given the decrypted plaintext of
// every block in chain order.
func assembleBlob(plaintexts [][]byte) []byte {
	if len(plaintexts) == 0 || len(plaintexts[0]) < 4 {
		return nil
	}
	total := binary.BigEndian.Uint32(plaintexts[0][0:4])
	out := make([]byte, 0, total)
	out = append(out, plaintexts[0][4:]...)
	for _, p := range plaintexts[1:] {
		out = append(out, p...)
	}
	if uint32(len(out)) > total {
		out = out[:total]
	}
	return out
}
