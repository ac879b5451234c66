package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/poliscope/core"
)

// Key prefixes for different data types
const (
	taskRecordPrefix   = "taskrec"
	chunkRecordPrefix  = "chkrec"
	policyRecordPrefix = "polrec"
)

// makeTaskKey generates a key for a task record by ID.
func makeTaskKey(id core.TaskID) []byte {
	return []byte(fmt.Sprintf("%s:%s", taskRecordPrefix, id))
}

// makeChunkKey generates a composite key for a chunk.
// Format: prefix:policyNumber:sourceFilename:ordinal
// The ordinal is written in BigEndian order so per-file chunks iterate in
// document order, and policy numbers never contain ':' (validated at the
// boundary), so per-policy prefix scans cannot collide.
func makeChunkKey(policyNumber, sourceFilename string, ordinal int) []byte {
	prefix := fmt.Sprintf("%s:%s:%s:", chunkRecordPrefix, policyNumber, sourceFilename)
	buf := make([]byte, len(prefix)+4)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint32(buf[offset:], uint32(ordinal))
	return buf
}

// makeChunkPrefix generates the iteration prefix for all chunks of a policy.
func makeChunkPrefix(policyNumber string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", chunkRecordPrefix, policyNumber))
}

// makePolicyKey generates a key for a policy summary by policy number.
func makePolicyKey(policyNumber string) []byte {
	return []byte(fmt.Sprintf("%s:%s", policyRecordPrefix, policyNumber))
}

// policyNumberFromKey recovers the policy number from a policy summary key.
func policyNumberFromKey(key []byte) string {
	prefix := policyRecordPrefix + ":"
	if len(key) <= len(prefix) {
		return ""
	}
	return string(key[len(prefix):])
}
