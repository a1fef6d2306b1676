package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/lectern/core"
)

// Key prefixes for different data types
const (
	contentPrefix       = "content:"
	contentOwnerPrefix  = "contentown:"
	contentStatusPrefix = "contentst:"
	jobPrefix           = "job:"
	jobVisibilityPrefix = "jobvis:"
	checkpointPrefix    = "chkpt:"
)

// keySep terminates variable-length components of composite keys.
const keySep = 0x00

// makeContentKey generates a key for a content record by ID.
func makeContentKey(id string) []byte {
	return []byte(contentPrefix + id)
}

// makeContentOwnerKey generates a composite key for the owner index.
// Format: prefix owner \x00 createdAt id
func makeContentOwnerKey(ownerID string, createdAt time.Time, id string) []byte {
	prefix := makeContentOwnerPrefix(ownerID)
	buf := make([]byte, len(prefix)+8+len(id))
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	offset += 8
	copy(buf[offset:], id)
	return buf
}

// makeContentOwnerPrefix generates the partial key shared by all of an owner's index entries.
func makeContentOwnerPrefix(ownerID string) []byte {
	buf := make([]byte, 0, len(contentOwnerPrefix)+len(ownerID)+1)
	buf = append(buf, contentOwnerPrefix...)
	buf = append(buf, ownerID...)
	return append(buf, keySep)
}

// makeContentStatusKey generates a composite key for the status index.
// Format: prefix status \x00 id
func makeContentStatusKey(status core.Status, id string) []byte {
	return append(makeContentStatusPrefix(status), id...)
}

// makeContentStatusPrefix generates the partial key shared by all records in a status.
func makeContentStatusPrefix(status core.Status) []byte {
	buf := make([]byte, 0, len(contentStatusPrefix)+len(status)+1)
	buf = append(buf, contentStatusPrefix...)
	buf = append(buf, status...)
	return append(buf, keySep)
}

// makeJobKey generates a key for a job by ID.
func makeJobKey(id core.ID) []byte {
	buf := make([]byte, len(jobPrefix)+8)
	offset := copy(buf, jobPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeJobVisibilityKey generates a composite key for the visibility index.
// Format: prefix visibleAt id
func makeJobVisibilityKey(visibleAt time.Time, id core.ID) []byte {
	buf := make([]byte, len(jobVisibilityPrefix)+16)
	offset := copy(buf, jobVisibilityPrefix)
	// Write in BigEndian order so the earliest visible job sorts first
	binary.BigEndian.PutUint64(buf[offset:], uint64(visibleAt.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// parseJobVisibilityKey splits a visibility index key into its components.
func parseJobVisibilityKey(key []byte) (time.Time, core.ID, error) {
	if len(key) != len(jobVisibilityPrefix)+16 {
		return time.Time{}, 0, fmt.Errorf("malformed visibility key %x", key)
	}
	offset := len(jobVisibilityPrefix)
	micros := int64(binary.BigEndian.Uint64(key[offset:]))
	id := core.ID(binary.BigEndian.Uint64(key[offset+8:]))
	return time.UnixMicro(micros).UTC(), id, nil
}

// makeCheckpointKey generates a key for sweep checkpoints.
func makeCheckpointKey(name string) []byte {
	return []byte(checkpointPrefix + name)
}
