package badger

import (
	"encoding/binary"
	"time"

	"github.com/poiesic/equiptrack/core"
)

// Key prefixes for different data types. Every record prefix ends in ':' so
// that sequence keys sharing the stem are never matched by prefix scans.
const (
	problemPrefix       = "prob:"
	problemIDSeq        = "probseq"
	equipmentTypePrefix = "eqt:"
	importRunPrefix     = "run:"
	importRunDatePrefix = "rund:"
	importRunIDSeq      = "runseq"
	vectorPrefix        = "vec:"
)

// makeIDKey generates prefix + big-endian id so keys sort by ID.
func makeIDKey(prefix string, id core.ID) []byte {
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

func makeProblemKey(id core.ID) []byte {
	return makeIDKey(problemPrefix, id)
}

func makeEquipmentTypeKey(id core.ID) []byte {
	return makeIDKey(equipmentTypePrefix, id)
}

func makeImportRunKey(id core.ID) []byte {
	return makeIDKey(importRunPrefix, id)
}

func makeVectorKey(id core.ID) []byte {
	return makeIDKey(vectorPrefix, id)
}

// makeImportRunDateKey generates a composite key for the run start-time index.
// Format: prefix:timestamp:id
func makeImportRunDateKey(startedAt time.Time, id core.ID) []byte {
	buf := make([]byte, len(importRunDatePrefix)+16) // 8 bytes for timestamp + 8 bytes for ID
	offset := copy(buf, importRunDatePrefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(startedAt.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}
