package store

import (
	"encoding/binary"

	"github.com/rogercoll/eprofiler-tui/internal/libpf"
)

// noneRef is the sentinel for an absent 32-bit string reference.
const noneRef uint32 = 0xFFFFFFFF

// rangeKeySize is the encoded size of a RangeKey: file_id(16) + va_start(8) + depth(2).
const rangeKeySize = 16 + 8 + 2

// rangeValueSize is the encoded size of a RangeValue: 5 big-endian uint32 fields.
const rangeValueSize = 4 * 5

// stringKeySize is the encoded size of a StringKey: file_id(16) + idx(4).
const stringKeySize = 16 + 4

// encodeRangeKey writes the big-endian fixed-width range key so that
// byte-lexicographic order matches (file_id, va_start, depth) order.
func encodeRangeKey(fid libpf.FileId, vaStart uint64, depth uint16) []byte {
	b := make([]byte, rangeKeySize)
	copy(b[0:16], fid[:])
	binary.BigEndian.PutUint64(b[16:24], vaStart)
	binary.BigEndian.PutUint16(b[24:26], depth)
	return b
}

func decodeRangeKey(b []byte) (fid libpf.FileId, vaStart uint64, depth uint16, ok bool) {
	if len(b) != rangeKeySize {
		return fid, 0, 0, false
	}
	copy(fid[:], b[0:16])
	vaStart = binary.BigEndian.Uint64(b[16:24])
	depth = binary.BigEndian.Uint16(b[24:26])
	return fid, vaStart, depth, true
}

type rangeValue struct {
	length      uint32
	funcRef     uint32
	fileRef     uint32
	callFileRef uint32
	callLine    uint32
}

func encodeRangeValue(v rangeValue) []byte {
	b := make([]byte, rangeValueSize)
	binary.BigEndian.PutUint32(b[0:4], v.length)
	binary.BigEndian.PutUint32(b[4:8], v.funcRef)
	binary.BigEndian.PutUint32(b[8:12], v.fileRef)
	binary.BigEndian.PutUint32(b[12:16], v.callFileRef)
	binary.BigEndian.PutUint32(b[16:20], v.callLine)
	return b
}

func decodeRangeValue(b []byte) (rangeValue, bool) {
	if len(b) != rangeValueSize {
		return rangeValue{}, false
	}
	return rangeValue{
		length:      binary.BigEndian.Uint32(b[0:4]),
		funcRef:     binary.BigEndian.Uint32(b[4:8]),
		fileRef:     binary.BigEndian.Uint32(b[8:12]),
		callFileRef: binary.BigEndian.Uint32(b[12:16]),
		callLine:    binary.BigEndian.Uint32(b[16:20]),
	}, true
}

func encodeStringKey(fid libpf.FileId, idx uint32) []byte {
	b := make([]byte, stringKeySize)
	copy(b[0:16], fid[:])
	binary.BigEndian.PutUint32(b[16:20], idx)
	return b
}

// encodeFilesValue packs num_ranges followed by the raw basename bytes.
func encodeFilesValue(numRanges uint32, baseName string) []byte {
	b := make([]byte, 4+len(baseName))
	binary.BigEndian.PutUint32(b[0:4], numRanges)
	copy(b[4:], baseName)
	return b
}

func decodeFilesValue(b []byte) (numRanges uint32, baseName string, ok bool) {
	if len(b) < 4 {
		return 0, "", false
	}
	return binary.BigEndian.Uint32(b[0:4]), string(b[4:]), true
}

// filePrefix returns the 16-byte file_id prefix shared by every range/string
// key belonging to one executable, used to bound prefix scans and deletes.
func filePrefix(fid libpf.FileId) []byte {
	b := make([]byte, 16)
	copy(b, fid[:])
	return b
}

// prefixUpperBound returns the exclusive upper bound for a prefix scan over
// keys beginning with prefix (prefix is never all-0xFF here, since it is a
// 16-byte FileId and file ids are effectively random content hashes, but we
// guard the carry regardless).
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] != 0xFF {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil // prefix is all 0xFF, no finite upper bound needed
}
