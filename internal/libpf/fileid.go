// Package libpf holds small, dependency-free value types shared across the
// ingestion, symbol-store and flame-graph packages.
package libpf

import (
	"encoding/hex"
	"fmt"

	"github.com/minio/sha256-simd"
)

// FileId is a 128-bit executable identity derived from file content, stable
// across paths and re-copies of the same binary. As a byte array it sorts
// lexicographically, which is what the store relies on when it is copied
// verbatim into the high-order bytes of a range key.
type FileId [16]byte

// FileIdFromBytes derives a FileId from the full content of an executable.
func FileIdFromBytes(content []byte) FileId {
	sum := sha256.Sum256(content)
	var id FileId
	copy(id[:], sum[:16])
	return id
}

// String renders the FileId as a lowercase hex string.
func (f FileId) String() string {
	return hex.EncodeToString(f[:])
}

// ParseFileId parses the hex string produced by FileId.String.
func ParseFileId(s string) (FileId, error) {
	var id FileId
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(id) {
		return id, fmt.Errorf("invalid file id %q", s)
	}
	copy(id[:], b)
	return id, nil
}
