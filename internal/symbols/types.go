// Package symbols holds the data model shared between the extractor and the
// persistent store: symbol ranges, per-file symbol sets and metadata.
package symbols

import (
	"sort"

	"github.com/rogercoll/eprofiler-tui/internal/libpf"
)

// StringRef indexes into a FileSym's interned string table.
type StringRef uint32

// SymRange is one symbolizer output range: for a covered address interval,
// depth 0 is the outermost real frame and depth > 0 are frames inlined into
// it at that same interval.
type SymRange struct {
	VAStart  uint64
	Length   uint32
	Func     StringRef
	File     *StringRef
	CallFile *StringRef
	CallLine *uint32
	Depth    uint16
}

// Covers reports whether addr falls in [VAStart, VAStart+Length).
func (r SymRange) Covers(addr uint64) bool {
	end := r.VAStart + uint64(r.Length)
	return addr >= r.VAStart && addr < end
}

// FileSym is the full symbolizer output for one executable: its ranges, kept
// sorted by (va_start, depth) ascending, and the interned strings they
// reference.
type FileSym struct {
	FileId  libpf.FileId
	Ranges  []SymRange
	Strings []string
}

// Sort orders Ranges by (VAStart asc, Depth asc), the same order in which
// the store's range keys sort and Store.Lookup scans them in reverse.
func (fs *FileSym) Sort() {
	sort.Slice(fs.Ranges, func(i, j int) bool {
		if fs.Ranges[i].VAStart != fs.Ranges[j].VAStart {
			return fs.Ranges[i].VAStart < fs.Ranges[j].VAStart
		}
		return fs.Ranges[i].Depth < fs.Ranges[j].Depth
	})
}

// StringInterner builds an insertion-ordered unique-string table, returning a
// stable index for each distinct string. Used by the extractor to populate
// FileSym.Strings while it emits ranges.
type StringInterner struct {
	index   map[string]StringRef
	strings []string
}

// NewStringInterner returns an empty interner.
func NewStringInterner() *StringInterner {
	return &StringInterner{index: make(map[string]StringRef)}
}

// Intern returns the stable index for s, inserting it if not already present.
func (si *StringInterner) Intern(s string) StringRef {
	if ref, ok := si.index[s]; ok {
		return ref
	}
	ref := StringRef(len(si.strings))
	si.index[s] = ref
	si.strings = append(si.strings, s)
	return ref
}

// Strings returns the interned strings in insertion order.
func (si *StringInterner) Strings() []string {
	return si.strings
}

// ExecutableInfo is UI/store-facing metadata for one known binary.
type ExecutableInfo struct {
	FileId    libpf.FileId
	FileName  string
	NumRanges uint32
}
