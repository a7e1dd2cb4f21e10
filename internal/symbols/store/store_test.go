package store

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/rogercoll/eprofiler-tui/internal/libpf"
	"github.com/rogercoll/eprofiler-tui/internal/symbols"
)

func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.PanicLevel)
	return log
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(t.TempDir(), discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// TestLookupResolvesNativeHit implements spec.md §8 scenario 3: a single
// depth-0 range covering the looked-up address resolves to its function.
func TestLookupResolvesNativeHit(t *testing.T) {
	st := openTestStore(t)

	fid := libpf.FileIdFromBytes([]byte("app-binary"))
	fs := &symbols.FileSym{
		FileId:  fid,
		Strings: []string{"foo"},
		Ranges: []symbols.SymRange{
			{VAStart: 0x1000, Length: 0x100, Func: 0, Depth: 0},
		},
	}
	fs.Sort()

	if err := st.StoreFileSymbols(fs, "/usr/bin/app"); err != nil {
		t.Fatal(err)
	}

	frames, err := st.Lookup(fid, 0x1040)
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 1 {
		t.Fatalf("frames = %+v, want 1 frame", frames)
	}
	if frames[0].Func != "foo" || frames[0].Depth != 0 {
		t.Fatalf("frames[0] = %+v, want foo at depth 0", frames[0])
	}
}

// TestLookupReturnsInlineChainOrderedByDepth implements spec.md §8 scenario
// 4: an address covered by a depth-0 range and a depth-1 inline range at the
// same interval resolves both, ordered by ascending depth.
func TestLookupReturnsInlineChainOrderedByDepth(t *testing.T) {
	st := openTestStore(t)

	fid := libpf.FileIdFromBytes([]byte("inline-binary"))
	fs := &symbols.FileSym{
		FileId:  fid,
		Strings: []string{"bar", "baz"},
		Ranges: []symbols.SymRange{
			{VAStart: 0x2000, Length: 0x100, Func: 0, Depth: 0},
			{VAStart: 0x2000, Length: 0x100, Func: 1, Depth: 1},
		},
	}
	fs.Sort()

	if err := st.StoreFileSymbols(fs, "/usr/bin/inliner"); err != nil {
		t.Fatal(err)
	}

	frames, err := st.Lookup(fid, 0x2080)
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 2 {
		t.Fatalf("frames = %+v, want 2 frames", frames)
	}
	if frames[0].Func != "bar" || frames[0].Depth != 0 {
		t.Fatalf("frames[0] = %+v, want bar at depth 0", frames[0])
	}
	if frames[1].Func != "baz" || frames[1].Depth != 1 {
		t.Fatalf("frames[1] = %+v, want baz at depth 1", frames[1])
	}
}

// TestRemoveFileSymbolsRoundTrip implements spec.md §8 scenario 5: after
// removal, lookups return nothing, the files row and basename index entry
// are both gone.
func TestRemoveFileSymbolsRoundTrip(t *testing.T) {
	st := openTestStore(t)

	fid := libpf.FileIdFromBytes([]byte("removable-binary"))
	fs := &symbols.FileSym{
		FileId:  fid,
		Strings: []string{"foo"},
		Ranges: []symbols.SymRange{
			{VAStart: 0x1000, Length: 0x100, Func: 0, Depth: 0},
		},
	}
	fs.Sort()

	if err := st.StoreFileSymbols(fs, "/usr/bin/removable"); err != nil {
		t.Fatal(err)
	}

	files, err := st.ListFiles()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, f := range files {
		if f.FileId == fid {
			found = true
		}
	}
	if !found {
		t.Fatalf("ListFiles = %+v, want an entry for %s", files, fid)
	}

	if _, ok := st.FileIdForBasename("removable"); !ok {
		t.Fatal("FileIdForBasename(removable) = false before removal, want true")
	}

	if err := st.RemoveFileSymbols(fid); err != nil {
		t.Fatal(err)
	}

	frames, err := st.Lookup(fid, 0x1040)
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 0 {
		t.Fatalf("Lookup after remove = %+v, want empty", frames)
	}

	if _, ok := st.FileIdForBasename("removable"); ok {
		t.Fatal("FileIdForBasename(removable) still true after removal")
	}

	filesAfter, err := st.ListFiles()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range filesAfter {
		if f.FileId == fid {
			t.Fatalf("ListFiles after remove still contains %s", fid)
		}
	}
}

// TestLookupMissReturnsEmpty covers the "no covering range" case: a query
// address below every stored range lies outside the reverse scan's key
// bounds, so no row is visited and Lookup reports no frames, not an error.
func TestLookupMissReturnsEmpty(t *testing.T) {
	st := openTestStore(t)

	fid := libpf.FileIdFromBytes([]byte("miss-binary"))
	fs := &symbols.FileSym{
		FileId:  fid,
		Strings: []string{"foo"},
		Ranges: []symbols.SymRange{
			{VAStart: 0x1000, Length: 0x100, Func: 0, Depth: 0},
		},
	}
	fs.Sort()

	if err := st.StoreFileSymbols(fs, "/usr/bin/miss"); err != nil {
		t.Fatal(err)
	}

	frames, err := st.Lookup(fid, 0x500)
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 0 {
		t.Fatalf("frames = %+v, want empty for an address below every range", frames)
	}
}
