// Package store implements the persistent symbol store described in
// spec.md §4.A: three independently-keyed LSM partitions (ranges, strings,
// files) backed by cockroachdb/pebble, with an in-memory basename index for
// O(1) basename-to-FileId lookups during ingestion.
package store

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/rogercoll/eprofiler-tui/internal/libpf"
	"github.com/rogercoll/eprofiler-tui/internal/symbols"
)

// ResolvedFrame is one resolved symbol frame returned by Lookup.
type ResolvedFrame struct {
	Func  string
	Depth uint16
}

// Store is the persistent, process-lifetime symbol store. Each logical
// partition from spec.md §4.A is its own pebble.DB so that "flushed on drop"
// (spec.md §5) is exactly pebble's own Close semantics per partition.
type Store struct {
	log *logrus.Logger

	ranges  *pebble.DB
	strings *pebble.DB
	files   *pebble.DB

	// mu serializes store_file_symbols/remove_file_symbols against each
	// other and against basename-index mutation, so lookups and
	// file_id_for_basename never observe a partial write (spec.md §4.A,
	// §5: "on engine failure the batch must not be partially visible").
	mu sync.Mutex

	// idxMu guards basename, the in-memory basename -> FileId index
	// rebuilt at Open and kept current by store/remove.
	idxMu    sync.RWMutex
	basename map[string]libpf.FileId
}

// Open opens or creates the three partitions under dir and rebuilds the
// basename index by scanning the files partition.
func Open(dir string, log *logrus.Logger) (*Store, error) {
	s := &Store{log: log, basename: make(map[string]libpf.FileId)}

	var g errgroup.Group
	g.Go(func() (err error) { s.ranges, err = openPartition(dir, "ranges"); return })
	g.Go(func() (err error) { s.strings, err = openPartition(dir, "strings"); return })
	g.Go(func() (err error) { s.files, err = openPartition(dir, "files"); return })
	if err := g.Wait(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("open symbol store: %w", err)
	}

	if err := s.rebuildBasenameIndex(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("rebuild basename index: %w", err)
	}
	return s, nil
}

func openPartition(dir, name string) (*pebble.DB, error) {
	return pebble.Open(filepath.Join(dir, name), &pebble.Options{})
}

// Close flushes and closes all three partitions, aggregating any errors.
func (s *Store) Close() error {
	var err error
	if s.ranges != nil {
		err = multierr.Append(err, s.ranges.Close())
	}
	if s.strings != nil {
		err = multierr.Append(err, s.strings.Close())
	}
	if s.files != nil {
		err = multierr.Append(err, s.files.Close())
	}
	return err
}

func (s *Store) rebuildBasenameIndex() error {
	iter, err := s.files.NewIter(nil)
	if err != nil {
		return err
	}
	defer iter.Close()

	idx := make(map[string]libpf.FileId)
	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()
		if len(key) != 16 {
			continue
		}
		var fid libpf.FileId
		copy(fid[:], key)
		if _, baseName, ok := decodeFilesValue(iter.Value()); ok {
			idx[baseName] = fid
		}
	}
	if err := iter.Error(); err != nil {
		return err
	}

	s.idxMu.Lock()
	s.basename = idx
	s.idxMu.Unlock()
	return nil
}

// StoreFileSymbols atomically persists every interned string, every range
// and the files-partition row for fs, then updates the basename index.
func (s *Store) StoreFileSymbols(fs *symbols.FileSym, path string) error {
	baseName := filepath.Base(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	stringsBatch := s.strings.NewBatch()
	for idx, str := range fs.Strings {
		key := encodeStringKey(fs.FileId, uint32(idx))
		if err := stringsBatch.Set(key, []byte(str), nil); err != nil {
			return fmt.Errorf("stage string %d: %w", idx, err)
		}
	}

	rangesBatch := s.ranges.NewBatch()
	for _, r := range fs.Ranges {
		key := encodeRangeKey(fs.FileId, r.VAStart, r.Depth)
		val := encodeRangeValue(rangeValue{
			length:      r.Length,
			funcRef:     uint32(r.Func),
			fileRef:     refOrNone(r.File),
			callFileRef: refOrNone(r.CallFile),
			callLine:    lineOrZero(r.CallLine),
		})
		if err := rangesBatch.Set(key, val, nil); err != nil {
			return fmt.Errorf("stage range %d: %w", r.VAStart, err)
		}
	}

	filesBatch := s.files.NewBatch()
	if err := filesBatch.Set(fs.FileId[:], encodeFilesValue(uint32(len(fs.Ranges)), baseName), nil); err != nil {
		return fmt.Errorf("stage files row: %w", err)
	}

	// Commit strings and ranges before the files row: a reader that finds
	// the files row is guaranteed the data it references already exists.
	if err := stringsBatch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit strings: %w", err)
	}
	if err := rangesBatch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit ranges: %w", err)
	}
	if err := filesBatch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit files row: %w", err)
	}

	s.idxMu.Lock()
	s.basename[baseName] = fs.FileId
	s.idxMu.Unlock()
	return nil
}

func refOrNone(r *symbols.StringRef) uint32 {
	if r == nil {
		return noneRef
	}
	return uint32(*r)
}

func lineOrZero(l *uint32) uint32 {
	if l == nil {
		return 0
	}
	return *l
}

// Lookup resolves addr against the ranges stored for file_id, returning
// frames ordered by depth ascending (outermost first). It scans the ranges
// partition in reverse from (file_id, addr, MAX_DEPTH) down to
// (file_id, 0, 0), stopping as soon as a depth-0 row has been visited.
func (s *Store) Lookup(fid libpf.FileId, addr uint64) ([]ResolvedFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lower := encodeRangeKey(fid, 0, 0)
	upper := encodeRangeKey(fid, addr, 0xFFFF)

	iter, err := s.ranges.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upperInclusive(upper)})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	type frame struct {
		funcRef uint32
		depth   uint16
	}
	var frames []frame

	for ok := iter.Last(); ok; ok = iter.Prev() {
		_, vaStart, depth, keyOK := decodeRangeKey(iter.Key())
		if !keyOK {
			continue
		}
		val, valOK := decodeRangeValue(iter.Value())
		if !valOK {
			continue
		}

		end := vaStart + uint64(val.length)
		if addr >= vaStart && addr < end {
			frames = append(frames, frame{funcRef: val.funcRef, depth: depth})
			if depth == 0 {
				break
			}
		} else if depth == 0 {
			break
		}
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}

	sort.Slice(frames, func(i, j int) bool { return frames[i].depth < frames[j].depth })

	out := make([]ResolvedFrame, len(frames))
	for i, f := range frames {
		name, err := s.resolveString(fid, f.funcRef)
		if err != nil {
			return nil, err
		}
		out[i] = ResolvedFrame{Func: name, Depth: f.depth}
	}
	return out, nil
}

func (s *Store) resolveString(fid libpf.FileId, ref uint32) (string, error) {
	if ref == noneRef {
		return "[unknown]", nil
	}
	key := encodeStringKey(fid, ref)
	v, closer, err := s.strings.Get(key)
	if err == pebble.ErrNotFound {
		return "[unknown]", nil
	}
	if err != nil {
		return "", err
	}
	defer closer.Close()
	return string(v), nil
}

// FileIdForBasename is an O(1) lookup into the in-memory basename index.
func (s *Store) FileIdForBasename(baseName string) (libpf.FileId, bool) {
	s.idxMu.RLock()
	defer s.idxMu.RUnlock()
	fid, ok := s.basename[baseName]
	return fid, ok
}

// ListFiles scans the files partition into ExecutableInfo entries.
func (s *Store) ListFiles() ([]symbols.ExecutableInfo, error) {
	iter, err := s.files.NewIter(nil)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []symbols.ExecutableInfo
	for iter.First(); iter.Valid(); iter.Next() {
		if len(iter.Key()) != 16 {
			continue
		}
		var fid libpf.FileId
		copy(fid[:], iter.Key())
		numRanges, baseName, ok := decodeFilesValue(iter.Value())
		if !ok {
			continue
		}
		out = append(out, symbols.ExecutableInfo{FileId: fid, FileName: baseName, NumRanges: numRanges})
	}
	return out, iter.Error()
}

// RemoveFileSymbols atomically deletes every ranges/strings key prefixed by
// file_id, the files row, and evicts any basename-index entry for it.
func (s *Store) RemoveFileSymbols(fid libpf.FileId) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := filePrefix(fid)
	upper := prefixUpperBound(prefix)

	rangesBatch := s.ranges.NewBatch()
	if err := rangesBatch.DeleteRange(prefix, upper, nil); err != nil {
		return fmt.Errorf("stage ranges delete: %w", err)
	}
	stringsBatch := s.strings.NewBatch()
	if err := stringsBatch.DeleteRange(prefix, upper, nil); err != nil {
		return fmt.Errorf("stage strings delete: %w", err)
	}
	filesBatch := s.files.NewBatch()
	if err := filesBatch.Delete(fid[:], nil); err != nil {
		return fmt.Errorf("stage files delete: %w", err)
	}

	if err := rangesBatch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit ranges delete: %w", err)
	}
	if err := stringsBatch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit strings delete: %w", err)
	}
	if err := filesBatch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit files delete: %w", err)
	}

	s.idxMu.Lock()
	for name, id := range s.basename {
		if id == fid {
			delete(s.basename, name)
		}
	}
	s.idxMu.Unlock()
	return nil
}

// upperInclusive turns an inclusive upper key into pebble's exclusive
// UpperBound by appending a zero byte, since pebble iterator bounds are
// [lower, upper).
func upperInclusive(key []byte) []byte {
	b := make([]byte, len(key)+1)
	copy(b, key)
	return b
}
