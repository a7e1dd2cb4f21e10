// Package loader dispatches LoadSymbols/RemoveSymbols actions (spec.md
// §4.F/§5) onto one ad-hoc goroutine each. LoadSymbols is guarded by a
// singleflight cache so a second load for a path already in flight is a
// no-op; RemoveSymbols is not deduplicated. This mirrors
// symuploader.ParcaSymbolUploader's Upload/attemptUpload singleflight gating,
// repurposed for local extraction into the store instead of a remote signed-
// URL upload.
package loader

import (
	"hash/fnv"
	"path/filepath"

	lru "github.com/elastic/go-freelru"
	"github.com/sirupsen/logrus"

	"github.com/rogercoll/eprofiler-tui/internal/eventbus"
	"github.com/rogercoll/eprofiler-tui/internal/libpf"
	"github.com/rogercoll/eprofiler-tui/internal/symbols/extractor"
	"github.com/rogercoll/eprofiler-tui/internal/symbols/store"
)

// hashPath adapts a path string for use as a freelru key. The teacher hashes
// its own string-keyed LRUs with zeebo/xxh3 (reporter/otlp_reporter.go), but
// that dependency has no other home in this spec (see DESIGN.md), so this
// singleflight cache uses the stdlib's FNV-1a instead.
func hashPath(path string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(path))
	return h.Sum32()
}

// Loader owns the singleflight cache and the store/extractor it drives.
type Loader struct {
	store *store.Store
	bus   *eventbus.Bus
	log   *logrus.Logger

	inflight *lru.SyncedLRU[string, bool]
}

// New returns a Loader with a singleflight cache sized for cacheSize
// concurrently-tracked paths.
func New(st *store.Store, bus *eventbus.Bus, log *logrus.Logger, cacheSize uint32) (*Loader, error) {
	inflight, err := lru.NewSynced[string, bool](cacheSize, hashPath)
	if err != nil {
		return nil, err
	}
	return &Loader{store: st, bus: bus, log: log, inflight: inflight}, nil
}

// LoadSymbols extracts and persists symbols for the executable at path,
// reporting the outcome as an eventbus.SymbolsLoaded. target, when non-nil,
// names the already-known executable this load is for (spec.md §4.F's "load
// for an already-discovered mapping"); otherwise the basename of path is
// used. A path already in flight is skipped silently.
func (l *Loader) LoadSymbols(path string, target *string) {
	if inflight, ok := l.inflight.Get(path); ok && inflight {
		return
	}
	l.inflight.Add(path, true)

	targetName := filepath.Base(path)
	if target != nil {
		targetName = *target
	}

	go func() {
		defer l.inflight.Add(path, false)

		fs, err := extractor.Extract(path)
		if err != nil {
			l.log.WithError(err).WithField("path", path).Warn("extract symbols")
			l.bus.Send(eventbus.SymbolsLoaded{TargetName: targetName, Err: err})
			return
		}
		fs.Sort()

		if err := l.store.StoreFileSymbols(fs, path); err != nil {
			l.log.WithError(err).WithField("path", path).Warn("store symbols")
			l.bus.Send(eventbus.SymbolsLoaded{TargetName: targetName, Err: err})
			return
		}

		l.bus.Send(eventbus.SymbolsLoaded{
			TargetName: targetName,
			NumRanges:  uint32(len(fs.Ranges)),
			FileID:     fs.FileId.String(),
		})
	}()
}

// RemoveSymbols deletes every stored symbol for fileID, reporting the
// outcome as an eventbus.SymbolsRemoved.
func (l *Loader) RemoveSymbols(name string, fileID libpf.FileId) {
	go func() {
		if err := l.store.RemoveFileSymbols(fileID); err != nil {
			l.log.WithError(err).WithField("name", name).Warn("remove symbols")
			l.bus.Send(eventbus.SymbolsRemoved{Name: name, Err: err})
			return
		}
		l.bus.Send(eventbus.SymbolsRemoved{Name: name})
	}()
}
