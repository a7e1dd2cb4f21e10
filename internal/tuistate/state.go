// Package tuistate owns the application's tab state machines and turns key
// events and bus events into state transitions, per spec.md §4.F. It is a
// line-by-line port of original_source/src/tui/state/{mod,flamegraph,
// flamescope,executables}.rs — the newer revision with per-thread
// timestamps, the basename index and ExecutablesTab modularization that
// spec.md §9 names as authoritative — translated from Rust's
// exhaustive-match key dispatch into Go methods on a small Key value type,
// with bubbletea's key names used as the Name strings so a bubbletea
// tea.KeyMsg maps onto it directly (see internal/tuiapp).
package tuistate

import (
	"github.com/rogercoll/eprofiler-tui/internal/eventbus"
	"github.com/rogercoll/eprofiler-tui/internal/libpf"
	"github.com/rogercoll/eprofiler-tui/internal/symbols"
)

// ActiveTab selects which tab owns key dispatch.
type ActiveTab int

const (
	TabFlamegraph ActiveTab = iota
	TabFlamescope
	TabExecutables
)

// Action is the sealed set of side-effecting requests a tab's key handler
// can hand back to the main loop.
type Action interface {
	isAction()
}

// NoAction means the key produced no side effect outside the State.
type NoAction struct{}

// LoadSymbolsAction asks the main loop to extract symbols from Path and
// merge them in under Target (or the basename of Path if Target is nil).
type LoadSymbolsAction struct {
	Path   string
	Target *string
}

// RemoveSymbolsAction asks the main loop to remove FileId's symbols.
type RemoveSymbolsAction struct {
	Name   string
	FileID libpf.FileId
}

func (NoAction) isAction()            {}
func (LoadSymbolsAction) isAction()   {}
func (RemoveSymbolsAction) isAction() {}

// State owns every tab and the fields global dispatch reads.
type State struct {
	Running    bool
	ListenAddr string
	ActiveTab  ActiveTab

	FG  *FlamegraphTab
	FS  *FlamescopeTab
	Exe *ExecutablesTab
}

// New returns a running State seeded with the symbol store's known
// executables.
func New(listenAddr string, initial []symbols.ExecutableInfo) *State {
	return &State{
		Running:    true,
		ListenAddr: listenAddr,
		ActiveTab:  TabFlamegraph,
		FG:         newFlamegraphTab(),
		FS:         newFlamescopeTab(),
		Exe:        newExecutablesTab(initial),
	}
}

// overlayActive reports whether any tab has a modal input/search open,
// which suppresses the global Tab/q key bindings.
func (s *State) overlayActive() bool {
	return s.FG.search.active || s.FS.search.active || s.Exe.pathInput.active
}

// HandleKey dispatches one key event per spec.md §4.F's global/per-tab
// rules, returning any action the active tab's handler produced.
func (s *State) HandleKey(key eventbus.Key) Action {
	if key.Name == "ctrl+c" {
		s.Running = false
		return NoAction{}
	}

	overlay := s.overlayActive()

	if key.Name == "tab" && !overlay {
		switch s.ActiveTab {
		case TabFlamegraph:
			s.ActiveTab = TabFlamescope
		case TabFlamescope:
			s.ActiveTab = TabExecutables
		case TabExecutables:
			s.ActiveTab = TabFlamegraph
		}
		return NoAction{}
	}

	if !overlay && (key.Rune == 'q' || key.Rune == 'Q') {
		s.Running = false
		return NoAction{}
	}

	switch s.ActiveTab {
	case TabFlamegraph:
		s.FG.handleKey(key)
		return NoAction{}
	case TabFlamescope:
		s.FS.handleKey(key)
		return NoAction{}
	case TabExecutables:
		return s.Exe.handleKey(key)
	}
	return NoAction{}
}

// Apply folds one bus event into state, per spec.md §4.F's event list.
func (s *State) Apply(ev eventbus.Event) {
	switch e := ev.(type) {
	case eventbus.Tick:
		// render-cadence placeholder; no state change.
	case eventbus.ProfileUpdate:
		s.FG.merge(e.Flamegraph, e.Samples)
		s.FS.scope.RecordTimestamps(e.Timestamps)
	case eventbus.MappingsDiscovered:
		s.Exe.mergeDiscoveredMappings(e.Basenames)
	case eventbus.SymbolsLoaded:
		if e.Err != nil {
			s.Exe.status = e.Err.Error()
			return
		}
		fid, err := libpf.ParseFileId(e.FileID)
		if err != nil {
			s.Exe.status = err.Error()
			return
		}
		s.Exe.updateSymbolized(e.TargetName, symbols.ExecutableInfo{
			FileId:    fid,
			FileName:  e.TargetName,
			NumRanges: e.NumRanges,
		})
		s.Exe.status = "loaded " + e.TargetName
	case eventbus.SymbolsRemoved:
		if e.Err != nil {
			s.Exe.status = e.Err.Error()
			return
		}
		s.Exe.clearSymbols(e.Name)
		s.Exe.status = "removed " + e.Name
	}
}
