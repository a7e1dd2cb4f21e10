package tuistate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rogercoll/eprofiler-tui/internal/eventbus"
	"github.com/rogercoll/eprofiler-tui/internal/flamegraph"
	"github.com/rogercoll/eprofiler-tui/internal/symbols"
)

func TestHandleKeyCtrlCStopsRunning(t *testing.T) {
	s := New("0.0.0.0:4317", nil)
	s.HandleKey(eventbus.Key{Name: "ctrl+c"})
	if s.Running {
		t.Fatal("Running should be false after ctrl+c")
	}
}

func TestHandleKeyTabRotatesActiveTab(t *testing.T) {
	s := New("0.0.0.0:4317", nil)
	s.HandleKey(eventbus.Key{Name: "tab"})
	if s.ActiveTab != TabFlamescope {
		t.Fatalf("ActiveTab = %v, want TabFlamescope", s.ActiveTab)
	}
	s.HandleKey(eventbus.Key{Name: "tab"})
	if s.ActiveTab != TabExecutables {
		t.Fatalf("ActiveTab = %v, want TabExecutables", s.ActiveTab)
	}
}

func TestProfileUpdateMergesIntoFlamegraphUnlessFrozen(t *testing.T) {
	s := New("0.0.0.0:4317", nil)
	root := flamegraph.New()
	root.AddStack([]string{"worker-1", "main"}, 5)

	s.Apply(eventbus.ProfileUpdate{Flamegraph: root, Samples: 5})
	if s.FG.SamplesReceived != 5 {
		t.Fatalf("SamplesReceived = %d, want 5", s.FG.SamplesReceived)
	}

	s.FG.handleKey(eventbus.Key{Rune: 'f'}) // freeze
	root2 := flamegraph.New()
	root2.AddStack([]string{"worker-2"}, 3)
	s.Apply(eventbus.ProfileUpdate{Flamegraph: root2, Samples: 3})
	if s.FG.SamplesReceived != 5 {
		t.Fatalf("SamplesReceived after freeze = %d, want unchanged 5", s.FG.SamplesReceived)
	}
}

func TestExecutablesTabSortsSymbolizedFirstThenName(t *testing.T) {
	exe := newExecutablesTab([]symbols.ExecutableInfo{
		{FileName: "zeta", NumRanges: 1},
	})
	exe.mergeDiscoveredMappings([]string{"alpha"})

	if len(exe.List) != 2 {
		t.Fatalf("List = %v, want 2 entries", exe.List)
	}
	if exe.List[0].Name != "zeta" || !exe.List[0].HasSymbol {
		t.Fatalf("List[0] = %+v, want symbolized zeta first", exe.List[0])
	}
	if exe.List[1].Name != "alpha" || exe.List[1].HasSymbol {
		t.Fatalf("List[1] = %+v, want unsymbolized alpha second", exe.List[1])
	}
}

func TestExecutablesTabRemoveSymbolsActionOnlyWhenSymbolized(t *testing.T) {
	exe := newExecutablesTab([]symbols.ExecutableInfo{{FileName: "app", NumRanges: 1}})
	act := exe.handleKey(eventbus.Key{Rune: 'r'})
	if _, ok := act.(RemoveSymbolsAction); !ok {
		t.Fatalf("action = %T, want RemoveSymbolsAction", act)
	}

	exe2 := newExecutablesTab(nil)
	exe2.mergeDiscoveredMappings([]string{"unsymbolized"})
	act2 := exe2.handleKey(eventbus.Key{Rune: 'r'})
	if _, ok := act2.(NoAction); !ok {
		t.Fatalf("action = %T, want NoAction for unsymbolized entry", act2)
	}
}

func TestPathCompletionHidesDotfilesUntilPrefixNonEmpty(t *testing.T) {
	dir := t.TempDir()
	mustCreate(t, filepath.Join(dir, ".hidden"))
	mustCreate(t, filepath.Join(dir, "visible.txt"))

	all := listDirEntries(dir, "")
	if len(all) != 1 {
		t.Fatalf("listDirEntries(empty prefix) = %v, want only visible.txt", all)
	}

	dotted := listDirEntries(dir, ".")
	if len(dotted) != 1 || dotted[0] != filepath.Join(dir, ".hidden") {
		t.Fatalf("listDirEntries(prefix=.) = %v, want [.hidden]", dotted)
	}
}

func TestPathCompletionSortsAscendingAndTagsDirectories(t *testing.T) {
	dir := t.TempDir()
	mustCreate(t, filepath.Join(dir, "b.txt"))
	if err := os.Mkdir(filepath.Join(dir, "a_dir"), 0o755); err != nil {
		t.Fatal(err)
	}

	got := listDirEntries(dir, "")
	if len(got) != 2 {
		t.Fatalf("got %v, want 2 entries", got)
	}
	if got[0] != filepath.Join(dir, "a_dir")+"/" {
		t.Fatalf("got[0] = %q, want a_dir/ first (ascending) with trailing slash", got[0])
	}
}

func mustCreate(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
}
