package tuistate

import (
	"sort"
	"strings"

	"github.com/rogercoll/eprofiler-tui/internal/eventbus"
	"github.com/rogercoll/eprofiler-tui/internal/libpf"
	"github.com/rogercoll/eprofiler-tui/internal/symbols"
)

// ExeEntry is one UI-visible row. FileID is the zero value when the
// mapping has been discovered but has no symbols loaded.
type ExeEntry struct {
	Name      string
	FileID    libpf.FileId
	HasSymbol bool
	NumRanges uint32
}

type pathInput struct {
	active           bool
	input            string
	target           *string
	completions      []string
	completionCursor int
}

func (p *pathInput) open(target *string) {
	*p = pathInput{active: true, target: target}
	p.refreshCompletions()
}

func (p *pathInput) close() {
	*p = pathInput{}
}

func (p *pathInput) refreshCompletions() {
	p.completions = computePathCompletions(p.input)
	p.completionCursor = 0
}

func (p *pathInput) applyCompletion() {
	if p.completionCursor < len(p.completions) {
		p.input = p.completions[p.completionCursor]
		p.refreshCompletions()
	}
}

// ExecutablesTab lists every known/discovered binary and drives the
// load/remove-symbols workflow, per spec.md §4.F.
type ExecutablesTab struct {
	Cursor int
	List   []ExeEntry
	status string

	pathInput pathInput
}

func newExecutablesTab(initial []symbols.ExecutableInfo) *ExecutablesTab {
	list := make([]ExeEntry, len(initial))
	for i, info := range initial {
		list[i] = ExeEntry{Name: info.FileName, FileID: info.FileId, HasSymbol: true, NumRanges: info.NumRanges}
	}
	t := &ExecutablesTab{List: list}
	t.sortList()
	return t
}

// Status returns the last status-line message.
func (t *ExecutablesTab) Status() string {
	return t.status
}

func (t *ExecutablesTab) mergeDiscoveredMappings(names []string) {
	for _, name := range names {
		if !t.hasName(name) {
			t.List = append(t.List, ExeEntry{Name: name})
		}
	}
	t.sortList()
}

func (t *ExecutablesTab) hasName(name string) bool {
	for _, e := range t.List {
		if e.Name == name {
			return true
		}
	}
	return false
}

func (t *ExecutablesTab) updateSymbolized(targetName string, info symbols.ExecutableInfo) {
	for i := range t.List {
		if t.List[i].Name == targetName {
			t.List[i].FileID = info.FileId
			t.List[i].HasSymbol = true
			t.List[i].NumRanges = info.NumRanges
			t.sortList()
			return
		}
	}
	t.List = append(t.List, ExeEntry{Name: info.FileName, FileID: info.FileId, HasSymbol: true, NumRanges: info.NumRanges})
	t.sortList()
}

func (t *ExecutablesTab) clearSymbols(name string) {
	for i := range t.List {
		if t.List[i].Name == name {
			t.List[i].FileID = libpf.FileId{}
			t.List[i].HasSymbol = false
			t.List[i].NumRanges = 0
			break
		}
	}
	t.sortList()
}

// sortList orders symbolized entries before unsymbolized ones, then
// ascending by name, repositioning the cursor onto the same-named entry.
func (t *ExecutablesTab) sortList() {
	var currentName string
	if t.Cursor < len(t.List) {
		currentName = t.List[t.Cursor].Name
	}

	sort.SliceStable(t.List, func(i, j int) bool {
		a, b := t.List[i], t.List[j]
		if a.HasSymbol != b.HasSymbol {
			return a.HasSymbol // symbolized first
		}
		return a.Name < b.Name
	})

	if currentName != "" {
		for i, e := range t.List {
			if e.Name == currentName {
				t.Cursor = i
				break
			}
		}
	}
	t.clampCursor()
}

func (t *ExecutablesTab) clampCursor() {
	if len(t.List) == 0 {
		t.Cursor = 0
		return
	}
	if t.Cursor >= len(t.List) {
		t.Cursor = len(t.List) - 1
	}
}

func (t *ExecutablesTab) handleKey(key eventbus.Key) Action {
	if t.pathInput.active {
		return t.handlePathInputKey(key)
	}
	switch {
	case key.Name == "down" || key.Rune == 'j':
		if t.Cursor+1 < len(t.List) {
			t.Cursor++
		}
	case key.Name == "up" || key.Rune == 'k':
		if t.Cursor > 0 {
			t.Cursor--
		}
	case key.Name == "enter":
		if t.Cursor < len(t.List) {
			name := t.List[t.Cursor].Name
			t.pathInput.open(&name)
		}
	case key.Rune == 'r':
		if t.Cursor < len(t.List) {
			entry := t.List[t.Cursor]
			if entry.HasSymbol {
				return RemoveSymbolsAction{Name: entry.Name, FileID: entry.FileID}
			}
		}
	case key.Rune == '/':
		t.pathInput.open(nil)
	}
	return NoAction{}
}

func (t *ExecutablesTab) handlePathInputKey(key eventbus.Key) Action {
	switch {
	case key.Name == "esc":
		t.pathInput.close()
	case key.Name == "enter":
		path := strings.TrimSpace(t.pathInput.input)
		if path == "" {
			t.pathInput.close()
			return NoAction{}
		}
		target := t.pathInput.target
		display := path
		if target != nil {
			display = *target
		}
		t.status = "loading " + display
		t.pathInput.close()
		return LoadSymbolsAction{Path: path, Target: target}
	case key.Name == "backspace":
		if n := len(t.pathInput.input); n > 0 {
			t.pathInput.input = t.pathInput.input[:n-1]
		}
		t.pathInput.refreshCompletions()
	case key.Name == "tab":
		t.pathInput.applyCompletion()
	case key.Name == "up":
		if t.pathInput.completionCursor > 0 {
			t.pathInput.completionCursor--
		}
	case key.Name == "down":
		if t.pathInput.completionCursor+1 < len(t.pathInput.completions) {
			t.pathInput.completionCursor++
		}
	case key.Rune != 0:
		t.pathInput.input += string(key.Rune)
		t.pathInput.refreshCompletions()
	}
	return NoAction{}
}
