package tuistate

import (
	"strings"

	"github.com/rogercoll/eprofiler-tui/internal/eventbus"
	"github.com/rogercoll/eprofiler-tui/internal/flamescope"
)

type threadSearch struct {
	active  bool
	input   string
	matches []string
	cursor  int
}

func (s *threadSearch) open() {
	*s = threadSearch{active: true}
}

func (s *threadSearch) close() {
	*s = threadSearch{}
}

// FlamescopeTab wraps a flamescope.Scope with the same search-overlay UI
// state as FlamegraphTab, per spec.md §4.D/§4.F.
type FlamescopeTab struct {
	scope  *flamescope.Scope
	search threadSearch
}

func newFlamescopeTab() *FlamescopeTab {
	return &FlamescopeTab{scope: flamescope.New()}
}

// Scope exposes the underlying histogram for rendering.
func (t *FlamescopeTab) Scope() *flamescope.Scope {
	return t.scope
}

func (t *FlamescopeTab) handleKey(key eventbus.Key) {
	if t.search.active {
		t.handleSearchKey(key)
		return
	}
	switch {
	case key.Name == "right" || key.Rune == 'l':
		t.scope.MoveCursor(1, 0)
	case key.Name == "left" || key.Rune == 'h':
		t.scope.MoveCursor(-1, 0)
	case key.Name == "down" || key.Rune == 'j':
		t.scope.MoveCursor(0, 1)
	case key.Name == "up" || key.Rune == 'k':
		t.scope.MoveCursor(0, -1)
	case key.Rune == '/':
		t.search.open()
		t.refreshSearch()
	case key.Name == "esc":
		t.scope.ClearFilter()
	case key.Rune == 'G' || key.Name == "end":
		t.scope.JumpToEnd()
	case key.Rune == 'r':
		t.scope = flamescope.New()
	}
}

func (t *FlamescopeTab) handleSearchKey(key eventbus.Key) {
	switch {
	case key.Name == "esc":
		t.search.close()
	case key.Name == "enter":
		if t.search.cursor < len(t.search.matches) {
			t.scope.ConfirmFilter(t.search.matches[t.search.cursor])
		}
		t.search.close()
	case key.Name == "backspace":
		if n := len(t.search.input); n > 0 {
			t.search.input = t.search.input[:n-1]
		}
		t.search.cursor = 0
		t.refreshSearch()
	case key.Name == "up":
		if t.search.cursor > 0 {
			t.search.cursor--
		}
	case key.Name == "down":
		if t.search.cursor+1 < len(t.search.matches) {
			t.search.cursor++
		}
	case key.Rune != 0:
		t.search.input += string(key.Rune)
		t.search.cursor = 0
		t.refreshSearch()
	}
}

func (t *FlamescopeTab) refreshSearch() {
	query := strings.ToLower(t.search.input)
	var matches []string
	for _, name := range t.scope.ThreadNames() {
		if query == "" || strings.Contains(strings.ToLower(name), query) {
			matches = append(matches, name)
		}
	}
	t.search.matches = matches
}
