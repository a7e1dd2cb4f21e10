package tuistate

import (
	"strings"

	"github.com/rogercoll/eprofiler-tui/internal/eventbus"
	"github.com/rogercoll/eprofiler-tui/internal/flamegraph"
)

// searchMatch pairs a matched first-level name with its child index.
type searchMatch struct {
	name string
	idx  int
}

type searchOverlay struct {
	active  bool
	input   string
	matches []searchMatch
	cursor  int
}

func (o *searchOverlay) open() {
	*o = searchOverlay{active: true}
}

func (o *searchOverlay) close() {
	*o = searchOverlay{}
}

// FlamegraphTab owns the merged flame graph and its cursor/zoom/search UI
// state, per spec.md §4.C/§4.F.
type FlamegraphTab struct {
	Graph            *flamegraph.Node
	Frozen           bool
	ProfilesReceived uint64
	SamplesReceived  uint64
	CursorPath       []int
	ZoomPath         []string

	search searchOverlay
}

func newFlamegraphTab() *FlamegraphTab {
	return &FlamegraphTab{Graph: flamegraph.New()}
}

// merge absorbs one ProfileUpdate's fresh flame graph, unless frozen.
func (t *FlamegraphTab) merge(newRoot *flamegraph.Node, samples int64) {
	if t.Frozen {
		return
	}
	t.Graph.Merge(newRoot)
	t.Graph.SortRecursive()
	t.ProfilesReceived++
	t.SamplesReceived += uint64(samples)
}

func (t *FlamegraphTab) handleKey(key eventbus.Key) {
	if t.search.active {
		t.handleSearchKey(key)
		return
	}
	switch {
	case key.Rune == 'f' || key.Rune == ' ':
		t.Frozen = !t.Frozen
	case key.Name == "down" || key.Rune == 'j':
		t.moveDown()
	case key.Name == "up" || key.Rune == 'k':
		t.moveUp()
	case key.Name == "left" || key.Rune == 'h':
		t.moveLeft()
	case key.Name == "right" || key.Rune == 'l':
		t.moveRight()
	case key.Name == "enter":
		t.zoomIn()
	case key.Name == "esc" || key.Name == "backspace":
		t.zoomOut()
	case key.Rune == 'r':
		t.reset()
	case key.Rune == '/':
		t.search.open()
		t.refreshSearch()
	}
}

func (t *FlamegraphTab) handleSearchKey(key eventbus.Key) {
	switch {
	case key.Name == "esc":
		t.search.close()
	case key.Name == "enter":
		if t.search.cursor < len(t.search.matches) {
			t.ZoomPath = []string{t.search.matches[t.search.cursor].name}
			t.CursorPath = nil
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

func (t *FlamegraphTab) refreshSearch() {
	zoomRoot := flamegraph.GetZoomNode(t.Graph, t.ZoomPath)
	query := strings.ToLower(t.search.input)
	var matches []searchMatch
	for i, c := range zoomRoot.Children {
		if query == "" || strings.Contains(strings.ToLower(c.Name), query) {
			matches = append(matches, searchMatch{name: c.Name, idx: i})
		}
	}
	t.search.matches = matches
}

func (t *FlamegraphTab) moveDown() {
	zoomRoot := flamegraph.GetZoomNode(t.Graph, t.ZoomPath)
	cur := flamegraph.GetNode(zoomRoot, t.CursorPath)
	if len(cur.Children) > 0 {
		t.CursorPath = append(t.CursorPath, 0)
	}
}

func (t *FlamegraphTab) moveUp() {
	if len(t.CursorPath) > 0 {
		t.CursorPath = t.CursorPath[:len(t.CursorPath)-1]
	}
}

func (t *FlamegraphTab) moveLeft() {
	if len(t.CursorPath) == 0 {
		return
	}
	last := len(t.CursorPath) - 1
	if t.CursorPath[last] > 0 {
		t.CursorPath[last]--
	}
}

func (t *FlamegraphTab) moveRight() {
	if len(t.CursorPath) == 0 {
		return
	}
	zoomRoot := flamegraph.GetZoomNode(t.Graph, t.ZoomPath)
	parent := flamegraph.GetNode(zoomRoot, t.CursorPath[:len(t.CursorPath)-1])
	last := len(t.CursorPath) - 1
	if t.CursorPath[last]+1 < len(parent.Children) {
		t.CursorPath[last]++
	}
}

func (t *FlamegraphTab) zoomIn() {
	if len(t.CursorPath) == 0 {
		return
	}
	zoomRoot := flamegraph.GetZoomNode(t.Graph, t.ZoomPath)
	names := collectPathNames(zoomRoot, t.CursorPath)
	t.ZoomPath = append(t.ZoomPath, names...)
	t.CursorPath = nil
}

func (t *FlamegraphTab) zoomOut() {
	if len(t.ZoomPath) == 0 {
		return
	}
	t.ZoomPath = t.ZoomPath[:len(t.ZoomPath)-1]
	t.CursorPath = nil
}

func (t *FlamegraphTab) reset() {
	t.Graph = flamegraph.New()
	t.ProfilesReceived = 0
	t.SamplesReceived = 0
	t.ZoomPath = nil
	t.CursorPath = nil
}

// collectPathNames walks indexPath from root, collecting the name of each
// child visited; it stops early (returning the names gathered so far) if an
// index runs out of range.
func collectPathNames(root *flamegraph.Node, indexPath []int) []string {
	names := make([]string, 0, len(indexPath))
	cur := root
	for _, idx := range indexPath {
		if idx < 0 || idx >= len(cur.Children) {
			break
		}
		cur = cur.Children[idx]
		names = append(names, cur.Name)
	}
	return names
}
