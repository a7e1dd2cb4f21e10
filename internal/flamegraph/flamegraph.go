// Package flamegraph builds and navigates the mergeable weighted prefix
// tree described in spec.md §4.C. It is grounded on
// pprof-analyzer-mcp's BuildFlameGraphTree (other_examples), adapted from a
// one-shot pprof-profile-to-tree builder into an incremental structure that
// absorbs one stack at a time as OTLP exports arrive.
package flamegraph

import "sort"

// Node is one call-tree node: total_value == self_value + sum of children's
// total_value, siblings unique by name, ordered by SortRecursive.
type Node struct {
	Name       string
	SelfValue  int64
	TotalValue int64
	Children   []*Node

	index map[string]int // name -> position in Children, for O(1) add_stack lookups
}

// New returns an empty root. The root's own Name is "" per spec.md §3; its
// children are the per-thread roots.
func New() *Node {
	return &Node{index: make(map[string]int)}
}

func newChild(name string) *Node {
	return &Node{Name: name, index: make(map[string]int)}
}

// AddStack walks frames from outermost (frames[0]) to innermost, creating
// children as needed, adds weight to every visited node's TotalValue
// (root included), and adds weight to the leaf's SelfValue.
func (root *Node) AddStack(frames []string, weight int64) {
	root.TotalValue += weight
	cur := root
	for _, name := range frames {
		cur = cur.childOrCreate(name)
		cur.TotalValue += weight
	}
	if len(frames) > 0 {
		cur.SelfValue += weight
	} else {
		root.SelfValue += weight
	}
}

func (n *Node) childOrCreate(name string) *Node {
	if n.index == nil {
		n.index = make(map[string]int)
	}
	if i, ok := n.index[name]; ok {
		return n.Children[i]
	}
	child := newChild(name)
	n.index[name] = len(n.Children)
	n.Children = append(n.Children, child)
	return child
}

// Merge recursively sums SelfValue/TotalValue and merges children by name.
func (root *Node) Merge(other *Node) {
	if other == nil {
		return
	}
	root.SelfValue += other.SelfValue
	root.TotalValue += other.TotalValue
	for _, oc := range other.Children {
		root.childOrCreate(oc.Name).Merge(oc)
	}
}

// SortRecursive reorders children by (TotalValue DESC, Name ASC),
// recursively, and keeps the name index consistent with the new order.
func (n *Node) SortRecursive() {
	sort.Slice(n.Children, func(i, j int) bool {
		a, b := n.Children[i], n.Children[j]
		if a.TotalValue != b.TotalValue {
			return a.TotalValue > b.TotalValue
		}
		return a.Name < b.Name
	})
	for i, c := range n.Children {
		n.index[c.Name] = i
		c.SortRecursive()
	}
}

// GetZoomNode descends through child names in zoomPath; if a name is
// missing, it returns the deepest node reached rather than erroring.
func GetZoomNode(root *Node, zoomPath []string) *Node {
	cur := root
	for _, name := range zoomPath {
		i, ok := cur.index[name]
		if !ok {
			return cur
		}
		cur = cur.Children[i]
	}
	return cur
}

// GetNode descends by child index in cursorPath; an out-of-range index at
// any step is treated as a no-op descent (stop there).
func GetNode(root *Node, cursorPath []int) *Node {
	cur := root
	for _, idx := range cursorPath {
		if idx < 0 || idx >= len(cur.Children) {
			return cur
		}
		cur = cur.Children[idx]
	}
	return cur
}

// MatchFirstLevel returns the names of root's immediate children (the
// thread roots once zoomed) whose name contains substr, used by the state
// controller's name search (spec.md §4.C: "matches are computed over the
// first level of the zoomed root").
func MatchFirstLevel(root *Node, substr string) []string {
	var matches []string
	for _, c := range root.Children {
		if containsFold(c.Name, substr) {
			matches = append(matches, c.Name)
		}
	}
	return matches
}

func containsFold(s, substr string) bool {
	if substr == "" {
		return true
	}
	sl, subl := toLower(s), toLower(substr)
	return indexOf(sl, subl) >= 0
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func indexOf(s, sub string) int {
	n, m := len(s), len(sub)
	if m == 0 {
		return 0
	}
	for i := 0; i+m <= n; i++ {
		if s[i:i+m] == sub {
			return i
		}
	}
	return -1
}
