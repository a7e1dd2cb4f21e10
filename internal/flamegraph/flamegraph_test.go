package flamegraph

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func childNames(n *Node) []string {
	names := make([]string, len(n.Children))
	for i, c := range n.Children {
		names[i] = c.Name
	}
	return names
}

func TestAddStackAccumulatesTotals(t *testing.T) {
	root := New()
	root.AddStack([]string{"worker-1", "main", "do_work"}, 10)
	root.AddStack([]string{"worker-1", "main", "do_other"}, 5)

	if root.TotalValue != 15 {
		t.Fatalf("root.TotalValue = %d, want 15", root.TotalValue)
	}
	worker := GetZoomNode(root, []string{"worker-1"})
	if worker.TotalValue != 15 {
		t.Fatalf("worker.TotalValue = %d, want 15", worker.TotalValue)
	}
	main := GetZoomNode(root, []string{"worker-1", "main"})
	if main.TotalValue != 15 || main.SelfValue != 0 {
		t.Fatalf("main = %+v, want total 15 self 0", main)
	}
	doWork := GetZoomNode(root, []string{"worker-1", "main", "do_work"})
	if doWork.TotalValue != 10 || doWork.SelfValue != 10 {
		t.Fatalf("do_work = %+v, want total 10 self 10", doWork)
	}
}

func TestInvariantTotalEqualsSelfPlusChildren(t *testing.T) {
	root := New()
	root.AddStack([]string{"a", "b"}, 3)
	root.AddStack([]string{"a", "c"}, 7)
	root.SortRecursive()

	var check func(n *Node)
	check = func(n *Node) {
		sum := n.SelfValue
		for _, c := range n.Children {
			sum += c.TotalValue
		}
		if sum != n.TotalValue {
			t.Fatalf("node %q: self+children=%d, total=%d", n.Name, sum, n.TotalValue)
		}
		for _, c := range n.Children {
			check(c)
		}
	}
	check(root)
}

func TestSortRecursiveOrdersByValueDescThenNameAsc(t *testing.T) {
	root := New()
	root.AddStack([]string{"a"}, 1)
	root.AddStack([]string{"b"}, 5)
	root.AddStack([]string{"c"}, 5)
	root.SortRecursive()

	want := []string{"b", "c", "a"}
	if diff := cmp.Diff(want, childNames(root)); diff != "" {
		t.Fatalf("child order mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeSumsBySharedName(t *testing.T) {
	a := New()
	a.AddStack([]string{"worker-1", "main"}, 10)

	b := New()
	b.AddStack([]string{"worker-1", "main"}, 5)
	b.AddStack([]string{"worker-2", "main"}, 2)

	a.Merge(b)
	if a.TotalValue != 17 {
		t.Fatalf("merged total = %d, want 17", a.TotalValue)
	}
	w1 := GetZoomNode(a, []string{"worker-1", "main"})
	if w1.SelfValue != 15 {
		t.Fatalf("worker-1/main self = %d, want 15", w1.SelfValue)
	}
}

func TestGetZoomNodeStopsAtMissingName(t *testing.T) {
	root := New()
	root.AddStack([]string{"worker-1", "main"}, 1)

	n := GetZoomNode(root, []string{"worker-1", "missing", "deeper"})
	if n.Name != "worker-1" {
		t.Fatalf("GetZoomNode stopped at %q, want worker-1", n.Name)
	}
}

func TestGetNodeClampsOutOfRangeIndex(t *testing.T) {
	root := New()
	root.AddStack([]string{"a"}, 1)

	n := GetNode(root, []int{0, 5})
	if n.Name != "a" {
		t.Fatalf("GetNode clamped to %q, want a", n.Name)
	}
}

func TestMatchFirstLevelIsCaseInsensitiveSubstring(t *testing.T) {
	root := New()
	root.AddStack([]string{"Worker-1"}, 1)
	root.AddStack([]string{"worker-2"}, 1)
	root.AddStack([]string{"reader-1"}, 1)

	got := MatchFirstLevel(root, "WORKER")
	if len(got) != 2 {
		t.Fatalf("MatchFirstLevel = %v, want 2 matches", got)
	}
}
