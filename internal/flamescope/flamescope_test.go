package flamescope

import "testing"

func TestRecordTimestampsLatchesEpochAndBuckets(t *testing.T) {
	s := New()
	s.RecordTimestamps(map[string][]uint64{
		"worker-1": {1000, 1000 + NSPerRow + 1, uint64(NSPerSec) + 1000},
	})

	if !s.epochSet || s.epoch != 1000 {
		t.Fatalf("epoch = %d (set=%v), want 1000", s.epoch, s.epochSet)
	}
	cols := s.VisibleColumns()
	if len(cols) != 2 {
		t.Fatalf("len(columns) = %d, want 2", len(cols))
	}
	if cols[0][0] != 1 || cols[0][1] != 1 {
		t.Fatalf("column 0 = %v, want row0=1 row1=1", cols[0])
	}
	if cols[1][0] != 1 {
		t.Fatalf("column 1 row0 = %d, want 1", cols[1][0])
	}
}

func TestRecordTimestampsInsertsThreadNamesSorted(t *testing.T) {
	s := New()
	s.RecordTimestamps(map[string][]uint64{"zeta": {1}, "alpha": {1}})
	s.RecordTimestamps(map[string][]uint64{"mid": {1}})

	want := []string{"alpha", "mid", "zeta"}
	got := s.ThreadNames()
	if len(got) != len(want) {
		t.Fatalf("ThreadNames() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ThreadNames() = %v, want %v", got, want)
		}
	}
}

func TestFilterRestrictsToThreadMatrix(t *testing.T) {
	s := New()
	s.RecordTimestamps(map[string][]uint64{
		"worker-1": {100},
		"worker-2": {100, 100},
	})

	s.SetFilter("worker-2")
	if s.VisiblePeak() != 2 {
		t.Fatalf("VisiblePeak() with filter = %d, want 2", s.VisiblePeak())
	}
	s.ClearFilter()
	if !s.AutoScroll() {
		t.Fatalf("ClearFilter should re-enable auto-scroll")
	}
	if s.VisiblePeak() != 3 {
		t.Fatalf("VisiblePeak() global = %d, want 3", s.VisiblePeak())
	}
}

func TestMoveCursorDisablesAutoScrollHorizontally(t *testing.T) {
	s := New()
	s.RecordTimestamps(map[string][]uint64{"worker-1": {100, uint64(NSPerSec) + 100}})

	if !s.AutoScroll() {
		t.Fatalf("AutoScroll should start enabled")
	}
	s.MoveCursor(1, 0)
	if s.AutoScroll() {
		t.Fatalf("horizontal MoveCursor should disable auto-scroll")
	}
	s.JumpToEnd()
	if !s.AutoScroll() {
		t.Fatalf("JumpToEnd should re-enable auto-scroll")
	}
	if s.cursorCol != len(s.VisibleColumns())-1 {
		t.Fatalf("JumpToEnd cursorCol = %d, want last column", s.cursorCol)
	}
}

func TestMoveCursorClampsToBounds(t *testing.T) {
	s := New()
	s.RecordTimestamps(map[string][]uint64{"worker-1": {100}})

	s.MoveCursor(-5, -5)
	if s.cursorCol != 0 || s.cursorRow != 0 {
		t.Fatalf("cursor = (%d,%d), want clamped to (0,0)", s.cursorCol, s.cursorRow)
	}
	s.MoveCursor(100, 100)
	if s.cursorRow != Rows-1 {
		t.Fatalf("cursorRow = %d, want clamped to %d", s.cursorRow, Rows-1)
	}
}

func TestMatchThreadNamesCaseInsensitiveSubstring(t *testing.T) {
	s := New()
	s.RecordTimestamps(map[string][]uint64{"Worker-1": {1}, "reader-2": {1}})

	got := s.MatchThreadNames("WORKER")
	if len(got) != 1 || got[0] != "Worker-1" {
		t.Fatalf("MatchThreadNames(WORKER) = %v, want [Worker-1]", got)
	}
}
