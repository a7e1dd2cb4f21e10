// Package flamescope implements the sub-second sample-density heat map from
// spec.md §4.D: a 10-row-by-N-column histogram of sample timestamps, kept
// both globally and per thread, with cursor navigation and an optional
// thread filter layered on top by the state controller (§4.F).
package flamescope

import "sort"

const (
	Rows     = 10
	NSPerRow = 100_000_000   // 10^8
	NSPerSec = 1_000_000_000 // 10^9
)

// Column is one second's worth of samples, bucketed into Rows sub-second rows.
type Column [Rows]int64

// Scope accumulates timestamps into a global matrix and a per-thread matrix,
// latched to the first observed timestamp as its epoch.
type Scope struct {
	epochSet bool
	epoch    uint64

	threadNames []string
	columns     []Column
	threads     map[string][]Column

	filter     *string
	cursorCol  int
	cursorRow  int
	autoScroll bool
}

// New returns an empty, unlatched Scope with auto-scroll enabled.
func New() *Scope {
	return &Scope{threads: make(map[string][]Column), autoScroll: true}
}

// RecordTimestamps absorbs one batch of per-thread sample timestamps.
func (s *Scope) RecordTimestamps(entries map[string][]uint64) {
	for thread := range entries {
		s.insertThreadName(thread)
		if _, ok := s.threads[thread]; !ok {
			s.threads[thread] = nil
		}
	}

	for thread, timestamps := range entries {
		for _, ts := range timestamps {
			if !s.epochSet {
				s.epoch = ts
				s.epochSet = true
			}
			var offset uint64
			if ts > s.epoch {
				offset = ts - s.epoch
			}
			col := int(offset / NSPerSec)
			row := int((offset % NSPerSec) / NSPerRow)
			if row >= Rows {
				row = Rows - 1
			}

			s.growTo(&s.columns, col)
			threadCols := s.threads[thread]
			s.growTo(&threadCols, col)
			s.threads[thread] = threadCols

			s.columns[col][row]++
			s.threads[thread][col][row]++
		}
	}
}

func (s *Scope) growTo(cols *[]Column, col int) {
	for len(*cols) <= col {
		*cols = append(*cols, Column{})
	}
}

func (s *Scope) insertThreadName(name string) {
	i := sort.SearchStrings(s.threadNames, name)
	if i < len(s.threadNames) && s.threadNames[i] == name {
		return
	}
	s.threadNames = append(s.threadNames, "")
	copy(s.threadNames[i+1:], s.threadNames[i:])
	s.threadNames[i] = name
}

// ThreadNames returns the sorted list of threads seen so far.
func (s *Scope) ThreadNames() []string {
	return s.threadNames
}

// VisibleColumns returns the filtered per-thread matrix if a filter is set,
// otherwise the global matrix.
func (s *Scope) VisibleColumns() []Column {
	if s.filter != nil {
		return s.threads[*s.filter]
	}
	return s.columns
}

// SelectedValue returns the sample count at the current cursor, or 0 if the
// cursor is out of range of the visible matrix.
func (s *Scope) SelectedValue() int64 {
	cols := s.VisibleColumns()
	if s.cursorCol < 0 || s.cursorCol >= len(cols) {
		return 0
	}
	if s.cursorRow < 0 || s.cursorRow >= Rows {
		return 0
	}
	return cols[s.cursorCol][s.cursorRow]
}

// SelectedTime returns the [msStart, msEnd) sub-second window that column
// col, at the current cursor row, represents.
func (s *Scope) SelectedTime(col int) (msStart, msEnd int64) {
	rowMS := int64(NSPerRow / 1_000_000)
	msStart = int64(s.cursorRow) * rowMS
	msEnd = msStart + rowMS
	return msStart, msEnd
}

// VisiblePeak returns the maximum single-bucket value in the visible matrix,
// used by the UI to scale heat-map intensity.
func (s *Scope) VisiblePeak() int64 {
	var peak int64
	for _, col := range s.VisibleColumns() {
		for _, v := range col {
			if v > peak {
				peak = v
			}
		}
	}
	return peak
}

// TotalSeconds returns the column count of the visible matrix.
func (s *Scope) TotalSeconds() int {
	return len(s.VisibleColumns())
}

// MoveCursor shifts the cursor by (dCol, dRow), clamping to the visible
// matrix bounds. Any horizontal movement disables auto-scroll.
func (s *Scope) MoveCursor(dCol, dRow int) {
	if dCol != 0 {
		s.autoScroll = false
	}
	cols := s.VisibleColumns()
	s.cursorCol = clamp(s.cursorCol+dCol, 0, maxInt(len(cols)-1, 0))
	s.cursorRow = clamp(s.cursorRow+dRow, 0, Rows-1)
}

// JumpToEnd moves the cursor to the last column and re-enables auto-scroll
// (the "End"/"G" key action).
func (s *Scope) JumpToEnd() {
	cols := s.VisibleColumns()
	s.cursorCol = maxInt(len(cols)-1, 0)
	s.autoScroll = true
}

// AutoScroll reports whether auto-scroll is currently enabled.
func (s *Scope) AutoScroll() bool {
	return s.autoScroll
}

// SetFilter restricts VisibleColumns to one thread's matrix.
func (s *Scope) SetFilter(thread string) {
	s.filter = &thread
}

// ConfirmFilter sets the thread filter, resets the cursor to the first
// column, and re-enables auto-scroll — the "select a search match" action.
func (s *Scope) ConfirmFilter(thread string) {
	s.filter = &thread
	s.cursorCol = 0
	s.autoScroll = true
}

// ClearFilter removes the thread filter and re-enables auto-scroll (the
// "Esc" key action).
func (s *Scope) ClearFilter() {
	s.filter = nil
	s.autoScroll = true
}

// Filter returns the active thread filter, if any.
func (s *Scope) Filter() (string, bool) {
	if s.filter == nil {
		return "", false
	}
	return *s.filter, true
}

// MatchThreadNames returns the sorted thread names containing substr,
// backing the filter-by-name search.
func (s *Scope) MatchThreadNames(substr string) []string {
	var out []string
	for _, name := range s.threadNames {
		if containsFold(name, substr) {
			out = append(out, name)
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func containsFold(s, substr string) bool {
	if substr == "" {
		return true
	}
	return indexOfFold(s, substr) >= 0
}

func indexOfFold(s, sub string) int {
	sl, subl := lower(s), lower(sub)
	n, m := len(sl), len(subl)
	if m == 0 {
		return 0
	}
	for i := 0; i+m <= n; i++ {
		if sl[i:i+m] == subl {
			return i
		}
	}
	return -1
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
