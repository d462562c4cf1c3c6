package tui

import "sort"

// Cursor window lookback: how many items stay visible above the cursor
// when the list is longer than the window.
const cursorLookback = 8

// SelectionList is the cursor-addressed, multi-select view over the
// current project's generated items. It owns its cursor and selection
// exclusively; every mutation goes through these methods so the
// invariants hold: the cursor is always in range while items exist, and
// every selected index is valid for the current item sequence.
type SelectionList struct {
	items    []string
	cursor   int
	selected map[int]struct{}
}

// NewSelectionList returns an empty list.
func NewSelectionList() *SelectionList {
	return &SelectionList{selected: make(map[int]struct{})}
}

// SetItems replaces the item sequence. The cursor resets to 0 and the
// selection clears unconditionally: the backing storage order can change
// between listings, so old indices are meaningless against new items and
// are never remapped.
func (l *SelectionList) SetItems(items []string) {
	l.items = items
	l.cursor = 0
	l.selected = make(map[int]struct{})
}

// MoveUp moves the cursor one item up, clamped at the top.
func (l *SelectionList) MoveUp() {
	if len(l.items) > 0 && l.cursor > 0 {
		l.cursor--
	}
}

// MoveDown moves the cursor one item down, clamped at the bottom.
func (l *SelectionList) MoveDown() {
	if len(l.items) > 0 && l.cursor < len(l.items)-1 {
		l.cursor++
	}
}

// ToggleCurrent flips selection membership at the cursor. No-op on an
// empty list.
func (l *SelectionList) ToggleCurrent() {
	if len(l.items) == 0 {
		return
	}
	if _, ok := l.selected[l.cursor]; ok {
		delete(l.selected, l.cursor)
	} else {
		l.selected[l.cursor] = struct{}{}
	}
}

// SelectAll marks every item selected.
func (l *SelectionList) SelectAll() {
	for i := range l.items {
		l.selected[i] = struct{}{}
	}
}

// ClearSelection empties the selection.
func (l *SelectionList) ClearSelection() {
	l.selected = make(map[int]struct{})
}

// Items returns the current item sequence. Callers must treat it as
// read-only.
func (l *SelectionList) Items() []string {
	return l.items
}

// Len returns the number of items.
func (l *SelectionList) Len() int {
	return len(l.items)
}

// Cursor returns the cursor index. Meaningful only when Len() > 0.
func (l *SelectionList) Cursor() int {
	return l.cursor
}

// Current returns the item under the cursor.
func (l *SelectionList) Current() (string, bool) {
	if len(l.items) == 0 {
		return "", false
	}
	return l.items[l.cursor], true
}

// SelectedIndices returns the selection in ascending order.
func (l *SelectionList) SelectedIndices() []int {
	indices := make([]int, 0, len(l.selected))
	for i := range l.selected {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}

// IsSelected reports whether index i is selected.
func (l *SelectionList) IsSelected(i int) bool {
	_, ok := l.selected[i]
	return ok
}

// SelectedCount returns the number of selected items.
func (l *SelectionList) SelectedCount() int {
	return len(l.selected)
}

// VisibleRange returns the half-open [start, end) window of items to
// render for the given window size. The window keeps up to cursorLookback
// items above the cursor and clamps to the collection bounds; the cursor
// index is always inside the returned range when items exist.
func (l *SelectionList) VisibleRange(window int) (start, end int) {
	if len(l.items) == 0 || window < 1 {
		return 0, 0
	}
	lookback := cursorLookback
	if lookback > window-1 {
		lookback = window - 1
	}
	start = l.cursor - lookback
	if start < 0 {
		start = 0
	}
	end = start + window
	if end > len(l.items) {
		end = len(l.items)
	}
	return start, end
}
