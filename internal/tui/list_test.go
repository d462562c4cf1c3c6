package tui

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listOf(n int) *SelectionList {
	l := NewSelectionList()
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf("img_%02d.png", i)
	}
	l.SetItems(items)
	return l
}

func TestCursorStaysInRange(t *testing.T) {
	l := listOf(3)

	// Any sequence of moves keeps the cursor in [0, len-1].
	moves := []func(){l.MoveUp, l.MoveDown, l.MoveDown, l.MoveDown, l.MoveDown, l.MoveUp, l.MoveUp, l.MoveUp, l.MoveUp}
	for _, move := range moves {
		move()
		assert.GreaterOrEqual(t, l.Cursor(), 0)
		assert.Less(t, l.Cursor(), l.Len())
	}
}

func TestMovesOnEmptyListAreNoOps(t *testing.T) {
	l := NewSelectionList()

	l.MoveUp()
	l.MoveDown()
	l.ToggleCurrent()

	assert.Equal(t, 0, l.Cursor())
	assert.Empty(t, l.SelectedIndices())
	_, ok := l.Current()
	assert.False(t, ok)
}

func TestToggleCurrentIsIdempotentOverTwoCalls(t *testing.T) {
	l := listOf(5)
	l.MoveDown()
	l.MoveDown()

	l.ToggleCurrent()
	assert.True(t, l.IsSelected(2))
	l.ToggleCurrent()
	assert.False(t, l.IsSelected(2))
	assert.Empty(t, l.SelectedIndices())
}

func TestSelectAllThenClear(t *testing.T) {
	l := listOf(4)
	l.ToggleCurrent()

	l.SelectAll()
	assert.Equal(t, []int{0, 1, 2, 3}, l.SelectedIndices())

	l.ClearSelection()
	assert.Empty(t, l.SelectedIndices())
}

func TestSetItemsResetsCursorAndSelection(t *testing.T) {
	l := listOf(5)
	l.MoveDown()
	l.MoveDown()
	l.SelectAll()

	// New sequence is shorter; old cursor and selection would still have
	// been valid for it, but the reset is unconditional.
	l.SetItems([]string{"a.png", "b.png", "c.png"})

	assert.Equal(t, 0, l.Cursor())
	assert.Empty(t, l.SelectedIndices())
	assert.Equal(t, 3, l.Len())
}

func TestSelectedIndicesSorted(t *testing.T) {
	l := listOf(6)
	l.MoveDown()
	l.MoveDown()
	l.MoveDown()
	l.ToggleCurrent() // 3
	l.MoveUp()
	l.MoveUp()
	l.ToggleCurrent() // 1
	l.MoveDown()
	l.MoveDown()
	l.MoveDown()
	l.MoveDown()
	l.ToggleCurrent() // 5

	assert.Equal(t, []int{1, 3, 5}, l.SelectedIndices())
}

func TestVisibleRangeKeepsCursorVisible(t *testing.T) {
	l := listOf(50)
	const window = 18

	for i := 0; i < 49; i++ {
		l.MoveDown()
		start, end := l.VisibleRange(window)
		require.LessOrEqual(t, end-start, window)
		assert.GreaterOrEqual(t, l.Cursor(), start, "cursor above window at %d", i)
		assert.Less(t, l.Cursor(), end, "cursor below window at %d", i)
	}
}

func TestVisibleRangeLookback(t *testing.T) {
	l := listOf(50)
	for i := 0; i < 20; i++ {
		l.MoveDown()
	}

	start, end := l.VisibleRange(18)
	assert.Equal(t, 12, start) // cursor 20 minus lookback 8
	assert.Equal(t, 30, end)
}

func TestVisibleRangeClampsToBounds(t *testing.T) {
	l := listOf(5)
	start, end := l.VisibleRange(18)
	assert.Equal(t, 0, start)
	assert.Equal(t, 5, end)

	empty := NewSelectionList()
	start, end = empty.VisibleRange(18)
	assert.Equal(t, 0, start)
	assert.Equal(t, 0, end)
}
