package tui

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kestrel/internal/config"
	"kestrel/internal/generate"
	"kestrel/internal/library"
	"kestrel/internal/video"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T) (*Model, *config.Project) {
	t.Helper()

	cfg := config.NewTestConfig(t.TempDir())
	lib, err := library.New(cfg.Library.ImagePatterns)
	require.NoError(t, err)

	orch := generate.NewOrchestrator(cfg, nil)
	m := New(cfg, orch, lib, video.NewAssembler(), nil)

	p := m.Project()
	require.NotNil(t, p)
	require.NoError(t, p.EnsureDirs())
	return m, p
}

func seedImages(t *testing.T, p *config.Project, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(p.ImagesDir(), name)
		require.NoError(t, os.WriteFile(path, []byte("img"), 0644))
	}
}

func refresh(t *testing.T, m *Model) {
	t.Helper()
	cmd := m.refreshCmd(false)
	require.NotNil(t, cmd)
	m.Update(cmd())
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestRefreshListsNewestFirst(t *testing.T) {
	m, p := newTestModel(t)
	seedImages(t, p,
		"gen_20240101-000001_aaaa1111_0.png",
		"gen_20240101-000003_cccc3333_0.png",
		"gen_20240101-000002_bbbb2222_0.png",
	)

	refresh(t, m)

	items := m.List().Items()
	require.Len(t, items, 3)
	assert.Equal(t, "gen_20240101-000003_cccc3333_0.png", filepath.Base(items[0]))
	assert.Equal(t, "gen_20240101-000002_bbbb2222_0.png", filepath.Base(items[1]))
	assert.Equal(t, "gen_20240101-000001_aaaa1111_0.png", filepath.Base(items[2]))
	assert.Equal(t, 0, m.List().Cursor())
	assert.Equal(t, "Test Project: 3 images", m.Status())
}

func TestDeleteSelectedRemovesAllAndResetsSelection(t *testing.T) {
	m, p := newTestModel(t)
	seedImages(t, p,
		"gen_20240101-000001_aaaa1111_0.png",
		"gen_20240101-000002_bbbb2222_0.png",
		"gen_20240101-000003_cccc3333_0.png",
		"gen_20240101-000004_dddd4444_0.png",
	)
	refresh(t, m)
	items := m.List().Items()
	require.Len(t, items, 4)

	// Select indices 1 and 3.
	m.List().MoveDown()
	m.List().ToggleCurrent()
	m.List().MoveDown()
	m.List().MoveDown()
	m.List().ToggleCurrent()
	require.Equal(t, []int{1, 3}, m.List().SelectedIndices())

	_, cmd := m.Update(keyRunes("d"))
	assert.Equal(t, "Deleted 2 of 2 images", m.Status())

	assert.FileExists(t, items[0])
	assert.NoFileExists(t, items[1])
	assert.FileExists(t, items[2])
	assert.NoFileExists(t, items[3])

	// The follow-up refresh clears the stale cursor and selection without
	// clobbering the status line.
	require.NotNil(t, cmd)
	m.Update(cmd())
	assert.Equal(t, 2, m.List().Len())
	assert.Equal(t, 0, m.List().Cursor())
	assert.Equal(t, 0, m.List().SelectedCount())
	assert.Equal(t, "Deleted 2 of 2 images", m.Status())
}

func TestDeleteWithEmptySelectionIsNoop(t *testing.T) {
	m, p := newTestModel(t)
	seedImages(t, p, "gen_20240101-000001_aaaa1111_0.png")
	refresh(t, m)

	_, cmd := m.Update(keyRunes("d"))
	assert.Nil(t, cmd)
	assert.Contains(t, m.Status(), "No images selected")
	assert.Equal(t, 1, m.List().Len())
}

func TestSecondGenerateWhileInFlightIsRejected(t *testing.T) {
	m, _ := newTestModel(t)

	_, _ = m.Update(keyRunes("g"))
	require.Equal(t, modePrompt, m.mode)
	m.prompt.SetValue("a cabin in the woods")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, m.generating)
	assert.Contains(t, m.Status(), "Generating")

	// A second request while the first is in flight spawns nothing.
	_, _ = m.Update(keyRunes("g"))
	m.prompt.SetValue("another prompt")
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Contains(t, m.Status(), "Busy")
	assert.True(t, m.generating)
}

func TestEmptyPromptDoesNotGenerate(t *testing.T) {
	m, _ := newTestModel(t)

	_, _ = m.Update(keyRunes("g"))
	m.prompt.SetValue("   ")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.False(t, m.generating)
	assert.Equal(t, "Enter a prompt first", m.Status())
}

func TestGenerateDoneRefreshesQuietly(t *testing.T) {
	m, p := newTestModel(t)
	seedImages(t, p, "gen_20240101-000001_aaaa1111_0.png")

	m.generating = true
	_, cmd := m.Update(generateDoneMsg{count: 2})
	assert.False(t, m.generating)
	assert.Equal(t, "Generated 2 image(s)", m.Status())

	require.NotNil(t, cmd)
	m.Update(cmd())
	assert.Equal(t, 1, m.List().Len())
	assert.Equal(t, "Generated 2 image(s)", m.Status())
}

func TestGenerateFailureKeepsListState(t *testing.T) {
	m, p := newTestModel(t)
	seedImages(t, p,
		"gen_20240101-000001_aaaa1111_0.png",
		"gen_20240101-000002_bbbb2222_0.png",
	)
	refresh(t, m)
	m.List().ToggleCurrent()

	m.generating = true
	_, cmd := m.Update(generateDoneMsg{err: stderrors.New("backend unreachable")})
	assert.Nil(t, cmd)
	assert.False(t, m.generating)
	assert.True(t, strings.HasPrefix(m.Status(), "Error:"))
	assert.Equal(t, 2, m.List().Len())
	assert.Equal(t, 1, m.List().SelectedCount())
}

func TestVideoRequiresSelection(t *testing.T) {
	m, p := newTestModel(t)
	seedImages(t, p, "gen_20240101-000001_aaaa1111_0.png")
	refresh(t, m)

	_, cmd := m.Update(keyRunes("v"))
	assert.Nil(t, cmd)
	assert.False(t, m.exporting)
	assert.Contains(t, m.Status(), "Select images first")
}

func TestSecondVideoWhileExportingIsRejected(t *testing.T) {
	m, p := newTestModel(t)
	seedImages(t, p, "gen_20240101-000001_aaaa1111_0.png")
	refresh(t, m)
	m.List().ToggleCurrent()
	m.exporting = true

	_, cmd := m.Update(keyRunes("v"))
	assert.Nil(t, cmd)
	assert.Contains(t, m.Status(), "Busy")
}

func TestVideoDoneReportsOutput(t *testing.T) {
	m, _ := newTestModel(t)
	m.exporting = true

	_, cmd := m.Update(videoDoneMsg{output: "/tmp/exports/slideshow_20240101-000001.mp4"})
	assert.Nil(t, cmd)
	assert.False(t, m.exporting)
	assert.Equal(t, "Video saved: slideshow_20240101-000001.mp4", m.Status())
}

func TestFilterNarrowsAndClears(t *testing.T) {
	m, p := newTestModel(t)
	seedImages(t, p,
		"gen_20240101-000001_aaaa1111_0.png",
		"gen_20240101-000002_ccdd2222_0.png",
	)
	refresh(t, m)
	m.List().MoveDown()
	m.List().ToggleCurrent()

	m.filter.SetValue("aaaa")
	m.applyFilter()
	require.Equal(t, 1, m.List().Len())
	assert.Equal(t, "gen_20240101-000001_aaaa1111_0.png", filepath.Base(m.List().Items()[0]))
	// Re-listing through SetItems drops the stale selection.
	assert.Equal(t, 0, m.List().SelectedCount())

	m.filter.Reset()
	m.applyFilter()
	assert.Equal(t, 2, m.List().Len())
	assert.Equal(t, 0, m.List().Cursor())
}

func TestStatusLineIsBounded(t *testing.T) {
	m, _ := newTestModel(t)

	m.setStatus(strings.Repeat("x", 200))
	assert.Len(t, m.Status(), maxStatusLen)
	assert.True(t, strings.HasSuffix(m.Status(), "..."))

	m.setStatus("short")
	assert.Equal(t, "short", m.Status())
}

func TestOpenCurrentUsesViewer(t *testing.T) {
	m, p := newTestModel(t)
	seedImages(t, p, "gen_20240101-000001_aaaa1111_0.png")
	refresh(t, m)

	var opened string
	m.openPath = func(path string) error {
		opened = path
		return nil
	}
	_, _ = m.Update(keyRunes("o"))
	assert.Equal(t, m.List().Items()[0], opened)
	assert.Contains(t, m.Status(), "Opened:")
}

func TestViewRendersPanels(t *testing.T) {
	m, p := newTestModel(t)
	seedImages(t, p, "gen_20240101-000001_aaaa1111_0.png")
	refresh(t, m)

	out := m.View()
	assert.Contains(t, out, "KESTREL")
	assert.Contains(t, out, "Test Project")
	assert.Contains(t, out, "gen_20240101-000001_aaaa1111_0.png")
	assert.Contains(t, out, "Actions")
}
