// Package tui contains the interactive session: a bubbletea model that
// owns the active project, the selection list over its generated items,
// and the background workers for generation and video export. All state
// changes happen on the update loop; workers only ever report back
// through messages, never by touching the model.
package tui

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"kestrel/internal/config"
	"kestrel/internal/generate"
	"kestrel/internal/library"
	"kestrel/internal/log"
	"kestrel/internal/video"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Status messages are bounded so a long backend error never wrecks the
// one-line status bar.
const maxStatusLen = 60

type inputMode int

const (
	modeNormal inputMode = iota
	modePrompt
	modeFilter
)

// Messages from background work back onto the update loop.
type (
	itemsMsg struct {
		items []string
		quiet bool // do not overwrite the status line
		err   error
	}
	generateDoneMsg struct {
		count int
		err   error
	}
	videoDoneMsg struct {
		output string
		err    error
	}
	storageChangedMsg struct{}
	backendStatusMsg  string
)

// Model is the session controller.
type Model struct {
	cfg       *config.Config
	orch      *generate.Orchestrator
	lib       *library.Library
	assembler *video.Assembler
	watcher   *library.Watcher // nil when fsnotify is unavailable

	slugs       []string
	projectSlug string

	list     *SelectionList
	allItems []string // unfiltered listing; the filter selects from this

	prompt textinput.Model
	filter textinput.Model
	spin   spinner.Model
	mode   inputMode

	status     string
	generating bool
	exporting  bool

	backendStatus string
	width, height int

	// openPath launches the OS file viewer; swappable for tests.
	openPath func(path string) error
}

// New creates the session over the given collaborators. The active
// project starts as the first slug in stable order.
func New(cfg *config.Config, orch *generate.Orchestrator, lib *library.Library, assembler *video.Assembler, watcher *library.Watcher) *Model {
	prompt := textinput.New()
	prompt.Placeholder = "Enter prompt for image generation..."
	prompt.CharLimit = 500

	filter := textinput.New()
	filter.Placeholder = "filter images..."

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = WorkingStyle

	slugs := cfg.ProjectSlugs()
	m := &Model{
		cfg:       cfg,
		orch:      orch,
		lib:       lib,
		assembler: assembler,
		watcher:   watcher,
		slugs:     slugs,
		list:      NewSelectionList(),
		prompt:    prompt,
		filter:    filter,
		spin:      sp,
		status:    "Ready",
		openPath:  openWithOS,
	}
	if len(slugs) > 0 {
		m.projectSlug = slugs[0]
	}
	return m
}

// Project returns the active project.
func (m *Model) Project() *config.Project {
	p, _ := m.cfg.Project(m.projectSlug)
	return p
}

// List exposes the selection list for inspection in tests.
func (m *Model) List() *SelectionList {
	return m.list
}

// Status returns the current status line text.
func (m *Model) Status() string {
	return m.status
}

func (m *Model) working() bool {
	return m.generating || m.exporting
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.refreshCmd(false), m.backendStatusCmd()}
	if p := m.Project(); p != nil && m.watcher != nil {
		if err := p.EnsureDirs(); err == nil {
			if err := m.watcher.Watch(p.ImagesDir()); err != nil {
				log.Warn("watch failed: %v", err)
			}
		}
		cmds = append(cmds, m.waitForStorageCmd())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case spinner.TickMsg:
		if !m.working() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case itemsMsg:
		return m.handleItems(msg)

	case generateDoneMsg:
		m.generating = false
		if msg.err != nil {
			// Prior list state stays untouched on failure.
			m.setStatus("Error: " + msg.err.Error())
			return m, nil
		}
		m.prompt.Reset()
		m.setStatus(fmt.Sprintf("Generated %d image(s)", msg.count))
		return m, m.refreshCmd(true)

	case videoDoneMsg:
		m.exporting = false
		if msg.err != nil {
			m.setStatus("Error: " + msg.err.Error())
			return m, nil
		}
		m.setStatus("Video saved: " + filepath.Base(msg.output))
		return m, nil

	case storageChangedMsg:
		return m, tea.Batch(m.refreshCmd(true), m.waitForStorageCmd())

	case backendStatusMsg:
		m.backendStatus = string(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleItems(msg itemsMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.setStatus("Error: " + msg.err.Error())
		return m, nil
	}
	m.allItems = msg.items
	m.applyFilter()
	if !msg.quiet {
		if p := m.Project(); p != nil {
			m.setStatus(fmt.Sprintf("%s: %d images", p.Name, m.list.Len()))
		}
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modePrompt:
		return m.handlePromptKey(msg)
	case modeFilter:
		return m.handleFilterKey(msg)
	}
	return m.handleNormalKey(msg)
}

func (m *Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeNormal
		m.prompt.Blur()
		return m, nil
	case "enter":
		m.mode = modeNormal
		m.prompt.Blur()
		return m, m.startGenerate(m.prompt.Value())
	}
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m *Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeNormal
		m.filter.Blur()
		m.filter.Reset()
		m.applyFilter()
		return m, nil
	case "enter":
		m.mode = modeNormal
		m.filter.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m *Model) handleNormalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "up", "k":
		m.list.MoveUp()
		return m, nil
	case "down", "j":
		m.list.MoveDown()
		return m, nil

	case "tab", " ":
		m.list.ToggleCurrent()
		m.setStatus(fmt.Sprintf("%d images selected", m.list.SelectedCount()))
		return m, nil
	case "a":
		m.list.SelectAll()
		m.setStatus(fmt.Sprintf("Selected all %d images", m.list.SelectedCount()))
		return m, nil
	case "esc":
		m.list.ClearSelection()
		m.setStatus("Selection cleared")
		return m, nil

	case "g":
		m.mode = modePrompt
		m.prompt.Focus()
		return m, textinput.Blink
	case "/":
		m.mode = modeFilter
		m.filter.Focus()
		return m, textinput.Blink

	case "r":
		return m, m.refreshCmd(false)
	case "d":
		return m, m.deleteSelected()
	case "v":
		return m, m.startVideo()
	case "o":
		return m, m.openCurrent()
	case "b":
		return m, m.openFolder()
	}

	// Numeric hotkeys switch projects.
	if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
		idx := int(key[0] - '1')
		if idx < len(m.slugs) {
			return m, m.switchProject(m.slugs[idx])
		}
	}
	return m, nil
}

// switchProject swaps the active project and refreshes the list from its
// storage.
func (m *Model) switchProject(slug string) tea.Cmd {
	if _, ok := m.cfg.Project(slug); !ok {
		m.setStatus("Unknown project: " + slug)
		return nil
	}
	m.projectSlug = slug
	m.filter.Reset()

	p := m.Project()
	if err := p.EnsureDirs(); err != nil {
		m.setStatus("Error: " + err.Error())
		return nil
	}
	if m.watcher != nil {
		if err := m.watcher.Watch(p.ImagesDir()); err != nil {
			log.Warn("watch failed: %v", err)
		}
	}
	return m.refreshCmd(false)
}

// startGenerate spawns the generation worker unless one is already in
// flight. Generation and video export exclude their own kind only; one
// of each may run at the same time.
func (m *Model) startGenerate(promptText string) tea.Cmd {
	promptText = strings.TrimSpace(promptText)
	if promptText == "" {
		m.setStatus("Enter a prompt first")
		return nil
	}
	if m.generating {
		m.setStatus("Busy: generation already in flight")
		return nil
	}
	p := m.Project()
	if p == nil {
		m.setStatus("No project selected")
		return nil
	}

	m.generating = true
	m.setStatus(fmt.Sprintf("Generating with %s...", p.Name))
	return tea.Batch(m.spin.Tick, m.generateCmd(p, promptText))
}

// startVideo spawns the export worker over the current selection.
func (m *Model) startVideo() tea.Cmd {
	if m.exporting {
		m.setStatus("Busy: video export already in flight")
		return nil
	}
	selected := m.list.SelectedIndices()
	if len(selected) == 0 {
		m.setStatus("Select images first (space or 'a' for all)")
		return nil
	}

	items := m.list.Items()
	paths := make([]string, 0, len(selected))
	for _, idx := range selected {
		if idx < len(items) {
			paths = append(paths, items[idx])
		}
	}

	m.exporting = true
	m.setStatus("Creating video...")
	return tea.Batch(m.spin.Tick, m.videoCmd(m.Project(), paths))
}

// deleteSelected removes every selected item from storage, walking the
// selection snapshot in descending index order so earlier deletions never
// shift the positions still to be processed. The refresh afterwards
// clears the now-stale selection.
func (m *Model) deleteSelected() tea.Cmd {
	selected := m.list.SelectedIndices()
	if len(selected) == 0 {
		m.setStatus("No images selected (space to select)")
		return nil
	}

	items := m.list.Items()
	deleted := 0
	sort.Sort(sort.Reverse(sort.IntSlice(selected)))
	for _, idx := range selected {
		if idx >= len(items) {
			continue
		}
		if err := m.lib.Delete(items[idx]); err != nil {
			log.Warn("delete failed: %v", err)
			continue
		}
		deleted++
	}

	m.setStatus(fmt.Sprintf("Deleted %d of %d images", deleted, len(selected)))
	return m.refreshCmd(true)
}

func (m *Model) openCurrent() tea.Cmd {
	item, ok := m.list.Current()
	if !ok {
		m.setStatus("No image under cursor")
		return nil
	}
	if err := m.openPath(item); err != nil {
		m.setStatus("Error: " + err.Error())
		return nil
	}
	m.setStatus("Opened: " + filepath.Base(item))
	return nil
}

func (m *Model) openFolder() tea.Cmd {
	p := m.Project()
	if p == nil {
		return nil
	}
	if err := p.EnsureDirs(); err != nil {
		m.setStatus("Error: " + err.Error())
		return nil
	}
	if err := m.openPath(p.ImagesDir()); err != nil {
		m.setStatus("Error: " + err.Error())
		return nil
	}
	m.setStatus("Opened " + p.ImagesDir())
	return nil
}

// applyFilter rebuilds the visible list from the unfiltered items and
// the current filter query. Going through SetItems keeps the cursor and
// selection invariants intact on every filter change.
func (m *Model) applyFilter() {
	query := strings.TrimSpace(m.filter.Value())
	if query == "" {
		m.list.SetItems(m.allItems)
		return
	}

	names := make([]string, len(m.allItems))
	for i, item := range m.allItems {
		names[i] = filepath.Base(item)
	}
	ranks := fuzzy.RankFindFold(query, names)
	sort.Sort(ranks)

	matched := make([]string, 0, len(ranks))
	for _, r := range ranks {
		matched = append(matched, m.allItems[r.OriginalIndex])
	}
	m.list.SetItems(matched)
}

func (m *Model) setStatus(s string) {
	if len(s) > maxStatusLen {
		s = s[:maxStatusLen-3] + "..."
	}
	m.status = s
}

// Background commands. Each closes over plain values and reports back
// with a message; none of them mutates the model.

func (m *Model) refreshCmd(quiet bool) tea.Cmd {
	p := m.Project()
	lib := m.lib
	return func() tea.Msg {
		if p == nil {
			return itemsMsg{quiet: quiet}
		}
		items, err := lib.List(p)
		return itemsMsg{items: items, quiet: quiet, err: err}
	}
}

func (m *Model) generateCmd(p *config.Project, promptText string) tea.Cmd {
	orch := m.orch
	return func() tea.Msg {
		paths, _, err := orch.Generate(context.Background(), p, promptText, generate.Options{Enhance: true})
		return generateDoneMsg{count: len(paths), err: err}
	}
}

func (m *Model) videoCmd(p *config.Project, paths []string) tea.Cmd {
	assembler := m.assembler
	return func() tea.Msg {
		output, err := assembler.CreateSlideshow(context.Background(), p, paths)
		return videoDoneMsg{output: output, err: err}
	}
}

func (m *Model) waitForStorageCmd() tea.Cmd {
	if m.watcher == nil {
		return nil
	}
	changes := m.watcher.Changes()
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return storageChangedMsg{}
	}
}

func (m *Model) backendStatusCmd() tea.Cmd {
	orch := m.orch
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 6*time.Second)
		defer cancel()
		return backendStatusMsg(orch.BackendStatus(ctx))
	}
}

func openWithOS(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	return cmd.Start()
}
