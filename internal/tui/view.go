package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	listWindow  = 18
	maxItemName = 38
)

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.headerView())
	b.WriteString("\n")

	panels := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.projectsView(),
		m.imagesView(),
		m.actionsView(),
	)
	b.WriteString(panels)
	b.WriteString("\n")

	b.WriteString(m.inputView())
	b.WriteString("\n")
	b.WriteString(m.statusView())

	return b.String()
}

func (m *Model) headerView() string {
	title := TitleStyle.Render("KESTREL")
	if m.backendStatus == "" {
		return title
	}
	return title + "  " + DimStyle.Render(m.backendStatus)
}

func (m *Model) projectsView() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Projects"))
	b.WriteString("\n\n")
	for i, slug := range m.slugs {
		p, ok := m.cfg.Project(slug)
		if !ok {
			continue
		}
		line := fmt.Sprintf("%d. %s", i+1, p.Name)
		if slug == m.projectSlug {
			b.WriteString(AccentStyle.Render("▶ " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	return PanelStyle.Render(b.String())
}

func (m *Model) imagesView() string {
	var b strings.Builder

	title := "Images"
	if n := m.list.SelectedCount(); n > 0 {
		title = fmt.Sprintf("Images (%d selected)", n)
	}
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n\n")

	if m.list.Len() == 0 {
		b.WriteString(DimStyle.Render("No images yet. Press 'g' to generate."))
		return PanelStyle.Render(b.String())
	}

	start, end := m.list.VisibleRange(listWindow)
	if start > 0 {
		b.WriteString(DimStyle.Render(fmt.Sprintf("  ↑ %d more", start)))
		b.WriteString("\n")
	}
	items := m.list.Items()
	for i := start; i < end; i++ {
		name := filepath.Base(items[i])
		if len(name) > maxItemName {
			name = name[:maxItemName-3] + "..."
		}

		cursor := "  "
		if i == m.list.Cursor() {
			cursor = AccentStyle.Render("▶ ")
		}
		mark := "  "
		if m.list.IsSelected(i) {
			mark = SelectedStyle.Render("✓ ")
		}

		line := cursor + mark + name
		if i == m.list.Cursor() {
			line = cursor + mark + AccentStyle.Render(name)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if end < m.list.Len() {
		b.WriteString(DimStyle.Render(fmt.Sprintf("  ↓ %d more", m.list.Len()-end)))
		b.WriteString("\n")
	}

	return PanelStyle.Render(b.String())
}

func (m *Model) actionsView() string {
	rows := []struct{ key, desc string }{
		{"g", "generate image"},
		{"v", "create video"},
		{"d", "delete selected"},
		{"o", "open image"},
		{"b", "browse folder"},
		{"/", "filter"},
		{"r", "refresh"},
		{"space", "select"},
		{"a", "select all"},
		{"esc", "clear"},
		{"q", "quit"},
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Actions"))
	b.WriteString("\n\n")
	for _, r := range rows {
		b.WriteString(AccentStyle.Render(fmt.Sprintf("%-5s", r.key)))
		b.WriteString(" " + r.desc + "\n")
	}
	return PanelStyle.Render(b.String())
}

func (m *Model) inputView() string {
	switch m.mode {
	case modePrompt:
		return AccentStyle.Render("Prompt: ") + m.prompt.View()
	case modeFilter:
		return AccentStyle.Render("Filter: ") + m.filter.View()
	}
	if q := strings.TrimSpace(m.filter.Value()); q != "" {
		return DimStyle.Render("Filter: " + q + "  (press / to edit, esc in filter to clear)")
	}
	return DimStyle.Render("Press 'g' to enter a prompt")
}

func (m *Model) statusView() string {
	style := StatusStyle
	if strings.HasPrefix(m.status, "Error") {
		style = ErrorStyle
	}
	if m.working() {
		return m.spin.View() + WorkingStyle.Render(m.status)
	}
	return style.Render(m.status)
}
