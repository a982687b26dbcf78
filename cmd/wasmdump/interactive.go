package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/birdhello/wasm3/wasm"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// maxVisible bounds the number of function rows drawn at once.
const maxVisible = 20

type funcRow struct {
	label     string
	signature string
	origin    string
	names     []string
	index     uint32
	codeLen   uint32
}

type modelState int

const (
	stateBrowse modelState = iota
	stateDetail
)

type interactiveModel struct {
	module   *wasm.Module
	filename string
	rows     []funcRow
	visible  []int
	filter   textinput.Model
	selected int
	state    modelState
}

func newInteractiveModel(filename string, m *wasm.Module) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "filter by name or signature"
	ti.Prompt = "/ "
	ti.Width = 40
	ti.Focus()

	im := &interactiveModel{
		module:   m,
		filename: filename,
		filter:   ti,
		state:    stateBrowse,
	}
	for i := range m.Functions {
		idx := uint32(i)
		f := m.Function(idx)
		row := funcRow{
			index:     idx,
			label:     functionLabel(m, idx),
			signature: m.Signature(idx).String(),
			names:     f.Names,
			codeLen:   f.Code.Len(),
		}
		if f.IsImport() {
			row.origin = "import " + f.Import.String()
		} else {
			row.origin = "local"
		}
		im.rows = append(im.rows, row)
	}
	im.applyFilter()
	return im
}

func (m *interactiveModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *interactiveModel) applyFilter() {
	q := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	m.visible = m.visible[:0]
	for i, r := range m.rows {
		if q == "" || strings.Contains(strings.ToLower(r.label), q) || strings.Contains(r.signature, q) {
			m.visible = append(m.visible, i)
		}
	}
	if m.selected >= len(m.visible) {
		m.selected = max(len(m.visible)-1, 0)
	}
}

func (m *interactiveModel) current() (funcRow, bool) {
	if len(m.visible) == 0 {
		return funcRow{}, false
	}
	return m.rows[m.visible[m.selected]], true
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "up":
			if m.state == stateBrowse && m.selected > 0 {
				m.selected--
			}
			return m, nil

		case "down":
			if m.state == stateBrowse && m.selected < len(m.visible)-1 {
				m.selected++
			}
			return m, nil

		case "enter":
			if m.state == stateBrowse {
				if _, ok := m.current(); ok {
					m.state = stateDetail
				}
			} else {
				m.state = stateBrowse
			}
			return m, nil

		case "esc":
			if m.state == stateDetail {
				m.state = stateBrowse
				return m, nil
			}
			if m.filter.Value() == "" {
				return m, tea.Quit
			}
			m.filter.SetValue("")
			m.applyFilter()
			return m, nil
		}
	}

	if m.state != stateBrowse {
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("wasmdump"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	fmt.Fprintf(&b, "  %d functions, %d imported\n\n", m.module.NumFunctions(), m.module.NumFuncImports)

	switch m.state {
	case stateBrowse:
		b.WriteString(m.filter.View())
		b.WriteString("\n\n")
		if len(m.visible) == 0 {
			b.WriteString(errorStyle.Render("no matching functions"))
			b.WriteString("\n")
		}
		start := 0
		if m.selected >= maxVisible {
			start = m.selected - maxVisible + 1
		}
		for i := start; i < len(m.visible) && i < start+maxVisible; i++ {
			line := m.formatRow(m.rows[m.visible[i]])
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("type to filter • ↑/↓ select • enter details • esc clear/quit"))

	case stateDetail:
		r, _ := m.current()
		fmt.Fprintf(&b, "Function %d %s\n\n", r.index, funcStyle.Render(r.label))
		fmt.Fprintf(&b, "Signature: %s\n", typeStyle.Render(r.signature))
		fmt.Fprintf(&b, "Origin:    %s\n", r.origin)
		if len(r.names) > 0 {
			fmt.Fprintf(&b, "Names:     %s\n", strings.Join(r.names, ", "))
		}
		if r.origin == "local" {
			fmt.Fprintf(&b, "Body:      %s\n", resultStyle.Render(fmt.Sprintf("%d bytes", r.codeLen)))
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter/esc back • ctrl+c quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatRow(r funcRow) string {
	return fmt.Sprintf("%4d %s %s", r.index, funcStyle.Render(r.label), typeStyle.Render(r.signature))
}

func runInteractive(filename string, m *wasm.Module) error {
	p := tea.NewProgram(newInteractiveModel(filename, m), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
