package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/repotrack/pkg/config"
)

var listDimStyle = lipgloss.NewStyle().Foreground(colorDim)

// =============================================================================
// SourcePickerModel - Interactive source selection
// =============================================================================

// SourcePickerModel is the bubbletea model for choosing which configured
// sources to update.
type SourcePickerModel struct {
	Sources  []config.Source
	Cursor   int
	Chosen   map[int]bool
	Accepted bool
	Height   int
	Offset   int
}

// NewSourcePickerModel creates a picker with nothing chosen.
func NewSourcePickerModel(sources []config.Source) SourcePickerModel {
	return SourcePickerModel{
		Sources: sources,
		Chosen:  make(map[int]bool),
		Height:  15,
	}
}

// Selected returns the chosen source names in configuration order, or nil
// if the picker was dismissed.
func (m SourcePickerModel) Selected() []string {
	if !m.Accepted {
		return nil
	}
	var names []string
	for i, s := range m.Sources {
		if m.Chosen[i] {
			names = append(names, s.Name)
		}
	}
	return names
}

func (m SourcePickerModel) Init() tea.Cmd {
	return nil
}

func (m SourcePickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Sources)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case " ", "x":
			if len(m.Sources) > 0 {
				m.toggle(m.Cursor)
			}
		case "a":
			all := len(m.Chosen) == len(m.Sources)
			m.Chosen = make(map[int]bool)
			if !all {
				for i := range m.Sources {
					m.Chosen[i] = true
				}
			}
		case "enter":
			if len(m.Chosen) == 0 && len(m.Sources) > 0 {
				m.toggle(m.Cursor)
			}
			m.Accepted = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

// toggle flips index i. The map is copied so earlier model values keep
// their selection.
func (m *SourcePickerModel) toggle(i int) {
	chosen := make(map[int]bool, len(m.Chosen)+1)
	for k, v := range m.Chosen {
		chosen[k] = v
	}
	if chosen[i] {
		delete(chosen, i)
	} else {
		chosen[i] = true
	}
	m.Chosen = chosen
}

func (m SourcePickerModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Sources"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ␣ toggle  a all  ⏎ update  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Sources))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		s := m.Sources[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		mark := "○"
		if m.Chosen[i] {
			mark = "●"
		}
		rows = append(rows, []string{cursor + mark, s.Name, s.Fetcher, s.Parser})
	}


	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleTableBorder).
		Headers("", "Source", "Fetcher", "Parser").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleTableHeader
			}
			idx := m.Offset + row
			base := lipgloss.NewStyle()
			if col >= 2 {
				base = base.Foreground(colorDim)
			}
			switch {
			case idx == m.Cursor && m.Chosen[idx]:
				return base.Foreground(colorGreen).Bold(true)
			case idx == m.Cursor:
				return base.Bold(true)
			case m.Chosen[idx]:
				return base.Foreground(colorGreen)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d] %d selected", m.Cursor+1, len(m.Sources), len(m.Chosen))))

	return b.String()
}

// pickSources runs the picker and returns the chosen source names.
func pickSources(sources []config.Source) ([]string, error) {
	final, err := tea.NewProgram(NewSourcePickerModel(sources)).Run()
	if err != nil {
		return nil, err
	}
	m, ok := final.(SourcePickerModel)
	if !ok {
		return nil, nil
	}
	return m.Selected(), nil
}
