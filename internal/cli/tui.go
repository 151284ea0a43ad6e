package cli

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"

	"github.com/matzehuels/mailframe/pkg/design"
	"github.com/matzehuels/mailframe/pkg/errors"
)

var listDimStyle = lipgloss.NewStyle().Foreground(colorDim)

var errNoSelection = errors.New(errors.ErrCodeSelection, "No frame selected.")

// =============================================================================
// FrameListModel - Interactive export root selection
// =============================================================================

// FrameListModel is the bubbletea model for picking the frame to export.
type FrameListModel struct {
	Frames   []*design.Node
	Cursor   int
	Selected *design.Node
	Height   int
	Offset   int
}

// NewFrameListModel creates a picker over the given candidates.
func NewFrameListModel(frames []*design.Node) FrameListModel {
	return FrameListModel{Frames: frames, Height: 15}
}

func (m FrameListModel) Init() tea.Cmd {
	return nil
}

func (m FrameListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
			if m.Cursor < len(m.Frames)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			f := m.Frames[m.Cursor]
			if f.Box == nil {
				return m, nil
			}
			m.Selected = f
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-6, 5)
	}
	return m, nil
}

func (m FrameListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Frame"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Frames))

	var rows [][]string
	for i := m.Offset; i < end; i++ {
		f := m.Frames[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		size := "—"
		if f.Box != nil {
			size = fmt.Sprintf("%.0f×%.0f", f.Box.Width, f.Box.Height)
		}
		rows = append(rows, []string{cursor, f.Name, size, fmt.Sprint(design.CountTables(f)), f.ID})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Frame", "Size", "Tables", "ID").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(m.Frames) {
				return lipgloss.NewStyle()
			}
			base := lipgloss.NewStyle()
			if col == 4 {
				base = base.Foreground(colorDim)
			}
			if m.Frames[idx].Box == nil {
				return base.Foreground(colorDim)
			}
			if idx == m.Cursor {
				return base.Foreground(colorGreen).Bold(true)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Frames))))

	return b.String()
}

// =============================================================================
// Root Selection
// =============================================================================

// selectRoot resolves the export root. An explicit id wins; a single
// candidate is taken as is; several candidates open the picker when stdin is
// a terminal.
func selectRoot(doc *design.Document, id string) (*design.Node, error) {
	if id != "" {
		return doc.SelectByID(id)
	}
	candidates := doc.Candidates()
	if len(candidates) <= 1 || !isInteractive() {
		return design.SelectRoot(candidates)
	}

	final, err := tea.NewProgram(NewFrameListModel(candidates)).Run()
	if err != nil {
		return nil, err
	}
	fm, ok := final.(FrameListModel)
	if !ok || fm.Selected == nil {
		return nil, errNoSelection
	}
	return design.SelectRoot([]*design.Node{fm.Selected})
}

// isInteractive reports whether the picker can take over the terminal.
var isInteractive = func() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())
}
