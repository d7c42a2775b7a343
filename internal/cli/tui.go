package cli

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/screenflow/screenflow/pkg/flow"
	"github.com/screenflow/screenflow/pkg/store"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)

	cellStyle = lipgloss.NewStyle().
			Width(cellWidth).
			Align(lipgloss.Center).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim)
	cellSelectedStyle = cellStyle.BorderForeground(colorCyan).Foreground(colorCyan).Bold(true)
	cellEmptyStyle    = lipgloss.NewStyle().Width(cellWidth + 2).Height(3)
)

const cellWidth = 5

// =============================================================================
// FlowListModel - Interactive flow selection
// =============================================================================

// FlowListModel is the bubbletea model for picking a stored flow.
type FlowListModel struct {
	Flows    []store.Summary
	Cursor   int
	Selected *store.Summary
	Height   int
	Offset   int
}

// NewFlowListModel creates a flow list model.
func NewFlowListModel(flows []store.Summary) FlowListModel {
	return FlowListModel{Flows: flows, Height: 15}
}

func (m FlowListModel) Init() tea.Cmd {
	return nil
}

func (m FlowListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
			if m.Cursor < len(m.Flows)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Flows) == 0 {
				return m, nil
			}
			sel := m.Flows[m.Cursor]
			m.Selected = &sel
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-6, 5)
	}
	return m, nil
}

func (m FlowListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Flow"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ open  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Flows))
	var rows [][]string
	for i := m.Offset; i < end; i++ {
		f := m.Flows[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{
			cursor,
			f.Title,
			string(f.Status),
			strconv.Itoa(f.Screens),
			strconv.Itoa(f.Connections),
			formatRelativeTime(f.CreatedAt),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Title", "Status", "Screens", "Links", "Created").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(m.Flows) {
				return lipgloss.NewStyle()
			}
			if idx == m.Cursor {
				return listSelectedStyle
			}
			if col == 2 {
				return statusStyle(m.Flows[idx].Status)
			}
			return listNormalStyle
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Flows))))

	return b.String()
}

// =============================================================================
// GridModel - Interactive grid browser
// =============================================================================

// GridModel shows a flow's layout as a grid of screens. The cursor moves
// between cells; the panel below lists the connections of the screen under
// the cursor.
type GridModel struct {
	Flow   *flow.Flow
	Cursor flow.Position

	cells    map[flow.Position]int
	width    int // columns
	height   int // rows
	unplaced []int
}

// NewGridModel creates a grid browser for f with the cursor on screen 1.
func NewGridModel(f *flow.Flow) GridModel {
	m := GridModel{Flow: f, cells: make(map[flow.Position]int)}
	for _, s := range f.Graph.Screens() {
		if !s.Placed {
			m.unplaced = append(m.unplaced, s.Number)
			continue
		}
		m.cells[s.Pos] = s.Number
		m.width = max(m.width, s.Pos.X+1)
		m.height = max(m.height, s.Pos.Y+1)
	}
	if s, ok := f.Graph.Screen(1); ok && s.Placed {
		m.Cursor = s.Pos
	}
	return m
}

// Selected returns the screen under the cursor.
func (m GridModel) Selected() (int, bool) {
	n, ok := m.cells[m.Cursor]
	return n, ok
}

func (m GridModel) Init() tea.Cmd {
	return nil
}

func (m GridModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.Cursor.Y > 0 {
			m.Cursor.Y--
		}
	case "down", "j":
		if m.Cursor.Y < m.height-1 {
			m.Cursor.Y++
		}
	case "left", "h":
		if m.Cursor.X > 0 {
			m.Cursor.X--
		}
	case "right", "l":
		if m.Cursor.X < m.width-1 {
			m.Cursor.X++
		}
	case "tab":
		m.Cursor = m.nextScreen()
	}
	return m, nil
}

// nextScreen returns the position of the next placed screen by number,
// wrapping around.
func (m GridModel) nextScreen() flow.Position {
	var placed []*flow.Screen
	for _, s := range m.Flow.Graph.Screens() {
		if s.Placed {
			placed = append(placed, s)
		}
	}
	if len(placed) == 0 {
		return m.Cursor
	}
	cur, _ := m.Selected()
	i := slices.IndexFunc(placed, func(s *flow.Screen) bool { return s.Number > cur })
	if i < 0 {
		i = 0
	}
	return placed[i].Pos
}

func (m GridModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.Flow.Title))
	b.WriteString(" ")
	b.WriteString(statusStyle(m.Flow.Status).Render(string(m.Flow.Status)))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("←↑↓→ move  tab next screen  q quit"))
	b.WriteString("\n\n")

	if m.width == 0 {
		b.WriteString(listDimStyle.Render("  no placed screens"))
		b.WriteString("\n")
	}
	for y := range m.height {
		row := make([]string, 0, m.width)
		for x := range m.width {
			pos := flow.Position{X: x, Y: y}
			n, ok := m.cells[pos]
			switch {
			case !ok && pos == m.Cursor:
				row = append(row, cellSelectedStyle.Render("·"))
			case !ok:
				row = append(row, cellEmptyStyle.Render(""))
			case pos == m.Cursor:
				row = append(row, cellSelectedStyle.Render(strconv.Itoa(n)))
			default:
				row = append(row, cellStyle.Render(strconv.Itoa(n)))
			}
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, row...))
		b.WriteString("\n")
	}

	if len(m.unplaced) > 0 {
		b.WriteString(listDimStyle.Render(fmt.Sprintf("unplaced: %v", m.unplaced)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.details())
	return b.String()
}

// details describes the screen under the cursor and its connections.
func (m GridModel) details() string {
	n, ok := m.Selected()
	if !ok {
		return listDimStyle.Render(fmt.Sprintf("(%d,%d) empty", m.Cursor.X, m.Cursor.Y))
	}
	s, _ := m.Flow.Graph.Screen(n)

	var b strings.Builder
	b.WriteString(listSelectedStyle.Render(fmt.Sprintf("Screen %d", n)))
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  %s  (%d,%d)", s.Image, s.Pos.X, s.Pos.Y)))
	b.WriteString("\n")
	for _, c := range m.Flow.Graph.Connections() {
		if c.Out != n && c.In != n {
			continue
		}
		b.WriteString("  ")
		b.WriteString(listNormalStyle.Render(connectionLabel(c)))
		if src, dst, ok := m.Flow.Graph.Anchors(c); ok {
			b.WriteString(listDimStyle.Render(fmt.Sprintf("  %s → %s", src, dst)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// =============================================================================
// Helpers
// =============================================================================

// connectionLabel renders a connection as "1 → 2" or "1 ↔ 2".
func connectionLabel(c flow.Connection) string {
	arrow := "→"
	if c.Bidirectional {
		arrow = "↔"
	}
	return fmt.Sprintf("%d %s %d", c.Out, arrow, c.In)
}

func statusStyle(s flow.Status) lipgloss.Style {
	switch s {
	case flow.StatusSuccess:
		return StyleSuccess
	case flow.StatusFail:
		return styleIconError
	default:
		return StyleWarning
	}
}

func formatRelativeTime(t time.Time) string {
	diff := time.Since(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
