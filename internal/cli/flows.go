package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/screenflow/screenflow/pkg/flow"
	"github.com/screenflow/screenflow/pkg/graph"
	"github.com/screenflow/screenflow/pkg/store"
)

// =============================================================================
// layout
// =============================================================================

// layoutCommand creates the layout command that recomputes a flow's grid.
func (c *CLI) layoutCommand() *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "layout [flow-id]",
		Short: "Recompute the grid layout of a stored flow",
		Long: `Recompute the grid layout of a stored flow from its connections.

Screens are placed depth-first starting from the best connected screen. Manual
moves are discarded. Layouts are cached by the shape of the graph.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args[0], noCache)
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	return cmd
}

func (c *CLI) runLayout(ctx context.Context, id string, noCache bool) error {
	s, err := c.newSession(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer s.Close()

	spinner := newSpinnerWithContext(ctx, "Computing layout...")
	spinner.Start()

	f, hit, err := s.Relayout(ctx, id)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return err
	}
	spinner.Stop()

	printSuccess("Layout complete")
	printStats(f.Graph.ScreenCount(), f.Graph.ConnectionCount(), hit)
	printNewline()
	printNextStep("Browse", fmt.Sprintf("%s view %s", appName, id))
	return nil
}

// =============================================================================
// move
// =============================================================================

// moveCommand creates the move command that places one screen by hand.
func (c *CLI) moveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "move [flow-id] [screen] [x] [y]",
		Short: "Move a screen to a grid cell",
		Long: `Move a screen of a stored flow to grid cell (x, y).

The move is refused when another screen already occupies the cell. Anchors of
the screen's connections follow the new position.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			nums := make([]int, 3)
			for i, a := range args[1:] {
				n, err := strconv.Atoi(a)
				if err != nil {
					return fmt.Errorf("argument %q is not a number", a)
				}
				nums[i] = n
			}
			return c.runMove(cmd.Context(), args[0], nums[0], flow.Position{X: nums[1], Y: nums[2]})
		},
	}
}

func (c *CLI) runMove(ctx context.Context, id string, screen int, pos flow.Position) error {
	s, err := c.newSession(ctx, false)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer s.Close()

	f, err := s.Move(ctx, id, screen, pos)
	if err != nil {
		return err
	}
	printSuccess("Moved screen %d to (%d,%d)", screen, pos.X, pos.Y)
	for _, conn := range f.Graph.Connections() {
		if conn.Out != screen && conn.In != screen {
			continue
		}
		src, dst, _ := f.Graph.Anchors(conn)
		printDetail("%s  %s → %s", connectionLabel(conn), src, dst)
	}
	return nil
}

// =============================================================================
// show
// =============================================================================

// showCommand creates the show command that prints a flow as tables.
func (c *CLI) showCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [flow-id]",
		Short: "Print the screens and connections of a flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := c.newSession(ctx, false)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer s.Close()

			f, err := s.Store.Load(ctx, args[0])
			if err != nil {
				return err
			}
			printFlow(f)
			return nil
		},
	}
}

// printFlow prints the flow header, a screen table and a connection table.
func printFlow(f *flow.Flow) {
	fmt.Fprintln(stdout, StyleTitle.Render(f.Title)+" "+statusStyle(f.Status).Render(string(f.Status)))
	if f.Description != "" {
		printDetail("%s", f.Description)
	}
	printKeyValue("Flow", f.ID)
	printKeyValue("Created", f.CreatedAt.Format("2006-01-02 15:04:05"))
	printKeyValue("Frame", fmt.Sprintf("%dx%d", f.Frame.Width, f.Frame.Height))
	printNewline()

	g := f.Graph
	screens := make([][]string, 0, g.ScreenCount())
	for _, s := range g.Screens() {
		pos := "-"
		if s.Placed {
			pos = fmt.Sprintf("(%d,%d)", s.Pos.X, s.Pos.Y)
		}
		screens = append(screens, []string{
			strconv.Itoa(s.Number),
			string(s.Image),
			pos,
			fmt.Sprint(g.ConnectedScreens(s.Number)),
		})
	}
	fmt.Fprintln(stdout, newTable("Screen", "Image", "Cell", "Connected").Rows(screens...).Render())

	conns := make([][]string, 0, g.ConnectionCount())
	for _, conn := range g.Connections() {
		src, dst, _ := g.Anchors(conn)
		conns = append(conns, []string{connectionLabel(conn), string(src), string(dst)})
	}
	if len(conns) > 0 {
		fmt.Fprintln(stdout, newTable("Connection", "From", "To").Rows(conns...).Render())
	}
}

// newTable returns a table with the CLI's border and header styling.
func newTable(headers ...string) *table.Table {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle.Padding(0, 1)
			}
			return cell
		})
}

// =============================================================================
// view
// =============================================================================

// viewCommand creates the interactive grid browser.
func (c *CLI) viewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "view [flow-id]",
		Short: "Browse a flow's grid interactively",
		Long: `Browse a flow's grid interactively.

Without a flow ID a list of stored flows is shown first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := c.newSession(ctx, false)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer s.Close()

			var id string
			if len(args) == 1 {
				id = args[0]
			} else {
				id, err = pickFlow(ctx, s.Store)
				if err != nil || id == "" {
					return err
				}
			}

			f, err := s.Store.Load(ctx, id)
			if err != nil {
				return err
			}
			_, err = tea.NewProgram(NewGridModel(f), tea.WithContext(ctx)).Run()
			return err
		},
	}
}

// pickFlow shows the flow list and returns the chosen ID, or "" when the
// user quits.
func pickFlow(ctx context.Context, st store.Store) (string, error) {
	flows, err := st.List(ctx, store.Filter{})
	if err != nil {
		return "", err
	}
	if len(flows) == 0 {
		printInfo("No flows stored")
		return "", nil
	}
	final, err := tea.NewProgram(NewFlowListModel(flows), tea.WithContext(ctx)).Run()
	if err != nil {
		return "", err
	}
	m, ok := final.(FlowListModel)
	if !ok || m.Selected == nil {
		return "", nil
	}
	return m.Selected.ID, nil
}

// =============================================================================
// flows
// =============================================================================

// flowsCommand creates the flows management command.
func (c *CLI) flowsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flows",
		Short: "List and delete stored flows",
	}
	cmd.AddCommand(c.flowsListCommand())
	cmd.AddCommand(c.flowsDeleteCommand())
	return cmd
}

func (c *CLI) flowsListCommand() *cobra.Command {
	var (
		filter store.Filter
		status string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored flows, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter.Status = flow.Status(status)
			if status != "" && !filter.Status.Valid() {
				return fmt.Errorf("invalid status %q (must be pending, success or fail)", status)
			}
			ctx := cmd.Context()
			s, err := c.newSession(ctx, false)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer s.Close()

			flows, err := s.Store.List(ctx, filter)
			if err != nil {
				return err
			}
			if len(flows) == 0 {
				printInfo("No flows stored")
				return nil
			}
			rows := make([][]string, 0, len(flows))
			for _, f := range flows {
				rows = append(rows, []string{
					f.ID, f.Title, string(f.Status),
					strconv.Itoa(f.Screens), strconv.Itoa(f.Connections),
					formatRelativeTime(f.CreatedAt),
				})
			}
			fmt.Fprintln(stdout, newTable("ID", "Title", "Status", "Screens", "Links", "Created").Rows(rows...).Render())
			return nil
		},
	}
	cmd.Flags().StringVar(&filter.Title, "title", "", "only flows with this title")
	cmd.Flags().StringVar(&status, "status", "", "only flows with this status")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "maximum number of flows")
	cmd.Flags().IntVar(&filter.Offset, "offset", 0, "number of flows to skip")
	return cmd
}

func (c *CLI) flowsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [flow-id]...",
		Short: "Delete stored flows",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := c.newSession(ctx, false)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer s.Close()

			for _, id := range args {
				if err := s.Store.Delete(ctx, id); err != nil {
					return err
				}
				printSuccess("Deleted %s", id)
			}
			return nil
		},
	}
}

// =============================================================================
// import
// =============================================================================

// importCommand creates the import command that stores a flow document.
func (c *CLI) importCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Store a flow document written by 'render -f json' or '-f yaml'",
		Long: `Store a flow document.

Connections listed twice for the same pair of screens are merged. A document
without an ID is stored as a new flow; one whose ID exists replaces it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			s, err := c.newSession(ctx, false)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer s.Close()

			f, err := s.Import(ctx, file, graph.FormatFromPath(args[0]))
			if err != nil {
				return err
			}
			printSuccess("Imported %s", StyleHighlight.Render(f.Title))
			printKeyValue("Flow", f.ID)
			printStats(f.Graph.ScreenCount(), f.Graph.ConnectionCount(), false)
			return nil
		},
	}
}
