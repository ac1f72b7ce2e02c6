package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"

	"kilometers.ai/standin/internal/application/services"
	"kilometers.ai/standin/internal/core/component"
	"kilometers.ai/standin/internal/core/launch"
	"kilometers.ai/standin/internal/core/redirect"
)

// DashboardFlags holds command-line flags for the dashboard command
type DashboardFlags struct {
	RefreshRate   time.Duration
	ShadowedOnly  bool
	PreviewAction string
}

// NewDashboardCommand creates the dashboard command
func NewDashboardCommand(container *CLIContainer) *cobra.Command {
	flags := &DashboardFlags{}

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Interactive terminal view of bindings",
		Long: `Launch an interactive terminal dashboard listing every bound plugin component.

The selected row shows the launch request a plain launch of that class name
would be rewritten to.

Examples:
  standin dashboard -m plugins/
  standin dashboard --shadowed   # only components hidden by a later plugin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.RefreshRate <= 0 {
				return fmt.Errorf("--refresh must be positive, got %v", flags.RefreshRate)
			}
			service, err := container.App.RedirectService(cmd.Context())
			if err != nil {
				return err
			}

			program := tea.NewProgram(newDashboardModel(service, flags), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			if _, err := program.Run(); err != nil {
				return fmt.Errorf("dashboard failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&flags.RefreshRate, "refresh", time.Second, "Refresh rate for live updates")
	cmd.Flags().BoolVar(&flags.ShadowedOnly, "shadowed", false, "Only show shadowed components")
	cmd.Flags().StringVar(&flags.PreviewAction, "action", "", "Action set on previewed requests")

	return cmd
}

// dashboardModel holds the state for the Bubble Tea dashboard
type dashboardModel struct {
	service      *services.RedirectService
	flags        *DashboardFlags
	rows         []redirect.Binding
	selectedRow  int
	preview      string
	paused       bool
	lastUpdate   time.Time
	windowWidth  int
	windowHeight int
}

func newDashboardModel(service *services.RedirectService, flags *DashboardFlags) dashboardModel {
	return dashboardModel{
		service:    service,
		flags:      flags,
		lastUpdate: time.Now(),
	}
}

// Init implements the Bubble Tea init method
func (m dashboardModel) Init() tea.Cmd {
	return tea.Batch(m.tickCmd(), m.loadBindingsCmd())
}

// Update implements the Bubble Tea update method
func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
			return m, nil
		case "up", "k":
			if m.selectedRow > 0 {
				m.selectedRow--
				m.preview = m.previewSelected()
			}
			return m, nil
		case "down", "j":
			if m.selectedRow < len(m.rows)-1 {
				m.selectedRow++
				m.preview = m.previewSelected()
			}
			return m, nil
		case "s":
			m.flags.ShadowedOnly = !m.flags.ShadowedOnly
			return m, m.loadBindingsCmd()
		case "r":
			return m, m.loadBindingsCmd()
		}

	case tickMsg:
		if m.paused {
			return m, m.tickCmd()
		}
		return m, tea.Batch(m.tickCmd(), m.loadBindingsCmd())

	case bindingsLoadedMsg:
		m.rows = msg.bindings
		if m.selectedRow >= len(m.rows) {
			m.selectedRow = max(len(m.rows)-1, 0)
		}
		m.preview = m.previewSelected()
		m.lastUpdate = time.Now()
		return m, nil
	}

	return m, nil
}

// View implements the Bubble Tea view method
func (m dashboardModel) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderTable(),
		m.renderPreview(),
		m.renderFooter(),
	)
}

func (m dashboardModel) renderHeader() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86")).
		Render("standin bindings")

	status := "LIVE"
	statusStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
	if m.paused {
		status = "PAUSED"
		statusStyle = statusStyle.Foreground(lipgloss.Color("196"))
	}

	filter := "all"
	if m.flags.ShadowedOnly {
		filter = "shadowed"
	}

	line1 := lipgloss.JoinHorizontal(lipgloss.Left,
		title, "  ",
		fmt.Sprintf("Components: %d | Showing: %s", len(m.rows), filter), "  ",
		statusStyle.Render(status),
	)
	line2 := fmt.Sprintf("Last Update: %s | Refresh Rate: %v", m.lastUpdate.Format("15:04:05"), m.flags.RefreshRate)
	return lipgloss.JoinVertical(lipgloss.Left, line1, line2, "")
}

func (m dashboardModel) renderTable() string {
	if len(m.rows) == 0 {
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Render("\n  No plugin components. Load manifests with --manifest.\n")
	}

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86")).
		Render(fmt.Sprintf("%-40s │ %-40s │ %-10s", "LOGICAL", "PLACEHOLDER", "CATEGORY"))
	rows := []string{header}

	start, end := m.visibleRange()
	for i := start; i < end; i++ {
		b := m.rows[i]
		style := lipgloss.NewStyle()
		if !b.Reachable {
			style = style.Foreground(lipgloss.Color("240"))
		}
		if i == m.selectedRow {
			style = style.Background(lipgloss.Color("238"))
		}
		rows = append(rows, style.Render(strings.Join([]string{
			fitCell(b.Logical.String(), 40),
			fitCell(b.Physical.String(), 40),
			fitCell(b.Descriptor.EffectiveCategory(), 10),
		}, " │ ")))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// visibleRange keeps the selected row on screen
func (m dashboardModel) visibleRange() (int, int) {
	maxRows := m.windowHeight - 16
	if maxRows <= 0 || maxRows >= len(m.rows) {
		return 0, len(m.rows)
	}
	start := 0
	if m.selectedRow >= maxRows {
		start = m.selectedRow - maxRows + 1
	}
	return start, start + maxRows
}

func (m dashboardModel) renderPreview() string {
	if m.preview == "" {
		return ""
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1).
		Render(m.preview)
}

// previewSelected converts a plain launch of the selected class name. It is
// called when the rows or the selection change, not on every frame.
func (m dashboardModel) previewSelected() string {
	if len(m.rows) == 0 {
		return ""
	}
	b := m.rows[m.selectedRow]
	req := launch.NewRequest(component.ClassOnly(b.Logical.ClassName))
	req.Action = m.flags.PreviewAction

	conversion := m.service.Convert(req)
	if !conversion.Handled {
		return "not handled"
	}

	var lines []string
	if !b.Reachable {
		lines = append(lines, fmt.Sprintf("%s is shadowed; %s resolves to %s",
			b.Logical, b.Logical.ClassName, conversion.Logical))
	}
	data, err := json.MarshalIndent(conversion.Request, "", "  ")
	if err != nil {
		return err.Error()
	}
	lines = append(lines, string(data))
	return strings.Join(lines, "\n")
}

func (m dashboardModel) renderFooter() string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")).
		Render("Controls: [Space] Pause/Resume | [↑↓] Navigate | [s] Shadowed only | [r] Refresh | [q] Quit")
}

// tickMsg is sent every refresh interval
type tickMsg time.Time

func (m dashboardModel) tickCmd() tea.Cmd {
	return tea.Tick(m.flags.RefreshRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// bindingsLoadedMsg is sent when bindings are loaded
type bindingsLoadedMsg struct {
	bindings []redirect.Binding
}

func (m dashboardModel) loadBindingsCmd() tea.Cmd {
	shadowedOnly := m.flags.ShadowedOnly
	return func() tea.Msg {
		all := m.service.Bindings()
		if !shadowedOnly {
			return bindingsLoadedMsg{bindings: all}
		}
		var shadowed []redirect.Binding
		for _, b := range all {
			if !b.Reachable {
				shadowed = append(shadowed, b)
			}
		}
		return bindingsLoadedMsg{bindings: shadowed}
	}
}

// fitCell truncates s to width terminal cells and pads it to exactly width
func fitCell(s string, width int) string {
	s = ansi.Truncate(s, width, "...")
	if pad := width - ansi.StringWidth(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}
