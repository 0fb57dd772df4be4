// Terminal watch view over the fleet store
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"dronefleet/internal/fleet"
	"dronefleet/internal/store"
)

// DroneController sends control actions. *command.Dispatcher satisfies it.
type DroneController interface {
	ControlDrone(ctx context.Context, id int, action string) error
}

// StateMsg carries a store snapshot into the program.
type StateMsg struct{ State store.State }

type commandDoneMsg struct {
	action string
	id     int
	err    error
}

type retryDoneMsg struct{}

const (
	lowBattery   = 20
	commandWait  = 15 * time.Second
	minTableRows = 3
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

var connectionColors = map[fleet.ConnectionStatus]lipgloss.Color{
	fleet.ConnConnected:    lipgloss.Color("10"),
	fleet.ConnConnecting:   lipgloss.Color("11"),
	fleet.ConnChecking:     lipgloss.Color("11"),
	fleet.ConnDisconnected: lipgloss.Color("9"),
	fleet.ConnError:        lipgloss.Color("9"),
}

// Model is the bubbletea model of the watch view.
type Model struct {
	table  table.Model
	state  store.State
	ctl    DroneController
	retry  func(context.Context)
	status string
	width  int
	height int
	help   bool
}

// NewModel builds the watch view. ctl and retry may be nil, which disables
// the matching key bindings.
func NewModel(ctl DroneController, retry func(context.Context)) Model {
	cols := []table.Column{
		{Title: "ID", Width: 4},
		{Title: "Name", Width: 14},
		{Title: "Status", Width: 15},
		{Title: "Batt", Width: 5},
		{Title: "Lat", Width: 10},
		{Title: "Lng", Width: 10},
		{Title: "Alt", Width: 7},
		{Title: "Spd", Width: 6},
		{Title: "Sig", Width: 4},
	}
	t := table.New(table.WithColumns(cols), table.WithFocused(true), table.WithHeight(minTableRows+1))
	return Model{table: t, state: store.Initial(), ctl: ctl, retry: retry}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.SetWidth(msg.Width)
		m.resizeTable()
		return m, nil
	case StateMsg:
		m.state = msg.State
		m.table.SetRows(droneRows(m.state.Drones))
		m.resizeTable()
		return m, nil
	case commandDoneMsg:
		if msg.err != nil {
			m.status = errorStyle.Render(fmt.Sprintf("%s drone %d failed: %v", msg.action, msg.id, msg.err))
		} else {
			m.status = successStyle.Render(fmt.Sprintf("%s sent to drone %d", msg.action, msg.id))
		}
		return m, nil
	case retryDoneMsg:
		m.status = infoStyle.Render("reload finished")
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "?":
			m.help = !m.help
			return m, nil
		case "r":
			if m.retry == nil {
				return m, nil
			}
			m.status = infoStyle.Render("reloading...")
			return m, m.retryCmd()
		case "h":
			return m.control(fleet.ActionReturnHome)
		case "x":
			return m.control(fleet.ActionEmergencyStop)
		case "s":
			return m.control(fleet.ActionStartMission)
		}
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) control(action string) (tea.Model, tea.Cmd) {
	if m.ctl == nil {
		return m, nil
	}
	id, ok := m.selectedDrone()
	if !ok {
		return m, nil
	}
	m.status = dimStyle.Render(fmt.Sprintf("sending %s to drone %d...", action, id))
	ctl := m.ctl
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandWait)
		defer cancel()
		return commandDoneMsg{action: action, id: id, err: ctl.ControlDrone(ctx, id, action)}
	}
}

func (m Model) retryCmd() tea.Cmd {
	retry := m.retry
	return func() tea.Msg {
		retry(context.Background())
		return retryDoneMsg{}
	}
}

func (m Model) selectedDrone() (int, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.state.Drones) {
		return 0, false
	}
	return m.state.Drones[i].ID, true
}

func (m *Model) resizeTable() {
	rows := len(m.state.Drones)
	if rows < minTableRows {
		rows = minTableRows
	}
	if m.height > 0 {
		// header, stats, missions and notifications take roughly half the screen
		if limit := m.height/2 - 1; limit >= minTableRows && rows > limit {
			rows = limit
		}
	}
	m.table.SetHeight(rows + 1)
}

func droneRows(drones []fleet.Drone) []table.Row {
	rows := make([]table.Row, 0, len(drones))
	for _, d := range drones {
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", d.ID),
			d.Name,
			string(d.Status),
			fmt.Sprintf("%d%%", d.Battery),
			fmt.Sprintf("%.5f", d.Lat),
			fmt.Sprintf("%.5f", d.Lng),
			fmt.Sprintf("%.1f", d.Altitude),
			fmt.Sprintf("%.1f", d.Speed),
			fmt.Sprintf("%d", d.Signal),
		})
	}
	return rows
}

func severityStyle(s fleet.Severity) lipgloss.Style {
	switch s {
	case fleet.SeverityError, fleet.SeverityCritical:
		return errorStyle
	case fleet.SeverityWarning:
		return warnStyle
	case fleet.SeveritySuccess:
		return successStyle
	default:
		return infoStyle
	}
}

func (m Model) renderHeader() string {
	s := m.state
	color, ok := connectionColors[s.Connection]
	if !ok {
		color = lipgloss.Color("8")
	}
	dot := lipgloss.NewStyle().Foreground(color).Render("●")
	parts := []string{titleStyle.Render("Fleet"), dot + " " + string(s.Connection)}
	if s.Loading {
		parts = append(parts, warnStyle.Render("loading"))
	}
	if s.User != nil {
		parts = append(parts, dimStyle.Render("user="+s.User.Username))
	}
	header := strings.Join(parts, "  ")
	if s.Error != "" {
		header += "\n" + errorStyle.Render(s.Error)
	}
	return header
}

func (m Model) renderStats() string {
	online, low := 0, 0
	for _, d := range m.state.Drones {
		if d.Status == fleet.StatusOnline {
			online++
		}
		if d.Battery < lowBattery {
			low++
		}
	}
	unread := 0
	for _, a := range m.state.Alerts {
		if !a.Read {
			unread++
		}
	}
	lowText := fmt.Sprintf("low battery %d", low)
	if low > 0 {
		lowText = warnStyle.Render(lowText)
	}
	return fmt.Sprintf("drones %d  online %d  %s  missions %d  unread alerts %d  uptime %s",
		len(m.state.Drones), online, lowText, len(m.state.Missions), unread, orDash(m.state.Performance.Uptime))
}

func (m Model) renderMissions() string {
	if len(m.state.Missions) == 0 {
		return dimStyle.Render("no missions")
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Missions"))
	for _, ms := range m.state.Missions {
		fmt.Fprintf(&b, "\n  #%d %s  drone=%d  %s  %d%%  %s", ms.ID, ms.Name, ms.DroneID, ms.Status, ms.Progress, ms.Priority)
	}
	return b.String()
}

func (m Model) renderNotifications() string {
	if len(m.state.Notifications) == 0 {
		return ""
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	var lines []string
	lines = append(lines, titleStyle.Render("Notifications"))
	for _, n := range m.state.Notifications {
		line := fmt.Sprintf("%s %s", n.Timestamp.Format("15:04:05"), n.Message)
		lines = append(lines, severityStyle(n.Type).Render(wordwrap.String(line, width-2)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderHelp() string {
	if !m.help {
		return dimStyle.Render("↑/↓ select  h home  x stop  s start  r reload  ? help  q quit")
	}
	return strings.Join([]string{
		"↑/↓, j/k   select drone",
		"h          return selected drone home",
		"x          emergency stop selected drone",
		"s          start mission on selected drone",
		"r          reload all data",
		"?          toggle help",
		"q          quit",
	}, "\n")
}

func (m Model) View() string {
	sections := []string{
		m.renderHeader(),
		m.renderStats(),
		m.table.View(),
		m.renderMissions(),
	}
	if n := m.renderNotifications(); n != "" {
		sections = append(sections, n)
	}
	if m.status != "" {
		sections = append(sections, m.status)
	}
	sections = append(sections, m.renderHelp())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
