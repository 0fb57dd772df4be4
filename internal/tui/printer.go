package tui

import (
	"context"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"
	"time"

	"dronefleet/internal/fleet"
	"dronefleet/internal/store"
)

const (
	colorReset  = "\x1b[0m"
	colorRed    = "\x1b[31m"
	colorGreen  = "\x1b[32m"
	colorYellow = "\x1b[33m"
	colorCyan   = "\x1b[36m"
	colorGray   = "\x1b[90m"
)

// Printer writes store changes as log lines. It is used when stdout is not
// a terminal and by the replay command.
type Printer struct {
	out   io.Writer
	color bool

	conn      fleet.ConnectionStatus
	errMsg    string
	seen      map[string]struct{}
	lastFleet []fleet.Drone
}

// NewPrinter creates a Printer. color enables ANSI colors.
func NewPrinter(out io.Writer, color bool) *Printer {
	return &Printer{out: out, color: color, seen: make(map[string]struct{})}
}

func (p *Printer) paint(c, s string) string {
	if !p.color {
		return s
	}
	return c + s + colorReset
}

func (p *Printer) stamp() string {
	return p.paint(colorGray, "["+time.Now().Format(time.RFC3339)+"]")
}

// Print reports what changed between the previous state and s.
func (p *Printer) Print(s store.State) {
	if s.Connection != p.conn {
		p.conn = s.Connection
		c := colorYellow
		switch s.Connection {
		case fleet.ConnConnected:
			c = colorGreen
		case fleet.ConnError, fleet.ConnDisconnected:
			c = colorRed
		}
		fmt.Fprintf(p.out, "%s feed %s\n", p.stamp(), p.paint(c, string(s.Connection)))
	}
	if s.Error != p.errMsg {
		p.errMsg = s.Error
		if s.Error != "" {
			fmt.Fprintf(p.out, "%s %s\n", p.stamp(), p.paint(colorRed, "error: "+s.Error))
		}
	}
	if !slices.Equal(s.Drones, p.lastFleet) {
		p.lastFleet = s.Drones
		online, low := 0, 0
		for _, d := range s.Drones {
			if d.Status == fleet.StatusOnline {
				online++
			}
			if d.Battery < lowBattery {
				low++
			}
		}
		fmt.Fprintf(p.out, "%s drones=%d online=%d low_battery=%d missions=%d\n",
			p.stamp(), len(s.Drones), online, low, len(s.Missions))
	}
	p.PrintNotifications(s)
}

// PrintNotifications writes the notifications of s not printed before,
// oldest first.
func (p *Printer) PrintNotifications(s store.State) {
	for i := len(s.Notifications) - 1; i >= 0; i-- {
		n := s.Notifications[i]
		if _, ok := p.seen[n.ID]; ok {
			continue
		}
		p.seen[n.ID] = struct{}{}
		fmt.Fprintf(p.out, "%s %s %s\n", p.stamp(), p.paint(severityColor(n.Type), string(n.Type)), n.Message)
	}
}

// Run prints every store change until ctx is done.
func (p *Printer) Run(ctx context.Context, st *store.Store) {
	ch, cancel := st.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-ch:
			if !ok {
				return
			}
			p.Print(s)
		}
	}
}

func severityColor(s fleet.Severity) string {
	switch s {
	case fleet.SeverityError, fleet.SeverityCritical:
		return colorRed
	case fleet.SeverityWarning:
		return colorYellow
	case fleet.SeveritySuccess:
		return colorGreen
	default:
		return colorCyan
	}
}

// PrintDrones writes drones as an aligned table.
func PrintDrones(out io.Writer, drones []fleet.Drone) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tBATTERY\tLAT\tLNG\tALT\tSPEED\tTEMP\tSIGNAL")
	for _, d := range drones {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d%%\t%.5f\t%.5f\t%.1f\t%.1f\t%d\t%d\n",
			d.ID, d.Name, d.Status, d.Battery, d.Lat, d.Lng, d.Altitude, d.Speed, d.Temperature, d.Signal)
	}
	tw.Flush()
}

// PrintMissions writes missions as an aligned table.
func PrintMissions(out io.Writer, missions []fleet.Mission) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDRONE\tSTATUS\tPROGRESS\tPRIORITY")
	for _, m := range missions {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%d%%\t%s\n", m.ID, m.Name, m.DroneID, m.Status, m.Progress, m.Priority)
	}
	tw.Flush()
}

// PrintAlerts writes alerts as an aligned table.
func PrintAlerts(out io.Writer, alerts []fleet.Alert) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tDRONE\tREAD\tTIME\tMESSAGE")
	for _, a := range alerts {
		drone := "-"
		if a.DroneID != 0 {
			drone = fmt.Sprintf("%d", a.DroneID)
		}
		when := "-"
		if !a.Time.IsZero() {
			when = a.Time.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%s\t%s\n", a.ID, a.Type, drone, a.Read, when, a.Message)
	}
	tw.Flush()
}
