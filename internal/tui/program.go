package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"dronefleet/internal/store"
)

// teaProgram abstracts tea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// forward relays every store change to p until ctx is done or the
// subscription closes.
func forward(ctx context.Context, st *store.Store, p teaProgram) {
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
			p.Send(StateMsg{State: s})
		}
	}
}

// Run shows the watch view until the user quits or ctx is done.
func Run(ctx context.Context, st *store.Store, ctl DroneController, retry func(context.Context)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	p := tea.NewProgram(NewModel(ctl, retry), tea.WithAltScreen())
	go forward(ctx, st, p)
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}
