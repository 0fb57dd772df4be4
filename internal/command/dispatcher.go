// Operator commands over the push feed and the durable request channel
package command

import (
	"context"
	"fmt"
	"log/slog"

	"dronefleet/internal/api"
	"dronefleet/internal/fleet"
	"dronefleet/internal/metrics"
	"dronefleet/internal/notify"
	"dronefleet/internal/store"
)

// Command kinds used for logging and metrics.
const (
	KindControlDrone   = "control_drone"
	KindControlMission = "control_mission"
	KindCreateMission  = "create_mission"
	KindMarkAlertRead  = "mark_alert_read"
	KindAuthenticate   = "authenticate"
)

// Auth modes accepted by Authenticate.
const (
	ModeLogin    = "login"
	ModeRegister = "register"
)

// Backend is the durable request surface used by the dispatcher.
// *api.Client satisfies it.
type Backend interface {
	ControlDrone(ctx context.Context, id int, action string) error
	ControlMission(ctx context.Context, id int, action string) error
	CreateMission(ctx context.Context, req api.MissionRequest) (fleet.Mission, error)
	MarkAlertRead(ctx context.Context, id int) error
	Login(ctx context.Context, creds api.Credentials) (string, error)
	Register(ctx context.Context, creds api.Credentials) error
}

// Dispatcher sends operator commands. Control commands go over the push
// feed when it is open and always over the durable channel. Commands are
// not deduplicated; the server may apply one twice.
type Dispatcher struct {
	backend  Backend
	store    *store.Store
	notifier *notify.Notifier
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// New creates a Dispatcher. log and m may be nil.
func New(b Backend, s *store.Store, n *notify.Notifier, log *slog.Logger, m *metrics.Metrics) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{backend: b, store: s, notifier: n, log: log, metrics: m}
}

// push sends msg on the feed handle when the store reports an open
// connection. Failures are logged only.
func (d *Dispatcher) push(kind string, msg any) {
	s := d.store.Snapshot()
	if !s.Connected() {
		d.log.Debug("feed not connected, skipping push", "kind", kind, "status", s.Connection)
		return
	}
	err := s.Handle.Send(msg)
	d.metrics.Command(kind, "push", err)
	if err != nil {
		d.log.Warn("push failed", "kind", kind, "err", err)
	}
}

// ControlDrone applies action to a drone.
func (d *Dispatcher) ControlDrone(ctx context.Context, id int, action string) error {
	d.push(KindControlDrone, fleet.ControlDrone{Type: fleet.MsgControlDrone, DroneID: id, Action: action})
	err := d.backend.ControlDrone(ctx, id, action)
	d.metrics.Command(KindControlDrone, "durable", err)
	if err != nil {
		d.log.Error("drone command failed", "drone_id", id, "action", action, "err", err)
		d.notifier.Notify(fleet.SeverityError, fmt.Sprintf("Failed to send command: %v", err))
		return fmt.Errorf("control drone %d: %w", id, err)
	}
	d.log.Info("drone command sent", "drone_id", id, "action", action)
	d.notifier.Notify(fleet.SeveritySuccess, fmt.Sprintf("Drone command sent: %s", action))
	return nil
}

// ControlMission applies action to a mission.
func (d *Dispatcher) ControlMission(ctx context.Context, id int, action string) error {
	d.push(KindControlMission, fleet.ControlMission{Type: fleet.MsgControlMission, MissionID: id, Action: action})
	err := d.backend.ControlMission(ctx, id, action)
	d.metrics.Command(KindControlMission, "durable", err)
	if err != nil {
		d.log.Error("mission command failed", "mission_id", id, "action", action, "err", err)
		d.notifier.Notify(fleet.SeverityError, fmt.Sprintf("Failed to %s mission: %v", action, err))
		return fmt.Errorf("control mission %d: %w", id, err)
	}
	d.log.Info("mission command sent", "mission_id", id, "action", action)
	d.notifier.Notify(fleet.SeveritySuccess, fmt.Sprintf("Mission %sd successfully", action))
	return nil
}

// CreateMission creates a mission and appends the server's copy to the store.
func (d *Dispatcher) CreateMission(ctx context.Context, req api.MissionRequest) (fleet.Mission, error) {
	m, err := d.backend.CreateMission(ctx, req)
	d.metrics.Command(KindCreateMission, "durable", err)
	if err != nil {
		d.log.Error("create mission failed", "name", req.Name, "err", err)
		d.notifier.Notify(fleet.SeverityError, fmt.Sprintf("Failed to create mission: %v", err))
		return fleet.Mission{}, fmt.Errorf("create mission: %w", err)
	}
	d.store.Update(func(s store.State) store.Action {
		missions := make([]fleet.Mission, 0, len(s.Missions)+1)
		missions = append(missions, s.Missions...)
		return store.SetMissions{Missions: append(missions, m)}
	})
	d.log.Info("mission created", "mission_id", m.ID, "name", m.Name)
	d.notifier.Notify(fleet.SeveritySuccess, fmt.Sprintf("Mission \"%s\" created successfully", req.Name))
	return m, nil
}

// MarkAlertRead marks an alert read on the server, then locally.
func (d *Dispatcher) MarkAlertRead(ctx context.Context, id int) error {
	err := d.backend.MarkAlertRead(ctx, id)
	d.metrics.Command(KindMarkAlertRead, "durable", err)
	if err != nil {
		d.log.Error("mark alert read failed", "alert_id", id, "err", err)
		return fmt.Errorf("mark alert %d read: %w", id, err)
	}
	d.store.Dispatch(store.MarkAlertRead{ID: id})
	return nil
}

// Authenticate logs in or registers. A login records the operator in the store.
func (d *Dispatcher) Authenticate(ctx context.Context, mode, username, password string) error {
	creds := api.Credentials{Username: username, Password: password}
	var (
		token string
		err   error
	)
	switch mode {
	case ModeLogin:
		token, err = d.backend.Login(ctx, creds)
	case ModeRegister:
		err = d.backend.Register(ctx, creds)
	default:
		return fmt.Errorf("unknown auth mode %q", mode)
	}
	d.metrics.Command(KindAuthenticate, "durable", err)
	if err != nil {
		d.log.Warn("authentication failed", "mode", mode, "username", username, "err", err)
		return fmt.Errorf("%s: %w", mode, err)
	}
	if mode == ModeLogin {
		d.store.Dispatch(store.SetUser{User: &fleet.User{Username: username, Token: token}})
	}
	d.log.Info("authenticated", "mode", mode, "username", username)
	return nil
}
