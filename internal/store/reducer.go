package store

import (
	"slices"

	"dronefleet/internal/fleet"
)

// Handle is the send-only view of the live feed connection. Holders may
// send on it but never close or replace it.
type Handle interface {
	Send(v any) error
}

// State is the client's entire view of the fleet. Values returned by the
// Store are snapshots: slices are never mutated after publication.
type State struct {
	Drones         []fleet.Drone
	Missions       []fleet.Mission
	Alerts         []fleet.Alert
	Performance    fleet.Performance
	Analytics      fleet.Analytics
	DashboardStats fleet.DashboardStats
	User           *fleet.User
	Connection     fleet.ConnectionStatus
	Handle         Handle
	Notifications  []fleet.Notification
	Loading        bool
	Error          string
}

// Initial returns the state before any read has completed.
func Initial() State {
	return State{
		Connection: fleet.ConnChecking,
		Loading:    true,
	}
}

// Connected reports whether the feed is open and a handle has been published.
func (s State) Connected() bool {
	return s.Connection == fleet.ConnConnected && s.Handle != nil
}

// Reduce computes the next state. It performs no I/O and never fails:
// actions it does not know leave the state unchanged.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetLoading:
		s.Loading = a.Loading
	case SetError:
		s.Error = a.Message
	case SetDrones:
		s.Drones = slices.Clone(a.Drones)
	case UpdateDrones:
		s.Drones = slices.Clone(a.Drones)
	case SetMissions:
		s.Missions = slices.Clone(a.Missions)
	case UpdateMissions:
		s.Missions = slices.Clone(a.Missions)
	case SetAlerts:
		s.Alerts = slices.Clone(a.Alerts)
	case AddAlert:
		alerts := make([]fleet.Alert, 0, len(s.Alerts)+1)
		alerts = append(alerts, a.Alert)
		s.Alerts = append(alerts, s.Alerts...)
	case MarkAlertRead:
		alerts := slices.Clone(s.Alerts)
		for i := range alerts {
			if alerts[i].ID == a.ID {
				alerts[i].Read = true
			}
		}
		s.Alerts = alerts
	case SetPerformance:
		s.Performance = a.Performance
	case SetAnalytics:
		s.Analytics = a.Analytics
	case SetDashboardStats:
		s.DashboardStats = a.Stats
	case SetUser:
		s.User = a.User
	case SetConnectionStatus:
		s.Connection = a.Status
	case SetConnectionHandle:
		s.Handle = a.Handle
	case AddNotification:
		n := min(len(s.Notifications)+1, fleet.MaxNotifications)
		notes := make([]fleet.Notification, 0, n)
		notes = append(notes, a.Notification)
		notes = append(notes, s.Notifications[:n-1]...)
		s.Notifications = notes
	default:
	}
	return s
}
