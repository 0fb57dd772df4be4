package store

import "dronefleet/internal/fleet"

// Action is one of the closed set of state transitions below.
// The unexported marker keeps the set closed to this package.
type Action interface {
	action()
}

// SetLoading toggles the global loading flag.
type SetLoading struct{ Loading bool }

// SetError fills the single error slot. An empty message clears it.
type SetError struct{ Message string }

// SetDrones replaces the fleet with the bootstrap read.
type SetDrones struct{ Drones []fleet.Drone }

// UpdateDrones replaces the fleet with a live batch.
type UpdateDrones struct{ Drones []fleet.Drone }

// SetMissions replaces the mission collection.
type SetMissions struct{ Missions []fleet.Mission }

// UpdateMissions replaces the mission collection with a live batch.
type UpdateMissions struct{ Missions []fleet.Mission }

// SetAlerts replaces the alert collection.
type SetAlerts struct{ Alerts []fleet.Alert }

// AddAlert prepends one alert.
type AddAlert struct{ Alert fleet.Alert }

// MarkAlertRead flags the alert with the given ID as read.
type MarkAlertRead struct{ ID int }

// SetPerformance replaces the performance block.
type SetPerformance struct{ Performance fleet.Performance }

// SetAnalytics replaces the analytics block.
type SetAnalytics struct{ Analytics fleet.Analytics }

// SetDashboardStats replaces the dashboard aggregate.
type SetDashboardStats struct{ Stats fleet.DashboardStats }

// SetUser records the authenticated operator. Nil logs out.
type SetUser struct{ User *fleet.User }

// SetConnectionStatus records the feed's visible status.
type SetConnectionStatus struct{ Status fleet.ConnectionStatus }

// SetConnectionHandle publishes or withdraws the send-only feed handle.
type SetConnectionHandle struct{ Handle Handle }

// AddNotification prepends a notification, keeping at most fleet.MaxNotifications.
type AddNotification struct{ Notification fleet.Notification }

func (SetLoading) action()          {}
func (SetError) action()            {}
func (SetDrones) action()           {}
func (UpdateDrones) action()        {}
func (SetMissions) action()         {}
func (UpdateMissions) action()      {}
func (SetAlerts) action()           {}
func (AddAlert) action()            {}
func (MarkAlertRead) action()       {}
func (SetPerformance) action()      {}
func (SetAnalytics) action()        {}
func (SetDashboardStats) action()   {}
func (SetUser) action()             {}
func (SetConnectionStatus) action() {}
func (SetConnectionHandle) action() {}
func (AddNotification) action()     {}
