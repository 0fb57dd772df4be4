package fleet

import "time"

// Push-feed message tags.
const (
	MsgLiveUpdate      = "live_update"
	MsgClientConnected = "client_connected"
	MsgControlDrone    = "control_drone"
	MsgControlMission  = "control_mission"
)

// Envelope carries only the tag of an inbound feed message.
type Envelope struct {
	Type string `json:"type"`
}

// LiveUpdate is the server's periodic full-state batch.
type LiveUpdate struct {
	Type      string    `json:"type"`
	Drones    []Drone   `json:"drones"`
	Missions  []Mission `json:"missions"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// ClientConnected is the handshake sent once per opened connection.
type ClientConnected struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ControlDrone asks the server to apply an action to a drone.
type ControlDrone struct {
	Type    string `json:"type"`
	DroneID int    `json:"drone_id"`
	Action  string `json:"action"`
}

// ControlMission asks the server to apply an action to a mission.
type ControlMission struct {
	Type      string `json:"type"`
	MissionID int    `json:"mission_id"`
	Action    string `json:"action"`
}

// Drone actions understood by the backend.
const (
	ActionReturnHome    = "return_home"
	ActionEmergencyStop = "emergency_stop"
	ActionStartMission  = "start_mission"
)

// Mission actions understood by the backend.
const (
	ActionPause  = "pause"
	ActionResume = "resume"
	ActionCancel = "cancel"
)
