// Fleet, mission and alert records as served by the fleet backend
package fleet

import "time"

// DroneStatus is the operational state reported for a drone.
type DroneStatus string

// Drone status constants.
const (
	StatusOnline        DroneStatus = "online"
	StatusOffline       DroneStatus = "offline"
	StatusLowBattery    DroneStatus = "low_battery"
	StatusMaintenance   DroneStatus = "maintenance"
	StatusReturningHome DroneStatus = "returning_home"
	StatusEmergencyStop DroneStatus = "emergency_stop"
)

// MissionStatus is the lifecycle state of a mission.
type MissionStatus string

// Mission status constants.
const (
	MissionPending   MissionStatus = "pending"
	MissionRunning   MissionStatus = "running"
	MissionPaused    MissionStatus = "paused"
	MissionCompleted MissionStatus = "completed"
	MissionCancelled MissionStatus = "cancelled"
)

// Severity classifies alerts and notifications.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
	SeveritySuccess  Severity = "success"
	SeverityError    Severity = "error"
)

// Drone is one fleet member. Updates replace the whole record.
type Drone struct {
	ID          int         `json:"id"`
	Name        string      `json:"name"`
	Status      DroneStatus `json:"status"`
	Battery     int         `json:"battery"`
	Lat         float64     `json:"lat"`
	Lng         float64     `json:"lng"`
	Speed       float64     `json:"speed"`
	Altitude    float64     `json:"altitude"`
	Temperature int         `json:"temperature"`
	Signal      int         `json:"signal"`
	LastUpdate  time.Time   `json:"last_update"`
	Type        string      `json:"type,omitempty"`
	Color       string      `json:"color,omitempty"`
}

// Mission references the drone flying it by ID.
type Mission struct {
	ID        int           `json:"id"`
	DroneID   int           `json:"drone_id"`
	Name      string        `json:"name"`
	Status    MissionStatus `json:"status"`
	Progress  int           `json:"progress"`
	Priority  string        `json:"priority"`
	CreatedAt time.Time     `json:"created_at"`
}

// Alert is a server-side alert. DroneID is zero when the alert is fleet-wide.
type Alert struct {
	ID      int       `json:"id"`
	Type    Severity  `json:"type"`
	Message string    `json:"message"`
	DroneID int       `json:"drone_id,omitempty"`
	Time    time.Time `json:"time"`
	Read    bool      `json:"read"`
}

// MaxNotifications bounds the client-side notification ring.
const MaxNotifications = 10

// Notification is a client-only message shown to the operator.
type Notification struct {
	ID        string    `json:"id"`
	Type      Severity  `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// DashboardStats is the aggregate block of the dashboard read.
type DashboardStats struct {
	TotalDrones    int `json:"total_drones"`
	OnlineDrones   int `json:"online_drones"`
	AvgBattery     int `json:"avg_battery"`
	ActiveMissions int `json:"active_missions"`
	TotalAlerts    int `json:"total_alerts"`
}

// Performance holds fleet-wide service figures.
type Performance struct {
	Uptime            string `json:"uptime"`
	ResponseTime      string `json:"response_time"`
	CompletedMissions int    `json:"completed_missions"`
	ActiveDrones      int    `json:"active_drones"`
	TotalFlightTime   string `json:"total_flight_time"`
}

// BatteryBucket counts drones within a battery range such as "21-50%".
type BatteryBucket struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

// Analytics is the analytics read payload.
type Analytics struct {
	BatteryDistribution []BatteryBucket `json:"battery_distribution,omitempty"`
	StatusDistribution  map[string]int  `json:"status_distribution,omitempty"`
	MissionSuccessRate  float64         `json:"mission_success_rate"`
	AverageFlightTime   string          `json:"average_flight_time,omitempty"`
	MostActiveDrone     string          `json:"most_active_drone,omitempty"`
}

// User is the authenticated operator. The token never leaves memory.
type User struct {
	Username string `json:"username"`
	Token    string `json:"-"`
}

// ConnectionStatus is the user-visible state of the push feed.
type ConnectionStatus string

const (
	ConnChecking     ConnectionStatus = "checking"
	ConnConnecting   ConnectionStatus = "connecting"
	ConnConnected    ConnectionStatus = "connected"
	ConnDisconnected ConnectionStatus = "disconnected"
	ConnError        ConnectionStatus = "error"
)
