// Package apitest provides an in-process fleet backend for tests.
package apitest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"dronefleet/internal/fleet"
)

// Request is one call recorded by the backend.
type Request struct {
	Method string
	Path   string
	Body   map[string]any
}

// Backend serves the fleet REST endpoints from in-memory data.
type Backend struct {
	mu       sync.Mutex
	Drones   []fleet.Drone
	Missions []fleet.Mission
	Alerts   []fleet.Alert
	fail     map[string]int
	requests []Request

	Server *httptest.Server
}

// NewBackend starts a backend seeded with a small fleet. Close the Server when done.
func NewBackend() *Backend {
	now := time.Unix(1700000000, 0).UTC()
	b := &Backend{
		Drones: []fleet.Drone{
			{ID: 1, Name: "Alpha-1", Status: fleet.StatusOnline, Battery: 85, Lat: 37.7749, Lng: -122.4194, Signal: 95, LastUpdate: now, Color: "#3B82F6"},
			{ID: 2, Name: "Beta-2", Status: fleet.StatusOnline, Battery: 72, Lat: 37.7849, Lng: -122.4094, Signal: 87, LastUpdate: now, Color: "#10B981"},
		},
		Missions: []fleet.Mission{
			{ID: 1, DroneID: 1, Name: "Emergency Delivery", Status: fleet.MissionCompleted, Progress: 100, Priority: "high", CreatedAt: now},
		},
		Alerts: []fleet.Alert{
			{ID: 1, Type: fleet.SeverityWarning, Message: "Delta-4 battery below 50%", DroneID: 4, Time: now},
		},
		fail: map[string]int{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/drones", b.handleDrones)
	mux.HandleFunc("GET /api/drones/{id}", b.handleDrone)
	mux.HandleFunc("POST /api/drones/{id}/control", b.handleControl)
	mux.HandleFunc("GET /api/dashboard", b.handleDashboard)
	mux.HandleFunc("GET /api/missions", b.handleMissions)
	mux.HandleFunc("POST /api/missions", b.handleCreateMission)
	mux.HandleFunc("POST /api/missions/{id}/control", b.handleControl)
	mux.HandleFunc("GET /api/alerts", b.handleAlerts)
	mux.HandleFunc("PUT /api/alerts/{id}/read", b.handleMarkRead)
	mux.HandleFunc("GET /api/analytics", b.handleAnalytics)
	mux.HandleFunc("POST /api/auth/{mode}", b.handleAuth)
	b.Server = httptest.NewServer(b.record(mux))
	return b
}

// URL returns the backend base URL.
func (b *Backend) URL() string { return b.Server.URL }

// Close stops the server.
func (b *Backend) Close() { b.Server.Close() }

// SetFail makes path answer with code until cleared with code 0.
func (b *Backend) SetFail(path string, code int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if code == 0 {
		delete(b.fail, path)
		return
	}
	b.fail[path] = code
}

// Requests returns the calls seen so far.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Request, len(b.requests))
	copy(out, b.requests)
	return out
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}
		b.mu.Lock()
		b.requests = append(b.requests, Request{Method: r.Method, Path: r.URL.Path, Body: body})
		code, fail := b.fail[r.URL.Path]
		b.mu.Unlock()
		if fail {
			writeJSON(w, code, map[string]any{"error": "injected failure"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), bodyKey{}, body)))
	})
}

type bodyKey struct{}

func bodyFrom(r *http.Request) map[string]any {
	body, _ := r.Context().Value(bodyKey{}).(map[string]any)
	return body
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *Backend) handleDrones(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "drones": b.Drones})
}

func (b *Backend) handleDrone(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("id"))
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range b.Drones {
		if d.ID == id {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "drone": d})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"error": "Drone not found"})
}

func (b *Backend) handleControl(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "command sent"})
}

func (b *Backend) handleDashboard(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"stats": fleet.DashboardStats{TotalDrones: len(b.Drones), OnlineDrones: len(b.Drones), AvgBattery: 78, TotalAlerts: len(b.Alerts)},
			"performance": fleet.Performance{
				Uptime: "99.8%", ResponseTime: "45ms", CompletedMissions: 127, ActiveDrones: 3, TotalFlightTime: "248h",
			},
			"recent_alerts": b.Alerts,
		},
	})
}

func (b *Backend) handleMissions(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "missions": b.Missions})
}

func (b *Backend) handleCreateMission(w http.ResponseWriter, r *http.Request) {
	body := bodyFrom(r)
	name, _ := body["name"].(string)
	droneID, _ := body["drone_id"].(float64)
	b.mu.Lock()
	defer b.mu.Unlock()
	m := fleet.Mission{
		ID:        len(b.Missions) + 1,
		DroneID:   int(droneID),
		Name:      name,
		Status:    fleet.MissionPending,
		Priority:  "medium",
		CreatedAt: time.Unix(1700000100, 0).UTC(),
	}
	b.Missions = append(b.Missions, m)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Mission created successfully", "mission": m})
}

func (b *Backend) handleAlerts(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "alerts": b.Alerts})
}

func (b *Backend) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("id"))
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.Alerts {
		if b.Alerts[i].ID == id {
			b.Alerts[i].Read = true
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Alert marked as read"})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"error": "Alert not found"})
}

func (b *Backend) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": fleet.Analytics{
			BatteryDistribution: []fleet.BatteryBucket{{Range: "0-20%", Count: 0}, {Range: "81-100%", Count: 2}},
			StatusDistribution:  map[string]int{"online": 2},
			MissionSuccessRate:  95.5,
			AverageFlightTime:   "45 minutes",
			MostActiveDrone:     "Alpha-1",
		},
	})
}

func (b *Backend) handleAuth(w http.ResponseWriter, r *http.Request) {
	body := bodyFrom(r)
	user, _ := body["username"].(string)
	pass, _ := body["password"].(string)
	if user == "" || pass == "" {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "username and password required"})
		return
	}
	resp := map[string]any{"success": true}
	if r.PathValue("mode") == "login" {
		resp["token"] = "token-" + user
	}
	writeJSON(w, http.StatusOK, resp)
}
