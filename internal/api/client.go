// HTTP client for the fleet backend's request/response endpoints
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"dronefleet/internal/fleet"
)

const maxResponseBytes = 4 << 20

// Envelope is the wrapper every endpoint returns.
type Envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func (e *Envelope) envelope() *Envelope { return e }

type enveloped interface {
	envelope() *Envelope
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("HTTP Error: %d (%s)", e.Code, e.Detail)
	}
	return fmt.Sprintf("HTTP Error: %d", e.Code)
}

// EnvelopeError reports a 2xx response whose envelope carried success=false.
type EnvelopeError struct {
	Detail string
}

func (e *EnvelopeError) Error() string {
	if e.Detail == "" {
		return "request was not successful"
	}
	return e.Detail
}

// Dashboard is the payload of the dashboard aggregate read.
type Dashboard struct {
	Stats        fleet.DashboardStats `json:"stats"`
	Performance  fleet.Performance    `json:"performance"`
	RecentAlerts []fleet.Alert        `json:"recent_alerts"`
}

// MissionRequest is the body of a mission creation.
type MissionRequest struct {
	Name    string `json:"name"`
	DroneID int    `json:"drone_id"`
	Type    string `json:"type"`
}

// Credentials authenticate an operator.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type dronesResponse struct {
	Envelope
	Drones []fleet.Drone `json:"drones"`
}

type droneResponse struct {
	Envelope
	Drone fleet.Drone `json:"drone"`
}

type missionsResponse struct {
	Envelope
	Missions []fleet.Mission `json:"missions"`
}

type missionResponse struct {
	Envelope
	Mission fleet.Mission `json:"mission"`
}

type alertsResponse struct {
	Envelope
	Alerts []fleet.Alert `json:"alerts"`
}

type dashboardResponse struct {
	Envelope
	Data Dashboard `json:"data"`
}

type analyticsResponse struct {
	Envelope
	Data fleet.Analytics `json:"data"`
}

type authResponse struct {
	Envelope
	Token string `json:"token,omitempty"`
}

type actionRequest struct {
	Action string `json:"action"`
}

// Client talks to the backend's JSON endpoints.
type Client struct {
	base *url.URL
	http *http.Client
}

// New creates a client for baseURL. A zero timeout means no client timeout;
// callers still bound each request through its context.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api base url %q: scheme must be http or https", baseURL)
	}
	return &Client{base: u, http: &http.Client{Timeout: timeout}}, nil
}

// FetchDrones reads the fleet list.
func (c *Client) FetchDrones(ctx context.Context) ([]fleet.Drone, error) {
	var out dronesResponse
	if err := c.do(ctx, http.MethodGet, nil, &out, "api", "drones"); err != nil {
		return nil, err
	}
	return out.Drones, nil
}

// FetchDrone reads a single drone.
func (c *Client) FetchDrone(ctx context.Context, id int) (fleet.Drone, error) {
	var out droneResponse
	if err := c.do(ctx, http.MethodGet, nil, &out, "api", "drones", strconv.Itoa(id)); err != nil {
		return fleet.Drone{}, err
	}
	return out.Drone, nil
}

// FetchDashboard reads the dashboard aggregate.
func (c *Client) FetchDashboard(ctx context.Context) (Dashboard, error) {
	var out dashboardResponse
	if err := c.do(ctx, http.MethodGet, nil, &out, "api", "dashboard"); err != nil {
		return Dashboard{}, err
	}
	return out.Data, nil
}

// FetchMissions reads the mission list.
func (c *Client) FetchMissions(ctx context.Context) ([]fleet.Mission, error) {
	var out missionsResponse
	if err := c.do(ctx, http.MethodGet, nil, &out, "api", "missions"); err != nil {
		return nil, err
	}
	return out.Missions, nil
}

// FetchAlerts reads the alert list.
func (c *Client) FetchAlerts(ctx context.Context) ([]fleet.Alert, error) {
	var out alertsResponse
	if err := c.do(ctx, http.MethodGet, nil, &out, "api", "alerts"); err != nil {
		return nil, err
	}
	return out.Alerts, nil
}

// FetchAnalytics reads the analytics block.
func (c *Client) FetchAnalytics(ctx context.Context) (fleet.Analytics, error) {
	var out analyticsResponse
	if err := c.do(ctx, http.MethodGet, nil, &out, "api", "analytics"); err != nil {
		return fleet.Analytics{}, err
	}
	return out.Data, nil
}

// ControlDrone posts an action for a drone.
func (c *Client) ControlDrone(ctx context.Context, id int, action string) error {
	return c.do(ctx, http.MethodPost, actionRequest{Action: action}, &Envelope{}, "api", "drones", strconv.Itoa(id), "control")
}

// ControlMission posts an action for a mission.
func (c *Client) ControlMission(ctx context.Context, id int, action string) error {
	return c.do(ctx, http.MethodPost, actionRequest{Action: action}, &Envelope{}, "api", "missions", strconv.Itoa(id), "control")
}

// CreateMission creates a mission and returns it as stored by the server.
func (c *Client) CreateMission(ctx context.Context, req MissionRequest) (fleet.Mission, error) {
	var out missionResponse
	if err := c.do(ctx, http.MethodPost, req, &out, "api", "missions"); err != nil {
		return fleet.Mission{}, err
	}
	return out.Mission, nil
}

// MarkAlertRead flags an alert as read server-side.
func (c *Client) MarkAlertRead(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodPut, nil, &Envelope{}, "api", "alerts", strconv.Itoa(id), "read")
}

// Login authenticates and returns the session token.
func (c *Client) Login(ctx context.Context, creds Credentials) (string, error) {
	var out authResponse
	if err := c.do(ctx, http.MethodPost, creds, &out, "api", "auth", "login"); err != nil {
		return "", err
	}
	return out.Token, nil
}

// Register creates an operator account.
func (c *Client) Register(ctx context.Context, creds Credentials) error {
	return c.do(ctx, http.MethodPost, creds, &authResponse{}, "api", "auth", "register")
}

func (c *Client) do(ctx context.Context, method string, body any, out enveloped, path ...string) error {
	endpoint := c.base.JoinPath(path...)
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), rdr)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s: %w", endpoint.Path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env Envelope
		_ = json.Unmarshal(data, &env)
		return &StatusError{Code: resp.StatusCode, Detail: env.Error}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint.Path, err)
	}
	if env := out.envelope(); !env.Success {
		return &EnvelopeError{Detail: env.Error}
	}
	return nil
}
