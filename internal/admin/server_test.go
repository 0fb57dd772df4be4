package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"dronefleet/internal/fleet"
	"dronefleet/internal/logging"
	"dronefleet/internal/metrics"
	"dronefleet/internal/store"
)

type nopHandle struct{}

func (nopHandle) Send(any) error { return nil }

type fakeCommander struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeCommander) record(s string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, s)
	return f.err
}

func (f *fakeCommander) ControlDrone(_ context.Context, id int, action string) error {
	return f.record("drone:" + action)
}

func (f *fakeCommander) ControlMission(_ context.Context, id int, action string) error {
	return f.record("mission:" + action)
}

func (f *fakeCommander) MarkAlertRead(_ context.Context, id int) error {
	return f.record("read")
}

func seeded() *store.Store {
	st := store.New(store.Initial())
	st.Dispatch(store.SetDrones{Drones: []fleet.Drone{
		{ID: 1, Name: "Alpha-1", Status: fleet.StatusOnline, Battery: 15},
		{ID: 2, Name: "Beta-2", Status: fleet.StatusOnline, Battery: 80},
	}})
	st.Dispatch(store.SetUser{User: &fleet.User{Username: "op", Token: "secret-token"}})
	st.Dispatch(store.AddNotification{Notification: fleet.Notification{ID: "n1", Type: fleet.SeverityWarning, Message: "Low battery on Alpha-1: 15%"}})
	return st
}

func TestHandleState(t *testing.T) {
	server := NewServer(seeded(), nil, nil, nil, logging.Discard())
	w := httptest.NewRecorder()
	server.handleState(w, httptest.NewRequest(http.MethodGet, "/state", nil))

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status OK, got %v", resp.StatusCode)
	}
	if strings.Contains(w.Body.String(), "secret-token") {
		t.Fatalf("token leaked in state view")
	}
	var v StateView
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(v.Drones) != 2 || v.User != "op" || v.Connection != fleet.ConnChecking || len(v.Notifications) != 1 {
		t.Errorf("unexpected state view: %+v", v)
	}
}

func TestHandleNotificationsEmpty(t *testing.T) {
	server := NewServer(store.New(store.Initial()), nil, nil, nil, logging.Discard())
	w := httptest.NewRecorder()
	server.handleNotifications(w, httptest.NewRequest(http.MethodGet, "/notifications", nil))
	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Fatalf("body = %s", got)
	}
}

func TestHandleHealth(t *testing.T) {
	st := seeded()
	server := NewServer(st, nil, nil, nil, logging.Discard())

	w := httptest.NewRecorder()
	server.handleHealth(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before connect, got %d", w.Code)
	}

	st.Dispatch(store.SetConnectionStatus{Status: fleet.ConnConnected})
	st.Dispatch(store.SetConnectionHandle{Handle: nopHandle{}})
	w = httptest.NewRecorder()
	server.handleHealth(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 when connected, got %d", w.Code)
	}
}

func TestIndexRenders(t *testing.T) {
	server := NewServer(seeded(), nil, nil, nil, logging.Discard())
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Alpha-1") || !strings.Contains(w.Body.String(), `class="low"`) {
		t.Fatalf("unexpected index: %d %s", w.Code, w.Body.String())
	}
}

func TestControlRoutes(t *testing.T) {
	cmd := &fakeCommander{}
	server := NewServer(seeded(), cmd, nil, nil, logging.Discard())
	h := server.Handler()

	cases := []struct {
		path, body string
		want       int
	}{
		{"/drones/1/control", `{"action":"return_home"}`, http.StatusNoContent},
		{"/missions/2/control", `{"action":"pause"}`, http.StatusNoContent},
		{"/alerts/3/read", ``, http.StatusNoContent},
		{"/drones/x/control", `{"action":"return_home"}`, http.StatusBadRequest},
		{"/drones/1/control", `{}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, tc.path, strings.NewReader(tc.body)))
		if w.Code != tc.want {
			t.Errorf("%s: status %d, want %d", tc.path, w.Code, tc.want)
		}
	}
	if strings.Join(cmd.calls, ",") != "drone:return_home,mission:pause,read" {
		t.Fatalf("calls = %v", cmd.calls)
	}

	cmd.err = errors.New("HTTP Error: 500")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/drones/1/control", strings.NewReader(`{"action":"return_home"}`)))
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 on command failure, got %d", w.Code)
	}
}

func TestCommandsDisabled(t *testing.T) {
	h := NewServer(seeded(), nil, nil, nil, logging.Discard()).Handler()
	for _, path := range []string{"/drones/1/control", "/alerts/1/read", "/retry"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"action":"x"}`)))
		if w.Code != http.StatusNotImplemented {
			t.Errorf("%s: status %d", path, w.Code)
		}
	}
}

func TestRetryAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.FeedReconnect()
	called := make(chan struct{}, 1)
	retry := func(context.Context) { called <- struct{}{} }
	h := NewServer(seeded(), nil, retry, reg, logging.Discard()).Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/retry", nil))
	if w.Code != http.StatusAccepted {
		t.Fatalf("retry status %d", w.Code)
	}
	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatalf("retry not invoked")
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "fleet_feed_reconnects_total 1") {
		t.Fatalf("metrics output missing counter: %s", w.Body.String())
	}
}
