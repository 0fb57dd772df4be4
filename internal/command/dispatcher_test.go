package command

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"dronefleet/internal/api"
	"dronefleet/internal/api/apitest"
	"dronefleet/internal/fleet"
	"dronefleet/internal/logging"
	"dronefleet/internal/metrics"
	"dronefleet/internal/notify"
	"dronefleet/internal/store"
)

type recordingHandle struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (h *recordingHandle) Send(v any) error {
	data, _ := json.Marshal(v)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, string(data))
	return h.err
}

type fixture struct {
	backend *apitest.Backend
	store   *store.Store
	metrics *metrics.Metrics
	d       *Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := apitest.NewBackend()
	t.Cleanup(b.Close)
	c, err := api.New(b.URL(), time.Second)
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	st := store.New(store.Initial())
	m := metrics.New(prometheus.NewRegistry())
	log := logging.Discard()
	return &fixture{
		backend: b,
		store:   st,
		metrics: m,
		d:       New(c, st, notify.NewNotifier(st, log, m), log, m),
	}
}

func (f *fixture) open(h store.Handle) {
	f.store.Dispatch(store.SetConnectionStatus{Status: fleet.ConnConnected})
	f.store.Dispatch(store.SetConnectionHandle{Handle: h})
}

func (f *fixture) durable(path string) int {
	n := 0
	for _, r := range f.backend.Requests() {
		if r.Path == path {
			n++
		}
	}
	return n
}

func TestControlDronePushesWhenOpen(t *testing.T) {
	f := newFixture(t)
	h := &recordingHandle{}
	f.open(h)

	if err := f.d.ControlDrone(context.Background(), 1, fleet.ActionReturnHome); err != nil {
		t.Fatalf("ControlDrone: %v", err)
	}
	if len(h.sent) != 1 || h.sent[0] != `{"type":"control_drone","drone_id":1,"action":"return_home"}` {
		t.Fatalf("unexpected push: %v", h.sent)
	}
	if n := f.durable("/api/drones/1/control"); n != 1 {
		t.Fatalf("durable requests = %d, want 1", n)
	}
	notes := f.store.Snapshot().Notifications
	if len(notes) != 1 || notes[0].Type != fleet.SeveritySuccess || notes[0].Message != "Drone command sent: return_home" {
		t.Fatalf("unexpected notifications: %+v", notes)
	}
	if got := testutil.ToFloat64(f.metrics.Commands.WithLabelValues(KindControlDrone, "push", "ok")); got != 1 {
		t.Fatalf("push counter = %v", got)
	}
}

func TestControlDroneSkipsPushWhenNotOpen(t *testing.T) {
	cases := []struct {
		name  string
		setup func(f *fixture, h *recordingHandle)
	}{
		{"initial", func(*fixture, *recordingHandle) {}},
		{"handle without connected status", func(f *fixture, h *recordingHandle) {
			f.store.Dispatch(store.SetConnectionHandle{Handle: h})
		}},
		{"disconnected", func(f *fixture, h *recordingHandle) {
			f.open(h)
			f.store.Dispatch(store.SetConnectionStatus{Status: fleet.ConnDisconnected})
			f.store.Dispatch(store.SetConnectionHandle{})
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			h := &recordingHandle{}
			tc.setup(f, h)
			if err := f.d.ControlDrone(context.Background(), 2, fleet.ActionEmergencyStop); err != nil {
				t.Fatalf("ControlDrone: %v", err)
			}
			if len(h.sent) != 0 {
				t.Fatalf("pushed while not open: %v", h.sent)
			}
			if n := f.durable("/api/drones/2/control"); n != 1 {
				t.Fatalf("durable requests = %d, want 1", n)
			}
		})
	}
}

func TestPushFailureStillSendsDurable(t *testing.T) {
	f := newFixture(t)
	f.open(&recordingHandle{err: errors.New("broken pipe")})
	if err := f.d.ControlMission(context.Background(), 1, fleet.ActionPause); err != nil {
		t.Fatalf("ControlMission: %v", err)
	}
	if n := f.durable("/api/missions/1/control"); n != 1 {
		t.Fatalf("durable requests = %d, want 1", n)
	}
	if msg := f.store.Snapshot().Notifications[0].Message; msg != "Mission paused successfully" {
		t.Fatalf("notification = %q", msg)
	}
}

func TestControlFailureNotifies(t *testing.T) {
	f := newFixture(t)
	f.backend.SetFail("/api/drones/1/control", http.StatusInternalServerError)
	f.backend.SetFail("/api/missions/1/control", http.StatusBadGateway)

	err := f.d.ControlDrone(context.Background(), 1, fleet.ActionReturnHome)
	var se *api.StatusError
	if !errors.As(err, &se) || se.Code != http.StatusInternalServerError {
		t.Fatalf("expected status error, got %v", err)
	}
	if err := f.d.ControlMission(context.Background(), 1, fleet.ActionCancel); err == nil {
		t.Fatalf("expected mission error")
	}

	notes := f.store.Snapshot().Notifications
	if len(notes) != 2 {
		t.Fatalf("expected 2 notifications, got %+v", notes)
	}
	if notes[0].Type != fleet.SeverityError || !strings.HasPrefix(notes[0].Message, "Failed to cancel mission: HTTP Error: 502") {
		t.Fatalf("mission notification = %+v", notes[0])
	}
	if notes[1].Type != fleet.SeverityError || !strings.HasPrefix(notes[1].Message, "Failed to send command: HTTP Error: 500") {
		t.Fatalf("drone notification = %+v", notes[1])
	}
}

func TestRepeatedCommandsAreNotDeduplicated(t *testing.T) {
	f := newFixture(t)
	h := &recordingHandle{}
	f.open(h)
	for i := 0; i < 2; i++ {
		if err := f.d.ControlDrone(context.Background(), 1, fleet.ActionReturnHome); err != nil {
			t.Fatalf("ControlDrone: %v", err)
		}
	}
	if len(h.sent) != 2 || f.durable("/api/drones/1/control") != 2 {
		t.Fatalf("expected two pushes and two durable requests")
	}
}

func TestCreateMission(t *testing.T) {
	f := newFixture(t)
	f.store.Dispatch(store.SetMissions{Missions: []fleet.Mission{{ID: 1}}})

	m, err := f.d.CreateMission(context.Background(), api.MissionRequest{Name: "Perimeter", DroneID: 2, Type: "patrol"})
	if err != nil {
		t.Fatalf("CreateMission: %v", err)
	}
	s := f.store.Snapshot()
	if len(s.Missions) != 2 || s.Missions[1] != m || m.Status != fleet.MissionPending {
		t.Fatalf("mission not appended: %+v", s.Missions)
	}
	if s.Notifications[0].Message != `Mission "Perimeter" created successfully` {
		t.Fatalf("notification = %q", s.Notifications[0].Message)
	}

	f.backend.SetFail("/api/missions", http.StatusInternalServerError)
	if _, err := f.d.CreateMission(context.Background(), api.MissionRequest{Name: "Nope"}); err == nil {
		t.Fatalf("expected error")
	}
	s = f.store.Snapshot()
	if len(s.Missions) != 2 || !strings.HasPrefix(s.Notifications[0].Message, "Failed to create mission: ") {
		t.Fatalf("unexpected state after failure: %+v", s)
	}
}

func TestMarkAlertRead(t *testing.T) {
	f := newFixture(t)
	f.store.Dispatch(store.SetAlerts{Alerts: []fleet.Alert{{ID: 1}, {ID: 2}}})
	if err := f.d.MarkAlertRead(context.Background(), 1); err != nil {
		t.Fatalf("MarkAlertRead: %v", err)
	}
	a := f.store.Snapshot().Alerts
	if !a[0].Read || a[1].Read {
		t.Fatalf("unexpected alerts: %+v", a)
	}
	if err := f.d.MarkAlertRead(context.Background(), 99); err == nil {
		t.Fatalf("expected 404 for unknown alert")
	}
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.d.Authenticate(ctx, ModeRegister, "op", "pw"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if f.store.Snapshot().User != nil {
		t.Fatalf("register should not log in")
	}
	if err := f.d.Authenticate(ctx, ModeLogin, "op", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if u := f.store.Snapshot().User; u == nil || u.Username != "op" || u.Token != "token-op" {
		t.Fatalf("user = %+v", u)
	}
	if err := f.d.Authenticate(ctx, ModeLogin, "op", ""); err == nil {
		t.Fatalf("expected failure for empty password")
	}
	if err := f.d.Authenticate(ctx, "sso", "op", "pw"); err == nil {
		t.Fatalf("expected unknown mode error")
	}
}
