package main

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"

	"dronefleet/internal/api"
	"dronefleet/internal/api/apitest"
	"dronefleet/internal/logging"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestQueryCommands(t *testing.T) {
	backend := apitest.NewBackend()
	defer backend.Close()
	t.Setenv("FLEET_API_URL", backend.URL())

	cases := []struct {
		args []string
		want []string
	}{
		{[]string{"drones"}, []string{"Alpha-1", "Beta-2", "85%"}},
		{[]string{"drone", "2"}, []string{"Drone 2: Beta-2", "battery      72%"}},
		{[]string{"missions"}, []string{"Emergency Delivery", "completed"}},
		{[]string{"alerts"}, []string{"Delta-4 battery below 50%", "warning"}},
	}
	for _, tc := range cases {
		out, err := run(t, tc.args...)
		if err != nil {
			t.Fatalf("%v: %v", tc.args, err)
		}
		for _, w := range tc.want {
			if !strings.Contains(out, w) {
				t.Errorf("%v: output missing %q:\n%s", tc.args, w, out)
			}
		}
	}

	if _, err := run(t, "drone", "42"); err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected 404 error, got %v", err)
	}
	if _, err := run(t, "drone", "abc"); err == nil {
		t.Fatalf("expected invalid id error")
	}
}

func TestControlCommandReportsNotification(t *testing.T) {
	backend := apitest.NewBackend()
	defer backend.Close()
	t.Setenv("FLEET_API_URL", backend.URL())

	out, err := run(t, "control", "drone", "1", "return_home")
	if err != nil {
		t.Fatalf("control: %v", err)
	}
	if !strings.Contains(out, "Drone command sent: return_home") {
		t.Fatalf("missing notification:\n%s", out)
	}

	backend.SetFail("/api/missions/1/control", http.StatusInternalServerError)
	out, err = run(t, "control", "mission", "1", "pause")
	if err == nil {
		t.Fatalf("expected failure")
	}
	if !strings.Contains(out, "Failed to pause mission") {
		t.Fatalf("missing failure notification:\n%s", out)
	}
}

func TestOperatorCreatesMissionAndLogsIn(t *testing.T) {
	backend := apitest.NewBackend()
	defer backend.Close()
	c, err := api.New(backend.URL(), 0)
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	ops := newOperatorWith(c, logging.Discard())
	ctx := context.Background()

	m, err := ops.commands.CreateMission(ctx, api.MissionRequest{Name: "Perimeter", DroneID: 2, Type: "surveillance"})
	if err != nil || m.Name != "Perimeter" {
		t.Fatalf("CreateMission = %+v, %v", m, err)
	}
	var buf bytes.Buffer
	ops.report(&buf)
	if !strings.Contains(buf.String(), `Mission "Perimeter" created successfully`) {
		t.Fatalf("report = %q", buf.String())
	}

	if err := ops.commands.Authenticate(ctx, "login", "op", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if u := ops.store.Snapshot().User; u == nil || u.Username != "op" {
		t.Fatalf("user not recorded: %+v", u)
	}
}
