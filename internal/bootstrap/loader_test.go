package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"dronefleet/internal/api"
	"dronefleet/internal/api/apitest"
	"dronefleet/internal/fleet"
	"dronefleet/internal/logging"
	"dronefleet/internal/metrics"
	"dronefleet/internal/store"
)

// fakeReader fails missions at once and analytics only after the missions
// failure is visible in the store, so the analytics failure is the last one.
type fakeReader struct {
	st *store.Store
}

func (f fakeReader) FetchDrones(context.Context) ([]fleet.Drone, error) {
	return []fleet.Drone{{ID: 1, Name: "Alpha-1"}, {ID: 2, Name: "Beta-2"}}, nil
}

func (f fakeReader) FetchDashboard(context.Context) (api.Dashboard, error) {
	return api.Dashboard{
		Stats:       fleet.DashboardStats{TotalDrones: 2},
		Performance: fleet.Performance{Uptime: "99.8%"},
	}, nil
}

func (f fakeReader) FetchMissions(context.Context) ([]fleet.Mission, error) {
	return nil, errors.New("missions down")
}

func (f fakeReader) FetchAlerts(context.Context) ([]fleet.Alert, error) {
	return []fleet.Alert{{ID: 7}}, nil
}

func (f fakeReader) FetchAnalytics(ctx context.Context) (fleet.Analytics, error) {
	deadline := time.Now().Add(2 * time.Second)
	for !strings.HasPrefix(f.st.Snapshot().Error, ResourceMissions) {
		if time.Now().After(deadline) {
			return fleet.Analytics{}, errors.New("timed out waiting for missions failure")
		}
		time.Sleep(time.Millisecond)
	}
	return fleet.Analytics{}, errors.New("analytics down")
}

func TestLoadIsolatesFailures(t *testing.T) {
	st := store.New(store.Initial())
	m := metrics.New(prometheus.NewRegistry())
	l := New(fakeReader{st: st}, st, logging.Discard(), m)

	res := l.Load(context.Background())

	s := st.Snapshot()
	if s.Loading {
		t.Fatalf("loading should be false after all reads settle")
	}
	if len(s.Drones) != 2 || len(s.Alerts) != 1 || s.DashboardStats.TotalDrones != 2 || s.Performance.Uptime != "99.8%" {
		t.Fatalf("successful reads not published: %+v", s)
	}
	if s.Missions != nil {
		t.Fatalf("failed read touched missions: %+v", s.Missions)
	}
	if s.Error != "Analytics: analytics down" {
		t.Fatalf("error slot = %q, want last failure", s.Error)
	}
	if res.OK() || len(res.Failed) != 2 || res.Failed[ResourceMissions] == nil || res.Failed[ResourceAnalytics] == nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	if err := res.Err(); err == nil || !strings.Contains(err.Error(), "Missions: missions down") {
		t.Fatalf("joined error = %v", err)
	}
	if got := testutil.ToFloat64(m.BootstrapReads.WithLabelValues(ResourceDrones, "ok")); got != 1 {
		t.Fatalf("drones ok reads = %v", got)
	}
	if got := testutil.ToFloat64(m.BootstrapReads.WithLabelValues(ResourceMissions, "error")); got != 1 {
		t.Fatalf("missions error reads = %v", got)
	}
}

func TestLoadAgainstBackend(t *testing.T) {
	b := apitest.NewBackend()
	defer b.Close()
	c, err := api.New(b.URL(), time.Second)
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	st := store.New(store.Initial())
	res := New(c, st, logging.Discard(), nil).Load(context.Background())
	if !res.OK() || res.Err() != nil {
		t.Fatalf("unexpected failures: %v", res.Err())
	}
	s := st.Snapshot()
	if len(s.Drones) != 2 || len(s.Missions) != 1 || len(s.Alerts) != 1 || s.Analytics.MissionSuccessRate != 95.5 || s.Error != "" {
		t.Fatalf("unexpected state: %+v", s)
	}
}

func TestRetryClearsErrorAndReloads(t *testing.T) {
	b := apitest.NewBackend()
	defer b.Close()
	b.SetFail("/api/drones", http.StatusServiceUnavailable)
	c, _ := api.New(b.URL(), time.Second)
	st := store.New(store.Initial())
	l := New(c, st, logging.Discard(), nil)

	if res := l.Load(context.Background()); res.Failed[ResourceDrones] == nil {
		t.Fatalf("expected drones failure")
	}
	if got := st.Snapshot().Error; !strings.HasPrefix(got, "Drones: HTTP Error: 503") {
		t.Fatalf("error slot = %q", got)
	}

	b.SetFail("/api/drones", 0)
	if res := l.Retry(context.Background()); !res.OK() {
		t.Fatalf("retry failed: %v", res.Err())
	}
	s := st.Snapshot()
	if s.Error != "" || len(s.Drones) != 2 || s.Loading {
		t.Fatalf("retry did not recover: %+v", s)
	}
}
