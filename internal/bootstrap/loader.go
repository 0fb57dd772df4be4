// Concurrent initial read of every fleet collection
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"dronefleet/internal/api"
	"dronefleet/internal/fleet"
	"dronefleet/internal/metrics"
	"dronefleet/internal/store"
)

// Resource names used to tag load failures.
const (
	ResourceDrones    = "Drones"
	ResourceDashboard = "Dashboard"
	ResourceMissions  = "Missions"
	ResourceAlerts    = "Alerts"
	ResourceAnalytics = "Analytics"
)

// Reader is the durable read surface the loader needs. *api.Client satisfies it.
type Reader interface {
	FetchDrones(ctx context.Context) ([]fleet.Drone, error)
	FetchDashboard(ctx context.Context) (api.Dashboard, error)
	FetchMissions(ctx context.Context) ([]fleet.Mission, error)
	FetchAlerts(ctx context.Context) ([]fleet.Alert, error)
	FetchAnalytics(ctx context.Context) (fleet.Analytics, error)
}

// Result lists the reads that failed during one Load.
type Result struct {
	Failed map[string]error
}

// OK reports whether every read succeeded.
func (r Result) OK() bool { return len(r.Failed) == 0 }

// Err joins the failures in resource order, or returns nil.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	names := make([]string, 0, len(r.Failed))
	for name := range r.Failed {
		names = append(names, name)
	}
	sort.Strings(names)
	errs := make([]error, 0, len(names))
	for _, name := range names {
		errs = append(errs, fmt.Errorf("%s: %w", name, r.Failed[name]))
	}
	return errors.Join(errs...)
}

type read struct {
	name  string
	fetch func(context.Context) ([]store.Action, error)
}

// Loader performs the bootstrap reads and publishes results to the store.
type Loader struct {
	reader  Reader
	store   *store.Store
	log     *slog.Logger
	metrics *metrics.Metrics
}

// New creates a Loader. log and m may be nil.
func New(r Reader, s *store.Store, log *slog.Logger, m *metrics.Metrics) *Loader {
	if log == nil {
		log = slog.Default()
	}
	return &Loader{reader: r, store: s, log: log, metrics: m}
}

func (l *Loader) reads() []read {
	return []read{
		{ResourceDrones, func(ctx context.Context) ([]store.Action, error) {
			drones, err := l.reader.FetchDrones(ctx)
			return []store.Action{store.SetDrones{Drones: drones}}, err
		}},
		{ResourceDashboard, func(ctx context.Context) ([]store.Action, error) {
			d, err := l.reader.FetchDashboard(ctx)
			return []store.Action{
				store.SetDashboardStats{Stats: d.Stats},
				store.SetPerformance{Performance: d.Performance},
			}, err
		}},
		{ResourceMissions, func(ctx context.Context) ([]store.Action, error) {
			missions, err := l.reader.FetchMissions(ctx)
			return []store.Action{store.SetMissions{Missions: missions}}, err
		}},
		{ResourceAlerts, func(ctx context.Context) ([]store.Action, error) {
			alerts, err := l.reader.FetchAlerts(ctx)
			return []store.Action{store.SetAlerts{Alerts: alerts}}, err
		}},
		{ResourceAnalytics, func(ctx context.Context) ([]store.Action, error) {
			a, err := l.reader.FetchAnalytics(ctx)
			return []store.Action{store.SetAnalytics{Analytics: a}}, err
		}},
	}
}

// Load runs the five reads concurrently. Each read publishes on its own as
// soon as it completes; a failed read fills the error slot with a tagged
// message and leaves its collection untouched. Loading is cleared once every
// read has settled, whatever the outcome.
func (l *Loader) Load(ctx context.Context) Result {
	l.store.Dispatch(store.SetLoading{Loading: true})

	res := Result{Failed: make(map[string]error)}
	var mu sync.Mutex
	var g errgroup.Group
	for _, r := range l.reads() {
		g.Go(func() error {
			actions, err := r.fetch(ctx)
			l.metrics.BootstrapRead(r.name, err)
			if err != nil {
				mu.Lock()
				res.Failed[r.name] = err
				mu.Unlock()
				l.log.Warn("bootstrap read failed", "resource", r.name, "err", err)
				l.store.Dispatch(store.SetError{Message: r.name + ": " + err.Error()})
				return nil
			}
			for _, a := range actions {
				l.store.Dispatch(a)
			}
			l.log.Debug("bootstrap read done", "resource", r.name)
			return nil
		})
	}
	_ = g.Wait()

	l.store.Dispatch(store.SetLoading{Loading: false})
	l.log.Info("bootstrap finished", "failed", len(res.Failed))
	return res
}

// Retry clears the error slot and repeats the whole load.
func (l *Loader) Retry(ctx context.Context) Result {
	l.store.Dispatch(store.SetLoading{Loading: true})
	l.store.Dispatch(store.SetError{})
	return l.Load(ctx)
}
