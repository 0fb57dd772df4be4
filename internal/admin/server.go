// Local status UI and JSON endpoints over the fleet store
package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dronefleet/internal/fleet"
	"dronefleet/internal/store"
)

// Source provides state snapshots. *store.Store satisfies it.
type Source interface {
	Snapshot() store.State
}

// Commander forwards operator actions. *command.Dispatcher satisfies it.
type Commander interface {
	ControlDrone(ctx context.Context, id int, action string) error
	ControlMission(ctx context.Context, id int, action string) error
	MarkAlertRead(ctx context.Context, id int) error
}

// StateView is the JSON form of a snapshot. The feed handle and the
// session token are never exposed.
type StateView struct {
	Connection     fleet.ConnectionStatus `json:"connection"`
	Loading        bool                   `json:"loading"`
	Error          string                 `json:"error,omitempty"`
	User           string                 `json:"user,omitempty"`
	Drones         []fleet.Drone          `json:"drones"`
	Missions       []fleet.Mission        `json:"missions"`
	Alerts         []fleet.Alert          `json:"alerts"`
	DashboardStats fleet.DashboardStats   `json:"dashboard_stats"`
	Performance    fleet.Performance      `json:"performance"`
	Analytics      fleet.Analytics        `json:"analytics"`
	Notifications  []fleet.Notification   `json:"notifications"`
}

// NewStateView converts a snapshot.
func NewStateView(s store.State) StateView {
	v := StateView{
		Connection:     s.Connection,
		Loading:        s.Loading,
		Error:          s.Error,
		Drones:         s.Drones,
		Missions:       s.Missions,
		Alerts:         s.Alerts,
		DashboardStats: s.DashboardStats,
		Performance:    s.Performance,
		Analytics:      s.Analytics,
		Notifications:  s.Notifications,
	}
	if s.User != nil {
		v.User = s.User.Username
	}
	return v
}

type Server struct {
	src     Source
	cmd     Commander
	retry   func(context.Context)
	metrics http.Handler
	tpl     *template.Template
	log     *slog.Logger
}

//go:embed templates/index.html
var content embed.FS

// NewServer builds the admin server. cmd and retry may be nil, which
// disables the action endpoints; gatherer may be nil to omit /metrics.
func NewServer(src Source, cmd Commander, retry func(context.Context), gatherer prometheus.Gatherer, log *slog.Logger) *Server {
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	if log == nil {
		log = slog.Default()
	}
	s := &Server{src: src, cmd: cmd, retry: retry, tpl: tpl, log: log}
	if gatherer != nil {
		s.metrics = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("GET /notifications", s.handleNotifications)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /drones/{id}/control", s.handleControlDrone)
	mux.HandleFunc("POST /missions/{id}/control", s.handleControlMission)
	mux.HandleFunc("POST /alerts/{id}/read", s.handleMarkRead)
	mux.HandleFunc("POST /retry", s.handleRetry)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return mux
}

// Start serves on addr until ctx is done.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	s.log.Info("admin server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if err := s.tpl.Execute(w, NewStateView(s.src.Snapshot())); err != nil {
		s.log.Warn("render index", "err", err)
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, NewStateView(s.src.Snapshot()))
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	notes := s.src.Snapshot().Notifications
	if notes == nil {
		notes = []fleet.Notification{}
	}
	writeJSON(w, http.StatusOK, notes)
}

// handleHealth answers 200 while the feed is connected and 503 otherwise.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.src.Snapshot()
	code := http.StatusOK
	if !st.Connected() {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{"connection": st.Connection, "loading": st.Loading, "error": st.Error})
}

type actionBody struct {
	Action string `json:"action"`
}

func (s *Server) control(w http.ResponseWriter, r *http.Request, fn func(context.Context, int, string) error) {
	if s.cmd == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]any{"error": "commands disabled"})
		return
	}
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid id"})
		return
	}
	var body actionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Action == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "action required"})
		return
	}
	if err := fn(r.Context(), id, body.Action); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleControlDrone(w http.ResponseWriter, r *http.Request) {
	s.control(w, r, func(ctx context.Context, id int, action string) error {
		return s.cmd.ControlDrone(ctx, id, action)
	})
}

func (s *Server) handleControlMission(w http.ResponseWriter, r *http.Request) {
	s.control(w, r, func(ctx context.Context, id int, action string) error {
		return s.cmd.ControlMission(ctx, id, action)
	})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	if s.cmd == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]any{"error": "commands disabled"})
		return
	}
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid id"})
		return
	}
	if err := s.cmd.MarkAlertRead(r.Context(), id); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	if s.retry == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]any{"error": "retry disabled"})
		return
	}
	// the reload outlives the request
	go s.retry(context.WithoutCancel(r.Context()))
	w.WriteHeader(http.StatusAccepted)
}
