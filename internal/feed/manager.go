// Long-lived push feed connection with unconditional reconnection
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"dronefleet/internal/fleet"
	"dronefleet/internal/metrics"
	"dronefleet/internal/store"
)

// DefaultReconnectInterval is the fixed delay between a close and the next dial.
const DefaultReconnectInterval = 3 * time.Second

// ErrorMessage is published to the store whenever the transport reports an error.
const ErrorMessage = "WebSocket connection failed"

// State is the manager's connection lifecycle state.
type State int32

const (
	Idle State = iota
	Connecting
	Open
	Closed
)

var stateNames = []string{"idle", "connecting", "open", "closed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

type eventKind int

const (
	evConnect eventKind = iota
	evOpened
	evMessage
	evFailed
	evClosed
	evReconnect
	evClose
)

var eventNames = []string{"connect", "opened", "message", "failed", "closed", "reconnect", "close"}

func (k eventKind) String() string { return eventNames[k] }

type event struct {
	kind eventKind
	gen  uint64
	conn Conn
	data []byte
	err  error
}

// Observer receives every live update after it has been applied to the store.
type Observer interface {
	ObserveLiveUpdate(fleet.LiveUpdate)
}

// Config configures a Manager.
type Config struct {
	// URL is the full feed endpoint, see Endpoint.
	URL string
	// ReconnectInterval defaults to DefaultReconnectInterval.
	ReconnectInterval time.Duration
	// MaxReconnectAttempts is reported in logs only; reconnection never stops.
	MaxReconnectAttempts int
	// Greeting is sent once on every opened connection.
	Greeting string
}

type transitionKey struct {
	from State
	on   eventKind
}

type transition struct {
	to State
	do func(m *Manager, ev event)
}

// transitions is the whole state machine. Pairs not listed are ignored.
var transitions = map[transitionKey]transition{
	{Idle, evConnect}:      {Connecting, (*Manager).dial},
	{Closed, evConnect}:    {Connecting, (*Manager).dial},
	{Closed, evReconnect}:  {Connecting, (*Manager).dial},
	{Connecting, evOpened}: {Open, (*Manager).opened},
	{Connecting, evFailed}: {Connecting, (*Manager).failed},
	{Connecting, evClosed}: {Closed, (*Manager).closed},
	{Connecting, evClose}:  {Connecting, (*Manager).abortDial},
	{Open, evMessage}:      {Open, (*Manager).message},
	{Open, evFailed}:       {Open, (*Manager).failed},
	{Open, evClosed}:       {Closed, (*Manager).closed},
	{Open, evClose}:        {Open, (*Manager).closeConn},
}

// Manager owns the single feed connection. All lifecycle work happens on
// the goroutine running Run; other goroutines only post events.
type Manager struct {
	cfg       Config
	dialer    Dialer
	store     *store.Store
	log       *slog.Logger
	metrics   *metrics.Metrics
	observers []Observer

	events    chan event
	done      chan struct{}
	afterFunc func(time.Duration, func())
	current   atomic.Int32

	// owned by the Run goroutine
	state      State
	gen        uint64
	conn       Conn
	cancelDial context.CancelFunc
	closing    bool
	reconnects int
	ctx        context.Context
}

// New creates a Manager. Observers are called in order for each live update.
func New(cfg Config, d Dialer, s *store.Store, log *slog.Logger, m *metrics.Metrics, observers ...Observer) *Manager {
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = DefaultReconnectInterval
	}
	if cfg.Greeting == "" {
		cfg.Greeting = "Frontend connected"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		cfg:       cfg,
		dialer:    d,
		store:     s,
		log:       log,
		metrics:   m,
		observers: observers,
		events:    make(chan event, 64),
		done:      make(chan struct{}),
		afterFunc: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State { return State(m.current.Load()) }

// Connect asks the manager to open the feed. It is a no-op while a
// connection is being opened or is open.
func (m *Manager) Connect() { m.post(event{kind: evConnect}) }

// Close closes the live connection. A close is handled like any other and
// schedules a reconnect.
func (m *Manager) Close() { m.post(event{kind: evClose}) }

func (m *Manager) post(ev event) {
	select {
	case m.events <- ev:
	case <-m.done:
	}
}

// Run processes events until ctx is done. It must be called once.
func (m *Manager) Run(ctx context.Context) error {
	m.ctx = ctx
	m.setState(Idle)
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return ctx.Err()
		case ev := <-m.events:
			m.handle(ev)
		}
	}
}

func (m *Manager) handle(ev event) {
	if ev.kind != evConnect && ev.kind != evReconnect && ev.kind != evClose && ev.gen != m.gen {
		if ev.kind == evOpened && ev.conn != nil {
			_ = ev.conn.Close()
		}
		m.log.Debug("stale feed event dropped", "event", ev.kind, "gen", ev.gen, "current", m.gen)
		return
	}
	t, ok := transitions[transitionKey{m.state, ev.kind}]
	if !ok {
		m.log.Debug("feed event ignored", "state", m.state, "event", ev.kind)
		return
	}
	if t.to != m.state {
		m.log.Debug("feed transition", "from", m.state, "to", t.to, "event", ev.kind)
	}
	m.setState(t.to)
	t.do(m, ev)
}

func (m *Manager) setState(s State) {
	m.state = s
	m.current.Store(int32(s))
	m.metrics.SetFeedState(s.String(), stateNames)
}

func (m *Manager) dial(event) {
	m.gen++
	gen := m.gen
	m.closing = false
	m.store.Dispatch(store.SetConnectionStatus{Status: fleet.ConnConnecting})
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancelDial = cancel
	m.log.Info("connecting feed", "url", m.cfg.URL, "gen", gen)
	go func() {
		defer cancel()
		conn, err := m.dialer.Dial(ctx, m.cfg.URL)
		if err != nil {
			m.post(event{kind: evFailed, gen: gen, err: err})
			m.post(event{kind: evClosed, gen: gen})
			return
		}
		m.post(event{kind: evOpened, gen: gen, conn: conn})
	}()
}

func (m *Manager) abortDial(event) {
	m.closing = true
	if m.cancelDial != nil {
		m.cancelDial()
	}
}

func (m *Manager) opened(ev event) {
	m.conn = ev.conn
	m.cancelDial = nil
	h := &sender{conn: ev.conn}
	m.store.Dispatch(store.SetConnectionStatus{Status: fleet.ConnConnected})
	m.store.Dispatch(store.SetConnectionHandle{Handle: h})
	m.store.Dispatch(store.SetError{})
	m.log.Info("feed connected", "url", m.cfg.URL, "gen", ev.gen)
	if err := h.Send(fleet.ClientConnected{Type: fleet.MsgClientConnected, Message: m.cfg.Greeting}); err != nil {
		m.log.Warn("feed greeting failed", "err", err)
	}
	go m.read(ev.gen, ev.conn)
}

// read forwards frames from conn until it fails. A normal close is not an error.
func (m *Manager) read(gen uint64, conn Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				m.post(event{kind: evFailed, gen: gen, err: err})
			}
			m.post(event{kind: evClosed, gen: gen})
			return
		}
		m.post(event{kind: evMessage, gen: gen, data: data})
	}
}

func (m *Manager) message(ev event) {
	var env fleet.Envelope
	if err := json.Unmarshal(ev.data, &env); err != nil {
		m.metrics.FeedParseError()
		m.log.Warn("malformed feed message", "err", err)
		return
	}
	m.metrics.FeedMessage(env.Type)
	switch env.Type {
	case fleet.MsgLiveUpdate:
		var u fleet.LiveUpdate
		if err := json.Unmarshal(ev.data, &u); err != nil {
			m.metrics.FeedParseError()
			m.log.Warn("malformed live update", "err", err)
			return
		}
		m.store.Dispatch(store.UpdateDrones{Drones: u.Drones})
		m.store.Dispatch(store.UpdateMissions{Missions: u.Missions})
		for _, o := range m.observers {
			o.ObserveLiveUpdate(u)
		}
	default:
		m.log.Debug("unhandled feed message", "type", env.Type)
	}
}

func (m *Manager) failed(ev event) {
	if m.closing {
		m.log.Debug("feed error after close request", "err", ev.err)
		return
	}
	m.log.Error("feed error", "err", ev.err)
	m.store.Dispatch(store.SetError{Message: ErrorMessage})
	m.store.Dispatch(store.SetConnectionStatus{Status: fleet.ConnError})
}

func (m *Manager) closeConn(event) {
	m.closing = true
	if m.conn != nil {
		_ = m.conn.Close()
	}
}

func (m *Manager) closed(ev event) {
	m.conn = nil
	m.store.Dispatch(store.SetConnectionStatus{Status: fleet.ConnDisconnected})
	m.store.Dispatch(store.SetConnectionHandle{})
	m.reconnects++
	m.metrics.FeedReconnect()
	m.log.Info("feed closed, reconnecting",
		"in", m.cfg.ReconnectInterval,
		"attempt", m.reconnects,
		"max_attempts", m.cfg.MaxReconnectAttempts)
	m.afterFunc(m.cfg.ReconnectInterval, func() {
		m.post(event{kind: evReconnect})
	})
}

func (m *Manager) shutdown() {
	if m.cancelDial != nil {
		m.cancelDial()
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.store.Dispatch(store.SetConnectionHandle{})
	m.store.Dispatch(store.SetConnectionStatus{Status: fleet.ConnDisconnected})
	m.log.Info("feed stopped")
}
