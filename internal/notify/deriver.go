// Low-battery notifications derived from live fleet batches
package notify

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"dronefleet/internal/fleet"
	"dronefleet/internal/metrics"
	"dronefleet/internal/store"
)

// DefaultThreshold is the battery percentage below which an online drone warns.
const DefaultThreshold = 20

// Derive returns one warning per online drone whose battery is below
// threshold, in batch order. It keeps no memory of earlier batches.
func Derive(drones []fleet.Drone, threshold int, now time.Time) []fleet.Notification {
	var out []fleet.Notification
	for _, d := range drones {
		if d.Status != fleet.StatusOnline || d.Battery >= threshold {
			continue
		}
		out = append(out, New(fleet.SeverityWarning, fmt.Sprintf("Low battery on %s: %d%%", d.Name, d.Battery), now))
	}
	return out
}

// New builds a notification with a fresh id.
func New(kind fleet.Severity, msg string, now time.Time) fleet.Notification {
	return fleet.Notification{ID: uuid.NewString(), Type: kind, Message: msg, Timestamp: now}
}

// Notifier adds notifications to a store.
type Notifier struct {
	store   *store.Store
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewNotifier creates a Notifier. log and m may be nil.
func NewNotifier(s *store.Store, log *slog.Logger, m *metrics.Metrics) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{store: s, log: log, metrics: m, now: time.Now}
}

// Notify adds one notification.
func (n *Notifier) Notify(kind fleet.Severity, msg string) {
	n.add(New(kind, msg, n.now()))
}

func (n *Notifier) add(note fleet.Notification) {
	n.store.Dispatch(store.AddNotification{Notification: note})
	n.metrics.Notification(string(note.Type))
	n.log.Debug("notification", "type", note.Type, "message", note.Message)
}

// Deriver turns each live batch into low-battery notifications.
type Deriver struct {
	notifier  *Notifier
	threshold int
}

// NewDeriver creates a Deriver. A non-positive threshold means DefaultThreshold.
func NewDeriver(n *Notifier, threshold int) *Deriver {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Deriver{notifier: n, threshold: threshold}
}

// ObserveLiveUpdate adds a notification for every qualifying drone in u.
func (d *Deriver) ObserveLiveUpdate(u fleet.LiveUpdate) {
	for _, note := range Derive(u.Drones, d.threshold, d.notifier.now()) {
		d.notifier.add(note)
	}
}
