// Sinks for live fleet batches: JSONL files, fan-out and store application
package record

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"dronefleet/internal/fleet"
	"dronefleet/internal/store"
)

// Writer consumes live updates.
type Writer interface {
	WriteUpdate(u fleet.LiveUpdate) error
}

// Observer receives live updates without reporting errors.
type Observer interface {
	ObserveLiveUpdate(u fleet.LiveUpdate)
}

// JSONWriter writes each update as one JSON line. Updates without a
// timestamp are stamped on write so a replay can reproduce the pacing.
type JSONWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
	c   io.Closer
	now func() time.Time
}

// NewJSONWriter writes JSON lines to w.
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{enc: json.NewEncoder(w), now: time.Now}
}

// NewFileWriter creates (or truncates) path and writes JSON lines to it.
func NewFileWriter(path string) (*JSONWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := NewJSONWriter(f)
	w.c = f
	return w, nil
}

// WriteUpdate logs a single live update.
func (w *JSONWriter) WriteUpdate(u fleet.LiveUpdate) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if u.Timestamp.IsZero() {
		u.Timestamp = w.now().UTC()
	}
	if u.Type == "" {
		u.Type = fleet.MsgLiveUpdate
	}
	return w.enc.Encode(u)
}

// Close closes the underlying file, if any.
func (w *JSONWriter) Close() error {
	if w.c == nil {
		return nil
	}
	return w.c.Close()
}

// MultiWriter fans live updates out to several writers. Every writer sees
// every update even if an earlier one fails.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(ws ...Writer) *MultiWriter {
	return &MultiWriter{writers: ws}
}

// WriteUpdate sends u to all writers and joins their errors.
func (mw *MultiWriter) WriteUpdate(u fleet.LiveUpdate) error {
	var errs []error
	for _, w := range mw.writers {
		if err := w.WriteUpdate(u); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of writers.
func (mw *MultiWriter) Len() int { return len(mw.writers) }

// Tap adapts a Writer to the feed's observer interface, logging failures.
type Tap struct {
	w   Writer
	log *slog.Logger
}

// NewTap wraps w. log may be nil.
func NewTap(w Writer, log *slog.Logger) *Tap {
	if log == nil {
		log = slog.Default()
	}
	return &Tap{w: w, log: log}
}

// ObserveLiveUpdate writes u and logs any error.
func (t *Tap) ObserveLiveUpdate(u fleet.LiveUpdate) {
	if err := t.w.WriteUpdate(u); err != nil {
		t.log.Warn("record live update failed", "err", err)
	}
}

// StoreWriter applies updates to a store the way the live feed does and
// then hands them to observers.
type StoreWriter struct {
	store     *store.Store
	observers []Observer
}

// NewStoreWriter creates a StoreWriter.
func NewStoreWriter(s *store.Store, observers ...Observer) *StoreWriter {
	return &StoreWriter{store: s, observers: observers}
}

// WriteUpdate replaces drones and missions wholesale.
func (w *StoreWriter) WriteUpdate(u fleet.LiveUpdate) error {
	w.store.Dispatch(store.UpdateDrones{Drones: u.Drones})
	w.store.Dispatch(store.UpdateMissions{Missions: u.Missions})
	for _, o := range w.observers {
		o.ObserveLiveUpdate(u)
	}
	return nil
}
