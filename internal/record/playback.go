package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"dronefleet/internal/fleet"
)

// ReplayLog replays recorded live updates from r to writer. A speed >0
// scales the recorded gaps (2 plays twice as fast); speed <= 0 inserts no
// delay at all.
func ReplayLog(ctx context.Context, r io.Reader, writer Writer, speed float64) (int, error) {
	dec := json.NewDecoder(r)
	var prev time.Time
	n := 0
	for {
		var u fleet.LiveUpdate
		if err := dec.Decode(&u); err != nil {
			if errors.Is(err, io.EOF) {
				return n, nil
			}
			return n, fmt.Errorf("decode update %d: %w", n+1, err)
		}
		if u.Type != "" && u.Type != fleet.MsgLiveUpdate {
			continue
		}
		if !prev.IsZero() && speed > 0 {
			diff := u.Timestamp.Sub(prev)
			if speed != 1 {
				diff = time.Duration(float64(diff) / speed)
			}
			if diff > 0 {
				t := time.NewTimer(diff)
				select {
				case <-ctx.Done():
					t.Stop()
					return n, ctx.Err()
				case <-t.C:
				}
			}
		}
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if err := writer.WriteUpdate(u); err != nil {
			return n, err
		}
		n++
		prev = u.Timestamp
	}
}

// ReplayLogFile opens a file and replays its live updates.
func ReplayLogFile(ctx context.Context, path string, writer Writer, speed float64) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return ReplayLog(ctx, f, writer, speed)
}
