package record

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"dronefleet/internal/fleet"
)

const defaultGreptimePort = 4001

type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter exports live updates to GreptimeDB, one row per drone
// and one row per mission.
type GreptimeDBWriter struct {
	client       greptimeClient
	droneTable   string
	missionTable string
	timeout      time.Duration
	log          *slog.Logger
}

// NewGreptimeDBWriter connects to endpoint ("host" or "host:port"). Missions
// go to droneTable + "_missions".
func NewGreptimeDBWriter(endpoint, database, droneTable string, log *slog.Logger) (*GreptimeDBWriter, error) {
	host, port := endpoint, defaultGreptimePort
	if h, p, err := net.SplitHostPort(endpoint); err == nil {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("greptime endpoint %q: bad port: %w", endpoint, err)
		}
		host, port = h, n
	}
	if host == "" {
		return nil, fmt.Errorf("greptime endpoint is empty")
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptime client: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &GreptimeDBWriter{
		client:       client,
		droneTable:   droneTable,
		missionTable: droneTable + "_missions",
		timeout:      5 * time.Second,
		log:          log,
	}, nil
}

func (w *GreptimeDBWriter) droneRows(u fleet.LiveUpdate, ts time.Time) (*table.Table, error) {
	tbl, err := table.New(w.droneTable)
	if err != nil {
		return nil, err
	}
	columns := []struct {
		name string
		tag  bool
		typ  types.ColumnType
	}{
		{"drone_id", true, types.INT64},
		{"name", true, types.STRING},
		{"status", false, types.STRING},
		{"battery", false, types.INT64},
		{"lat", false, types.FLOAT64},
		{"lng", false, types.FLOAT64},
		{"speed", false, types.FLOAT64},
		{"altitude", false, types.FLOAT64},
		{"temperature", false, types.INT64},
		{"signal", false, types.INT64},
	}
	for _, c := range columns {
		if c.tag {
			err = tbl.AddTagColumn(c.name, c.typ)
		} else {
			err = tbl.AddFieldColumn(c.name, c.typ)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}
	for _, d := range u.Drones {
		if err := tbl.AddRow(
			int64(d.ID), d.Name, string(d.Status), int64(d.Battery),
			d.Lat, d.Lng, d.Speed, d.Altitude,
			int64(d.Temperature), int64(d.Signal), ts,
		); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

func (w *GreptimeDBWriter) missionRows(u fleet.LiveUpdate, ts time.Time) (*table.Table, error) {
	tbl, err := table.New(w.missionTable)
	if err != nil {
		return nil, err
	}
	if err := tbl.AddTagColumn("mission_id", types.INT64); err != nil {
		return nil, err
	}
	if err := tbl.AddTagColumn("drone_id", types.INT64); err != nil {
		return nil, err
	}
	for _, name := range []string{"name", "status", "priority"} {
		if err := tbl.AddFieldColumn(name, types.STRING); err != nil {
			return nil, err
		}
	}
	if err := tbl.AddFieldColumn("progress", types.INT64); err != nil {
		return nil, err
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}
	for _, m := range u.Missions {
		if err := tbl.AddRow(int64(m.ID), int64(m.DroneID), m.Name, string(m.Status), m.Priority, int64(m.Progress), ts); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

// WriteUpdate inserts the drones and missions of u. Empty collections are skipped.
func (w *GreptimeDBWriter) WriteUpdate(u fleet.LiveUpdate) error {
	ts := u.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	var tables []*table.Table
	if len(u.Drones) > 0 {
		tbl, err := w.droneRows(u, ts)
		if err != nil {
			return fmt.Errorf("build drone rows: %w", err)
		}
		tables = append(tables, tbl)
	}
	if len(u.Missions) > 0 {
		tbl, err := w.missionRows(u, ts)
		if err != nil {
			return fmt.Errorf("build mission rows: %w", err)
		}
		tables = append(tables, tbl)
	}
	if len(tables) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if _, err := w.client.Write(ctx, tables...); err != nil {
		w.log.Error("greptime write failed", "err", err)
		return err
	}
	w.log.Debug("greptime write", "drones", len(u.Drones), "missions", len(u.Missions))
	return nil
}
