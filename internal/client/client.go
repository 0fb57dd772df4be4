// Composition root wiring the fleet client together from configuration
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"dronefleet/internal/admin"
	"dronefleet/internal/api"
	"dronefleet/internal/bootstrap"
	"dronefleet/internal/command"
	"dronefleet/internal/config"
	"dronefleet/internal/feed"
	"dronefleet/internal/metrics"
	"dronefleet/internal/notify"
	"dronefleet/internal/record"
	"dronefleet/internal/store"
)

// Option customizes New.
type Option func(*options)

type options struct {
	dialer   feed.Dialer
	registry *prometheus.Registry
}

// WithDialer replaces the websocket dialer used by the feed.
func WithDialer(d feed.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// WithRegistry registers metrics on reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// Client owns every component of a running fleet client.
type Client struct {
	Store    *store.Store
	API      *api.Client
	Commands *command.Dispatcher
	Loader   *bootstrap.Loader
	Feed     *feed.Manager
	Notifier *notify.Notifier
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry

	cfg     *config.ClientConfig
	log     *slog.Logger
	closers []io.Closer
}

// New builds a client from cfg. Nothing is started until Run.
func New(cfg *config.ClientConfig, log *slog.Logger, opts ...Option) (*Client, error) {
	o := options{dialer: feed.WebsocketDialer{}}
	for _, opt := range opts {
		opt(&o)
	}
	if log == nil {
		log = slog.Default()
	}
	reg := o.registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	apiClient, err := api.New(cfg.APIBaseURL, cfg.RequestTimeout.Std())
	if err != nil {
		return nil, err
	}
	feedURL, err := feed.Endpoint(cfg.FeedURL, cfg.ClientID)
	if err != nil {
		return nil, err
	}

	c := &Client{
		Store:    store.New(store.Initial()),
		API:      apiClient,
		Metrics:  metrics.New(reg),
		Registry: reg,
		cfg:      cfg,
		log:      log,
	}
	c.Notifier = notify.NewNotifier(c.Store, log, c.Metrics)

	observers := []feed.Observer{notify.NewDeriver(c.Notifier, cfg.LowBatteryThreshold)}
	sinks, err := c.sinks()
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	if len(sinks) > 0 {
		observers = append(observers, record.NewTap(record.NewMultiWriter(sinks...), log))
	}

	c.Feed = feed.New(feed.Config{
		URL:                  feedURL,
		ReconnectInterval:    cfg.ReconnectInterval.Std(),
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
	}, o.dialer, c.Store, log, c.Metrics, observers...)
	c.Loader = bootstrap.New(apiClient, c.Store, log, c.Metrics)
	c.Commands = command.New(apiClient, c.Store, c.Notifier, log, c.Metrics)
	return c, nil
}

// sinks opens the configured live update recorders.
func (c *Client) sinks() ([]record.Writer, error) {
	var ws []record.Writer
	if c.cfg.RecordFile != "" {
		fw, err := record.NewFileWriter(c.cfg.RecordFile)
		if err != nil {
			return nil, fmt.Errorf("open record file: %w", err)
		}
		c.closers = append(c.closers, fw)
		ws = append(ws, fw)
		c.log.Info("recording live updates", "path", c.cfg.RecordFile)
	}
	if g := c.cfg.Greptime; g.Endpoint != "" {
		gw, err := record.NewGreptimeDBWriter(g.Endpoint, g.Database, g.Table, c.log)
		if err != nil {
			return nil, err
		}
		ws = append(ws, gw)
		c.log.Info("exporting live updates to greptimedb", "endpoint", g.Endpoint, "table", g.Table)
	}
	return ws, nil
}

// Run starts the feed actor and the optional admin server, loads the
// initial data, opens the feed and blocks until ctx is done.
func (c *Client) Run(ctx context.Context) error {
	defer c.Close()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := c.Feed.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	if c.cfg.AdminAddr != "" {
		srv := admin.NewServer(c.Store, c.Commands, func(ctx context.Context) { c.Retry(ctx) }, c.Registry, c.log)
		g.Go(func() error { return srv.Start(ctx, c.cfg.AdminAddr) })
	}

	res := c.Loader.Load(ctx)
	if !res.OK() {
		c.log.Warn("initial load incomplete", "err", res.Err())
	}
	c.Feed.Connect()
	return g.Wait()
}

// Retry reloads every collection and asks the feed to connect.
func (c *Client) Retry(ctx context.Context) bootstrap.Result {
	res := c.Loader.Retry(ctx)
	c.Feed.Connect()
	return res
}

// Close releases the recorders.
func (c *Client) Close() error {
	var errs []error
	for _, cl := range c.closers {
		errs = append(errs, cl.Close())
	}
	c.closers = nil
	return errors.Join(errs...)
}
