package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samvad-hq/news-intelligence/internal/config"
	"github.com/samvad-hq/news-intelligence/internal/logger"
	"github.com/samvad-hq/news-intelligence/internal/newsclient"
	"github.com/samvad-hq/news-intelligence/internal/relay"
	"github.com/samvad-hq/news-intelligence/internal/render"
	"github.com/samvad-hq/news-intelligence/internal/server"
	"github.com/samvad-hq/news-intelligence/internal/storage"
	"github.com/samvad-hq/news-intelligence/internal/view"
	"github.com/samvad-hq/news-intelligence/pkg/httpclient"
	"github.com/samvad-hq/news-intelligence/pkg/publishers"
)

// Viewer wires the backend client, view controller, renderer and optional
// article relay into one runtime.
type Viewer struct {
	cfg    *config.Config
	log    logger.Logger
	ctrl   *view.Controller
	pages  *render.Renderer
	fanout *publishers.Fanout
	store  storage.Store
}

// NewViewer builds a viewer runtime from config.
func NewViewer(ctx context.Context, cfg *config.Config, log logger.Logger) (*Viewer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := newsclient.New(cfg.ScrapeURL(), httpclient.New(httpclient.Options{Timeout: cfg.RequestTimeout}), log)
	if err != nil {
		return nil, fmt.Errorf("init news client: %w", err)
	}

	v := &Viewer{cfg: cfg, log: log}

	var sink view.ArticleSink
	r, err := v.buildRelay(ctx, client.Endpoint())
	if err != nil {
		return nil, err
	}
	if r != nil {
		sink = r
	}

	v.ctrl, err = view.NewController(client, view.Options{
		Timeout: cfg.RequestTimeout,
		Sink:    sink,
		Log:     log,
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("init view controller: %w", err), v.closeRelay())
	}

	v.pages, err = render.New(render.Options{})
	if err != nil {
		v.ctrl.Close()
		return nil, errors.Join(fmt.Errorf("init renderer: %w", err), v.closeRelay())
	}

	log.InfoObj("viewer initialized", "viewer_config", map[string]any{
		"endpoint":        client.Endpoint(),
		"request_timeout": cfg.RequestTimeout.String(),
		"relay_enabled":   sink != nil,
	})
	return v, nil
}

// buildRelay returns nil when no publishers are configured.
func (v *Viewer) buildRelay(ctx context.Context, source string) (*relay.Relay, error) {
	if strings.TrimSpace(v.cfg.PublishersFile) == "" {
		v.log.InfoObj("article relay disabled", "publishers_file", "")
		return nil, nil
	}

	cfgs, err := publishers.LoadConfigs(v.cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers: %w", err)
	}
	if len(cfgs) == 0 {
		v.log.WarnObj("no enabled publishers; article relay disabled", "publishers_file", v.cfg.PublishersFile)
		return nil, nil
	}

	pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), cfgs, v.log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	v.fanout = publishers.NewFanout(pubs)

	summaries := make([]map[string]string, 0, len(cfgs))
	for _, c := range cfgs {
		summaries = append(summaries, map[string]string{"id": c.ID, "type": c.Type})
	}
	v.log.InfoObj("publishers loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})

	store, err := storage.New(v.cfg.StorageType, v.cfg.BBoltPath, storage.Options{
		TTL:             v.cfg.StorageTTL,
		CleanupInterval: v.cfg.StorageCleanupInterval,
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("init storage: %w", err), v.closeRelay())
	}
	v.store = store
	v.log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     v.cfg.StorageType,
		"path":                     v.cfg.BBoltPath,
		"ttl_seconds":              int(v.cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(v.cfg.StorageCleanupInterval.Seconds()),
	})

	r, err := relay.New(v.fanout, v.store, relay.Options{
		Source:  source,
		Timeout: v.cfg.RequestTimeout,
		Log:     v.log,
	})
	if err != nil {
		return nil, errors.Join(err, v.closeRelay())
	}
	return r, nil
}

// Controller exposes the view controller.
func (v *Viewer) Controller() *view.Controller { return v.ctrl }

// Renderer exposes the page renderer.
func (v *Viewer) Renderer() *render.Renderer { return v.pages }

// Serve runs the HTTP server until ctx is cancelled.
func (v *Viewer) Serve(ctx context.Context) error {
	srv, err := server.New(v.ctrl, v.pages, server.Options{
		Addr:           v.cfg.ListenAddr,
		RateLimitRPS:   v.cfg.RateLimitRPS,
		RateLimitBurst: v.cfg.RateLimitBurst,
		Log:            v.log,
	})
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}
	return srv.Run(ctx)
}

// FetchOnce triggers a single fetch and waits for it to settle.
func (v *Viewer) FetchOnce(ctx context.Context) (view.Snapshot, error) {
	if !v.ctrl.Trigger() {
		return v.ctrl.Snapshot(), fmt.Errorf("fetch could not be started")
	}
	if err := v.ctrl.Wait(ctx); err != nil {
		return v.ctrl.Snapshot(), fmt.Errorf("wait for fetch: %w", err)
	}
	return v.ctrl.Snapshot(), nil
}

// Close cancels any in-flight fetch, then releases publishers and storage.
func (v *Viewer) Close() error {
	if v == nil {
		return nil
	}
	if v.ctrl != nil {
		v.ctrl.Close()
	}
	return v.closeRelay()
}

func (v *Viewer) closeRelay() error {
	var errs []error
	if v.fanout != nil {
		if err := v.fanout.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publishers: %w", err))
		}
		v.fanout = nil
	}
	if v.store != nil {
		if err := v.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
		v.store = nil
	}
	return errors.Join(errs...)
}
