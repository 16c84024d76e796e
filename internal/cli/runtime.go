package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/ppiankov/matmap/internal/cache"
	"github.com/ppiankov/matmap/internal/catalog"
	"github.com/ppiankov/matmap/internal/dictionary"
	"github.com/ppiankov/matmap/internal/logger"
	"github.com/ppiankov/matmap/internal/model"
	"github.com/ppiankov/matmap/internal/pipeline"
	"github.com/ppiankov/matmap/internal/worker"
)

// app wires the catalog components from the effective configuration
type app struct {
	cfg     *model.Config
	log     *logger.Logger
	fetcher *pipeline.Fetcher
	dict    *dictionary.Store
	holder  *catalog.Holder
}

func newApp() (*app, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	log, err := logger.New(cfg.Logging.Mode, level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(log),
		pipeline.WithLimiter(worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)),
	}
	if cfg.Cache.Enabled {
		var c cache.Cache
		if cfg.Cache.DiskDir != "" {
			c = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.DiskDir, cfg.Cache.DiskTTL)
		} else {
			c = cache.NewMemoryCache(cfg.Cache.MemoryTTL, cfg.Cache.MemoryTTL)
		}
		opts = append(opts, pipeline.WithCache(c, 0))
	}
	fetcher := pipeline.NewFetcher(cfg.HTTP, opts...)

	dict := dictionary.NewStore(fetcher, log.With("component", "dictionary"))
	loader := catalog.NewLoader(fetcher, dict, catalog.Options{
		Workers:     cfg.Concurrency.Workers,
		FileTimeout: cfg.Sources.FileTimeout,
	}, log.With("component", "catalog"))

	return &app{
		cfg:     cfg,
		log:     log,
		fetcher: fetcher,
		dict:    dict,
		holder:  catalog.NewHolder(loader, cfg.Sources.Manifest, cfg.Sources.DataBase),
	}, nil
}

// load fetches the dictionaries and the catalog concurrently; the loader
// waits for the dictionaries before normalizing
func (a *app) load(ctx context.Context) (*catalog.Snapshot, error) {
	go a.dict.Load(ctx, dictionary.Sources{
		Material: a.cfg.Sources.Material,
		EOS:      a.cfg.Sources.EOS,
		Thermal:  a.cfg.Sources.Thermal,
	})

	if verbose {
		fmt.Fprintf(os.Stderr, "Manifest: %s\n", a.cfg.Sources.Manifest)
		fmt.Fprintf(os.Stderr, "Data: %s\n", a.cfg.Sources.DataBase)
		fmt.Fprintf(os.Stderr, "Cache: %v\n", a.cfg.Cache.Enabled)
		fmt.Fprintln(os.Stderr)
	}

	snap, err := a.holder.Reload(ctx)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (a *app) close() {
	a.log.Sync()
}
