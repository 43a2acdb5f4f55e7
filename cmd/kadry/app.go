package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/hazyhaar/kadry/catalog"
	"github.com/hazyhaar/kadry/docpipe"
	"github.com/hazyhaar/kadry/idgen"
	"github.com/hazyhaar/kadry/ldimport"
	"github.com/hazyhaar/kadry/observability"
	"github.com/hazyhaar/kadry/personnel"
	"github.com/hazyhaar/kadry/qualification"
)

// app is the wired process: one catalog database shared with the event log.
type app struct {
	cfg    *Config
	logger *slog.Logger
	store  *catalog.Store
	pipe   *docpipe.Pipeline
	svc    *personnel.Service
}

func newLogger(cfg *Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), nil
}

func openApp(ctx context.Context, cfg *Config, logger *slog.Logger) (*app, error) {
	store, err := catalog.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := observability.Init(store.DB()); err != nil {
		store.Close()
		return nil, fmt.Errorf("observability schema: %w", err)
	}
	if cfg.EventRetentionDays > 0 {
		n, err := observability.Cleanup(ctx, store.DB(), cfg.EventRetentionDays)
		if err != nil {
			logger.Warn("event cleanup failed", "error", err)
		} else if n > 0 {
			logger.Info("event log pruned", "deleted", n, "retention_days", cfg.EventRetentionDays)
		}
	}

	events := observability.NewEventLogger(store.DB(),
		observability.WithEventIDGenerator(idgen.Prefixed("evt_", idgen.Default)),
		observability.WithLogger(logger),
		observability.WithServiceName("kadry-api"),
	)
	pipe := docpipe.New(docpipe.Config{MaxFileSize: cfg.MaxFileBytes(), Logger: logger})
	quals := qualification.NewImporter(store,
		qualification.WithLogger(logger),
		qualification.WithEvents(events),
	)
	ld := ldimport.NewImporter(store, pipe, ldimport.Config{
		MediaDir:        cfg.MediaDir,
		MediaURL:        cfg.MediaURL,
		MaxFileSize:     cfg.MaxFileBytes(),
		InitialPassword: cfg.InitialPassword,
		Logger:          logger,
		Events:          events,
	})
	svc := personnel.New(personnel.Config{
		Store:          store,
		Pipeline:       pipe,
		Qualifications: quals,
		Dossiers:       ld,
		Logger:         logger,
		MaxUploadSize:  cfg.MaxFileBytes() * 4,
	})
	return &app{cfg: cfg, logger: logger, store: store, pipe: pipe, svc: svc}, nil
}

func (a *app) Close() error { return a.store.Close() }
