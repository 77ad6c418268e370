package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/AtharvRG/Zenith-AI/internal/command"
	"github.com/AtharvRG/Zenith-AI/internal/config"
	"github.com/AtharvRG/Zenith-AI/internal/dispatch"
	"github.com/AtharvRG/Zenith-AI/internal/health"
	"github.com/AtharvRG/Zenith-AI/internal/history"
	"github.com/AtharvRG/Zenith-AI/internal/launcher"
	"github.com/AtharvRG/Zenith-AI/internal/notes"
	"github.com/AtharvRG/Zenith-AI/internal/registry"
	"github.com/AtharvRG/Zenith-AI/internal/transport"
	grpctransport "github.com/AtharvRG/Zenith-AI/internal/transport/grpc"
	httptransport "github.com/AtharvRG/Zenith-AI/internal/transport/http"
)

// engine bundles the command core shared by serve and the CLI commands.
type engine struct {
	apps       *registry.Store
	websites   *registry.Store
	notes      *notes.Log
	history    *history.Store
	dispatcher *dispatch.Dispatcher
}

// openEngine loads the registries, prepares the note log and opens the
// history database when enabled. Invalid registry JSON is a startup error.
func openEngine(cfg *config.Config) (*engine, error) {
	apps, err := registry.Open("apps", cfg.Data.AppsFile(), nil)
	if err != nil {
		return nil, err
	}
	websites, err := registry.Open("websites", cfg.Data.WebsitesFile(), command.HomePages())
	if err != nil {
		return nil, err
	}

	nl := notes.NewLog(cfg.Data.NotesFile())
	if err := nl.Ensure(); err != nil {
		return nil, err
	}

	e := &engine{apps: apps, websites: websites, notes: nl}
	deps := dispatch.Deps{
		Apps:     apps,
		Websites: websites,
		Notes:    nl,
		Launcher: launcher.Process{},
		Browser:  launcher.Browser{},
	}
	if cfg.Data.History {
		hs, err := history.Open(cfg.Data.HistoryFile())
		if err != nil {
			return nil, err
		}
		e.history = hs
		deps.Recorder = hs
	}
	e.dispatcher = dispatch.New(deps)
	return e, nil
}

func (e *engine) Close() error {
	if e.history != nil {
		return e.history.Close()
	}
	return nil
}

// runServe starts every enabled transport plus the health server and the
// registry watcher, and blocks until SIGINT/SIGTERM.
func runServe(cfg *config.Config) error {
	slog.Info("zenith starting", "version", version)

	// Create root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	eng, err := openEngine(cfg)
	if err != nil {
		return fmt.Errorf("loading data: %w", err)
	}
	defer eng.Close()
	slog.Info("registries loaded",
		"apps", eng.apps.Len(),
		"websites", eng.websites.Len(),
		"data_dir", cfg.Data.Dir)

	// A backend that fails to initialize leaves the command engine usable;
	// the routes that need it answer 503.
	proxy, err := newProxy(ctx, cfg.Conversation)
	if err != nil {
		slog.Error("conversation backend unavailable", "backend", cfg.Conversation.Backend, "error", err)
		proxy = nil
	}
	if proxy != nil {
		defer proxy.Close()
	}

	stt, err := newTranscriber(cfg.Speech)
	if err != nil {
		slog.Error("speech backend unavailable", "error", err)
		stt = nil
	}

	deps := httptransport.Deps{
		Engine:      eng.dispatcher,
		Proxy:       proxy,
		Transcriber: stt,
	}
	if eng.history != nil {
		deps.History = eng.history
	}

	// Initialize enabled transports.
	var (
		transports []transport.Transport
		grpcT      *grpctransport.Transport
	)
	if cfg.Transports.HTTP.Enabled {
		transports = append(transports, httptransport.New(httptransport.Options{
			Addr:         cfg.Transports.HTTP.Addr(),
			CORSOrigins:  cfg.Transports.HTTP.CORSOrigins,
			Swagger:      cfg.Transports.HTTP.Swagger,
			MaxBodyBytes: int64(cfg.Transports.HTTP.MaxBodyMB) << 20,
			HistoryTurns: cfg.Conversation.HistoryTurns,
			Version:      version,
		}, deps))
	}
	if cfg.Transports.GRPC.Enabled {
		grpcT = grpctransport.New(cfg.Transports.GRPC.Port)
		transports = append(transports, grpcT)
	}
	if len(transports) == 0 {
		return errors.New("no transports enabled, enable at least one in config")
	}

	g, gctx := errgroup.WithContext(ctx)

	var healthServer *health.Server
	if cfg.Server.HealthPort > 0 {
		healthServer = health.New(cfg.Server.HealthPort)
		healthServer.SetComponent("conversation", proxy != nil)
		healthServer.SetComponent("speech", stt != nil)
		healthServer.SetComponent("history", eng.history != nil)
		g.Go(func() error { return healthServer.ListenAndServe(gctx) })
	}

	if cfg.Data.Watch {
		w, err := registry.NewWatcher(eng.apps, eng.websites)
		if err != nil {
			slog.Warn("registry watcher disabled", "error", err)
		} else {
			g.Go(func() error { return w.Run(gctx) })
		}
	}

	for _, t := range transports {
		g.Go(func() error {
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(gctx); err != nil {
				return fmt.Errorf("%s transport: %w", t.Name(), err)
			}
			return nil
		})
	}

	// Mark as ready once all transports are started.
	if healthServer != nil {
		healthServer.SetReady(true)
	}
	if grpcT != nil {
		grpcT.SetServing(true)
	}
	slog.Info("zenith ready",
		"transports", len(transports),
		"http", cfg.Transports.HTTP.Addr(),
		"health_port", cfg.Server.HealthPort)

	// Block until shutdown signal or the first component failure.
	<-gctx.Done()
	slog.Info("shutdown signal received, draining...")
	if healthServer != nil {
		healthServer.SetReady(false)
	}

	// Close all transports gracefully.
	for _, t := range transports {
		if err := t.Close(); err != nil {
			slog.Error("transport close error", "name", t.Name(), "error", err)
		}
	}

	err = g.Wait()
	slog.Info("zenith stopped")
	return err
}
