// Agora - Threaded Discussion Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

// Command server runs the Agora HTTP API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/agora/internal/api"
	"github.com/tomtom215/agora/internal/board"
	"github.com/tomtom215/agora/internal/config"
	"github.com/tomtom215/agora/internal/dispatcher"
	"github.com/tomtom215/agora/internal/logging"
	"github.com/tomtom215/agora/internal/store"
	"github.com/tomtom215/agora/internal/supervisor"
	"github.com/tomtom215/agora/internal/threads"
	"github.com/tomtom215/agora/internal/websocket"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "agora: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("version", version).
		Str("addr", cfg.Addr()).
		Str("database", cfg.Database.Path).
		Msg("starting agora")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logging.Warn().Err(cerr).Msg("closing store")
		}
	}()

	disp := dispatcher.New(dispatcher.Config{
		Capacity:    cfg.Events.Capacity,
		DefaultWait: cfg.Events.DefaultWait,
		MaxWait:     cfg.Events.MaxWait,
	})
	assembler := threads.NewAssembler(st)
	boardSvc := board.New(st, disp)

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	var hub *websocket.Hub
	if cfg.WebSocket.Enabled {
		hub = websocket.NewHub()
		tree.AddPushService(hub)
		tree.AddPushService(websocket.NewPump(disp, hub, cfg.WebSocket.PumpWait))
	}

	handler := api.NewHandler(cfg, disp, assembler, boardSvc, st, hub)
	router := api.NewRouter(handler, api.NewChiMiddleware(&api.ChiMiddlewareConfig{
		CORSAllowedOrigins: cfg.API.CORSOrigins,
		RateLimitRequests:  cfg.API.RateLimitRequests,
		RateLimitWindow:    cfg.API.RateLimitWindow,
		RateLimitDisabled:  cfg.API.RateLimitDisabled,
	}))

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	tree.AddAPIService(supervisor.NewHTTPServerService("http-api", srv, cfg.Server.ShutdownTimeout))

	err = tree.Serve(ctx)
	if err != nil && err != context.Canceled {
		return fmt.Errorf("supervisor: %w", err)
	}
	logging.Info().Msg("agora stopped")
	return nil
}
