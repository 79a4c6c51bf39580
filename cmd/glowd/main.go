// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

// Package main is the entry point for the glowd appliance supervisor.
//
// glowd supervises a small battery-powered screen appliance: it brings
// up the display, mounts external storage, loads the appliance
// configuration, maintains the wireless and message-bus links, and runs
// the user script (or the built-in fallback screen) on a budgeted tick.
//
// # Application Architecture
//
// The supervisor initializes components in the following order:
//
//  1. Bootstrap configuration: struct defaults layered with GLOWD_*
//     environment variables (the full config document lives on storage
//     and is loaded during bring-up)
//  2. Fault handler: severity/strategy mapping with a gopsutil-backed
//     resource probe
//  3. Resource managers: two-tier memory accounting and the object
//     handle table
//  4. Script runtime: Starlark engine with the device native surface
//  5. Application supervisor: bring-up cascade and run loop
//  6. Supervisor tree: the run loop and the metrics listener as
//     supervised suture services
//
// # Configuration
//
// The config document is JSON at /config.json on the storage root.
// Environment variables override it (see internal/config):
//
//	export GLOWD_STORAGE_ROOT=/mnt/appliance
//	export GLOWD_WIFI_SSID=workshop
//	export GLOWD_SYSTEM_LOG_LEVEL=debug
//	export GLOWD_SYSTEM_METRICS_ADDR=:9100
//	./glowd
//
// A missing config document is a warning, not an error: the appliance
// boots on defaults and shows the fallback screen if no script is
// present.
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the active mode is torn
// down, dirty configuration is persisted back to storage, the links are
// stopped, and storage is unmounted.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/glowstack/glowd/internal/app"
	"github.com/glowstack/glowd/internal/config"
	"github.com/glowstack/glowd/internal/connectivity"
	"github.com/glowstack/glowd/internal/fallback"
	"github.com/glowstack/glowd/internal/faults"
	"github.com/glowstack/glowd/internal/graphics"
	"github.com/glowstack/glowd/internal/handles"
	"github.com/glowstack/glowd/internal/logging"
	"github.com/glowstack/glowd/internal/memory"
	"github.com/glowstack/glowd/internal/script"
	"github.com/glowstack/glowd/internal/storage"
	"github.com/glowstack/glowd/internal/supervisor"
	"github.com/glowstack/glowd/internal/supervisor/services"
)

const (
	defaultStorageRoot = "/mnt/storage"

	// Tier capacities mirror the reference hardware: a small fast
	// internal pool and a large external pool that may be absent.
	tierACapacity = 512 << 10
	tierBCapacity = 8 << 20

	handleSlots = 1024
)

func main() {
	// Bootstrap configuration: defaults + environment only. The full
	// document lives on storage and is loaded during bring-up.
	cfg, err := config.Load("")
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load bootstrap configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.System.LogLevel,
		Format: cfg.System.LogFormat,
	})

	storageRoot := os.Getenv("GLOWD_STORAGE_ROOT")
	if storageRoot == "" {
		storageRoot = defaultStorageRoot
	}

	logging.Info().
		Str("device", cfg.System.DeviceName).
		Str("storage_root", storageRoot).
		Msg("Starting glowd")

	// Fault handler with a resource probe feeding system health.
	faultHandler := faults.New(faults.Options{
		Probe: faults.NewResourceProbe(90, 95),
	})

	memManager := memory.NewManager(memory.Options{
		TierACapacity: tierACapacity,
		TierBCapacity: tierBCapacity,
	})
	handleTable := handles.NewRegistry(handleSlots)

	// No panel driver in this build; the headless driver keeps object
	// state observable through metrics and logs.
	gfx := graphics.NewHeadless()
	store := storage.NewDirStore(storageRoot)

	// Script runtime: bridge natives into a Starlark engine.
	bridge := script.NewBridge(gfx, handleTable, nil, store, memManager)
	natives := script.NewNatives()
	bridge.Install(natives)
	engine := script.NewStarlarkEngine(natives, cfg.System.TickBudget)

	application := app.New(app.Options{
		Graphics:      gfx,
		Store:         store,
		Faults:        faultHandler,
		Memory:        memManager,
		Engine:        engine,
		Fallback:      fallback.NewAnimator(gfx),
		ScriptCleanup: bridge.ReleaseAll,
		Connect: func(loaded config.Config) *connectivity.Supervisor {
			conn := buildConnectivity(loaded, faultHandler)
			bridge.SetConnectivity(conn)
			return conn
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := application.Setup(ctx); err != nil {
		logging.Fatal().Err(err).Msg("Bring-up failed")
	}

	// Supervisor tree: the run loop and, when configured, the metrics
	// listener. sutureslog needs an slog logger; the adapter bridges it
	// back into zerolog.
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddRuntimeService(services.NewRunLoopService(application))

	if addr := cfg.System.MetricsAddr; addr != "" {
		server := &http.Server{
			Addr:         addr,
			Handler:      promhttp.Handler(),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		tree.AddTelemetryService(services.NewHTTPServerService(server, 10*time.Second))
		logging.Info().Str("addr", addr).Msg("Metrics listener service added")
	}

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}

// buildConnectivity constructs the wireless and message-bus links from
// the loaded configuration. Returns nil when wireless is disabled - the
// appliance then runs fully offline.
func buildConnectivity(cfg config.Config, handler *faults.Handler) *connectivity.Supervisor {
	if !cfg.WiFi.Enabled {
		logging.Info().Msg("Wireless disabled - running offline")
		return nil
	}

	wireless := connectivity.NewLink(connectivity.NewNetProbe(""), connectivity.LinkOptions{
		Name:           "wireless",
		RetryInterval:  cfg.WiFi.RetryInterval,
		ConnectTimeout: cfg.WiFi.ConnectTimeout,
		Faults:         handler,
		FaultCode:      faults.CodeWifiConnectFailed,
	})

	var messaging *connectivity.Link
	var bus connectivity.Client
	if cfg.MQTT.Enabled {
		client := connectivity.NewMQTTClient(cfg.MQTT, cfg.System.DeviceName)
		messaging = connectivity.NewLink(client, connectivity.LinkOptions{
			Name:           "mqtt",
			RetryInterval:  cfg.MQTT.RetryInterval,
			ConnectTimeout: 5 * time.Second,
			Precondition: func() bool {
				return wireless.State() == connectivity.Connected
			},
			Faults:    handler,
			FaultCode: faults.CodeMQTTConnectFailed,
		})
		bus = client
		logging.Info().
			Str("broker", cfg.MQTT.Broker).
			Int("port", cfg.MQTT.Port).
			Msg("Message bus configured")
	}

	return connectivity.NewSupervisor(wireless, messaging, bus)
}
