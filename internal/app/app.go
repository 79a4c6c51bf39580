// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/glowstack/glowd/internal/config"
	"github.com/glowstack/glowd/internal/connectivity"
	"github.com/glowstack/glowd/internal/fallback"
	"github.com/glowstack/glowd/internal/faults"
	"github.com/glowstack/glowd/internal/graphics"
	"github.com/glowstack/glowd/internal/logging"
	"github.com/glowstack/glowd/internal/memory"
	"github.com/glowstack/glowd/internal/metrics"
	"github.com/glowstack/glowd/internal/script"
	"github.com/glowstack/glowd/internal/storage"
)

// DefaultConfigPath is where the appliance config lives on storage.
const DefaultConfigPath = "/config.json"

// Options wires the application supervisor to its collaborators.
type Options struct {
	Graphics graphics.Driver
	Store    storage.Store
	Faults   *faults.Handler
	Memory   *memory.Manager
	Engine   script.Engine
	Fallback *fallback.Animator

	// Connect builds the connectivity supervisor once the configuration
	// is known. nil disables connectivity entirely.
	Connect func(cfg config.Config) *connectivity.Supervisor

	// ScriptCleanup runs whenever the script runtime stops, releasing
	// handles and buffers the script left behind.
	ScriptCleanup func()

	// ConfigPath is the config document's path on storage.
	// Default: /config.json
	ConfigPath string

	// MountTimeout bounds the storage mount retry window. Default: 10s
	MountTimeout time.Duration

	// TickInterval is the run loop cadence. Default: 50ms
	TickInterval time.Duration

	// HealthInterval is how often system health is evaluated. Default: 30s
	HealthInterval time.Duration

	// Now overrides the clock in tests.
	Now func() time.Time
}

// App is the application supervisor. It owns the bring-up cascade, the
// mode state machine, and the run loop. All state transitions happen on
// the loop goroutine; Setup and Shutdown are sequenced around it by the
// suture service wrapper.
type App struct {
	gfx      graphics.Driver
	store    storage.Store
	faults   *faults.Handler
	mem      *memory.Manager
	engine   script.Engine
	fallback *fallback.Animator
	connect  func(cfg config.Config) *connectivity.Supervisor
	cleanup  func()

	configPath     string
	mountTimeout   time.Duration
	tickInterval   time.Duration
	healthInterval time.Duration
	now            func() time.Time

	cfg  *config.Manager
	conn *connectivity.Supervisor

	state      atomic.Int32
	lastHealth time.Time
}

// New creates an application supervisor. Setup must run before Run.
func New(opts Options) *App {
	if opts.ConfigPath == "" {
		opts.ConfigPath = DefaultConfigPath
	}
	if opts.MountTimeout <= 0 {
		opts.MountTimeout = 10 * time.Second
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = 50 * time.Millisecond
	}
	if opts.HealthInterval <= 0 {
		opts.HealthInterval = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	a := &App{
		gfx:            opts.Graphics,
		store:          opts.Store,
		faults:         opts.Faults,
		mem:            opts.Memory,
		engine:         opts.Engine,
		fallback:       opts.Fallback,
		connect:        opts.Connect,
		cleanup:        opts.ScriptCleanup,
		configPath:     opts.ConfigPath,
		mountTimeout:   opts.MountTimeout,
		tickInterval:   opts.TickInterval,
		healthInterval: opts.HealthInterval,
		now:            opts.Now,
	}
	a.state.Store(int32(StateInitializing))
	return a
}

// State returns the current application mode.
func (a *App) State() State {
	return State(a.state.Load())
}

// Config returns the runtime configuration manager. Mutations go
// through Manager.Update; they are persisted on shutdown.
func (a *App) Config() *config.Manager {
	return a.cfg
}

func (a *App) setState(s State) {
	old := State(a.state.Swap(int32(s)))
	if old == s {
		return
	}
	metrics.AppState.Set(float64(s))
	logging.Info().
		Str("from", old.String()).
		Str("to", s.String()).
		Msg("application state changed")
}

// Setup runs the bring-up cascade: display, storage, configuration,
// connectivity, then the script (or fallback). Every failure past the
// display degrades rather than aborts; only an unusable display stops
// the boot.
func (a *App) Setup(ctx context.Context) error {
	a.setState(StateInitializing)

	if err := a.gfx.Init(); err != nil {
		a.faults.Report(faults.CodeDisplayInitFailed, faults.SeverityFatal,
			"app", "Setup", 0, fmt.Sprintf("display init: %v", err))
		a.setState(StateError)
		return fmt.Errorf("display init: %w", err)
	}

	mounted := a.mountStorage(ctx)
	cfg := a.loadConfig(mounted)

	savePath := ""
	if mounted {
		savePath = a.configPath
	}
	a.cfg = config.NewManager(cfg, savePath)

	logging.Init(logging.Config{
		Level:  cfg.System.LogLevel,
		Format: cfg.System.LogFormat,
	})

	a.gfx.SetBrightness(cfg.Display.Brightness)
	a.gfx.SetRotation(cfg.Display.Rotation)
	a.gfx.Clear(cfg.Display.BackgroundColor)

	if a.connect != nil {
		a.conn = a.connect(*cfg)
		if a.conn != nil && a.engine != nil {
			a.conn.SetMessageHandler(a.engine.OnMessage)
		}
	}

	a.startRuntime(ctx)
	a.lastHealth = a.now()
	return nil
}

// mountStorage mounts external storage within the bounded retry window.
func (a *App) mountStorage(ctx context.Context) bool {
	mountCtx, cancel := context.WithTimeout(ctx, a.mountTimeout)
	defer cancel()

	if err := a.store.Mount(mountCtx); err != nil {
		a.faults.Report(faults.CodeStorageMountFailed, faults.SeverityError,
			"app", "mountStorage", 0, fmt.Sprintf("storage mount: %v", err))
		return false
	}
	return true
}

// loadConfig reads the config document from storage. Absent or broken
// configuration is a Warning, never a boot failure: the appliance runs
// on defaults.
func (a *App) loadConfig(mounted bool) *config.Config {
	if !mounted || !a.store.Exists(a.configPath) {
		a.faults.Report(faults.CodeConfigFileNotFound, faults.SeverityWarning,
			"app", "loadConfig", 0, fmt.Sprintf("config file %s not found, using defaults", a.configPath))
		return config.Default()
	}

	data, err := a.store.ReadFile(a.configPath)
	if err != nil {
		a.faults.Report(faults.CodeConfigFileNotFound, faults.SeverityWarning,
			"app", "loadConfig", 0, fmt.Sprintf("config read: %v", err))
		return config.Default()
	}

	cfg, err := config.Parse(data)
	if err != nil {
		a.faults.Report(faults.CodeConfigParseFailed, faults.SeverityWarning,
			"app", "loadConfig", 0, fmt.Sprintf("config parse: %v", err))
		return config.Default()
	}
	return cfg
}

// startRuntime picks the active mode: the user script when it can be
// started, otherwise the fallback animator, otherwise the error state.
// The cascade is sequential; it never re-enters itself.
func (a *App) startRuntime(ctx context.Context) {
	if a.startScript(ctx) {
		return
	}
	a.startFallback()
}

func (a *App) startScript(ctx context.Context) bool {
	if a.engine == nil {
		return false
	}
	path := a.cfg.Snapshot().ScriptFile

	if !a.store.Mounted() || !a.store.Exists(path) {
		a.faults.Report(faults.CodeScriptFileNotFound, faults.SeverityWarning,
			"app", "startScript", 0, fmt.Sprintf("script %s not found", path))
		return false
	}
	source, err := a.store.ReadFile(path)
	if err != nil {
		a.faults.Report(faults.CodeScriptFileNotFound, faults.SeverityWarning,
			"app", "startScript", 0, fmt.Sprintf("script read: %v", err))
		return false
	}

	if err := a.engine.Start(ctx, path, source); err != nil {
		a.faults.Report(faults.CodeScriptRuntimeFailed, faults.SeverityError,
			"app", "startScript", 0, fmt.Sprintf("script start: %v", err))
		a.stopScript()
		return false
	}

	a.setState(StateRunningScript)
	return true
}

func (a *App) startFallback() {
	if a.fallback == nil {
		a.setState(StateError)
		return
	}
	if err := a.fallback.Start(); err != nil {
		a.faults.Report(faults.CodeFallbackStartFailed, faults.SeverityError,
			"app", "startFallback", 0, fmt.Sprintf("fallback start: %v", err))
		a.setState(StateError)
		return
	}
	a.setState(StateRunningFallback)
}

func (a *App) stopScript() {
	if a.engine != nil {
		a.engine.Stop()
	}
	if a.cleanup != nil {
		a.cleanup()
	}
}

// Run drives the loop until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.Step(ctx)
		}
	}
}

// Step performs one loop iteration: active-mode tick, connectivity
// housekeeping, and the periodic health evaluation.
func (a *App) Step(ctx context.Context) {
	metrics.LoopIterations.Inc()

	switch a.State() {
	case StateRunningScript:
		a.tickScript(ctx)
	case StateRunningFallback:
		a.fallback.Tick()
	}

	if a.conn != nil {
		a.conn.Poll(ctx)
	}

	if now := a.now(); now.Sub(a.lastHealth) >= a.healthInterval {
		a.lastHealth = now
		a.evaluateHealth()
	}
}

func (a *App) tickScript(ctx context.Context) {
	err := a.engine.Tick(ctx)
	if err == nil {
		a.gfx.Flush()
		return
	}

	var strategy faults.Strategy
	if errors.Is(err, script.ErrOverBudget) {
		strategy = a.faults.Report(faults.CodeTickBudgetExceeded, faults.SeverityError,
			"app", "tickScript", 0, "script tick exceeded its budget")
	} else {
		strategy = a.faults.Report(faults.CodeScriptRuntimeFailed, faults.SeverityError,
			"app", "tickScript", 0, fmt.Sprintf("script tick: %v", err))
	}
	a.applyStrategy(ctx, strategy)
}

// applyStrategy services the recovery action selected by the fault
// handler. A RestartSystem the supervisor cannot perform parks the
// device in the error state, where connectivity and health housekeeping
// keep it observable.
func (a *App) applyStrategy(ctx context.Context, s faults.Strategy) {
	switch s {
	case faults.StrategyFallback:
		a.stopScript()
		a.startFallback()
	case faults.StrategyRestartModule:
		a.stopScript()
		if !a.startScript(ctx) {
			a.startFallback()
		}
	case faults.StrategyRestartSystem:
		a.stopScript()
		if a.fallback != nil {
			a.fallback.Stop()
		}
		a.setState(StateError)
	}
}

// Reload tears down the active mode, re-reads the configuration from
// storage, and re-runs the runtime cascade. This is the only path that
// retries a script whose start previously failed.
func (a *App) Reload(ctx context.Context) {
	if a.State() == StateShutdown {
		return
	}
	logging.Info().Msg("reload requested")

	a.stopScript()
	if a.fallback != nil {
		a.fallback.Stop()
	}

	cfg := a.loadConfig(a.store.Mounted())
	savePath := ""
	if a.store.Mounted() {
		savePath = a.configPath
	}
	a.cfg = config.NewManager(cfg, savePath)

	a.gfx.SetBrightness(cfg.Display.Brightness)
	a.gfx.SetRotation(cfg.Display.Rotation)
	a.gfx.Clear(cfg.Display.BackgroundColor)

	a.startRuntime(ctx)
}

// evaluateHealth feeds the fault handler's latched health and the
// memory high-water marks into logs and gauges.
func (a *App) evaluateHealth() {
	healthy := a.faults.Healthy()
	if healthy {
		metrics.SystemHealthy.Set(1)
	} else {
		metrics.SystemHealthy.Set(0)
	}

	stats := a.mem.Stats()
	evt := logging.Debug()
	if !healthy {
		evt = logging.Warn()
	}
	evt.Bool("healthy", healthy).
		Uint64("mem_allocated", stats.TotalAllocated).
		Uint64("mem_peak", stats.PeakAllocated).
		Uint32("allocations", stats.AllocationCount).
		Uint32("failed_allocations", stats.FailedAllocations).
		Str("state", a.State().String()).
		Msg("health evaluation")
}

// Shutdown tears down the active mode, persists dirty configuration,
// stops the links, and releases the hardware. Safe to call once after
// the run loop has parked.
func (a *App) Shutdown() {
	a.setState(StateShutdown)

	a.stopScript()
	if a.fallback != nil {
		a.fallback.Stop()
	}
	if a.conn != nil {
		a.conn.Shutdown()
	}

	if a.cfg != nil && a.cfg.Dirty() {
		if err := a.cfg.Save(a.store.WriteFile); err != nil {
			a.faults.Report(faults.CodeConfigPersistFail, faults.SeverityWarning,
				"app", "Shutdown", 0, fmt.Sprintf("config persist: %v", err))
		}
	}

	a.store.Unmount()
	a.gfx.Close()
	logging.Info().Msg("shutdown complete")
}
