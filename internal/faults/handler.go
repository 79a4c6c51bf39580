// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

package faults

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/glowstack/glowd/internal/logging"
	"github.com/glowstack/glowd/internal/metrics"
)

// Record describes a single reported fault.
type Record struct {
	Code        Code
	Severity    Severity
	Module      string
	Function    string
	Line        int
	Description string
	Timestamp   time.Time
	// Count is the cumulative number of times this code has been
	// reported since startup (or the last ResetHealth).
	Count uint32
}

// HandlerFunc is a per-code recovery override. It receives the record,
// including the accumulated occurrence count, and returns the strategy to
// apply instead of the default severity mapping.
type HandlerFunc func(*Record) Strategy

// Options tunes escalation and health checking.
type Options struct {
	// EscalateAfter is the occurrence count within EscalateWindow at
	// which a Retry strategy for an Error-severity code is upgraded to
	// RestartModule. Default: 3.
	EscalateAfter int
	// EscalateWindow bounds how far back repeated occurrences count
	// toward escalation. Default: 60s.
	EscalateWindow time.Duration
	// Probe is an optional resource health check (see NewResourceProbe).
	// A non-nil error latches the health flag false.
	Probe func() error
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Handler is the central fault taxonomy and recovery selector. Every
// subsystem reports faults here and nowhere else; the health flag the
// application supervisor consults is derived solely from these reports.
type Handler struct {
	mu sync.Mutex

	last        *Record
	total       uint64
	fatal       uint64
	counts      map[Code]uint32
	recent      map[Code][]time.Time
	custom      map[Code]HandlerFunc
	probeFailed bool

	escalateAfter  int
	escalateWindow time.Duration
	probe          func() error
	now            func() time.Time
}

// New creates a fault handler with the given options.
func New(opts Options) *Handler {
	if opts.EscalateAfter <= 0 {
		opts.EscalateAfter = 3
	}
	if opts.EscalateWindow <= 0 {
		opts.EscalateWindow = 60 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	metrics.SystemHealthy.Set(1)
	return &Handler{
		counts:         make(map[Code]uint32),
		recent:         make(map[Code][]time.Time),
		custom:         make(map[Code]HandlerFunc),
		escalateAfter:  opts.EscalateAfter,
		escalateWindow: opts.EscalateWindow,
		probe:          opts.Probe,
		now:            opts.Now,
	}
}

// RegisterHandler installs a custom recovery handler for a code. It
// overrides the default severity mapping but not the fatal bookkeeping.
func (h *Handler) RegisterHandler(code Code, fn HandlerFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.custom[code] = fn
}

// Report records a fault, emits exactly one structured log line at the
// mapped level, and returns the recovery strategy the owning subsystem
// should execute.
func (h *Handler) Report(code Code, severity Severity, module, function string, line int, description string) Strategy {
	h.mu.Lock()

	now := h.now()
	h.total++
	if severity == SeverityFatal {
		h.fatal++
		metrics.SystemHealthy.Set(0)
	}

	h.counts[code]++
	windowed := h.trackOccurrence(code, now)

	rec := &Record{
		Code:        code,
		Severity:    severity,
		Module:      module,
		Function:    function,
		Line:        line,
		Description: description,
		Timestamp:   now,
		Count:       h.counts[code],
	}
	h.last = rec

	strategy := h.selectStrategy(rec, windowed)
	h.mu.Unlock()

	metrics.FaultsReported.WithLabelValues(code.Category().String(), severity.String()).Inc()

	logging.WithLevel(severityLevel(severity)).
		Int("code", int(code)).
		Str("category", code.Category().String()).
		Str("module", module).
		Str("function", function).
		Int("line", line).
		Uint32("count", rec.Count).
		Str("recovery", strategy.String()).
		Msg(description)

	return strategy
}

// trackOccurrence appends now to the code's occurrence list, prunes
// entries outside the escalation window, and returns the windowed count.
// Must be called with h.mu held.
func (h *Handler) trackOccurrence(code Code, now time.Time) int {
	cutoff := now.Add(-h.escalateWindow)
	kept := h.recent[code][:0]
	for _, t := range h.recent[code] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	h.recent[code] = kept
	return len(kept)
}

// selectStrategy applies the custom handler if one is registered, then
// the default severity floor, then the repetition escalation rule.
// Must be called with h.mu held.
func (h *Handler) selectStrategy(rec *Record, windowed int) Strategy {
	strategy := defaultStrategy(rec.Code, rec.Severity)
	if fn, ok := h.custom[rec.Code]; ok {
		strategy = fn(rec)
	}

	if strategy == StrategyRetry && rec.Severity >= SeverityError && windowed > h.escalateAfter {
		strategy = StrategyRestartModule
		metrics.FaultEscalations.Inc()
	}
	return strategy
}

// defaultStrategy maps severity to a recovery floor. Error-severity
// faults pick their action by code category: connectivity loss is
// expected and retried, configuration and runtime failures fall back,
// hardware and system failures restart the owning module.
func defaultStrategy(code Code, severity Severity) Strategy {
	switch severity {
	case SeverityInfo:
		return StrategyNone
	case SeverityWarning:
		if code.Category() == CategoryNetwork {
			return StrategyRetry
		}
		return StrategyNone
	case SeverityError:
		switch code.Category() {
		case CategoryNetwork:
			return StrategyRetry
		case CategoryConfiguration, CategoryRuntime:
			return StrategyFallback
		default:
			return StrategyRestartModule
		}
	case SeverityFatal:
		return StrategyRestartSystem
	default:
		return StrategyNone
	}
}

// LastError returns the most recent fault record, or nil if none has
// been reported.
func (h *Handler) LastError() *Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last == nil {
		return nil
	}
	rec := *h.last
	return &rec
}

// TotalCount returns the cumulative number of reported faults.
func (h *Handler) TotalCount() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.total
}

// FatalCount returns the number of fatal faults reported.
func (h *Handler) FatalCount() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fatal
}

// Healthy reports the system health flag: false once any fatal fault has
// been reported or once the resource probe has failed, until ResetHealth.
// The flag is consulted by the application supervisor; the handler itself
// takes no action on it.
func (h *Handler) Healthy() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.fatal > 0 || h.probeFailed {
		return false
	}
	if h.probe != nil {
		if err := h.probe(); err != nil {
			h.probeFailed = true
			metrics.SystemHealthy.Set(0)
			logging.Warn().Err(err).Msg("Resource health probe failed")
			return false
		}
	}
	return true
}

// ResetHealth clears the fatal counter, the probe latch, and the
// per-code occurrence counts. Only an explicit operator action (or a
// test) should call this.
func (h *Handler) ResetHealth() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fatal = 0
	h.probeFailed = false
	h.counts = make(map[Code]uint32)
	h.recent = make(map[Code][]time.Time)
	metrics.SystemHealthy.Set(1)
}

// severityLevel maps fault severities onto zerolog levels. Fatal maps to
// error rather than zerolog's fatal: the fault handler must never exit
// the process, that decision belongs to the application supervisor.
func severityLevel(s Severity) zerolog.Level {
	switch s {
	case SeverityInfo:
		return zerolog.InfoLevel
	case SeverityWarning:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}
