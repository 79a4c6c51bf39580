// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Resource manager metrics.
	MemoryAllocatedBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "glowd_memory_allocated_bytes",
			Help: "Bytes currently allocated through the resource manager",
		},
	)

	MemoryPeakBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "glowd_memory_peak_bytes",
			Help: "Peak bytes allocated through the resource manager",
		},
	)

	MemoryLiveAllocations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "glowd_memory_live_allocations",
			Help: "Number of live allocation records",
		},
	)

	MemoryFailedAllocations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "glowd_memory_failed_allocations_total",
			Help: "Total number of failed allocation attempts",
		},
	)

	MemoryTierFreeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "glowd_memory_tier_free_bytes",
			Help: "Free bytes per memory tier",
		},
		[]string{"tier"},
	)

	// Fault handler metrics.
	FaultsReported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glowd_faults_total",
			Help: "Total faults reported, by category and severity",
		},
		[]string{"category", "severity"},
	)

	FaultEscalations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "glowd_fault_escalations_total",
			Help: "Recovery strategies upgraded by the repetition escalation rule",
		},
	)

	SystemHealthy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "glowd_system_healthy",
			Help: "1 while the system health flag is set, 0 once it has latched unhealthy",
		},
	)

	// Connectivity metrics.
	LinkState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "glowd_link_state",
			Help: "Per-link state (0=disconnected, 1=connecting, 2=connected, 3=degraded)",
		},
		[]string{"link"},
	)

	LinkConnectAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glowd_link_connect_attempts_total",
			Help: "Connection attempts per link and outcome",
		},
		[]string{"link", "outcome"},
	)

	// Runtime metrics.
	LoopIterations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "glowd_loop_iterations_total",
			Help: "Main supervisor loop iterations",
		},
	)

	ScriptTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "glowd_script_tick_duration_seconds",
			Help:    "Duration of script engine ticks",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	ScriptTicksOverBudget = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "glowd_script_ticks_over_budget_total",
			Help: "Script ticks cancelled for exceeding the tick budget",
		},
	)

	HandleTableSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "glowd_handle_table_slots",
			Help: "Total slots in the object handle table",
		},
	)

	HandleTableLive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "glowd_handle_table_live",
			Help: "Occupied slots in the object handle table",
		},
	)

	AppState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "glowd_app_state",
			Help: "Application state (0=initializing, 1=script, 2=fallback, 3=error, 4=shutdown)",
		},
	)
)
