// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

package faults

// Code identifies a fault. Codes are namespaced by subsystem:
// hardware 1-99, network 100-199, configuration 200-299,
// runtime 300-399, system 400-499.
type Code int

const (
	CodeNone Code = 0

	// Hardware faults (1-99).
	CodeStorageInitFailed    Code = 1
	CodeStorageMountFailed   Code = 2
	CodeDisplayInitFailed    Code = 3
	CodeMemoryAllocFailed    Code = 4
	CodeTierBInitFailed      Code = 5
	CodeHandleTableExhausted Code = 6

	// Network faults (100-199).
	CodeWifiConnectFailed Code = 100
	CodeWifiTimeout       Code = 101
	CodeHTTPRequestFailed Code = 102
	CodeMQTTConnectFailed Code = 103
	CodeMQTTPublishFailed Code = 104

	// Configuration faults (200-299).
	CodeConfigFileNotFound Code = 200
	CodeConfigParseFailed  Code = 201
	CodeInvalidConfig      Code = 202
	CodeScriptFileNotFound Code = 203
	CodeConfigPersistFail  Code = 204

	// Runtime faults (300-399).
	CodeScriptRuntimeFailed Code = 300
	CodeGraphicsInitFailed  Code = 301
	CodeInsufficientMemory  Code = 302
	CodeWatchdogTimeout     Code = 303
	CodeTickBudgetExceeded  Code = 304
	CodeFallbackStartFailed Code = 305

	// System faults (400-499).
	CodeSystemOverheated Code = 400
	CodePowerLow         Code = 401
	CodeSystemUnstable   Code = 402

	CodeUnknown Code = 999
)

// Category groups codes by the subsystem that owns them.
type Category int

const (
	CategoryHardware Category = iota
	CategoryNetwork
	CategoryConfiguration
	CategoryRuntime
	CategorySystem
	CategoryUnknown
)

// Category returns the subsystem namespace a code belongs to.
func (c Code) Category() Category {
	switch {
	case c >= 1 && c <= 99:
		return CategoryHardware
	case c >= 100 && c <= 199:
		return CategoryNetwork
	case c >= 200 && c <= 299:
		return CategoryConfiguration
	case c >= 300 && c <= 399:
		return CategoryRuntime
	case c >= 400 && c <= 499:
		return CategorySystem
	default:
		return CategoryUnknown
	}
}

// String returns the category name for logging and metrics labels.
func (c Category) String() string {
	switch c {
	case CategoryHardware:
		return "hardware"
	case CategoryNetwork:
		return "network"
	case CategoryConfiguration:
		return "configuration"
	case CategoryRuntime:
		return "runtime"
	case CategorySystem:
		return "system"
	default:
		return "unknown"
	}
}

// Severity classifies how serious a fault is.
type Severity int

const (
	// SeverityInfo is informational; the system continues normally.
	SeverityInfo Severity = iota
	// SeverityWarning means the system continues with degraded functionality.
	SeverityWarning
	// SeverityError means the owning subsystem attempts recovery.
	SeverityError
	// SeverityFatal means the system cannot continue; the supervisor
	// performs an orderly halt.
	SeverityFatal
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Strategy is the recovery action selected for a reported fault,
// ordered by increasing disruptiveness.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyRetry
	StrategyFallback
	StrategyRestartModule
	StrategyRestartSystem
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case StrategyNone:
		return "none"
	case StrategyRetry:
		return "retry"
	case StrategyFallback:
		return "fallback"
	case StrategyRestartModule:
		return "restart-module"
	case StrategyRestartSystem:
		return "restart-system"
	default:
		return "unknown"
	}
}
