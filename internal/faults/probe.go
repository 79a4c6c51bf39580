// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

package faults

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// NewResourceProbe returns a health check that fails when host memory or
// CPU usage crosses the given percentage thresholds. A threshold <= 0
// disables that check. The probe is sampled by Handler.Healthy during the
// supervisor's periodic health evaluation, not on every fault report.
func NewResourceProbe(maxMemPercent, maxCPUPercent float64) func() error {
	return func() error {
		if maxMemPercent > 0 {
			vm, err := mem.VirtualMemory()
			if err != nil {
				return fmt.Errorf("memory probe failed: %w", err)
			}
			if vm.UsedPercent > maxMemPercent {
				return fmt.Errorf("memory usage %.1f%% exceeds %.1f%%", vm.UsedPercent, maxMemPercent)
			}
		}
		if maxCPUPercent > 0 {
			// Interval 0 compares against the previous sample, so the
			// probe never blocks the health evaluation.
			pcts, err := cpu.Percent(0, false)
			if err != nil {
				return fmt.Errorf("cpu probe failed: %w", err)
			}
			if len(pcts) > 0 && pcts[0] > maxCPUPercent {
				return fmt.Errorf("cpu usage %.1f%% exceeds %.1f%%", pcts[0], maxCPUPercent)
			}
		}
		return nil
	}
}
