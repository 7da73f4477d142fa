// Package metric derives cache and memory efficiency metrics from a counter
// report and the node profile it was sampled under.
package metric

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"mpkibench/internal/node"
	"mpkibench/internal/perfstat"
)

// NoInstructionsError is returned by Derive when the counter report contains
// a zero instruction count. Per-kilo-instruction values have no denominator
// in that case, and reporting them as zero would be indistinguishable from a
// run that observed zero misses.
type NoInstructionsError struct{}

func (e *NoInstructionsError) Error() string {
	return "instruction count is zero, cannot derive per-kilo-instruction values"
}

// Metrics is the fixed record of values derived from one counter report.
// Rate fields are nil when their denominator was zero; nil means undefined,
// which is distinct from a true zero rate.
type Metrics struct {
	Instructions  uint64
	Cycles        uint64
	IPC           *float64
	L1MissRatePct *float64
	L2MissRatePct *float64
	L1MPKI        float64
	L2MPKI        float64
	DRAMFillPKI   float64
}

// Derive computes the metric record for one counter report. Counters absent
// from the report count as zero. On a node without a remote DRAM-fill event
// the remote contribution is fixed at zero. Derive is pure; deriving the same
// report twice yields identical results.
func Derive(report perfstat.CounterReport, profile node.Profile) (Metrics, error) {
	m := Metrics{
		Instructions: report.Count(node.EventInstructions),
		Cycles:       report.Count(node.EventCycles),
	}
	if m.Instructions == 0 {
		return Metrics{}, &NoInstructionsError{}
	}
	instructions := float64(m.Instructions)
	if m.Cycles > 0 {
		m.IPC = defined(instructions / float64(m.Cycles))
	}
	l1Loads := report.Count(node.EventL1Loads)
	l1Misses := report.Count(node.EventL1Misses)
	if l1Loads > 0 {
		m.L1MissRatePct = defined(100 * float64(l1Misses) / float64(l1Loads))
	}
	// the L2 miss rate is conditioned on L2 accesses that originate from L1
	// misses, not on total L2 traffic
	l2Accesses := report.Count(node.EventL2Accesses)
	l2Misses := report.Count(node.EventL2Misses)
	if l2Accesses > 0 {
		m.L2MissRatePct = defined(100 * float64(l2Misses) / float64(l2Accesses))
	}
	m.L1MPKI = 1000 * float64(l1Misses) / instructions
	m.L2MPKI = 1000 * float64(l2Misses) / instructions
	dramFills := report.Count(profile.LocalDRAMFillEvent)
	if profile.HasRemoteDRAMFill() {
		dramFills += report.Count(profile.RemoteDRAMFillEvent)
	}
	m.DRAMFillPKI = 1000 * float64(dramFills) / instructions
	return m, nil
}

func defined(v float64) *float64 {
	return &v
}
