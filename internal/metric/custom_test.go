package metric

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mpkibench/internal/node"
	"mpkibench/internal/perfstat"
)

func writeDefinitions(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metrics.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoadDefinitions(t *testing.T) {
	path := writeDefinitions(t, `[
		{"name": "l1_hit_rate_pct", "expression": "100 - 100 * [L1-dcache-load-misses] / [L1-dcache-loads]"},
		{"name": "cycles_per_l1_miss", "expression": "cycles / [L1-dcache-load-misses]"}
	]`)
	definitions, err := LoadDefinitions(path)
	require.NoError(t, err)
	require.Len(t, definitions, 2)
	assert.Equal(t, []string{"l1_hit_rate_pct", "cycles_per_l1_miss"}, Names(definitions))
}

func TestLoadDefinitionsRejectsBadExpression(t *testing.T) {
	path := writeDefinitions(t, `[{"name": "broken", "expression": "1 +"}]`)
	_, err := LoadDefinitions(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestLoadDefinitionsRejectsDuplicateNames(t *testing.T) {
	path := writeDefinitions(t, `[
		{"name": "x", "expression": "1"},
		{"name": "x", "expression": "2"}
	]`)
	_, err := LoadDefinitions(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestEvaluateCustom(t *testing.T) {
	path := writeDefinitions(t, `[
		{"name": "l1_hit_rate_pct", "expression": "100 - 100 * [L1-dcache-load-misses] / [L1-dcache-loads]"}
	]`)
	definitions, err := LoadDefinitions(path)
	require.NoError(t, err)

	report := perfstat.CounterReport{
		node.EventL1Loads:  800,
		node.EventL1Misses: 80,
	}
	values := EvaluateCustom(definitions, report)
	require.NotNil(t, values["l1_hit_rate_pct"])
	assert.InDelta(t, 90.0, *values["l1_hit_rate_pct"], 1e-9)
}

func TestEvaluateCustomDivisionByZeroIsUndefined(t *testing.T) {
	path := writeDefinitions(t, `[
		{"name": "cycles_per_l1_miss", "expression": "cycles / [L1-dcache-load-misses]"}
	]`)
	definitions, err := LoadDefinitions(path)
	require.NoError(t, err)

	// L1-dcache-load-misses absent from the report, so the divisor is zero
	report := perfstat.CounterReport{node.EventCycles: 500}
	values := EvaluateCustom(definitions, report)
	require.Contains(t, values, "cycles_per_l1_miss")
	assert.Nil(t, values["cycles_per_l1_miss"])
}
