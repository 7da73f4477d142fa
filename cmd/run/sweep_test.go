package run

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mpkibench/internal/cases"
)

func TestWriteArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perf_c1_2026-01-02_03-04-05.log")
	stderr := "8000,,instructions,100,100.00,,\n4000,,cycles,100,100.00,,\n"
	err := writeArtifact(path, "c1", "milan", []string{"1024", "512", "64"}, "perf stat -x , -e instructions,cycles -- ./benchmark 1024 512 64", "benchmark output", stderr)
	require.NoError(t, err)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(contents)
	assert.Contains(t, text, "case: c1\n")
	assert.Contains(t, text, "node: milan\n")
	assert.Contains(t, text, "args: 1024 512 64\n")
	assert.Contains(t, text, "command: perf stat -x , -e instructions,cycles -- ./benchmark 1024 512 64\n")
	// the stderr section carries the counter report verbatim
	stdoutIdx := strings.Index(text, "=== STDOUT ===\n")
	stderrIdx := strings.Index(text, "=== STDERR ===\n")
	require.GreaterOrEqual(t, stdoutIdx, 0)
	require.Greater(t, stderrIdx, stdoutIdx)
	assert.Equal(t, stderr, text[stderrIdx+len("=== STDERR ===\n"):])
}

func TestWriteArtifactEmptySections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perf_c2_2026-01-02_03-04-05.log")
	err := writeArtifact(path, "c2", "milan", nil, "perf stat", "", "")
	require.NoError(t, err)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(contents), "=== STDOUT ===\n=== STDERR ===\n"))
}

func writeMatrix(t *testing.T) *cases.Matrix {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cases.csv")
	contents := "case_id,buffer_bytes,workingset_bytes,chunk_bytes\n" +
		"c1,65536,32768,4096\n" +
		"c2,131072,65536,4096\n" +
		"c3,262144,131072,8192\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	matrix, err := cases.Load(path)
	require.NoError(t, err)
	return matrix
}

func TestSelectCasesAll(t *testing.T) {
	matrix := writeMatrix(t)
	flagAll = true
	flagCases = nil
	defer func() { flagAll = false }()

	definitions := selectCases(matrix)
	require.Len(t, definitions, 3)
	assert.Equal(t, "c1", definitions[0].ID)
	assert.Equal(t, "c3", definitions[2].ID)
}

func TestMergeRequestedCases(t *testing.T) {
	// positional ids extend the --cases selection without duplicating ids
	// requested both ways
	merged := mergeRequestedCases([]string{"c1", "c2"}, []string{"c3", "c1"})
	assert.Equal(t, []string{"c1", "c2", "c3"}, merged)

	merged = mergeRequestedCases(nil, []string{"c2", "c1"})
	assert.Equal(t, []string{"c2", "c1"}, merged)

	assert.Empty(t, mergeRequestedCases(nil, nil))
}

func TestSelectCasesSkipsUnknownIDs(t *testing.T) {
	matrix := writeMatrix(t)
	flagAll = false
	flagCases = []string{"c3", "nope", "c1"}
	defer func() { flagCases = nil }()

	definitions := selectCases(matrix)
	require.Len(t, definitions, 2)
	// requested order is preserved, the unknown id is dropped
	assert.Equal(t, "c3", definitions[0].ID)
	assert.Equal(t, "c1", definitions[1].ID)
}
