package ledger

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mpkibench/internal/cases"
	"mpkibench/internal/metric"
)

func testRecord() Record {
	ipc := 2.0
	l1Rate := 10.0
	stride := int64(16)
	accessMode := int64(1)
	return Record{
		CaseID: "c1",
		Node:   "milan",
		Resolved: cases.Resolved{
			BufferBytes:     32768,
			WorkingSetBytes: 536870912,
			ChunkBytes:      524288,
			AccessMode:      &accessMode,
			Stride:          &stride,
		},
		Metrics: metric.Metrics{
			Instructions:  1000,
			Cycles:        500,
			IPC:           &ipc,
			L1MissRatePct: &l1Rate,
			L1MPKI:        80,
			L2MPKI:        8,
			DRAMFillPKI:   3,
		},
		Description: "small buffer streaming",
	}
}

func readLedger(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestAppendWritesHeaderExactlyOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.csv")
	writer := NewWriter(path, nil)

	require.NoError(t, writer.Append(testRecord()))
	require.NoError(t, writer.Append(testRecord()))

	rows := readLedger(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, "case_id", rows[0][0])
	assert.Equal(t, "c1", rows[1][0])
	assert.Equal(t, "c1", rows[2][0])
}

func TestAppendToExistingFileSkipsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.csv")
	writer := NewWriter(path, nil)
	require.NoError(t, writer.Append(testRecord()))

	// a second writer, as from a later sweep, must not repeat the header
	laterWriter := NewWriter(path, nil)
	require.NoError(t, laterWriter.Append(testRecord()))

	rows := readLedger(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, "case_id", rows[0][0])
	assert.NotEqual(t, "case_id", rows[1][0])
	assert.NotEqual(t, "case_id", rows[2][0])
}

func TestRecordFields(t *testing.T) {
	writer := NewWriter(filepath.Join(t.TempDir(), "summary.csv"), nil)
	fields := writer.fields(testRecord())
	want := []string{
		"c1", "milan",
		"32768", "536870912", "524288",
		"1", "16", "", // outer_scale unset
		"2.0000", "80.0000", "8.0000", "3.0000",
		"small buffer streaming",
	}
	assert.Equal(t, want, fields)
	assert.Len(t, writer.header(), len(fields))
}

func TestUndefinedIPCIsEmptyField(t *testing.T) {
	record := testRecord()
	record.Metrics.IPC = nil
	writer := NewWriter(filepath.Join(t.TempDir(), "summary.csv"), nil)
	fields := writer.fields(record)
	assert.Equal(t, "", fields[8])
}

func TestCustomMetricColumns(t *testing.T) {
	value := 90.0
	record := testRecord()
	record.Custom = map[string]*float64{"l1_hit_rate_pct": &value, "undefined_one": nil}

	writer := NewWriter(filepath.Join(t.TempDir(), "summary.csv"), []string{"l1_hit_rate_pct", "undefined_one"})
	header := writer.header()
	fields := writer.fields(record)
	require.Len(t, fields, len(header))
	assert.Equal(t, "l1_hit_rate_pct", header[len(header)-2])
	assert.Equal(t, "90.0000", fields[len(fields)-2])
	assert.Equal(t, "", fields[len(fields)-1])
}

func TestRenderXlsx(t *testing.T) {
	dir := t.TempDir()
	writer := NewWriter(filepath.Join(dir, "summary.csv"), nil)
	path := filepath.Join(dir, "summary.xlsx")

	require.NoError(t, RenderXlsx(writer, []Record{testRecord()}, path))

	_, err := os.Stat(path)
	require.NoError(t, err)
}
