// Package ledger appends per-case result records to the durable sweep summary.
package ledger

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"mpkibench/internal/cases"
	"mpkibench/internal/metric"
)

// Record is the result of one fully completed case execution. It is created
// once, appended to the ledger, and never mutated.
type Record struct {
	CaseID      string
	Node        string
	Resolved    cases.Resolved
	Metrics     metric.Metrics
	Custom      map[string]*float64 // custom metric name -> value, nil when undefined
	Description string
	RawLogPath  string
}

// Writer appends records to a CSV ledger file. The header row is written
// exactly once, only when the file does not yet exist, so repeated sweeps
// against the same output directory accumulate rows under one header.
type Writer struct {
	path        string
	customNames []string
}

// NewWriter returns a ledger writer for the given path. customNames, possibly
// empty, adds one column per custom metric after the built-in columns.
func NewWriter(path string, customNames []string) *Writer {
	return &Writer{path: path, customNames: customNames}
}

// Path returns the ledger file path.
func (w *Writer) Path() string {
	return w.path
}

func (w *Writer) header() []string {
	header := []string{
		"case_id", "node",
		"buffer_bytes", "workingset_bytes", "chunk_bytes",
		"access_mode", "stride", "outer_scale",
		"IPC", "L1_MPKI", "L2_MPKI", "DRAM_fill_PKI",
		"description",
	}
	return append(header, w.customNames...)
}

func (w *Writer) fields(r Record) []string {
	fields := []string{
		r.CaseID, r.Node,
		strconv.FormatInt(r.Resolved.BufferBytes, 10),
		strconv.FormatInt(r.Resolved.WorkingSetBytes, 10),
		strconv.FormatInt(r.Resolved.ChunkBytes, 10),
		formatOptionalInt(r.Resolved.AccessMode),
		formatOptionalInt(r.Resolved.Stride),
		formatOptionalInt(r.Resolved.OuterScale),
		formatOptionalFloat(r.Metrics.IPC),
		formatFloat(r.Metrics.L1MPKI),
		formatFloat(r.Metrics.L2MPKI),
		formatFloat(r.Metrics.DRAMFillPKI),
		r.Description,
	}
	for _, name := range w.customNames {
		fields = append(fields, formatOptionalFloat(r.Custom[name]))
	}
	return fields
}

// Append writes one record to the ledger, creating the file and writing the
// header first when needed.
func (w *Writer) Append(r Record) error {
	_, statErr := os.Stat(w.path)
	writeHeader := os.IsNotExist(statErr)
	file, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644) // #nosec G302 G304
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer file.Close()
	writer := csv.NewWriter(file)
	if writeHeader {
		if err := writer.Write(w.header()); err != nil {
			return fmt.Errorf("failed to write ledger header: %w", err)
		}
	}
	if err := writer.Write(w.fields(r)); err != nil {
		return fmt.Errorf("failed to write ledger record: %w", err)
	}
	writer.Flush()
	return writer.Error()
}

// formatFloat renders a defined metric value for the ledger. Values are
// rounded for presentation only; derivation keeps full precision.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// formatOptionalFloat renders an undefined value as an empty field, keeping
// it distinguishable from a true zero.
func formatOptionalFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatOptionalInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
