// Package cases loads the benchmark case matrix and resolves each case's
// positional argument vector.
package cases

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// case matrix column names, in file order
const (
	colCaseID      = "case_id"
	colBuffer      = "buffer_bytes"
	colWorkingSet  = "workingset_bytes"
	colChunk       = "chunk_bytes"
	colAccessMode  = "access_mode"
	colStride      = "stride"
	colOuterScale  = "outer_scale"
	colDescription = "description"
)

var requiredColumns = []string{colCaseID, colBuffer, colWorkingSet, colChunk}

// optionalColumns is the fixed order in which optional fields may be set and
// are appended to the argument vector. A later field may not be set while an
// earlier one is empty.
var optionalColumns = []string{colAccessMode, colStride, colOuterScale}

// Definition is one row of the case matrix. Numeric fields are kept as raw
// text; they are parsed when the case is resolved for execution, so that a
// malformed row fails that case alone, not the whole sweep.
type Definition struct {
	ID          string
	Buffer      string
	WorkingSet  string
	Chunk       string
	AccessMode  string
	Stride      string
	OuterScale  string
	Description string
}

// Resolved holds the parsed argument values for one case. Optional fields are
// nil when unset.
type Resolved struct {
	Case            Definition
	BufferBytes     int64
	WorkingSetBytes int64
	ChunkBytes      int64
	AccessMode      *int64
	Stride          *int64
	OuterScale      *int64
}

// Args returns the positional argument vector for the benchmark binary:
// the three required byte counts followed by the optional values that are
// set, in fixed order.
func (r Resolved) Args() []string {
	args := []string{
		strconv.FormatInt(r.BufferBytes, 10),
		strconv.FormatInt(r.WorkingSetBytes, 10),
		strconv.FormatInt(r.ChunkBytes, 10),
	}
	for _, optional := range []*int64{r.AccessMode, r.Stride, r.OuterScale} {
		if optional == nil {
			break
		}
		args = append(args, strconv.FormatInt(*optional, 10))
	}
	return args
}

// MissingFieldError reports a case row with an empty required field.
type MissingFieldError struct {
	CaseID string
	Field  string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("case %q is missing required field %q", e.CaseID, e.Field)
}

// SkippedOptionalFieldError reports a case row that sets an optional field
// while an earlier optional field in the fixed order is empty.
type SkippedOptionalFieldError struct {
	CaseID   string
	SetField string
	GapField string
}

func (e *SkippedOptionalFieldError) Error() string {
	return fmt.Sprintf("case %q sets optional field %q but leaves earlier field %q empty", e.CaseID, e.SetField, e.GapField)
}

// Resolve parses the case's numeric fields. Required fields accept decimal or
// standard prefixed notation, e.g. 0x8000. Optional fields must be filled
// left to right without gaps.
func (d Definition) Resolve() (Resolved, error) {
	resolved := Resolved{Case: d}
	required := []struct {
		field string
		raw   string
		dest  *int64
	}{
		{colBuffer, d.Buffer, &resolved.BufferBytes},
		{colWorkingSet, d.WorkingSet, &resolved.WorkingSetBytes},
		{colChunk, d.Chunk, &resolved.ChunkBytes},
	}
	for _, req := range required {
		if req.raw == "" {
			return Resolved{}, &MissingFieldError{CaseID: d.ID, Field: req.field}
		}
		value, err := strconv.ParseInt(req.raw, 0, 64)
		if err != nil {
			return Resolved{}, errors.Wrapf(err, "case %q has a malformed %s value %q", d.ID, req.field, req.raw)
		}
		*req.dest = value
	}
	optional := []struct {
		field string
		raw   string
		dest  **int64
	}{
		{colAccessMode, d.AccessMode, &resolved.AccessMode},
		{colStride, d.Stride, &resolved.Stride},
		{colOuterScale, d.OuterScale, &resolved.OuterScale},
	}
	firstGap := ""
	for _, opt := range optional {
		if opt.raw == "" {
			if firstGap == "" {
				firstGap = opt.field
			}
			continue
		}
		if firstGap != "" {
			return Resolved{}, &SkippedOptionalFieldError{CaseID: d.ID, SetField: opt.field, GapField: firstGap}
		}
		value, err := strconv.ParseInt(opt.raw, 0, 64)
		if err != nil {
			return Resolved{}, errors.Wrapf(err, "case %q has a malformed %s value %q", d.ID, opt.field, opt.raw)
		}
		*opt.dest = &value
	}
	return resolved, nil
}

// Matrix is the loaded case matrix, preserving file order.
type Matrix struct {
	definitions []Definition
	byID        map[string]int
}

// Load reads the case matrix CSV. The first row is the header; required and
// optional columns are located by name so column order in the file does not
// matter. Duplicate case ids are rejected.
func Load(path string) (*Matrix, error) {
	file, err := os.Open(path) // #nosec G304
	if err != nil {
		return nil, errors.Wrap(err, "failed to open case matrix")
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1 // rows may omit trailing optional fields
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read case matrix %s", path)
	}
	if len(rows) == 0 {
		return nil, errors.Errorf("case matrix %s is empty", path)
	}
	columns := make(map[string]int)
	for idx, name := range rows[0] {
		columns[name] = idx
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, errors.Errorf("case matrix %s is missing the %q column", path, name)
		}
	}
	field := func(row []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}
	matrix := &Matrix{byID: make(map[string]int)}
	for rowIdx, row := range rows[1:] {
		definition := Definition{
			ID:          field(row, colCaseID),
			Buffer:      field(row, colBuffer),
			WorkingSet:  field(row, colWorkingSet),
			Chunk:       field(row, colChunk),
			AccessMode:  field(row, colAccessMode),
			Stride:      field(row, colStride),
			OuterScale:  field(row, colOuterScale),
			Description: field(row, colDescription),
		}
		if definition.ID == "" {
			return nil, errors.Errorf("case matrix %s row %d has no case id", path, rowIdx+2)
		}
		if _, exists := matrix.byID[definition.ID]; exists {
			return nil, errors.Errorf("case matrix %s has duplicate case id %q", path, definition.ID)
		}
		matrix.byID[definition.ID] = len(matrix.definitions)
		matrix.definitions = append(matrix.definitions, definition)
	}
	return matrix, nil
}

// Get returns the case with the given id.
func (m *Matrix) Get(id string) (Definition, bool) {
	idx, ok := m.byID[id]
	if !ok {
		return Definition{}, false
	}
	return m.definitions[idx], true
}

// IDs returns all case ids in file order.
func (m *Matrix) IDs() []string {
	ids := make([]string, 0, len(m.definitions))
	for _, definition := range m.definitions {
		ids = append(ids, definition.ID)
	}
	return ids
}

// Definitions returns all cases in file order.
func (m *Matrix) Definitions() []Definition {
	return m.definitions
}
