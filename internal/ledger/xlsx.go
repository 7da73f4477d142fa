package ledger

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const xlsxSheetName = "Summary"

// RenderXlsx writes the sweep's records to an xlsx workbook at the given
// path, one row per record under a bold header row. Unlike the CSV ledger
// this is a rendering of one sweep, not an append-only store; an existing
// file is replaced.
func RenderXlsx(w *Writer, records []Record, path string) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), xlsxSheetName); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := setRow(f, 1, w.header()); err != nil {
		return err
	}
	lastCell, err := cellName(len(w.header()), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(xlsxSheetName, "A1", lastCell, headerStyle); err != nil {
		return fmt.Errorf("failed to style header row: %w", err)
	}
	for recordIdx, record := range records {
		if err := setRow(f, recordIdx+2, w.fields(record)); err != nil {
			return err
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to write xlsx summary: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, row int, values []string) error {
	for col, value := range values {
		cell, err := cellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(xlsxSheetName, cell, value); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", cell, err)
		}
	}
	return nil
}

func cellName(col int, row int) (string, error) {
	columnName, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return "", fmt.Errorf("failed to compute cell name: %w", err)
	}
	return excelize.JoinCellName(columnName, row)
}
