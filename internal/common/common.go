// Package common defines data structures shared by the application commands.
package common

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var AppName = filepath.Base(os.Args[0])

// AppContext represents the application context that can be accessed from all commands.
type AppContext struct {
	Timestamp   string // Timestamp is the application startup time.
	OutputDir   string // OutputDir is the directory where the application will write ledger and artifact files.
	LogFilePath string // LogFilePath is the path to the application log file, empty when logging to stdout.
	Version     string // Version is the version of the application.
	Debug       bool   // Debug indicates whether debug logging is enabled.
}

type Flag struct {
	Name string
	Help string
}
type FlagGroup struct {
	GroupName string
	Flags     []Flag
}

// CreateOutputDir creates the output directory if it does not exist
func CreateOutputDir(outputDir string) error {
	err := os.MkdirAll(outputDir, 0755) // #nosec G301
	if err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// FlagValidationError is used to report an error with a flag
func FlagValidationError(cmd *cobra.Command, msg string) error {
	err := errors.New(msg)
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	fmt.Fprintf(os.Stderr, "See '%s --help' for usage details.\n", cmd.CommandPath())
	cmd.SilenceUsage = true
	return err
}
