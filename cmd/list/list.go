// Package list is a subcommand of the root command. It prints the node
// profiles and benchmark cases the harness knows about.
package list

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mpkibench/internal/cases"
	"mpkibench/internal/common"
	"mpkibench/internal/node"
)

const cmdName = "list"

var examples = []string{
	fmt.Sprintf("  List the known node profiles:      $ %s %s --nodes", common.AppName, cmdName),
	fmt.Sprintf("  List the cases in a matrix:        $ %s %s --cases --casefile cases.csv", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "List known node profiles and benchmark cases",
	Long:          "Lists the node profiles the harness can sample with and the cases defined in a case matrix.",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

var (
	flagNodes    bool
	flagCases    bool
	flagCaseFile string
	flagNodeFile string
)

const (
	flagNodesName    = "nodes"
	flagCasesName    = "cases"
	flagCaseFileName = "casefile"
	flagNodeFileName = "nodefile"
)

func init() {
	Cmd.Flags().BoolVar(&flagNodes, flagNodesName, false, "list the known node profiles")
	Cmd.Flags().BoolVar(&flagCases, flagCasesName, false, "list the cases in the case matrix")
	Cmd.Flags().StringVar(&flagCaseFile, flagCaseFileName, "cases.csv", "path to the case matrix CSV file")
	Cmd.Flags().StringVar(&flagNodeFile, flagNodeFileName, "", "path to a YAML file with additional or overriding node profiles")
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if !flagNodes && !flagCases {
		return common.FlagValidationError(cmd, fmt.Sprintf("one of --%s or --%s is required", flagNodesName, flagCasesName))
	}
	return nil
}

func runCmd(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	if flagNodes {
		registry := node.NewRegistry()
		if flagNodeFile != "" {
			if err := registry.LoadFile(flagNodeFile); err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to load node file: %v\n", err)
				return err
			}
		}
		defaultName := registry.Default().Name
		for _, profile := range registry.Profiles() {
			suffix := ""
			if profile.Name == defaultName {
				suffix = " (default)"
			}
			fmt.Printf("%s%s\n", profile.Name, suffix)
			fmt.Printf("  events: %s\n", strings.Join(profile.Events, ", "))
			fmt.Printf("  local DRAM fill event: %s\n", profile.LocalDRAMFillEvent)
			if profile.HasRemoteDRAMFill() {
				fmt.Printf("  remote DRAM fill event: %s\n", profile.RemoteDRAMFillEvent)
			}
		}
	}
	if flagCases {
		matrix, err := cases.Load(flagCaseFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to load case matrix: %v\n", err)
			return err
		}
		for _, definition := range matrix.Definitions() {
			if definition.Description != "" {
				fmt.Printf("%s: %s\n", definition.ID, definition.Description)
			} else {
				fmt.Println(definition.ID)
			}
		}
	}
	return nil
}
