// Package run is a subcommand of the root command. It executes benchmark
// cases under the performance-counter sampler and records derived metrics.
package run

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"mpkibench/internal/common"
	"mpkibench/internal/node"
	"mpkibench/internal/util"
)

const cmdName = "run"

var examples = []string{
	fmt.Sprintf("  Run every case in the matrix:          $ %s %s --all --benchmark ./benchmark", common.AppName, cmdName),
	fmt.Sprintf("  Run two selected cases:                $ %s %s --cases seq_small,rand_large --benchmark ./benchmark", common.AppName, cmdName),
	fmt.Sprintf("  Run on a single-package node:          $ %s %s --all --node genoa1p --benchmark ./benchmark", common.AppName, cmdName),
	fmt.Sprintf("  Add custom metrics and a spreadsheet:  $ %s %s --all --benchmark ./benchmark --metricfile metrics.json --xlsx", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "Run benchmark cases under the sampler and record metrics",
	Long:          "Runs selected benchmark cases under the hardware performance-counter sampler, derives cache and memory efficiency metrics from the counter report, and appends one row per case to the summary ledger.",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.ArbitraryArgs,
	SilenceErrors: true,
}

var (
	// case selection options
	flagAll      bool
	flagCases    []string
	flagCaseFile string
	// execution options
	flagBenchmarkPath string
	flagNode          string
	flagNodeFile      string
	flagPerfPath      string
	// output options
	flagMetricFilePath string
	flagXlsx           bool
	flagPromAddr       string
)

const (
	flagAllName            = "all"
	flagCasesName          = "cases"
	flagCaseFileName       = "casefile"
	flagBenchmarkPathName  = "benchmark"
	flagNodeName           = "node"
	flagNodeFileName       = "nodefile"
	flagPerfPathName       = "perf"
	flagMetricFilePathName = "metricfile"
	flagXlsxName           = "xlsx"
	flagPromAddrName       = "promaddr"
)

func init() {
	Cmd.Flags().BoolVar(&flagAll, flagAllName, false, "")
	Cmd.Flags().StringSliceVar(&flagCases, flagCasesName, []string{}, "")
	Cmd.Flags().StringVar(&flagCaseFile, flagCaseFileName, "cases.csv", "")
	Cmd.Flags().StringVar(&flagBenchmarkPath, flagBenchmarkPathName, "", "")
	Cmd.Flags().StringVar(&flagNode, flagNodeName, node.NewRegistry().Default().Name, "")
	Cmd.Flags().StringVar(&flagNodeFile, flagNodeFileName, "", "")
	Cmd.Flags().StringVar(&flagPerfPath, flagPerfPathName, "perf", "")
	Cmd.Flags().StringVar(&flagMetricFilePath, flagMetricFilePathName, "", "")
	Cmd.Flags().BoolVar(&flagXlsx, flagXlsxName, false, "")
	Cmd.Flags().StringVar(&flagPromAddr, flagPromAddrName, "", "")

	Cmd.SetUsageFunc(usageFunc)
}

func usageFunc(cmd *cobra.Command) error {
	cmd.Printf("Usage: %s [flags] [case ids]\n\n", cmd.CommandPath())
	cmd.Printf("Examples:\n%s\n\n", cmd.Example)
	cmd.Println("Arguments:")
	cmd.Printf("  case ids (optional): case ids to run, equivalent to listing them with --%s\n\n", flagCasesName)
	cmd.Println("Flags:")
	for _, group := range getFlagGroups() {
		cmd.Printf("  %s:\n", group.GroupName)
		for _, flag := range group.Flags {
			flagDefault := ""
			if cmd.Flags().Lookup(flag.Name).DefValue != "" {
				flagDefault = fmt.Sprintf(" (default: %s)", cmd.Flags().Lookup(flag.Name).DefValue)
			}
			cmd.Printf("    --%-20s %s%s\n", flag.Name, flag.Help, flagDefault)
		}
	}
	cmd.Println("\nGlobal Flags:")
	cmd.Parent().PersistentFlags().VisitAll(func(pf *pflag.Flag) {
		flagDefault := ""
		if cmd.Parent().PersistentFlags().Lookup(pf.Name).DefValue != "" {
			flagDefault = fmt.Sprintf(" (default: %s)", cmd.Parent().PersistentFlags().Lookup(pf.Name).DefValue)
		}
		cmd.Printf("  --%-20s %s%s\n", pf.Name, pf.Usage, flagDefault)
	})
	return nil
}

func getFlagGroups() []common.FlagGroup {
	var groups []common.FlagGroup
	// case selection options
	flags := []common.Flag{
		{
			Name: flagAllName,
			Help: "run every case in the case matrix",
		},
		{
			Name: flagCasesName,
			Help: "comma separated list of case ids to run",
		},
		{
			Name: flagCaseFileName,
			Help: "path to the case matrix CSV file",
		},
	}
	groups = append(groups, common.FlagGroup{
		GroupName: "Case Selection Options",
		Flags:     flags,
	})
	// execution options
	flags = []common.Flag{
		{
			Name: flagBenchmarkPathName,
			Help: "path to the benchmark binary to run under the sampler (required)",
		},
		{
			Name: flagNodeName,
			Help: fmt.Sprintf("node profile to sample with, options: %s", strings.Join(node.NewRegistry().Names(), ", ")),
		},
		{
			Name: flagNodeFileName,
			Help: "path to a YAML file with additional or overriding node profiles",
		},
		{
			Name: flagPerfPathName,
			Help: "path to the perf binary",
		},
	}
	groups = append(groups, common.FlagGroup{
		GroupName: "Execution Options",
		Flags:     flags,
	})
	// output options
	flags = []common.Flag{
		{
			Name: flagMetricFilePathName,
			Help: "path to a JSON file with additional metric definitions, evaluated per case and added as ledger columns",
		},
		{
			Name: flagXlsxName,
			Help: "also render this sweep's records to a spreadsheet in the output directory",
		},
		{
			Name: flagPromAddrName,
			Help: "listen address, e.g. :9090, on which to publish the most recent case's metrics for scraping",
		},
	}
	groups = append(groups, common.FlagGroup{
		GroupName: "Output Options",
		Flags:     flags,
	})
	return groups
}

// mergeRequestedCases folds positional case ids into the --cases selection,
// preserving request order and dropping ids already requested.
func mergeRequestedCases(requested []string, args []string) []string {
	seen := mapset.NewSet[string](requested...)
	merged := requested
	for _, id := range args {
		if seen.Add(id) {
			merged = append(merged, id)
		}
	}
	return merged
}

func validateFlags(cmd *cobra.Command, args []string) error {
	flagCases = mergeRequestedCases(flagCases, args)
	if flagBenchmarkPath == "" {
		return common.FlagValidationError(cmd, fmt.Sprintf("--%s is required", flagBenchmarkPathName))
	}
	exists, err := util.FileExists(flagBenchmarkPath)
	if err != nil || !exists {
		return common.FlagValidationError(cmd, fmt.Sprintf("benchmark binary not found at %s", flagBenchmarkPath))
	}
	if !flagAll && len(flagCases) == 0 {
		return common.FlagValidationError(cmd, fmt.Sprintf("one of --%s or --%s is required", flagAllName, flagCasesName))
	}
	if flagAll && len(flagCases) > 0 {
		return common.FlagValidationError(cmd, fmt.Sprintf("--%s and --%s are mutually exclusive", flagAllName, flagCasesName))
	}
	exists, err = util.FileExists(flagCaseFile)
	if err != nil || !exists {
		return common.FlagValidationError(cmd, fmt.Sprintf("case matrix not found at %s", flagCaseFile))
	}
	if flagNodeFile != "" {
		exists, err = util.FileExists(flagNodeFile)
		if err != nil || !exists {
			return common.FlagValidationError(cmd, fmt.Sprintf("node file not found at %s", flagNodeFile))
		}
	}
	if flagMetricFilePath != "" {
		exists, err = util.FileExists(flagMetricFilePath)
		if err != nil || !exists {
			return common.FlagValidationError(cmd, fmt.Sprintf("metric definition file not found at %s", flagMetricFilePath))
		}
	}
	return nil
}
