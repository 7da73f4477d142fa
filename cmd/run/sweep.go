package run

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"mpkibench/internal/cases"
	"mpkibench/internal/common"
	"mpkibench/internal/ledger"
	"mpkibench/internal/metric"
	"mpkibench/internal/node"
	"mpkibench/internal/perfstat"
)

const ledgerFileName = "summary.csv"
const xlsxFileName = "summary.xlsx"

func runCmd(cmd *cobra.Command, args []string) error {
	// appContext is the application context that holds common data and resources.
	appContext := cmd.Parent().Context().Value(common.AppContext{}).(common.AppContext)
	// resolve the node profile before anything is launched so that an unknown
	// node never produces partial artifacts
	registry := node.NewRegistry()
	if flagNodeFile != "" {
		if err := registry.LoadFile(flagNodeFile); err != nil {
			err = fmt.Errorf("failed to load node file: %w", err)
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			slog.Error(err.Error())
			cmd.SilenceUsage = true
			return err
		}
	}
	profile, err := registry.Resolve(flagNode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		slog.Error(err.Error())
		cmd.SilenceUsage = true
		return err
	}
	// load the case matrix
	matrix, err := cases.Load(flagCaseFile)
	if err != nil {
		err = fmt.Errorf("failed to load case matrix: %w", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		slog.Error(err.Error())
		cmd.SilenceUsage = true
		return err
	}
	// build the run list, dropping unknown ids with a report
	definitions := selectCases(matrix)
	if len(definitions) == 0 {
		err := fmt.Errorf("no requested cases found in %s", flagCaseFile)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		slog.Error(err.Error())
		cmd.SilenceUsage = true
		return err
	}
	// load custom metric definitions, a bad definition file is fatal
	var customDefs []metric.Definition
	if flagMetricFilePath != "" {
		customDefs, err = metric.LoadDefinitions(flagMetricFilePath)
		if err != nil {
			err = fmt.Errorf("failed to load metric definitions: %w", err)
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			slog.Error(err.Error())
			cmd.SilenceUsage = true
			return err
		}
	}
	cmd.SilenceUsage = true
	if err := common.CreateOutputDir(appContext.OutputDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		slog.Error(err.Error())
		return err
	}
	if flagPromAddr != "" {
		startPromServer(flagPromAddr)
	}
	writer := ledger.NewWriter(filepath.Join(appContext.OutputDir, ledgerFileName), metric.Names(customDefs))
	sweep := sweeper{
		appContext: appContext,
		profile:    profile,
		customDefs: customDefs,
		writer:     writer,
		printer:    message.NewPrinter(language.English),
		onTerminal: term.IsTerminal(int(os.Stdout.Fd())),
	}
	var records []ledger.Record
	var failures int
	for i, definition := range definitions {
		sweep.status(fmt.Sprintf("[%d/%d] %s", i+1, len(definitions), definition.ID))
		record, err := sweep.runCase(definition)
		if err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "Error: case %s: %v\n", definition.ID, err)
			slog.Error("case failed", slog.String("case", definition.ID), slog.String("error", err.Error()))
			continue
		}
		records = append(records, record)
		sweep.report(record)
	}
	if flagXlsx && len(records) > 0 {
		xlsxPath := filepath.Join(appContext.OutputDir, xlsxFileName)
		if err := ledger.RenderXlsx(writer, records, xlsxPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to render spreadsheet: %v\n", err)
			slog.Error(err.Error())
		} else {
			fmt.Printf("Spreadsheet written to %s\n", xlsxPath)
		}
	}
	fmt.Printf("%d of %d cases completed, ledger at %s\n", len(records), len(definitions), writer.Path())
	if len(records) == 0 && failures > 0 {
		return fmt.Errorf("all %d cases failed", failures)
	}
	return nil
}

// selectCases returns the case definitions to run, in matrix order when --all
// is set, otherwise in the order requested. Unknown ids are reported and
// skipped, they do not abort the sweep.
func selectCases(matrix *cases.Matrix) []cases.Definition {
	if flagAll {
		return matrix.Definitions()
	}
	var definitions []cases.Definition
	for _, id := range flagCases {
		definition, ok := matrix.Get(id)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: case %q not found in %s, skipping\n", id, flagCaseFile)
			slog.Warn("requested case not in matrix", slog.String("case", id))
			continue
		}
		definitions = append(definitions, definition)
	}
	return definitions
}

type sweeper struct {
	appContext common.AppContext
	profile    node.Profile
	customDefs []metric.Definition
	writer     *ledger.Writer
	printer    *message.Printer
	onTerminal bool
}

// runCase executes one case under the sampler and appends its record to the
// ledger. The raw artifact is written even when the sampler fails, so that a
// failing case leaves its output behind for inspection.
func (s sweeper) runCase(definition cases.Definition) (ledger.Record, error) {
	resolved, err := definition.Resolve()
	if err != nil {
		return ledger.Record{}, err
	}
	statCmd := perfstat.Command(flagPerfPath, s.profile, flagBenchmarkPath, resolved.Args())
	slog.Info("running case", slog.String("case", definition.ID), slog.String("command", strings.Join(statCmd.Args, " ")))
	stdout, stderr, runErr := perfstat.Run(statCmd)
	artifactPath := filepath.Join(s.appContext.OutputDir, fmt.Sprintf("perf_%s_%s.log", definition.ID, s.appContext.Timestamp))
	if err := writeArtifact(artifactPath, definition.ID, s.profile.Name, resolved.Args(), strings.Join(statCmd.Args, " "), stdout, stderr); err != nil {
		slog.Error("failed to write artifact", slog.String("case", definition.ID), slog.String("error", err.Error()))
		if runErr == nil {
			return ledger.Record{}, err
		}
	}
	if runErr != nil {
		return ledger.Record{}, runErr
	}
	report := perfstat.ParseStatOutput(stderr, s.profile)
	metrics, err := metric.Derive(report, s.profile)
	if err != nil {
		return ledger.Record{}, err
	}
	record := ledger.Record{
		CaseID:      definition.ID,
		Node:        s.profile.Name,
		Resolved:    resolved,
		Metrics:     metrics,
		Custom:      metric.EvaluateCustom(s.customDefs, report),
		Description: definition.Description,
		RawLogPath:  artifactPath,
	}
	if err := s.writer.Append(record); err != nil {
		return ledger.Record{}, fmt.Errorf("failed to append to ledger: %w", err)
	}
	publishRecord(record)
	return record, nil
}

// status prints a one-line progress update when stdout is a terminal.
func (s sweeper) status(line string) {
	if !s.onTerminal {
		return
	}
	fmt.Println(line)
}

// report prints the headline numbers for a completed case.
func (s sweeper) report(record ledger.Record) {
	if !s.onTerminal {
		return
	}
	ipc := "n/a"
	if record.Metrics.IPC != nil {
		ipc = fmt.Sprintf("%.4f", *record.Metrics.IPC)
	}
	s.printer.Printf("    %d instructions, IPC %s, L1 MPKI %.4f, L2 MPKI %.4f, DRAM fill PKI %.4f\n",
		record.Metrics.Instructions, ipc, record.Metrics.L1MPKI, record.Metrics.L2MPKI, record.Metrics.DRAMFillPKI)
}

// writeArtifact writes the raw sampler output for one case. The stderr section
// holds the counter report, kept verbatim so a record can always be traced
// back to the counts it was derived from.
func writeArtifact(path string, caseID string, nodeName string, resolvedArgs []string, commandLine string, stdout string, stderr string) error {
	var builder strings.Builder
	fmt.Fprintf(&builder, "case: %s\n", caseID)
	fmt.Fprintf(&builder, "node: %s\n", nodeName)
	fmt.Fprintf(&builder, "args: %s\n", strings.Join(resolvedArgs, " "))
	fmt.Fprintf(&builder, "command: %s\n", commandLine)
	builder.WriteString("=== STDOUT ===\n")
	builder.WriteString(stdout)
	if stdout != "" && !strings.HasSuffix(stdout, "\n") {
		builder.WriteString("\n")
	}
	builder.WriteString("=== STDERR ===\n")
	builder.WriteString(stderr)
	if stderr != "" && !strings.HasSuffix(stderr, "\n") {
		builder.WriteString("\n")
	}
	err := os.WriteFile(path, []byte(builder.String()), 0644) // #nosec G306
	if err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	return nil
}
