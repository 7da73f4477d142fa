// Package perfstat builds 'perf stat' invocations for a node profile, runs
// them, and parses the counter report from the sampler's diagnostic output.
package perfstat

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"os/exec"
	"strings"

	"mpkibench/internal/node"
)

// statFieldDelimiter is passed to 'perf stat -x' to request machine-readable
// output, one comma-delimited record per counter.
const statFieldDelimiter = ","

// StatArgs returns the argument vector for one combined 'perf stat' run that
// samples all of the profile's events concurrently and launches the target
// under it. The target arguments are appended verbatim, in order.
func StatArgs(profile node.Profile, targetPath string, targetArgs []string) []string {
	args := []string{"stat", "-x", statFieldDelimiter}
	args = append(args, "-e", strings.Join(profile.Events, ","))
	args = append(args, "--", targetPath)
	args = append(args, targetArgs...)
	return args
}

// Command assembles the command that will be executed to collect counter data
// for one measurement.
func Command(perfPath string, profile node.Profile, targetPath string, targetArgs []string) *exec.Cmd {
	return exec.Command(perfPath, StatArgs(profile, targetPath, targetArgs)...) // #nosec G204 // nosemgrep
}
