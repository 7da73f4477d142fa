package perfstat

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// ExecutionError reports a sampler invocation that exited with a non-zero
// status. The captured diagnostic stream is preserved for the raw-log
// artifact and the failure report.
type ExecutionError struct {
	ExitCode int
	Stderr   string
}

func (e *ExecutionError) Error() string {
	detail := strings.TrimSpace(e.Stderr)
	if detail == "" {
		return fmt.Sprintf("sampler exited with code %d", e.ExitCode)
	}
	return fmt.Sprintf("sampler exited with code %d: %s", e.ExitCode, detail)
}

// Run executes the sampler command and blocks until the combined sampler and
// target process tree exits. The captured stdout and stderr are returned
// regardless of outcome so callers can persist them. There is no timeout; a
// hung target blocks indefinitely.
func Run(cmd *exec.Cmd) (stdout string, stderr string, err error) {
	slog.Debug("running sampler", slog.String("cmd", cmd.String()))
	var outbuf, errbuf strings.Builder
	cmd.Stdout = &outbuf
	cmd.Stderr = &errbuf
	err = cmd.Run()
	stdout = outbuf.String()
	stderr = errbuf.String()
	if err != nil {
		exitError := &exec.ExitError{}
		if errors.As(err, &exitError) {
			err = &ExecutionError{ExitCode: exitError.ExitCode(), Stderr: stderr}
		} else {
			err = fmt.Errorf("failed to run sampler: %w", err)
		}
	}
	return
}
