package cmd

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"log/slog"
	"log/syslog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// SyslogHandler is a slog.Handler that logs to syslog.
type SyslogHandler struct {
	writer     *syslog.Writer
	logLeveler slog.Leveler
	addSource  bool
}

func NewSyslogHandler(logOpts *slog.HandlerOptions) (*SyslogHandler, error) {
	writer, err := syslog.New(syslog.LOG_INFO|syslog.LOG_USER, filepath.Base(os.Args[0]))
	if err != nil {
		return nil, err
	}
	return &SyslogHandler{writer: writer, logLeveler: logOpts.Level, addSource: logOpts.AddSource}, nil
}

// formatRecord renders one log record as a single key=value line for the
// syslog transport, which carries its own timestamp and program tag.
func formatRecord(r slog.Record, addSource bool) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "level=%s", r.Level.String())
	if addSource && r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		frame, _ := frames.Next()
		fmt.Fprintf(&builder, " source=%s:%d", sourcePath(frame.File), frame.Line)
	}
	fmt.Fprintf(&builder, " msg=%q", r.Message)
	r.Attrs(func(attr slog.Attr) bool {
		fmt.Fprintf(&builder, " %s=%q", attr.Key, attr.Value.String())
		return true
	})
	return builder.String()
}

// sourcePath shortens an absolute source file path to one relative to the
// working directory when the file lives under it.
func sourcePath(file string) string {
	if !strings.HasPrefix(file, "/") {
		return file
	}
	wd, err := os.Getwd()
	if err != nil {
		return file
	}
	rel, err := filepath.Rel(wd, file)
	if err != nil || strings.HasPrefix(rel, "..") {
		return file
	}
	return filepath.Join(filepath.Base(wd), rel)
}

func (h *SyslogHandler) Handle(ctx context.Context, r slog.Record) error {
	msg := formatRecord(r, h.addSource)
	switch r.Level {
	case slog.LevelDebug:
		return h.writer.Debug(msg)
	case slog.LevelInfo:
		return h.writer.Info(msg)
	case slog.LevelWarn:
		return h.writer.Warning(msg)
	case slog.LevelError:
		return h.writer.Err(msg)
	default:
		return h.writer.Info(msg)
	}
}

func (h *SyslogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *SyslogHandler) WithGroup(name string) slog.Handler {
	return h
}

func (h *SyslogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.logLeveler.Level()
}
