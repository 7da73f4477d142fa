package perfstat

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// 'perf stat -x ,' counter report parsing. The report arrives on perf's
// stderr as lines of the form: value,unit,event-name[:qualifier],...

import (
	"log/slog"
	"strconv"
	"strings"

	"mpkibench/internal/node"
)

// CounterReport maps a canonical (qualifier-stripped) event name to its
// sampled count. Events that were requested but do not appear in the report
// are treated as zero by Count.
type CounterReport map[string]uint64

// Count returns the sampled count for the given canonical event name, or zero
// when the event is absent from the report.
func (r CounterReport) Count(event string) uint64 {
	return r[event]
}

// ParseStatOutput converts raw 'perf stat' diagnostic output into a
// CounterReport for the events named by the profile. Malformed lines are
// dropped, unavailable-counter sentinels count as zero, and repeated lines
// for the same canonical event overwrite earlier ones, so the parser never
// fails; at worst it returns an empty report.
func ParseStatOutput(raw string, profile node.Profile) CounterReport {
	report := make(CounterReport)
	requested := profile.EventSet()
	for _, line := range strings.Split(raw, "\n") {
		fields := strings.Split(line, ",")
		if len(fields) < 3 {
			continue
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		name := canonicalEventName(fields[2])
		if name == "" || !requested.Contains(name) {
			continue
		}
		value := fields[0]
		var count uint64
		if isUnavailable(value) {
			// perf renders counters it could not sample as <not counted> or
			// <not supported>; both mean a count of zero, not a failure
			count = 0
		} else {
			parsed, err := strconv.ParseUint(value, 10, 64)
			if err != nil {
				slog.Debug("dropping unparseable counter line", slog.String("line", line), slog.String("error", err.Error()))
				continue
			}
			count = parsed
		}
		// perf may emit per-CPU or intermediate lines for the same event; the
		// last line is the aggregate, so later lines win
		report[name] = count
	}
	return report
}

// canonicalEventName strips the qualifier suffix perf attaches to an event
// name, e.g. "cycles:u" becomes "cycles".
func canonicalEventName(event string) string {
	name, _, _ := strings.Cut(event, ":")
	return name
}

// isUnavailable reports whether a value field is an angle-bracketed sentinel
// such as <not counted> or <not supported>.
func isUnavailable(value string) bool {
	return len(value) >= 2 && strings.HasPrefix(value, "<") && strings.HasSuffix(value, ">")
}
