package perfstat

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"testing"

	"mpkibench/internal/node"
)

func testProfile() node.Profile {
	return node.Profile{
		Name: "test",
		Events: []string{
			node.EventInstructions,
			node.EventCycles,
			node.EventL1Loads,
			node.EventL1Misses,
			"ls_refills_from_sys.ls_mabresp_lcl_dram",
		},
		LocalDRAMFillEvent: "ls_refills_from_sys.ls_mabresp_lcl_dram",
	}
}

func TestParseStatOutput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want CounterReport
	}{
		{
			name: "TypicalReport",
			raw: `# started on Thu Aug 28 10:15:02 2025

1000,,instructions,901214,100.00,,
500,,cycles,901214,100.00,,
800,,L1-dcache-loads,901214,100.00,,
80,,L1-dcache-load-misses,901214,100.00,,
2,,ls_refills_from_sys.ls_mabresp_lcl_dram,901214,100.00,,
`,
			want: CounterReport{
				"instructions":          1000,
				"cycles":                500,
				"L1-dcache-loads":       800,
				"L1-dcache-load-misses": 80,
				"ls_refills_from_sys.ls_mabresp_lcl_dram": 2,
			},
		},
		{
			name: "UnavailableSentinelCountsAsZero",
			raw:  `<not counted>,,cycles:u,100,0.00,,`,
			want: CounterReport{"cycles": 0},
		},
		{
			name: "NotSupportedSentinelCountsAsZero",
			raw:  `<not supported>,,L1-dcache-loads,0,100.00,,`,
			want: CounterReport{"L1-dcache-loads": 0},
		},
		{
			name: "QualifierSuffixStripped",
			raw:  `500,,cycles:u,901214,100.00,,`,
			want: CounterReport{"cycles": 500},
		},
		{
			name: "LastLineWinsForRepeatedEvent",
			raw: `100,,cycles,1,50.0,,
500,,cycles,1,100.0,,`,
			want: CounterReport{"cycles": 500},
		},
		{
			name: "MalformedValueDropped",
			raw: `banana,,cycles,1,100.0,,
1000,,instructions,1,100.0,,`,
			want: CounterReport{"instructions": 1000},
		},
		{
			name: "ShortLinesDropped",
			raw: `Performance counter stats for './benchmark 1024':
1000,instructions
500,,cycles,1,100.0,,`,
			want: CounterReport{"cycles": 500},
		},
		{
			name: "EventsOutsideProfileIgnored",
			raw: `42,,branch-misses,1,100.0,,
500,,cycles,1,100.0,,`,
			want: CounterReport{"cycles": 500},
		},
		{
			name: "WhitespaceTrimmedPerField",
			raw:  `  500 , , cycles , 1 , 100.0 ,,`,
			want: CounterReport{"cycles": 500},
		},
		{
			name: "EmptyInput",
			raw:  "",
			want: CounterReport{},
		},
	}

	profile := testProfile()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseStatOutput(tt.raw, profile)
			if len(got) != len(tt.want) {
				t.Fatalf("ParseStatOutput() = %v, want %v", got, tt.want)
			}
			for event, count := range tt.want {
				if got[event] != count {
					t.Errorf("ParseStatOutput()[%q] = %d, want %d", event, got[event], count)
				}
			}
		})
	}
}

func TestCountMissingEventIsZero(t *testing.T) {
	report := CounterReport{"cycles": 500}
	if got := report.Count("instructions"); got != 0 {
		t.Errorf("Count(instructions) = %d, want 0", got)
	}
}

func TestCanonicalEventName(t *testing.T) {
	tests := []struct {
		event string
		want  string
	}{
		{"cycles:u", "cycles"},
		{"instructions:k", "instructions"},
		{"cycles", "cycles"},
		{"ls_refills_from_sys.ls_mabresp_lcl_dram", "ls_refills_from_sys.ls_mabresp_lcl_dram"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := canonicalEventName(tt.event); got != tt.want {
			t.Errorf("canonicalEventName(%q) = %q, want %q", tt.event, got, tt.want)
		}
	}
}
