// Package node defines the hardware node profiles known to the harness. A
// profile names the perf events to request on one hardware family and
// identifies which of those events account for DRAM fills.
package node

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"os"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	yaml "gopkg.in/yaml.v2"
)

// canonical event names shared by all built-in profiles
const (
	EventInstructions = "instructions"
	EventCycles       = "cycles"
	EventL1Loads      = "L1-dcache-loads"
	EventL1Misses     = "L1-dcache-load-misses"
	EventL2Accesses   = "l2_cache_accesses_from_dc_misses"
	EventL2Misses     = "l2_cache_misses_from_dc_misses"
)

// Profile describes the counter-event vocabulary of one hardware node. The
// event list is ordered as it will be requested from the sampler. The remote
// DRAM-fill event may be empty on nodes that do not expose one; such nodes
// contribute zero to remote fill totals.
type Profile struct {
	Name                string   `yaml:"name"`
	Events              []string `yaml:"events"`
	LocalDRAMFillEvent  string   `yaml:"local_dram_fill_event"`
	RemoteDRAMFillEvent string   `yaml:"remote_dram_fill_event"`
}

// HasRemoteDRAMFill reports whether the node exposes a remote DRAM-fill counter.
func (p Profile) HasRemoteDRAMFill() bool {
	return p.RemoteDRAMFillEvent != ""
}

// EventSet returns the profile's event names with qualifier suffixes stripped,
// as a set for membership tests.
func (p Profile) EventSet() mapset.Set[string] {
	set := mapset.NewSet[string]()
	for _, event := range p.Events {
		name, _, _ := strings.Cut(event, ":")
		set.Add(name)
	}
	return set
}

// UnknownNodeError is returned when a node name does not match any registered profile.
type UnknownNodeError struct {
	Node  string
	Known []string
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("unknown node %q, known nodes: %s", e.Node, strings.Join(e.Known, ", "))
}

// builtinProfiles are the statically known nodes. The first entry is the
// default. The milan nodes are dual-socket, so both local and remote DRAM
// fills are counted; the genoa node is single-socket and counts local fills
// only.
var builtinProfiles = []Profile{
	{
		Name: "milan",
		Events: []string{
			EventInstructions,
			EventCycles,
			EventL1Loads,
			EventL1Misses,
			EventL2Accesses,
			EventL2Misses,
			"ls_refills_from_sys.ls_mabresp_lcl_dram",
			"ls_refills_from_sys.ls_mabresp_rmt_dram",
		},
		LocalDRAMFillEvent:  "ls_refills_from_sys.ls_mabresp_lcl_dram",
		RemoteDRAMFillEvent: "ls_refills_from_sys.ls_mabresp_rmt_dram",
	},
	{
		Name: "genoa1p",
		Events: []string{
			EventInstructions,
			EventCycles,
			EventL1Loads,
			EventL1Misses,
			EventL2Accesses,
			EventL2Misses,
			"ls_any_fills_from_sys.dram_io_near",
		},
		LocalDRAMFillEvent: "ls_any_fills_from_sys.dram_io_near",
	},
}

// Registry holds the known node profiles in registration order. The first
// registered profile is the default.
type Registry struct {
	profiles []Profile
	byName   map[string]int
}

// NewRegistry returns a registry populated with the built-in node profiles.
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]int)}
	for _, profile := range builtinProfiles {
		r.add(profile)
	}
	return r
}

func (r *Registry) add(profile Profile) {
	if idx, ok := r.byName[profile.Name]; ok {
		r.profiles[idx] = profile
		return
	}
	r.byName[profile.Name] = len(r.profiles)
	r.profiles = append(r.profiles, profile)
}

// Resolve returns the profile registered under the given node name.
func (r *Registry) Resolve(name string) (Profile, error) {
	idx, ok := r.byName[name]
	if !ok {
		return Profile{}, &UnknownNodeError{Node: name, Known: r.Names()}
	}
	return r.profiles[idx], nil
}

// Default returns the primary node profile.
func (r *Registry) Default() Profile {
	return r.profiles[0]
}

// Names returns the registered node names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for _, profile := range r.profiles {
		names = append(names, profile.Name)
	}
	return names
}

// Profiles returns the registered profiles in registration order.
func (r *Registry) Profiles() []Profile {
	return r.profiles
}

// LoadFile registers additional profiles from a YAML file. A profile with the
// name of an existing profile replaces it. Each profile is validated before
// registration; the first invalid profile aborts the load.
func (r *Registry) LoadFile(path string) error {
	contents, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to read node profile file: %w", err)
	}
	var fileProfiles struct {
		Nodes []Profile `yaml:"nodes"`
	}
	if err := yaml.UnmarshalStrict(contents, &fileProfiles); err != nil {
		return fmt.Errorf("failed to parse node profile file %s: %w", path, err)
	}
	for _, profile := range fileProfiles.Nodes {
		if err := validateProfile(profile); err != nil {
			return fmt.Errorf("invalid node profile in %s: %w", path, err)
		}
		r.add(profile)
	}
	return nil
}

// validateProfile confirms the profile invariants: a name, a non-empty event
// list, a local DRAM-fill event that appears in the event list, and, when a
// remote DRAM-fill event is named, that it appears in the event list too.
func validateProfile(p Profile) error {
	if p.Name == "" {
		return fmt.Errorf("node profile is missing a name")
	}
	if len(p.Events) == 0 {
		return fmt.Errorf("node profile %q has no events", p.Name)
	}
	events := p.EventSet()
	if p.LocalDRAMFillEvent == "" {
		return fmt.Errorf("node profile %q has no local DRAM fill event", p.Name)
	}
	if !events.Contains(p.LocalDRAMFillEvent) {
		return fmt.Errorf("node profile %q local DRAM fill event %q is not in the event list", p.Name, p.LocalDRAMFillEvent)
	}
	if p.RemoteDRAMFillEvent != "" && !events.Contains(p.RemoteDRAMFillEvent) {
		return fmt.Errorf("node profile %q remote DRAM fill event %q is not in the event list", p.Name, p.RemoteDRAMFillEvent)
	}
	return nil
}
