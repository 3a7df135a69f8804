// Package descr decodes the declarative YAML shape of a parse graph or
// accelerator pipeline (SPEC_FULL "Declarative construction", "Declarative
// pipeline description"). It knows nothing about callbacks: every named
// reference here is resolved by the caller against its own registry of Go
// implementations, the same way the teacher's compiler package resolves a
// message name against a registered descriptor rather than embedding
// behavior in the file itself.
package descr

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// GraphDescription is the declarative topology of a parse graph: node
// names, their registered implementation names, and key-keyed successor
// wiring. Cycles are expressed simply by one node naming an ancestor as a
// successor.
type GraphDescription struct {
	Root  string               `yaml:"root"`
	Nodes map[string]NodeEntry `yaml:"nodes"`
}

// NodeEntry is one node's declarative shape.
type NodeEntry struct {
	Kind            string            `yaml:"kind"`
	ProtoDef        string            `yaml:"proto_def"`
	Ops             string            `yaml:"ops"`
	TLVTable        string            `yaml:"tlv_table,omitempty"`
	FlagFieldsTable string            `yaml:"flag_fields_table,omitempty"`
	ArrayTable      string            `yaml:"array_table,omitempty"`
	KeySelector     int               `yaml:"key_selector,omitempty"`
	Flags           []string          `yaml:"flags,omitempty"`
	UnknownRet      string            `yaml:"unknown_ret,omitempty"`
	Wildcard        string            `yaml:"wildcard,omitempty"`
	Successors      map[string]string `yaml:"successors,omitempty"`
}

// ParseGraphDescription decodes a graph description from YAML.
func ParseGraphDescription(data []byte) (*GraphDescription, error) {
	var d GraphDescription
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("descr: parse graph description: %w", err)
	}
	if d.Root == "" {
		return nil, fmt.Errorf("descr: graph description has no root")
	}
	return &d, nil
}

// ParseKey parses a successor-table key as SPEC_FULL's YAML format allows:
// plain decimal, or 0x-prefixed hexadecimal (the common shape for protocol
// numbers and EtherTypes).
func ParseKey(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseInt(s[2:], 16, 64)
		if err != nil {
			return 0, fmt.Errorf("descr: bad hex key %q: %w", s, err)
		}
		return v, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("descr: bad key %q: %w", s, err)
	}
	return v, nil
}

// PipelineDescription is the declarative shape of an accelerator pipeline:
// an ordered stage list naming registered accelerators, with optional
// per-stage pipe size overrides (spec.md §4.8 "Per-stage sizes may be
// overridden via the pipeline description").
type PipelineDescription struct {
	Stages []StageEntry `yaml:"stages"`
}

// StageEntry is one stage's declarative shape.
type StageEntry struct {
	Accelerator string `yaml:"accelerator"`
	PipeSize    int    `yaml:"pipe_size,omitempty"`
}

// ParsePipelineDescription decodes a pipeline description from YAML.
func ParsePipelineDescription(data []byte) (*PipelineDescription, error) {
	var d PipelineDescription
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("descr: parse pipeline description: %w", err)
	}
	if len(d.Stages) < 2 {
		return nil, fmt.Errorf("descr: pipeline description needs at least 2 stages, got %d", len(d.Stages))
	}
	return &d, nil
}
