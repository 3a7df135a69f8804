package pipeline

import (
	"fmt"

	"github.com/xdp2-go/xdp2/internal/descr"
)

// Build resolves a [descr.PipelineDescription] against a registry of named
// accelerators and freezes the result with [New] (SPEC_FULL "Declarative
// pipeline description", the Go-native analogue of spec.md §6.5's
// pipeline_init_all() initializing a statically declared pipeline).
func Build[T any](desc *descr.PipelineDescription, registry map[string]Accelerator[T]) (*Pipeline[T], error) {
	stages := make([]Stage[T], len(desc.Stages))
	for i, entry := range desc.Stages {
		acc, ok := registry[entry.Accelerator]
		if !ok {
			return nil, fmt.Errorf("pipeline: stage %d: unregistered accelerator %q", i, entry.Accelerator)
		}
		stages[i] = Stage[T]{Accelerator: acc, PipeSize: entry.PipeSize}
	}
	return New(stages)
}
