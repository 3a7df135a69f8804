package pipeline

import "fmt"

// DefaultBytePipeSize is the default capacity of an inter-stage pipe when
// the element type is a byte run (spec.md §4.8 "Pipe sizing": "power of two
// >= 2 KiB").
const DefaultBytePipeSize = 2048

// DefaultPacketPipeSize is the default inter-stage pipe capacity when the
// element type is a packet (spec.md §4.8: "small constant (e.g., 256
// slots)").
const DefaultPacketPipeSize = 256

// Stage is one accelerator bound into a [Pipeline], with an optional
// override of its upstream pipe's capacity (spec.md §4.8 "Per-stage sizes
// may be overridden via the pipeline description").
type Stage[T any] struct {
	Accelerator Accelerator[T]
	PipeSize    int
}

// Pipeline is a frozen chain of 2-10 stages connected by SPSC pipes
// (spec.md §4.8; SPEC_FULL's `pipeline.Build`). The first stage consumes the
// caller's input; the last writes into the caller's output buffer; every
// stage in between is fed by the previous stage's pipe and feeds the next.
type Pipeline[T any] struct {
	stages []Stage[T]
	pipes  []*Pipe[T]
}

// PipelineOption configures a [Pipeline] at construction time, mirroring
// the functional-options pattern used by [github.com/xdp2-go/xdp2.GraphOption].
type PipelineOption[T any] struct {
	apply func(*buildState[T])
}

type buildState[T any] struct {
	defaultPipeSize int
}

// WithDefaultPipeSize overrides every stage's pipe capacity that did not
// itself set Stage.PipeSize.
func WithDefaultPipeSize[T any](n int) PipelineOption[T] {
	return PipelineOption[T]{apply: func(b *buildState[T]) { b.defaultPipeSize = n }}
}

// New builds a Pipeline from 2-10 ordered stages (spec.md §4.8's "Pipeline"
// is not more precisely bounded; 2-10 follows SPEC_FULL's module summary).
func New[T any](stages []Stage[T], opts ...PipelineOption[T]) (*Pipeline[T], error) {
	if len(stages) < 2 || len(stages) > 10 {
		return nil, fmt.Errorf("pipeline: stage count %d out of range [2,10]", len(stages))
	}
	b := &buildState[T]{defaultPipeSize: defaultSizeFor[T]()}
	for _, o := range opts {
		o.apply(b)
	}

	pipes := make([]*Pipe[T], len(stages)-1)
	for i := range pipes {
		size := stages[i+1].PipeSize // pipes[i] is stage i+1's upstream pipe
		if size == 0 {
			size = b.defaultPipeSize
		}
		pipes[i] = NewPipe[T](size)
	}
	return &Pipeline[T]{stages: append([]Stage[T](nil), stages...), pipes: pipes}, nil
}

func defaultSizeFor[T any]() int {
	var zero T
	switch any(zero).(type) {
	case byte:
		return DefaultBytePipeSize
	default:
		return DefaultPacketPipeSize
	}
}

// NumStages reports how many stages p runs.
func (p *Pipeline[T]) NumStages() int { return len(p.stages) }
