package pipeline

// Again is the distinguished produced value meaning "no output ready, try
// later" rather than an error (spec.md §4.8 "a negative value ≠ -EAGAIN"):
// the pipeline never records it as the pipeline's first error.
const Again = -11

// Handler runs one stage's processing step over a run of input elements,
// writing into out and reporting how many elements it consumed through the
// consumed pointer (spec.md §4.8 "Stage execution": "returns a signed
// produced and an output parameter consumed"). A negative return other than
// [Again] is a StopCode-shaped error; consumed must never exceed len(in),
// and the return value must never exceed len(out) — both are enforced as
// fatal assertions by the driver, matching spec.md's "over-production ...
// is a fatal assertion".
type Handler[T any] func(in []T, out []T, consumed *int) int

// Accelerator names a Handler for use in a declaratively-built [Pipeline]
// (SPEC_FULL "Declarative pipeline description").
type Accelerator[T any] struct {
	Name   string
	Handle Handler[T]
}
