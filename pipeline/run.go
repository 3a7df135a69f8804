package pipeline

import "fmt"

// Stats holds per-stage consecutive-stall counts (spec.md §4.8 "a counter
// tracks consecutive zero-output calls"). Run keeps them internally for the
// duration of one call; it does not return or otherwise expose them.
type Stats struct {
	StageStalls []int
}

type runState struct {
	firstErr *PipelineError
	stats    Stats
}

func newRunState(numStages int) *runState {
	return &runState{stats: Stats{StageStalls: make([]int, numStages)}}
}

func (r *runState) record(stage, produced, consumed int) {
	if produced == 0 && consumed == 0 {
		r.stats.StageStalls[stage]++
	} else {
		r.stats.StageStalls[stage] = 0
	}
	if produced < 0 && produced != Again && r.firstErr == nil {
		r.firstErr = &PipelineError{Stage: stage, Code: produced}
	}
}

// invoke calls h, enforcing the fatal assertions spec.md §4.8 requires of
// every stage handler.
func invoke[T any](h Handler[T], in, out []T) (produced, consumed int) {
	c := 0
	p := h(in, out, &c)
	if c < 0 || c > len(in) {
		panic(fmt.Sprintf("pipeline: handler consumed %d of %d available input elements", c, len(in)))
	}
	if p > len(out) {
		panic(fmt.Sprintf("pipeline: handler produced %d elements into a %d-element output", p, len(out)))
	}
	return p, c
}

// runPass drives the stages in order (spec.md §4.8 "Driving the pipeline"
// steps 1-3): stage 0 is called once to consume from in and fill pipe 0;
// each later stage is called repeatedly, until its upstream pipe drains or
// it stops making progress, with intermediate stages feeding the next pipe
// and the last stage writing straight into out. It returns stage 0's own (produced,
// consumed), the sum of every element produced anywhere in the pass, and
// how many elements were written into out.
func runPass[T any](p *Pipeline[T], in []T, out []T, state *runState) (produced0, consumed0, totalProduced, producedOut int) {
	scratch := make([]T, p.pipes[0].Free())
	produced0, consumed0 = invoke(p.stages[0].Accelerator.Handle, in, scratch)
	state.record(0, produced0, consumed0)
	if produced0 > 0 {
		p.pipes[0].PushN(scratch[:produced0])
		totalProduced += produced0
	}

	last := len(p.stages) - 1
	for i := 1; i < last; i++ {
		upstream, downstream := p.pipes[i-1], p.pipes[i]
		for !upstream.Empty() {
			inBuf := make([]T, upstream.Len())
			upstream.Peek(inBuf)
			outBuf := make([]T, downstream.Free())
			produced, consumed := invoke(p.stages[i].Accelerator.Handle, inBuf, outBuf)
			state.record(i, produced, consumed)
			upstream.Discard(consumed)
			if produced > 0 {
				downstream.PushN(outBuf[:produced])
				totalProduced += produced
			}
			if produced <= 0 && consumed == 0 {
				break
			}
		}
	}

	upstream := p.pipes[last-1]
	for !upstream.Empty() && producedOut < len(out) {
		inBuf := make([]T, upstream.Len())
		upstream.Peek(inBuf)
		produced, consumed := invoke(p.stages[last].Accelerator.Handle, inBuf, out[producedOut:])
		state.record(last, produced, consumed)
		upstream.Discard(consumed)
		if produced > 0 {
			producedOut += produced
			totalProduced += produced
		}
		if produced <= 0 && consumed == 0 {
			break
		}
	}
	return
}

// Run drives p to exhaustion over in, writing results into out, and returns
// how many input elements were consumed and how many output elements were
// produced (spec.md §4.8 "Driving the pipeline"). Run loops pushing input
// through stage 0 and draining downstream stages until stage 0 has consumed
// all of in and produced nothing more; it then runs a finalization pass,
// feeding every stage empty input until the whole pipeline goes quiet, so
// that data already in flight past stage 0 is flushed into out.
//
// err is the first stage error observed, if any, as a *[PipelineError].
func Run[T any](p *Pipeline[T], in []T, out []T) (consumed, produced int, err error) {
	state := newRunState(len(p.stages))
	cursor := 0
	outTotal := 0

	for {
		produced0, consumed0, _, producedOut := runPass(p, in[cursor:], out[outTotal:], state)
		cursor += consumed0
		outTotal += producedOut
		if state.firstErr != nil {
			break
		}
		if cursor >= len(in) && produced0 <= 0 {
			break
		}
	}

	if state.firstErr == nil {
		for {
			_, _, total, producedOut := runPass(p, nil, out[outTotal:], state)
			outTotal += producedOut
			if state.firstErr != nil || total == 0 {
				break
			}
		}
	}

	if state.firstErr != nil {
		return cursor, outTotal, state.firstErr
	}
	return cursor, outTotal, nil
}

// RunD drives a byte pipeline (spec.md §6.5 "run_d"), collapsing the C
// implementation's pipeline_run_dd/dp/dx specializations into one
// instantiation of the generic [Run].
func RunD(p *Pipeline[byte], in, out []byte) (consumed, produced int, err error) {
	return Run(p, in, out)
}

// RunP drives a packet pipeline (spec.md §6.5 "run_p"), collapsing
// pipeline_run_pd/pp/px into one instantiation of [Run].
func RunP(p *Pipeline[Packet], in, out []Packet) (consumed, produced int, err error) {
	return Run(p, in, out)
}
