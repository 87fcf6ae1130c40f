// Package pipeline implements the three-stage (F/D/E) pipelined
// interpreter, with data-hazard stalling and control-hazard flushing.
package pipeline

import (
	"fmt"

	"github.com/arthursmith001/coresim/internal/cpustate"
	"github.com/arthursmith001/coresim/internal/exec"
	"github.com/arthursmith001/coresim/internal/isa"
)

// Fetcher supplies instruction words to the pipeline and is the seam
// between a thread and whatever backs its memory — a shared
// memory.Controller for multi-core threads, or the thread's own
// cpustate.State for a single-core pipelined run.
type Fetcher interface {
	exec.MemoryPort
	InRange(addr uint32) bool
}

// Slots holds the current contents of the three pipeline stages. A nil
// pointer is a bubble.
type Slots struct {
	F, D, E *uint32
}

func slotString(word *uint32) string {
	if word == nil {
		return "bubble"
	}
	return isa.Mnemonic(*word)
}

// String renders the current pipeline slot contents for a cycle-by-cycle
// status display.
func (s Slots) String() string {
	return fmt.Sprintf("F=%s D=%s E=%s", slotString(s.F), slotString(s.D), slotString(s.E))
}

// Thread is one pipelined instruction stream. It owns its architectural
// state and routes LOAD/STORE through Mem, which may be private or shared.
type Thread struct {
	State *cpustate.State
	Mem   Fetcher

	Slots Slots

	StepCount        int
	StallDetected    bool
	FlushDetected    bool
	ModifiedRegisters map[uint8]struct{}

	Log []string

	// LastErr is the error raised by the most recent E-stage commit, if
	// any. A thread that fails execution is treated by its owning core as
	// halted (spec §7's pipelined-substrate error propagation policy).
	LastErr error
}

// NewThread returns a Thread whose architectural state routes memory
// access through mem.
func NewThread(mem Fetcher) *Thread {
	return &Thread{
		State: cpustate.New(),
		Mem:   mem,
	}
}

func (t *Thread) logf(format string, args ...any) {
	t.Log = append(t.Log, fmt.Sprintf(format, args...))
}

// LoadProgram sets PC to startAddr and writes words through Mem.
func (t *Thread) LoadProgram(words []uint32, startAddr uint32) bool {
	t.State.PC = startAddr
	ok := true
	for i, word := range words {
		if !t.Mem.Write(startAddr+uint32(i)*4, word) {
			ok = false
		}
	}
	return ok
}

// IsEmpty reports whether all three slots are bubbles.
func (t *Thread) IsEmpty() bool {
	return t.Slots.F == nil && t.Slots.D == nil && t.Slots.E == nil
}

// Done reports whether the thread has no more work: halted with an empty
// pipeline, or stopped on an error.
func (t *Thread) Done() bool {
	return t.LastErr != nil || (t.State.Halted && t.IsEmpty())
}

// fetch implements §4.3: fetching beyond loaded memory stores a bubble
// into F and does not advance PC.
func (t *Thread) fetch() {
	if !t.Mem.InRange(t.State.PC) {
		t.Slots.F = nil
		return
	}
	word := t.Mem.Read(t.State.PC)
	t.Slots.F = &word
	t.State.PC += 4
}

// hasDataHazard implements §4.3 step 2: D is a read-consumer whose source
// register(s) match E's write target.
func hasDataHazard(d, e *uint32) bool {
	if d == nil || e == nil {
		return false
	}
	dIn := isa.Decode(*d)
	eIn := isa.Decode(*e)
	if !isa.IsReadConsumer(dIn.Op) || !isa.IsWriteProducer(eIn.Op) {
		return false
	}
	if dIn.Op == isa.OpBEQ || dIn.Op == isa.OpLOAD {
		return dIn.Rs == eIn.Rd
	}
	return dIn.Rs == eIn.Rd || dIn.Rt == eIn.Rd
}

// String renders a one-line cycle status: PC, flags and pipeline contents.
func (t *Thread) String() string {
	status := fmt.Sprintf("step=%d pc=0x%08x flags={Z:%v N:%v C:%v} %s",
		t.StepCount, t.State.PC, t.State.Flags.Z, t.State.Flags.N, t.State.Flags.C, t.Slots)
	if t.StallDetected {
		status += " [STALL]"
	}
	if t.FlushDetected {
		status += " [FLUSH]"
	}
	return status
}

// Step performs exactly one pipeline_step cycle per §4.3.
func (t *Thread) Step() {
	if t.Done() {
		return
	}
	t.StepCount++
	t.ModifiedRegisters = make(map[uint8]struct{})

	if hasDataHazard(t.Slots.D, t.Slots.E) {
		t.Slots.E = nil
		t.StallDetected = true
		t.FlushDetected = false
		t.logf("[%d] DATA HAZARD: stall inserted", t.StepCount)
	} else {
		t.StallDetected = false
		t.FlushDetected = false
		t.Slots.E = t.Slots.D
		t.Slots.D = t.Slots.F
		t.fetch()
	}

	if t.Slots.E != nil {
		word := *t.Slots.E
		in := isa.Decode(word)
		// Execute expects PC just past the executing word, but D and F
		// already hold the words fetched after it: step PC back over them,
		// and restore it unless the instruction redirected control flow.
		fetchPC := t.State.PC
		for _, later := range []*uint32{t.Slots.D, t.Slots.F} {
			if later != nil {
				t.State.PC -= 4
			}
		}
		pcChanged, err := exec.Execute(t.State, t.Mem, word)
		if !pcChanged {
			t.State.PC = fetchPC
		}
		if err != nil {
			t.LastErr = err
			t.logf("execution stopped at step %d: %v", t.StepCount, err)
			return
		}
		if isa.IsWriteProducer(in.Op) {
			t.ModifiedRegisters[in.Rd] = struct{}{}
		}
		if pcChanged {
			t.Slots.F = nil
			t.Slots.D = nil
			t.FlushDetected = true
			t.StallDetected = false
			t.logf("[%d] CONTROL HAZARD: pipeline flushed", t.StepCount)
		}
	}
}
