// Package sequential implements the fetch/decode/execute interpreter: one
// instruction committed per Step, against a private cpustate.State.
package sequential

import (
	"fmt"

	"github.com/arthursmith001/coresim/internal/cpustate"
	"github.com/arthursmith001/coresim/internal/exec"
	"github.com/arthursmith001/coresim/internal/isa"
	"github.com/arthursmith001/coresim/internal/simerr"
)

// Interpreter is the non-pipelined substrate. Interactive debugging and
// terminal display are external collaborators; the interpreter only
// exposes the breakpoint list and a hook invoked before a breaking fetch.
type Interpreter struct {
	State       *cpustate.State
	StepCount   int
	Log         []string
	Breakpoints []uint32

	// BreakHook, if set, is called before any fetch whose PC matches an
	// entry in Breakpoints. It is the sole seam for an interactive driver.
	BreakHook func(pc uint32)
}

// New returns a ready-to-use Interpreter.
func New() *Interpreter {
	return &Interpreter{State: cpustate.New()}
}

// LoadProgram writes words to consecutive 4-byte-aligned addresses
// starting at startAddr.
func (it *Interpreter) LoadProgram(words []uint32, startAddr uint32) {
	for i, word := range words {
		it.State.WriteMemory(startAddr+uint32(i)*4, word)
	}
}

// Reset restores architectural state while preserving loaded memory, and
// clears the log and step counter.
func (it *Interpreter) Reset() {
	it.State.Reset()
	it.Log = nil
	it.StepCount = 0
}

// AddBreakpoint registers addr as a breakpoint.
func (it *Interpreter) AddBreakpoint(addr uint32) {
	it.Breakpoints = append(it.Breakpoints, addr)
}

func (it *Interpreter) isBreakpoint(addr uint32) bool {
	for _, bp := range it.Breakpoints {
		if bp == addr {
			return true
		}
	}
	return false
}

func (it *Interpreter) logf(format string, args ...any) {
	it.Log = append(it.Log, fmt.Sprintf(format, args...))
}

// Step fetches, decodes and executes exactly one instruction, incrementing
// StepCount. It returns simerr.ErrInvalidPC if PC names an address that was
// never written, and refuses to act once the interpreter is halted.
func (it *Interpreter) Step() error {
	if it.State.Halted {
		return nil
	}
	if it.BreakHook != nil && it.isBreakpoint(it.State.PC) {
		it.BreakHook(it.State.PC)
	}

	word, mapped := it.State.Fetch(it.State.PC)
	if !mapped {
		err := fmt.Errorf("%w: 0x%08x", simerr.ErrInvalidPC, it.State.PC)
		it.logf("execution stopped at step %d: %v", it.StepCount, err)
		return err
	}
	it.State.PC += 4

	if _, err := exec.Execute(it.State, it.State, word); err != nil {
		it.logf("execution stopped at step %d: %v", it.StepCount, err)
		return err
	}
	it.logf("[%d] %s", it.StepCount, isa.Mnemonic(word))
	it.StepCount++
	return nil
}

// Run executes from startAddr until halted, an error occurs, or maxSteps
// instructions have committed.
func (it *Interpreter) Run(startAddr uint32, maxSteps int) error {
	it.State.PC = startAddr
	for !it.State.Halted && it.StepCount < maxSteps {
		if err := it.Step(); err != nil {
			return err
		}
	}
	return nil
}
