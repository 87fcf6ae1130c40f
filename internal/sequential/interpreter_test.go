package sequential

import (
	"errors"
	"testing"

	"github.com/arthursmith001/coresim/internal/isa"
	"github.com/arthursmith001/coresim/internal/simerr"
)

func TestBasicArithmetic(t *testing.T) {
	it := New()
	it.LoadProgram([]uint32{
		isa.MakeInstruction(isa.OpMOV, 1, 0, 0, 3),
		isa.MakeInstruction(isa.OpMOV, 2, 0, 0, 5),
		isa.MakeInstruction(isa.OpADD, 0, 1, 2, 0),
		isa.MakeInstruction(isa.OpHALT, 0, 0, 0, 0),
	}, 0)

	if err := it.Run(0, 100); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !it.State.Halted {
		t.Fatalf("expected halted")
	}
	if it.State.Registers[0] != 8 || it.State.Registers[1] != 3 || it.State.Registers[2] != 5 {
		t.Fatalf("got R0=%d R1=%d R2=%d, want 8,3,5",
			it.State.Registers[0], it.State.Registers[1], it.State.Registers[2])
	}
}

func TestSimpleCallReturn(t *testing.T) {
	it := New()
	it.LoadProgram([]uint32{
		isa.MakeInstruction(isa.OpPUSH, 1, 0, 0, 0),
		isa.MakeInstruction(isa.OpCALL, 0, 0, 0, 0x100),
		isa.MakeInstruction(isa.OpPOP, 1, 0, 0, 0),
		isa.MakeInstruction(isa.OpHALT, 0, 0, 0, 0),
	}, 0)
	it.LoadProgram([]uint32{isa.MakeInstruction(isa.OpRET, 0, 0, 0, 0)}, 0x100)
	it.State.Registers[1] = 0x12345678

	if err := it.Run(0, 100); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if it.State.Registers[1] != 0x12345678 {
		t.Fatalf("R1 = %#x, want 0x12345678", it.State.Registers[1])
	}
	if len(it.State.Stack) != 0 {
		t.Fatalf("expected empty stack, got depth %d", len(it.State.Stack))
	}
	if it.State.PC != 0x10 {
		t.Fatalf("PC = %#x, want 0x10", it.State.PC)
	}
}

func TestFactorialOfFive(t *testing.T) {
	// R1=counter, R2=accumulator, R15=constant 1. The ISA has no
	// unconditional jump, so the backward edge is a BEQ forced to take by
	// comparing R0 against itself (always Z=true).
	//
	//   0x00 CMP  R1, R15
	//   0x04 BEQ  R1, exit        ; taken when counter has reached 1
	//   0x08 MUL  R2, R2, R1
	//   0x0c SUB  R1, R1, R15
	//   0x10 CMP  R0, R0          ; force Z
	//   0x14 BEQ  R0, loop        ; unconditional back-edge
	//   0x18 HALT                 ; exit
	it := New()
	const loopAddr, exitAddr = 0x00, 0x18
	backEdge := int16(loopAddr - 0x14)
	it.LoadProgram([]uint32{
		isa.MakeInstruction(isa.OpCMP, 0, 1, 15, 0),
		isa.MakeInstruction(isa.OpBEQ, 0, 1, 0, uint16(exitAddr-0x04)),
		isa.MakeInstruction(isa.OpMUL, 2, 2, 1, 0),
		isa.MakeInstruction(isa.OpSUB, 1, 1, 15, 0),
		isa.MakeInstruction(isa.OpCMP, 0, 0, 0, 0),
		isa.MakeInstruction(isa.OpBEQ, 0, 0, 0, uint16(backEdge)),
		isa.MakeInstruction(isa.OpHALT, 0, 0, 0, 0),
	}, 0)

	it.State.Registers[1] = 5
	it.State.Registers[2] = 1
	it.State.Registers[15] = 1

	if err := it.Run(0, 1000); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if it.State.Registers[2] != 120 {
		t.Fatalf("R2 = %d, want 120", it.State.Registers[2])
	}
	if len(it.State.Stack) != 0 {
		t.Fatalf("expected empty stack, got depth %d", len(it.State.Stack))
	}
}

func TestInvalidPC(t *testing.T) {
	it := New()
	err := it.Run(0, 10)
	if !errors.Is(err, simerr.ErrInvalidPC) {
		t.Fatalf("expected ErrInvalidPC, got %v", err)
	}
}

func TestResetPreservesProgram(t *testing.T) {
	it := New()
	it.LoadProgram([]uint32{isa.MakeInstruction(isa.OpHALT, 0, 0, 0, 0)}, 0)
	it.State.Registers[3] = 99
	it.Reset()
	if it.State.Registers[3] != 0 {
		t.Fatalf("reset must clear registers")
	}
	if err := it.Run(0, 10); err != nil {
		t.Fatalf("program should still be loaded after reset: %v", err)
	}
}

func TestBreakHookFiresOnMatch(t *testing.T) {
	it := New()
	it.LoadProgram([]uint32{
		isa.MakeInstruction(isa.OpNOP, 0, 0, 0, 0),
		isa.MakeInstruction(isa.OpHALT, 0, 0, 0, 0),
	}, 0)
	it.AddBreakpoint(0x04)
	hit := false
	it.BreakHook = func(pc uint32) {
		if pc == 0x04 {
			hit = true
		}
	}
	if err := it.Run(0, 10); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !hit {
		t.Fatalf("expected breakpoint hook to fire at 0x04")
	}
}
