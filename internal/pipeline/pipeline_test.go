package pipeline

import (
	"testing"

	"github.com/arthursmith001/coresim/internal/isa"
	"github.com/arthursmith001/coresim/internal/memory"
)

func runUntilDone(t *Thread, maxCycles int) {
	for i := 0; i < maxCycles && !t.Done(); i++ {
		t.Step()
	}
}

func TestDataHazardStall(t *testing.T) {
	mem := memory.New(256, 16, nil)
	th := NewThread(mem)
	th.LoadProgram([]uint32{
		isa.MakeInstruction(isa.OpMOV, 1, 0, 0, 10),
		isa.MakeInstruction(isa.OpADD, 2, 1, 1, 0),
		isa.MakeInstruction(isa.OpADD, 3, 2, 1, 0),
		isa.MakeInstruction(isa.OpHALT, 0, 0, 0, 0),
	}, 0)

	sawStall := false
	for i := 0; i < 100 && !th.Done(); i++ {
		th.Step()
		if th.StallDetected {
			sawStall = true
		}
	}
	if th.LastErr != nil {
		t.Fatalf("unexpected error: %v", th.LastErr)
	}
	if !sawStall {
		t.Fatalf("expected at least one stall cycle")
	}
	if th.State.Registers[1] != 10 || th.State.Registers[2] != 20 || th.State.Registers[3] != 30 {
		t.Fatalf("got R1=%d R2=%d R3=%d, want 10,20,30",
			th.State.Registers[1], th.State.Registers[2], th.State.Registers[3])
	}
}

func TestControlHazardFlush(t *testing.T) {
	mem := memory.New(256, 16, nil)
	th := NewThread(mem)
	// Addresses: 0x00 MOV R1,#0 / 0x04 MOV R2,#10 / 0x08 CMP R1,R1 (forces
	// Z=true) / 0x0c BEQ, taken, jumping over 0x10 MOV R3,#20 straight to
	// 0x14 HALT.
	th.LoadProgram([]uint32{
		isa.MakeInstruction(isa.OpMOV, 1, 0, 0, 0),
		isa.MakeInstruction(isa.OpMOV, 2, 0, 0, 10),
		isa.MakeInstruction(isa.OpCMP, 0, 1, 1, 0),
		isa.MakeInstruction(isa.OpBEQ, 0, 1, 0, uint16(0x14-0x0c)),
		isa.MakeInstruction(isa.OpMOV, 3, 0, 0, 20),
		isa.MakeInstruction(isa.OpHALT, 0, 0, 0, 0),
	}, 0)

	sawFlush := false
	for i := 0; i < 100 && !th.Done(); i++ {
		th.Step()
		if th.FlushDetected {
			sawFlush = true
		}
	}
	if th.LastErr != nil {
		t.Fatalf("unexpected error: %v", th.LastErr)
	}
	if !sawFlush {
		t.Fatalf("expected at least one flush cycle")
	}
	if th.State.Registers[3] != 0 {
		t.Fatalf("R3 = %d, want 0 (skipped by branch)", th.State.Registers[3])
	}
}

func TestEmptyPipelineAfterHalt(t *testing.T) {
	mem := memory.New(64, 4, nil)
	th := NewThread(mem)
	th.LoadProgram([]uint32{isa.MakeInstruction(isa.OpHALT, 0, 0, 0, 0)}, 0)
	runUntilDone(th, 20)
	if !th.IsEmpty() {
		t.Fatalf("pipeline must drain to all bubbles once halted")
	}
	if !th.Done() {
		t.Fatalf("thread must report done once halted and drained")
	}
}
