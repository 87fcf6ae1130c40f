// Package exec implements the shared instruction semantics of internal/isa
// against architectural state, so the sequential and pipelined substrates
// execute identical opcode behaviour (spec: "same semantics as §4.1").
package exec

import (
	"fmt"

	"github.com/arthursmith001/coresim/internal/cpustate"
	"github.com/arthursmith001/coresim/internal/isa"
	"github.com/arthursmith001/coresim/internal/simerr"
)

// MemoryPort is the narrow memory interface LOAD/STORE execute against.
// cpustate.State implements it directly for the sequential substrate;
// internal/memory.Controller implements it for pipelined threads.
type MemoryPort interface {
	Read(addr uint32) uint32
	Write(addr uint32, word uint32) bool
}

func checkRegister(idx uint8) error {
	if int(idx) >= cpustate.NumRegisters {
		return fmt.Errorf("%w: R%d", simerr.ErrInvalidRegister, idx)
	}
	return nil
}

// Execute decodes and runs one instruction word against state, using mem
// for LOAD/STORE. On entry state.PC must already be advanced past the
// fetched word: CALL pushes that advanced PC as its return address and
// jumps to its immediate, and BEQ steps back 4 so its offset is relative
// to the BEQ's own address. It reports whether execution redirected PC,
// which the pipelined substrate uses as its sole control-hazard signal.
func Execute(state *cpustate.State, mem MemoryPort, word uint32) (pcChanged bool, err error) {
	in := isa.Decode(word)

	switch in.Op {
	case isa.OpNOP:
		return false, nil

	case isa.OpCALL:
		state.Push(state.PC)
		state.PC = isa.SignExtend16(in.Imm)
		return true, nil

	case isa.OpRET:
		addr, ok := state.Pop()
		if !ok {
			return false, fmt.Errorf("%w: RET with empty stack", simerr.ErrStackUnderflow)
		}
		state.PC = addr
		return true, nil

	case isa.OpHALT:
		state.Halted = true
		return false, nil

	case isa.OpPUSH:
		if err := checkRegister(in.Rd); err != nil {
			return false, err
		}
		state.Push(state.Registers[in.Rd])
		return false, nil

	case isa.OpPOP:
		if err := checkRegister(in.Rd); err != nil {
			return false, err
		}
		val, ok := state.Pop()
		if !ok {
			return false, fmt.Errorf("%w: POP with empty stack", simerr.ErrStackUnderflow)
		}
		state.Registers[in.Rd] = val
		return false, nil

	case isa.OpBEQ:
		if err := checkRegister(in.Rs); err != nil {
			return false, err
		}
		if state.Flags.Z {
			state.PC = (state.PC - 4) + isa.SignExtend16(in.Imm)
			return true, nil
		}
		return false, nil

	case isa.OpCMP:
		if err := checkRegister(in.Rs); err != nil {
			return false, err
		}
		if err := checkRegister(in.Rt); err != nil {
			return false, err
		}
		a, b := state.Registers[in.Rs], state.Registers[in.Rt]
		result := a - b
		state.SetFlagsFromResult(result)
		state.Flags.C = b > a
		return false, nil

	case isa.OpADD, isa.OpSUB, isa.OpMUL, isa.OpDIV, isa.OpXOR, isa.OpAND:
		return false, aluOp(state, in)

	case isa.OpLOAD:
		if err := checkRegister(in.Rd); err != nil {
			return false, err
		}
		if err := checkRegister(in.Rs); err != nil {
			return false, err
		}
		addr := state.Registers[in.Rs] + isa.SignExtend16(in.Imm)
		state.Registers[in.Rd] = mem.Read(addr)
		return false, nil

	case isa.OpMOV:
		if err := checkRegister(in.Rd); err != nil {
			return false, err
		}
		state.Registers[in.Rd] = isa.SignExtend16(in.Imm)
		return false, nil

	case isa.OpStore:
		if err := checkRegister(in.Rs); err != nil {
			return false, err
		}
		if err := checkRegister(in.Rt); err != nil {
			return false, err
		}
		mem.Write(state.Registers[in.Rs], state.Registers[in.Rt])
		return false, nil

	default:
		return false, fmt.Errorf("%w: %04b", simerr.ErrUnknownOpcode, uint8(in.Op))
	}
}

func aluOp(state *cpustate.State, in isa.Instruction) error {
	if err := checkRegister(in.Rd); err != nil {
		return err
	}
	if err := checkRegister(in.Rs); err != nil {
		return err
	}
	if err := checkRegister(in.Rt); err != nil {
		return err
	}
	a, b := state.Registers[in.Rs], state.Registers[in.Rt]

	var result uint32
	switch in.Op {
	case isa.OpADD:
		full := uint64(a) + uint64(b)
		state.Flags.C = full > 0xFFFFFFFF
		result = uint32(full)
	case isa.OpSUB:
		state.Flags.C = b > a
		result = a - b
	case isa.OpMUL:
		full := uint64(a) * uint64(b)
		state.Flags.C = full > 0xFFFFFFFF
		result = uint32(full)
	case isa.OpDIV:
		if b == 0 {
			return fmt.Errorf("%w: R%d / R%d", simerr.ErrDivisionByZero, in.Rs, in.Rt)
		}
		result = a / b
	case isa.OpXOR:
		result = a ^ b
	case isa.OpAND:
		result = a & b
	}

	state.Registers[in.Rd] = result
	state.SetFlagsFromResult(result)
	return nil
}
