// Package isa implements the 32-bit instruction encoding used by every
// substrate in the simulator: a pure codec over a fixed-width word, with
// no knowledge of architectural state.
package isa

import "fmt"

// Opcode identifies a decoded instruction. The documented ISA uses a 4-bit
// primary opcode (0..15); STORE widens that space to a 5-bit tag and is
// represented here as the reserved value OpStore, one past the 4-bit range,
// so the type can hold every legal opcode plus STORE without overlap.
type Opcode uint8

// Opcode table, as specified.
const (
	OpNOP  Opcode = 0b0000
	OpCALL Opcode = 0b0001
	OpRET  Opcode = 0b0010
	OpHALT Opcode = 0b0011
	OpPUSH Opcode = 0b0100
	OpPOP  Opcode = 0b0101
	OpBEQ  Opcode = 0b0110
	OpCMP  Opcode = 0b0111
	OpADD  Opcode = 0b1000
	OpSUB  Opcode = 0b1001
	OpMUL  Opcode = 0b1010
	OpDIV  Opcode = 0b1011
	OpLOAD Opcode = 0b1100
	OpMOV  Opcode = 0b1101
	OpXOR  Opcode = 0b1110
	OpAND  Opcode = 0b1111

	// OpStore is the widened 5-bit STORE tag (0b10000). It is reserved
	// outside the 4-bit opcode range so the Opcode value never equals a
	// legal 4-bit opcode; on the wire STORE shares AND's nibble and is told
	// apart by storeRdTag.
	OpStore Opcode = 0b10000
)

const (
	opcodeShift = 28
	opcodeMask  = 0xF
	rdShift     = 24
	rsShift     = 20
	rtShift     = 16
	regMask     = 0xF
	immMask     = 0xFFFF

	// storeRdTag is the full rd-field pattern STORE's encoder always writes
	// since STORE has no rd operand: bit 3 of the field set, the other three
	// bits clear. It lives entirely inside the rd field, never in the
	// opcode nibble itself, so it cannot be confused with AND's own opcode
	// bits (0b1111). A genuine AND instruction that happens to target R8 as
	// its destination (the one register whose index equals this tag) would
	// still be misread as STORE; that register is reserved out of AND's
	// usable destination range in exchange for not widening the word.
	storeRdTag = 0b1000
)

// Instruction is a decoded instruction word.
type Instruction struct {
	Op  Opcode
	Rd  uint8
	Rs  uint8
	Rt  uint8
	Imm uint16
}

// MakeInstruction packs the given fields into a 32-bit instruction word,
// per spec: (opcode<<28) | (rd<<24) | (rs<<20) | (rt<<16) | (imm & 0xFFFF).
//
// STORE is encoded using AND's 4-bit opcode nibble with rd forced to
// storeRdTag, so that it round-trips through Decode as OpStore rather
// than OpAND.
func MakeInstruction(op Opcode, rd, rs, rt uint8, imm uint16) uint32 {
	if op == OpStore {
		return (uint32(OpAND) << opcodeShift) |
			(uint32(storeRdTag) << rdShift) |
			(uint32(rs&regMask) << rsShift) |
			(uint32(rt&regMask) << rtShift) |
			(uint32(imm) & immMask)
	}
	return (uint32(op&opcodeMask) << opcodeShift) |
		(uint32(rd&regMask) << rdShift) |
		(uint32(rs&regMask) << rsShift) |
		(uint32(rt&regMask) << rtShift) |
		(uint32(imm) & immMask)
}

// Decode extracts the opcode and operand fields from a raw instruction word.
func Decode(word uint32) Instruction {
	nibble := Opcode((word >> opcodeShift) & opcodeMask)
	rd := uint8((word >> rdShift) & regMask)
	op := nibble
	if nibble == OpAND && rd == storeRdTag {
		op = OpStore
	}
	return Instruction{
		Op:  op,
		Rd:  rd,
		Rs:  uint8((word >> rsShift) & regMask),
		Rt:  uint8((word >> rtShift) & regMask),
		Imm: uint16(word & immMask),
	}
}

// SignExtend16 sign-extends a 16-bit immediate to 32 bits.
func SignExtend16(imm uint16) uint32 {
	if imm&0x8000 != 0 {
		return uint32(imm) | 0xFFFF0000
	}
	return uint32(imm)
}

// Mnemonic renders a decoded instruction for display. It is purely
// diagnostic: unrecognised opcodes are rendered, never rejected.
func Mnemonic(word uint32) string {
	in := Decode(word)
	switch in.Op {
	case OpNOP:
		return "NOP"
	case OpCALL:
		return fmt.Sprintf("CALL 0x%04x", in.Imm)
	case OpRET:
		return "RET"
	case OpHALT:
		return "HALT"
	case OpPUSH:
		return fmt.Sprintf("PUSH R%d", in.Rd)
	case OpPOP:
		return fmt.Sprintf("POP R%d", in.Rd)
	case OpBEQ:
		return fmt.Sprintf("BEQ R%d, #%d", in.Rs, int16(in.Imm))
	case OpCMP:
		return fmt.Sprintf("CMP R%d, R%d", in.Rs, in.Rt)
	case OpADD:
		return fmt.Sprintf("ADD R%d, R%d, R%d", in.Rd, in.Rs, in.Rt)
	case OpSUB:
		return fmt.Sprintf("SUB R%d, R%d, R%d", in.Rd, in.Rs, in.Rt)
	case OpMUL:
		return fmt.Sprintf("MUL R%d, R%d, R%d", in.Rd, in.Rs, in.Rt)
	case OpDIV:
		return fmt.Sprintf("DIV R%d, R%d, R%d", in.Rd, in.Rs, in.Rt)
	case OpLOAD:
		return fmt.Sprintf("LOAD R%d, [R%d+%d]", in.Rd, in.Rs, in.Imm)
	case OpMOV:
		return fmt.Sprintf("MOV R%d, #%d", in.Rd, int16(in.Imm))
	case OpXOR:
		return fmt.Sprintf("XOR R%d, R%d, R%d", in.Rd, in.Rs, in.Rt)
	case OpAND:
		return fmt.Sprintf("AND R%d, R%d, R%d", in.Rd, in.Rs, in.Rt)
	case OpStore:
		return fmt.Sprintf("STORE [R%d], R%d", in.Rs, in.Rt)
	default:
		return fmt.Sprintf("Unknown OPCODE %04b", uint8(in.Op)&opcodeMask)
	}
}

// IsWriteProducer reports whether op writes its Rd operand, making it a
// hazard source for a dependent consumer in the pipelined substrate.
func IsWriteProducer(op Opcode) bool {
	switch op {
	case OpADD, OpSUB, OpMUL, OpMOV, OpLOAD, OpAND, OpXOR:
		return true
	default:
		return false
	}
}

// IsReadConsumer reports whether op reads Rs (and, for ALU ops, Rt) as
// source operands before it reaches the execute stage.
func IsReadConsumer(op Opcode) bool {
	switch op {
	case OpADD, OpSUB, OpMUL, OpBEQ, OpLOAD:
		return true
	default:
		return false
	}
}
