package cpu

import (
	"fmt"

	"github.com/ezrec/hexvm/word"
)

// CodeOp is an opcode, stored in the top byte of an instruction cell.
type CodeOp byte

const (
	OP_ADD      = CodeOp(0x01)
	OP_SUB      = CodeOp(0x02)
	OP_MOV      = CodeOp(0x04)
	OP_MOVVAL   = CodeOp(0x05)
	OP_PRINT    = CodeOp(0x06)
	OP_READ     = CodeOp(0x07)
	OP_PRINTSTR = CodeOp(0x08)
	OP_JUMP     = CodeOp(0x09)
	OP_JUMPZ    = CodeOp(0x0a)
	OP_PUSH     = CodeOp(0x0b)
	OP_POP      = CodeOp(0x0c)
	OP_TOP      = CodeOp(0x0d)
	OP_FEND     = CodeOp(0x0f) // Return from function.
	OP_CALL     = CodeOp(0x10)
	OP_STOP     = CodeOp(0xff)
)

// CodeForm is the operand layout of an opcode.
type CodeForm int

const (
	FORM_NONE     = CodeForm(iota) // op 00 00 00
	FORM_REG                       // op reg 00 00
	FORM_REG_REG                   // op reg reg 00
	FORM_REG_IMM                   // op reg imm16
	FORM_REG_JUMP                  // op reg addr16
	FORM_ADDR                      // op addr24
)

// opInfo describes a mnemonic.
type opInfo struct {
	Name string
	Form CodeForm
}

// opTable is the opcode to mnemonic table.
var opTable = map[CodeOp]opInfo{
	OP_ADD:      {"ADD", FORM_REG_REG},
	OP_SUB:      {"SUB", FORM_REG_REG},
	OP_MOV:      {"MOV", FORM_REG_REG},
	OP_MOVVAL:   {"MOVVAL", FORM_REG_IMM},
	OP_PRINT:    {"PRINT", FORM_REG},
	OP_READ:     {"READ", FORM_REG},
	OP_PRINTSTR: {"PRINTSTR", FORM_ADDR},
	OP_JUMP:     {"JUMP", FORM_ADDR},
	OP_JUMPZ:    {"JUMPZ", FORM_REG_JUMP},
	OP_PUSH:     {"PUSH", FORM_REG},
	OP_POP:      {"POP", FORM_REG},
	OP_TOP:      {"TOP", FORM_REG},
	OP_FEND:     {"FEND", FORM_NONE},
	OP_CALL:     {"CALL", FORM_ADDR},
	OP_STOP:     {"STOP", FORM_NONE},
}

// mnemonicMap is the mnemonic to opcode table, built from opTable.
// FEND is excluded, as it is only emitted at the end of a function.
var mnemonicMap = func() map[string]CodeOp {
	mm := make(map[string]CodeOp, len(opTable))
	for op, info := range opTable {
		if op == OP_FEND {
			continue
		}
		mm[info.Name] = op
	}
	return mm
}()

// Valid returns true if the opcode is defined.
func (op CodeOp) Valid() bool {
	_, ok := opTable[op]
	return ok
}

// Form returns the operand layout of the opcode.
func (op CodeOp) Form() CodeForm {
	return opTable[op].Form
}

func (op CodeOp) String() string {
	info, ok := opTable[op]
	if !ok {
		return fmt.Sprintf("CodeOp(0x%02x)", byte(op))
	}
	return info.Name
}

// Code is a single instruction cell.
type Code word.Word

const (
	ADDR_MASK = 0xffffff // Address operand mask.
	IMM_MASK  = 0xffff   // Immediate operand mask.
)

// MakeCode creates an instruction from its opcode and operand bytes.
func MakeCode(op CodeOp, a, b, c byte) Code {
	return Code(uint32(op)<<24 | uint32(a)<<16 | uint32(b)<<8 | uint32(c))
}

// MakeCodeImm creates an instruction with a register and a 16-bit immediate.
func MakeCodeImm(op CodeOp, reg byte, imm uint16) Code {
	return Code(uint32(op)<<24 | uint32(reg)<<16 | uint32(imm))
}

// MakeCodeAddr creates an instruction with a 24-bit address.
func MakeCodeAddr(op CodeOp, addr uint32) Code {
	return Code(uint32(op)<<24 | (addr & ADDR_MASK))
}

// Op returns the opcode byte.
func (code Code) Op() CodeOp {
	return CodeOp(code >> 24)
}

// RegA returns the first register operand.
func (code Code) RegA() int {
	return int((code >> 16) & 0xff)
}

// RegB returns the second register operand.
func (code Code) RegB() int {
	return int((code >> 8) & 0xff)
}

// Imm returns the 16-bit immediate operand.
func (code Code) Imm() uint32 {
	return uint32(code) & IMM_MASK
}

// Addr returns the 24-bit address operand.
func (code Code) Addr() uint32 {
	return uint32(code) & ADDR_MASK
}

// Patch returns the instruction with its target operand replaced.
func (code Code) Patch(target uint32) Code {
	switch code.Op().Form() {
	case FORM_REG_JUMP, FORM_REG_IMM:
		return (code &^ IMM_MASK) | Code(target&IMM_MASK)
	default:
		return (code &^ ADDR_MASK) | Code(target&ADDR_MASK)
	}
}

// String returns the disassembly of the instruction. Register operands
// are shown as absolute addresses.
func (code Code) String() (out string) {
	op := code.Op()

	switch op.Form() {
	case FORM_NONE:
		out = op.String()
	case FORM_REG:
		out = fmt.Sprintf("%v @%d", op, code.RegA())
	case FORM_REG_REG:
		out = fmt.Sprintf("%v @%d @%d", op, code.RegA(), code.RegB())
	case FORM_REG_IMM:
		out = fmt.Sprintf("%v @%d %d", op, code.RegA(), code.Imm())
	case FORM_REG_JUMP:
		out = fmt.Sprintf("%v @%d 0x%04x", op, code.RegA(), code.Imm())
	case FORM_ADDR:
		out = fmt.Sprintf("%v 0x%06x", op, code.Addr())
	}

	if !op.Valid() {
		out = fmt.Sprintf("%v [%v]", op, word.Word(code))
	}

	return
}
