package cpu

import (
	"fmt"
	"iter"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ezrec/hexvm/word"
)

// Opcode represents a line of assembled code with its source location and generated instruction.
type Opcode struct {
	LineNo int
	Ip     int
	Words  []string
	Code   Code
}

// Program is an assembled memory image and its listing.
type Program struct {
	Image   []word.Word // Header, data and code cells.
	Opcodes []Opcode    // Source of every instruction cell, in address order.
}

// Entry returns the entry instruction pointer from the header.
func (prog *Program) Entry() uint32 {
	if len(prog.Image) < HEADER_SIZE {
		return IP_HALT
	}
	return uint32(prog.Image[HEADER_IP])
}

// StackSize returns the stack capacity from the header.
func (prog *Program) StackSize() int {
	if len(prog.Image) < HEADER_SIZE {
		return 0
	}
	return int(prog.Image[HEADER_STACK])
}

// Debug returns the opcode assembled at an address, or nil.
func (prog *Program) Debug(ip uint32) (op *Opcode) {
	for n := range prog.Opcodes {
		if uint32(prog.Opcodes[n].Ip) == ip {
			op = &prog.Opcodes[n]
			break
		}
	}

	return
}

// Codes iterates over every instruction cell by address.
func (prog *Program) Codes() iter.Seq2[uint32, Code] {
	return func(yield func(ip uint32, code Code) bool) {
		for _, op := range prog.Opcodes {
			if !yield(uint32(op.Ip), op.Code) {
				return
			}
		}
	}
}

// Listing renders the program as an address / cell / source table.
func (prog *Program) Listing() string {
	tw := table.NewWriter()
	tw.SetTitle(fmt.Sprintf("entry 0x%04x, stack %d", prog.Entry(), prog.StackSize()))
	tw.AppendHeader(table.Row{"Addr", "Cell", "Line", "Source", "Decoded"})

	for _, op := range prog.Opcodes {
		tw.AppendRow(table.Row{
			fmt.Sprintf("%04x", op.Ip),
			word.Format(word.Word(op.Code)),
			op.LineNo,
			fmt.Sprintf("%v", op.Words),
			op.Code.String(),
		})
	}

	return tw.Render()
}
