package cpu

import (
	"errors"
	"fmt"
	"log"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ezrec/hexvm/io"
	"github.com/ezrec/hexvm/word"
)

// Console is the console channel interface.
type Console io.Channel

// Cpu is the simulation context for the virtual machine.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Console Console // Console used by PRINT, PRINTSTR and READ.

	Ip     uint32      // Current instruction pointer.
	Memory []word.Word // Memory arena: header, stack, registers, strings and code.
	Stack  Stack       // Stack window of Memory.

	Ticks int // CPU ticks counter.
}

// NewCpu creates a new halted CPU with a memory arena of capacity cells.
func NewCpu(capacity int) (cpu *Cpu) {
	cpu = &Cpu{
		Ip:     IP_HALT,
		Memory: make([]word.Word, capacity),
	}

	return
}

// Load copies an image into the low cells of the arena, clears the rest,
// and resets the CPU.
func (cpu *Cpu) Load(image []word.Word) (err error) {
	if len(image) < HEADER_SIZE {
		err = ErrImageHeader
		return
	}
	if len(image) > len(cpu.Memory) {
		err = ErrImageSize
		return
	}

	clear(cpu.Memory)
	copy(cpu.Memory, image)

	err = cpu.Reset()
	return
}

// Reset the CPU state from the image header in memory.
// - Sets the instruction pointer to the entry address.
// - Empties the stack, and sizes it from the header.
// - Zeros the tick counter.
func (cpu *Cpu) Reset() (err error) {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	if len(cpu.Memory) < HEADER_SIZE {
		err = ErrImageHeader
		return
	}

	stackSize := int(cpu.Memory[HEADER_STACK])
	if stackSize > len(cpu.Memory)-STACK_BASE {
		err = ErrImageHeader
		return
	}

	top := STACK_BASE + stackSize
	cpu.Stack = Stack{Cells: cpu.Memory[STACK_BASE:top:top]}
	cpu.Ip = uint32(cpu.Memory[HEADER_IP])
	cpu.Ticks = 0

	return
}

// Sp returns the stack pointer, the address of the next free stack cell.
func (cpu *Cpu) Sp() uint32 {
	return uint32(STACK_BASE + cpu.Stack.Depth)
}

// Halted returns true once STOP has executed.
func (cpu *Cpu) Halted() bool {
	return cpu.Ip == IP_HALT
}

// Register returns the value of register rN.
func (cpu *Cpu) Register(n int) word.Word {
	addr := RegisterBase(len(cpu.Stack.Cells)) + n
	if addr < 0 || addr >= len(cpu.Memory) {
		return 0
	}
	return cpu.Memory[addr]
}

// String returns the current CPU state as a table.
func (cpu *Cpu) String() (text string) {
	state := table.NewWriter()
	state.SetTitle("cpu")
	state.AppendHeader(table.Row{"ip", "sp", "top", "depth", "ticks"})

	ip := "halt"
	if !cpu.Halted() {
		ip = fmt.Sprintf("%04x", cpu.Ip)
	}
	top := "--"
	if value, ok := cpu.Stack.Peek(); ok {
		top = word.Format(value)
	}
	state.AppendRow(table.Row{ip, fmt.Sprintf("%04x", cpu.Sp()), top, cpu.Stack.Depth, cpu.Ticks})

	regs := table.NewWriter()
	regs.SetTitle("registers")
	regs.AppendHeader(table.Row{"", "+0", "+1", "+2", "+3", "+4", "+5", "+6", "+7"})
	for row := 0; row < REGISTER_COUNT; row += 8 {
		line := table.Row{fmt.Sprintf("r%d", row)}
		for col := range 8 {
			line = append(line, uint32(cpu.Register(row+col)))
		}
		regs.AppendRow(line)
	}

	text = state.Render() + "\n" + regs.Render() + "\n"

	return
}

// FetchCode fetches the instruction at the instruction pointer.
func (cpu *Cpu) FetchCode() (code Code, err error) {
	if cpu.Ip == IP_HALT {
		err = ErrIpEmpty
		return
	}

	if cpu.Ip >= uint32(len(cpu.Memory)) {
		err = ErrIpRange
		return
	}

	code = Code(cpu.Memory[cpu.Ip])

	return
}

// Tick executes a single CPU instruction cycle.
func (cpu *Cpu) Tick() (err error) {
	code, err := cpu.FetchCode()
	if err != nil {
		return
	}

	err = cpu.Execute(code)
	if err != nil {
		return
	}

	cpu.Ticks++

	return
}

// load reads the cell at a register operand address.
func (cpu *Cpu) load(addr int) (value word.Word, err error) {
	if addr >= len(cpu.Memory) {
		err = ErrRegisterRange
		return
	}

	value = cpu.Memory[addr]
	return
}

// store writes the cell at a register operand address.
func (cpu *Cpu) store(addr int, value word.Word) (err error) {
	if addr >= len(cpu.Memory) {
		err = ErrRegisterRange
		return
	}

	cpu.Memory[addr] = value
	return
}

// console returns the bound console.
func (cpu *Cpu) console() (console Console, err error) {
	if cpu.Console == nil {
		err = ErrConsole
		return
	}

	console = cpu.Console
	return
}

// Execute executes a single decoded instruction.
func (cpu *Cpu) Execute(code Code) (err error) {
	defer func() {
		if err != nil {
			err = errors.Join(ErrOpcode(code), err)
		}
	}()
	if cpu.Verbose {
		log.Printf("%04x: %v", cpu.Ip, code)
	}

	next_ip := cpu.Ip + 1

	var a, b word.Word

	switch code.Op() {
	case OP_ADD:
		a, b, err = cpu.loadPair(code)
		if err != nil {
			return
		}
		var sum word.Word
		sum, err = word.FromInt(int64(a) + int64(b))
		if err != nil {
			err = errors.Join(ErrArithmeticOverflow, err)
			return
		}
		err = cpu.store(code.RegA(), sum)
	case OP_SUB:
		a, b, err = cpu.loadPair(code)
		if err != nil {
			return
		}
		var diff word.Word
		diff, err = word.FromInt(int64(a) - int64(b))
		if err != nil {
			err = errors.Join(ErrArithmeticUnderflow, err)
			return
		}
		err = cpu.store(code.RegA(), diff)
	case OP_MOV:
		b, err = cpu.load(code.RegB())
		if err != nil {
			return
		}
		err = cpu.store(code.RegA(), b)
	case OP_MOVVAL:
		err = cpu.store(code.RegA(), word.Word(code.Imm()))
	case OP_PRINT:
		a, err = cpu.load(code.RegA())
		if err != nil {
			return
		}
		var console Console
		console, err = cpu.console()
		if err != nil {
			return
		}
		err = console.WriteValue(uint32(a))
	case OP_READ:
		var console Console
		console, err = cpu.console()
		if err != nil {
			return
		}
		var value uint32
		value, err = console.ReadValue()
		if err != nil {
			err = errors.Join(ErrConsoleInput, err)
			return
		}
		err = cpu.store(code.RegA(), word.Word(value))
	case OP_PRINTSTR:
		var text string
		text, err = cpu.text(code.Addr())
		if err != nil {
			return
		}
		var console Console
		console, err = cpu.console()
		if err != nil {
			return
		}
		err = console.WriteText(text)
	case OP_JUMP:
		next_ip = code.Addr()
	case OP_JUMPZ:
		a, err = cpu.load(code.RegA())
		if err != nil {
			return
		}
		if a == 0 {
			next_ip = code.Imm()
		}
	case OP_PUSH:
		a, err = cpu.load(code.RegA())
		if err != nil {
			return
		}
		if !cpu.Stack.Push(a) {
			err = ErrStackFull
			return
		}
	case OP_POP:
		var ok bool
		a, ok = cpu.Stack.Pop()
		if !ok {
			err = ErrStackEmpty
			return
		}
		err = cpu.store(code.RegA(), a)
	case OP_TOP:
		var ok bool
		a, ok = cpu.Stack.Peek()
		if !ok {
			err = ErrStackEmpty
			return
		}
		err = cpu.store(code.RegA(), a)
	case OP_CALL:
		if !cpu.Stack.Push(word.Word(next_ip)) {
			err = ErrStackFull
			return
		}
		next_ip = code.Addr()
	case OP_FEND:
		var ok bool
		a, ok = cpu.Stack.Pop()
		if !ok {
			err = ErrStackEmpty
			return
		}
		next_ip = uint32(a)
	case OP_STOP:
		next_ip = IP_HALT
	default:
		err = ErrOpcodeUnknown
		return
	}

	if err != nil {
		return
	}

	cpu.Ip = next_ip

	return
}

// loadPair loads both register operands.
func (cpu *Cpu) loadPair(code Code) (a, b word.Word, err error) {
	a, err = cpu.load(code.RegA())
	if err != nil {
		return
	}
	b, err = cpu.load(code.RegB())
	return
}

// text reads the length-prefixed string at addr.
func (cpu *Cpu) text(addr uint32) (text string, err error) {
	if addr >= uint32(len(cpu.Memory)) {
		err = ErrStringRange
		return
	}

	length := uint64(cpu.Memory[addr])
	if uint64(addr)+1+length > uint64(len(cpu.Memory)) {
		err = ErrStringRange
		return
	}

	start := addr + 1
	text = word.DecodeText(cpu.Memory[start : start+uint32(length)])
	return
}
