// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"errors"
	"fmt"
	"iter"
	"maps"

	"github.com/ezrec/hexvm/cpu"
	"github.com/ezrec/hexvm/internal"
	"github.com/ezrec/hexvm/io"
)

// Emulator state. CPU + program image + console.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently running program listing.

	Console io.Console // Console IO channel.
	Rom     io.Rom     // Image loaded at reset.
}

// NewEmulator creates a new emulator with the default memory arena.
func NewEmulator() (emu *Emulator) {
	return NewEmulatorSize(cpu.MEMORY_SIZE)
}

// NewEmulatorSize creates a new emulator with a memory arena of capacity cells.
func NewEmulatorSize(capacity int) (emu *Emulator) {
	emu = &Emulator{
		Cpu:     cpu.NewCpu(capacity),
		Program: &cpu.Program{},
	}

	emu.Cpu.Console = &emu.Console

	return
}

// Defines returns an iterator over the equates describing this emulator.
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	defines := map[string]string{
		"MEMORY_SIZE": fmt.Sprintf("%v", len(emu.Cpu.Memory)),
	}
	return internal.IterSeq2Concat(maps.All(defines))
}

// Reset loads the program image and rewinds the console.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Console = &emu.Console
	emu.Console.Rewind()

	if emu.Program != nil && len(emu.Program.Image) > 0 {
		emu.Rom.Data = emu.Program.Image
	}

	err = emu.Cpu.Load(emu.Rom.Data)
	return
}

// Ticks returns the total ticks since a reset.
func (emu *Emulator) Ticks() int {
	return emu.Cpu.Ticks
}

// Ip returns current instruction pointer.
func (emu *Emulator) Ip() uint32 {
	return emu.Cpu.Ip
}

// Code returns the instruction cell at the instruction pointer.
func (emu *Emulator) Code() cpu.Code {
	code, err := emu.Cpu.FetchCode()
	if err != nil {
		return 0
	}

	return code
}

// LineNo returns the source line number of the executing opcode, or zero
// if the image has no listing.
func (emu *Emulator) LineNo() int {
	if emu.Program == nil {
		return 0
	}

	op := emu.Program.Debug(emu.Cpu.Ip)
	if op == nil {
		return 0
	}

	return op.LineNo
}

// Tick performs a single tick of the emulator.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	ip := emu.Ip()
	code := emu.Code()
	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{Address: ip, Code: code, LineNo: lineno, Err: err}
		}
	}()

	err = emu.Cpu.Tick()
	if errors.Is(err, cpu.ErrIpEmpty) {
		err = nil
		done = true
		return
	}

	return
}

// Run ticks the emulator until the program stops or faults.
func (emu *Emulator) Run() (err error) {
	for {
		var done bool
		done, err = emu.Tick()
		if err != nil || done {
			return
		}
	}
}
