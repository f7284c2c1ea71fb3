// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/tebeka/atexit"

	"github.com/ezrec/hexvm/cpu"
	"github.com/ezrec/hexvm/emulator"
	"github.com/ezrec/hexvm/translate"
)

func main() {
	var compile string
	var binary string
	var output string
	var save bool
	var listing bool
	var memory int
	var stack int
	var verbose bool
	var lang string

	flag.StringVar(&compile, "c", "", ".asm file to compile")
	flag.StringVar(&binary, "b", "", ".hex image to load")
	flag.StringVar(&output, "o", "", ".hex image to write")
	flag.BoolVar(&save, "s", false, "Do not execute")
	flag.BoolVar(&listing, "l", false, "Print the assembly listing")
	flag.IntVar(&memory, "m", cpu.MEMORY_SIZE, "Memory size, in cells")
	flag.IntVar(&stack, "k", cpu.STACK_LIMIT, "Stack capacity, in cells")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.StringVar(&lang, "L", "", "Message locale, instead of the environment's")

	flag.Parse()

	if len(lang) != 0 {
		translate.SetLocale(lang)
	}

	if flag.NArg() != 0 {
		atexit.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	if (len(compile) == 0) == (len(binary) == 0) {
		atexit.Fatalf("%v: exactly one of -c or -b is required", os.Args[0])
	}

	emu := emulator.NewEmulatorSize(memory)
	emu.Verbose = verbose

	// Compile a new instruction stream.
	if len(compile) != 0 {
		inf, err := os.Open(compile)
		if err != nil {
			atexit.Fatalf("%v: %v", compile, err)
		}
		atexit.Register(func() { inf.Close() })

		asm := &cpu.Assembler{Verbose: verbose, StackSize: stack}
		for equ, value := range emu.Defines() {
			asm.Predefine(equ, value)
		}
		emu.Program, err = asm.Parse(inf)
		if err != nil {
			atexit.Fatalf("%v: %v", compile, err)
		}
		emu.Rom.Data = emu.Program.Image
	}

	// Load an existing image.
	if len(binary) != 0 {
		inf, err := os.Open(binary)
		if err != nil {
			atexit.Fatalf("%v: %v", binary, err)
		}
		atexit.Register(func() { inf.Close() })

		_, err = emu.Rom.ReadFrom(inf)
		if err != nil {
			atexit.Fatalf("%v: %v", binary, err)
		}
		emu.Program = &cpu.Program{Image: emu.Rom.Data}
	}

	if listing {
		fmt.Println(emu.Program.Listing())
	}

	if len(output) != 0 {
		ouf, err := os.Create(output)
		if err != nil {
			atexit.Fatalf("%v: %v", output, err)
		}
		_, err = emu.Rom.WriteTo(ouf)
		if err == nil {
			err = ouf.Close()
		} else {
			ouf.Close()
		}
		if err != nil {
			atexit.Fatalf("%v: %v", output, err)
		}
	}

	if !save {
		emu.Console.Input = os.Stdin
		emu.Console.Output = os.Stdout

		err := emu.Reset()
		if err != nil {
			atexit.Fatal(err)
		}

		err = emu.Run()
		if verbose {
			log.Printf("%v", emu.Cpu.String())
		}
		if err != nil {
			atexit.Fatal(err)
		}
	}

	atexit.Exit(0)
}
