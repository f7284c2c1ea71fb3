package emulator_test

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ezrec/hexvm/cpu"
	"github.com/ezrec/hexvm/emulator"
	"github.com/ezrec/hexvm/word"
)

var _ = Describe("Programs", func() {
	var (
		emu    *emulator.Emulator
		output *bytes.Buffer
	)

	load := func(input string, program ...string) {
		asm := &cpu.Assembler{}
		prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
		Expect(err).NotTo(HaveOccurred())

		emu.Program = prog
		emu.Console.Input = strings.NewReader(input)
		Expect(emu.Reset()).To(Succeed())
	}

	BeforeEach(func() {
		emu = emulator.NewEmulator()
		output = &bytes.Buffer{}
		emu.Console.Output = output
	})

	Context("Arithmetic", func() {
		It("should add two registers", func() {
			load("",
				"START",
				"MOVVAL r0 7",
				"MOVVAL r1 3",
				"ADD r0 r1",
				"PRINT r0",
				"STOP",
			)

			Expect(emu.Run()).To(Succeed())
			Expect(output.String()).To(Equal("10\n"))
			Expect(emu.Ticks()).To(Equal(5))
			Expect(emu.Cpu.Halted()).To(BeTrue())
		})

		It("should subtract two registers", func() {
			load("",
				"START",
				"MOVVAL r0 7",
				"MOVVAL r1 3",
				"SUB r0 r1",
				"PRINT r0",
				"STOP",
			)

			Expect(emu.Run()).To(Succeed())
			Expect(output.String()).To(Equal("4\n"))
		})

		It("should read literals as decimal", func() {
			load("",
				"START",
				"MOVVAL r0 010",
				"PRINT r0",
				"STOP",
			)

			Expect(emu.Run()).To(Succeed())
			Expect(output.String()).To(Equal("10\n"))
		})

		It("should fault on a negative difference", func() {
			load("",
				"START",
				"MOVVAL r0 3",
				"MOVVAL r1 7",
				"SUB r0 r1",
				"STOP",
			)

			Expect(emu.Run()).To(MatchError(cpu.ErrArithmeticUnderflow))
			Expect(emu.Register(0)).To(Equal(word.Word(3)))
		})
	})

	Context("Control flow", func() {
		It("should count down to zero", func() {
			load("",
				"START",
				"MOVVAL r0 5",
				"MOVVAL r1 1",
				"loop",
				"JUMPZ r0 done",
				"PRINT r0",
				"SUB r0 r1",
				"JUMP loop",
				"done",
				"STOP",
			)

			Expect(emu.Run()).To(Succeed())
			Expect(output.String()).To(Equal("5\n4\n3\n2\n1\n"))
		})

		It("should return after a call", func() {
			load("",
				"FUNC",
				"FBEGIN double",
				"ADD r0 r0",
				"FEND",
				"START",
				"MOVVAL r0 21",
				"MOVVAL r2 9",
				"CALL double",
				"PRINT r0",
				"PRINT r2",
				"STOP",
			)

			Expect(emu.Run()).To(Succeed())
			Expect(output.String()).To(Equal("42\n9\n"))
			Expect(emu.Sp()).To(Equal(uint32(cpu.STACK_BASE)))
		})

		It("should fault when running off the program", func() {
			load("",
				"START",
				"MOVVAL r0 1",
			)

			Expect(emu.Run()).To(MatchError(cpu.ErrOpcodeUnknown))
		})
	})

	Context("Console", func() {
		It("should print a string variable", func() {
			load("",
				"VARS",
				`greet: "hi"`,
				`path: "C:\dir"`,
				"START ; main",
				"PRINTSTR greet",
				"PRINTSTR path",
				"STOP",
			)

			Expect(emu.Run()).To(Succeed())
			Expect(output.String()).To(Equal("hi\nC:\\dir\n"))
		})

		It("should read values", func() {
			load("12\n 30",
				"START",
				"READ r0",
				"READ r1",
				"ADD r0 r1",
				"PRINT r0",
				"STOP",
			)

			Expect(emu.Run()).To(Succeed())
			Expect(output.String()).To(Equal("42\n"))
		})

		It("should fault on bad input", func() {
			load("twelve",
				"START",
				"READ r0",
				"STOP",
			)

			Expect(emu.Run()).To(MatchError(cpu.ErrConsoleInput))
		})
	})

	Context("Stack", func() {
		It("should restore a pushed value", func() {
			load("",
				"START",
				"MOVVAL r0 77",
				"PUSH r0",
				"TOP r2",
				"POP r1",
				"STOP",
			)

			sp := emu.Sp()
			Expect(emu.Run()).To(Succeed())
			Expect(emu.Register(1)).To(Equal(word.Word(77)))
			Expect(emu.Register(2)).To(Equal(word.Word(77)))
			Expect(emu.Sp()).To(Equal(sp))
		})

		It("should fault on underflow", func() {
			load("",
				"START",
				"POP r0",
				"STOP",
			)

			Expect(emu.Run()).To(MatchError(cpu.ErrStackEmpty))
		})

		It("should fault on overflow", func() {
			load("",
				"START",
				"loop",
				"PUSH r0",
				"JUMP loop",
			)

			Expect(emu.Run()).To(MatchError(cpu.ErrStackFull))
			Expect(emu.Sp()).To(Equal(uint32(cpu.STACK_BASE + cpu.STACK_LIMIT)))
		})
	})
})
