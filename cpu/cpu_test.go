package cpu

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/hexvm/io"
	"github.com/ezrec/hexvm/word"
)

// runProgram assembles and runs a program until it halts or faults.
func runProgram(t *testing.T, asm *Assembler, program []string, input string) (cpu *Cpu, output string, err error) {
	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	cpu = NewCpu(MEMORY_SIZE)
	out := &bytes.Buffer{}
	cpu.Console = &io.Console{Input: strings.NewReader(input), Output: out}

	err = cpu.Load(prog.Image)
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	for !cpu.Halted() && cpu.Ticks < 10000 {
		err = cpu.Tick()
		if err != nil {
			break
		}
	}

	output = out.String()
	return
}

func TestCpu(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(MEMORY_SIZE)
	assert.True(cpu.Halted())
	assert.Equal(MEMORY_SIZE, len(cpu.Memory))

	_, err := cpu.FetchCode()
	assert.ErrorIs(err, ErrIpEmpty)
	assert.ErrorIs(cpu.Tick(), ErrIpEmpty)
}

func TestCpuLoad(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(32)

	assert.ErrorIs(cpu.Load([]word.Word{4}), ErrImageHeader)
	assert.ErrorIs(cpu.Load(make([]word.Word, 33)), ErrImageSize)
	assert.ErrorIs(cpu.Load([]word.Word{4, 31}), ErrImageHeader)

	cpu.Memory[20] = 0xdead
	assert.NoError(cpu.Load([]word.Word{6, 3, 0, 0, 0, 0, 0xff000000}))
	assert.Equal(uint32(6), cpu.Ip)
	assert.Equal(uint32(STACK_BASE), cpu.Sp())
	assert.Equal(3, len(cpu.Stack.Cells))
	assert.Equal(word.Word(0), cpu.Memory[20])

	assert.NoError(cpu.Tick())
	assert.True(cpu.Halted())
	assert.Equal(1, cpu.Ticks)
}

func TestCpuAdd(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"START",
		"MOVVAL r0 7",
		"MOVVAL r1 3",
		"ADD r0 r1",
		"PRINT r0",
		"STOP",
	}

	cpu, output, err := runProgram(t, &Assembler{}, program, "")
	assert.NoError(err)
	assert.True(cpu.Halted())
	assert.Equal("10\n", output)
	assert.Equal(word.Word(10), cpu.Register(0))
	assert.Equal(word.Word(3), cpu.Register(1))
	assert.Equal(5, cpu.Ticks)
}

func TestCpuSub(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"START",
		"MOVVAL r0 7",
		"MOVVAL r1 3",
		"SUB r0 r1",
		"MOV r2 r0",
		"PRINT r2",
		"SUB r0 r0",
		"PRINT r0",
		"STOP",
	}

	cpu, output, err := runProgram(t, &Assembler{}, program, "")
	assert.NoError(err)
	assert.Equal("4\n0\n", output)
	assert.Equal(word.Word(4), cpu.Register(2))
}

func TestCpuCountdown(t *testing.T) {
	assert := assert.New(t)

	program := []string{
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
	}

	cpu, output, err := runProgram(t, &Assembler{}, program, "")
	assert.NoError(err)
	assert.True(cpu.Halted())
	assert.Equal("5\n4\n3\n2\n1\n", output)
	assert.Equal(word.Word(0), cpu.Register(0))
}

func TestCpuCall(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"FUNC",
		"FBEGIN double",
		"ADD r0 r0",
		"FEND",
		"START",
		"MOVVAL r0 21",
		"MOVVAL r1 99",
		"CALL double",
		"PRINT r0",
		"PRINT r1",
		"CALL double",
		"PRINT r0",
		"STOP",
	}

	cpu, output, err := runProgram(t, &Assembler{}, program, "")
	assert.NoError(err)
	assert.Equal("42\n99\n84\n", output)
	assert.Equal(uint32(STACK_BASE), cpu.Sp())
	assert.Equal(word.Word(99), cpu.Register(1))
}

func TestCpuCallNested(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"FUNC",
		"FBEGIN outer",
		"CALL inner",
		"CALL inner",
		"FEND",
		"FBEGIN inner",
		"ADD r0 r1",
		"FEND",
		"START",
		"MOVVAL r1 5",
		"CALL outer",
		"PRINT r0",
		"STOP",
	}

	cpu, output, err := runProgram(t, &Assembler{}, program, "")
	assert.NoError(err)
	assert.Equal("10\n", output)
	assert.Equal(0, cpu.Stack.Depth)
}

func TestCpuPrintStr(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"VARS",
		`greet: "hi"`,
		`empty: ""`,
		"START",
		"PRINTSTR greet",
		"PRINTSTR empty",
		"STOP",
	}

	_, output, err := runProgram(t, &Assembler{}, program, "")
	assert.NoError(err)
	assert.Equal("hi\n\n", output)
}

func TestCpuStack(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"START",
		"MOVVAL r0 1234",
		"PUSH r0",
		"POP r1",
		"PUSH r1",
		"TOP r2",
		"STOP",
	}

	prog, err := (&Assembler{}).Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)

	cpu := NewCpu(MEMORY_SIZE)
	assert.NoError(cpu.Load(prog.Image))

	assert.NoError(cpu.Tick()) // MOVVAL
	sp := cpu.Sp()
	assert.Equal(uint32(STACK_BASE), sp)

	assert.NoError(cpu.Tick()) // PUSH
	assert.Equal(sp+1, cpu.Sp())
	assert.Equal(word.Word(1234), cpu.Memory[STACK_BASE])

	assert.NoError(cpu.Tick()) // POP
	assert.Equal(sp, cpu.Sp())
	assert.Equal(word.Word(1234), cpu.Register(1))

	assert.NoError(cpu.Tick()) // PUSH
	assert.NoError(cpu.Tick()) // TOP
	assert.Equal(sp+1, cpu.Sp())
	assert.Equal(word.Word(1234), cpu.Register(2))

	assert.NoError(cpu.Tick()) // STOP
	assert.True(cpu.Halted())
	assert.Contains(cpu.String(), "halt")
}

func TestCpuRead(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"START",
		"READ r0",
		"READ r1",
		"ADD r0 r1",
		"PRINT r0",
		"STOP",
	}

	_, output, err := runProgram(t, &Assembler{}, program, "17\n 25")
	assert.NoError(err)
	assert.Equal("42\n", output)

	cpu, _, err := runProgram(t, &Assembler{}, program, "17 abc")
	assert.ErrorIs(err, ErrConsoleInput)
	var ierr io.ErrInput
	assert.True(errors.As(err, &ierr))
	assert.Equal(io.ErrInput("abc"), ierr)
	assert.False(cpu.Halted())
	assert.Equal(word.Word(17), cpu.Register(0))
}

func TestCpuFaults(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name      string
		stackSize int
		program   []string
		err       error
	}){
		{"underflow", 0, []string{"START", "MOVVAL r0 1", "MOVVAL r1 2", "SUB r0 r1", "STOP"}, ErrArithmeticUnderflow},
		{"pop-empty", 0, []string{"START", "POP r0", "STOP"}, ErrStackEmpty},
		{"top-empty", 0, []string{"START", "TOP r0", "STOP"}, ErrStackEmpty},
		{"push-full", 2, []string{"START", "PUSH r0", "PUSH r0", "PUSH r0", "STOP"}, ErrStackFull},
		{"call-full", 1, []string{"FUNC", "FBEGIN f", "CALL f", "FEND", "START", "CALL f", "STOP"}, ErrStackFull},
		{"recurse", 0, []string{"FUNC", "FBEGIN f", "CALL f", "FEND", "START", "CALL f", "STOP"}, ErrStackFull},
		{"fall-through", 0, []string{"START", "MOVVAL r0 1"}, ErrOpcodeUnknown},
	}

	for _, entry := range table {
		cpu, _, err := runProgram(t, &Assembler{StackSize: entry.stackSize}, entry.program, "")
		assert.ErrorIs(err, entry.err, entry.name)
		assert.ErrorIs(err, ErrOpcode(0), entry.name)
		assert.False(cpu.Halted(), entry.name)
	}
}

func TestCpuExecute(t *testing.T) {
	assert := assert.New(t)

	r0 := RegisterBase(STACK_LIMIT)
	r1 := r0 + 1

	newCpu := func() *Cpu {
		cpu := NewCpu(256)
		cpu.Memory[HEADER_IP] = 100
		cpu.Memory[HEADER_STACK] = STACK_LIMIT
		assert.NoError(cpu.Reset())
		return cpu
	}

	cpu := newCpu()
	cpu.Memory[r0] = 0xffffffff
	cpu.Memory[r1] = 1
	err := cpu.Execute(MakeCode(OP_ADD, byte(r0), byte(r1), 0))
	assert.ErrorIs(err, ErrArithmeticOverflow)
	assert.Equal(uint32(100), cpu.Ip)

	cpu = newCpu()
	cpu.Memory[r0] = 0xfffffffe
	assert.NoError(cpu.Execute(MakeCode(OP_ADD, byte(r0), byte(r1), 0)))
	assert.Equal(word.Word(0xfffffffe), cpu.Memory[r0])
	assert.Equal(uint32(101), cpu.Ip)

	cpu = newCpu()
	err = cpu.Execute(MakeCode(0x03, 0, 0, 0))
	assert.ErrorIs(err, ErrOpcodeUnknown)
	assert.Contains(err.Error(), "0x03000000")

	cpu = NewCpu(128)
	cpu.Memory[HEADER_STACK] = STACK_LIMIT
	assert.NoError(cpu.Reset())
	err = cpu.Execute(MakeCodeImm(OP_MOVVAL, 200, 1))
	assert.ErrorIs(err, ErrRegisterRange)
	err = cpu.Execute(MakeCode(OP_PRINT, 200, 0, 0))
	assert.ErrorIs(err, ErrRegisterRange)

	cpu = newCpu()
	err = cpu.Execute(MakeCode(OP_PRINT, byte(r0), 0, 0))
	assert.ErrorIs(err, ErrConsole)

	cpu = newCpu()
	cpu.Memory[250] = 10
	err = cpu.Execute(MakeCodeAddr(OP_PRINTSTR, 250))
	assert.ErrorIs(err, ErrStringRange)
	err = cpu.Execute(MakeCodeAddr(OP_PRINTSTR, 0x1000))
	assert.ErrorIs(err, ErrStringRange)

	cpu = newCpu()
	err = cpu.Execute(MakeCode(OP_FEND, 0, 0, 0))
	assert.ErrorIs(err, ErrStackEmpty)

	cpu = newCpu()
	assert.NoError(cpu.Execute(MakeCodeAddr(OP_JUMP, 0x1000)))
	assert.Equal(uint32(0x1000), cpu.Ip)
	assert.ErrorIs(cpu.Tick(), ErrIpRange)

	cpu = newCpu()
	assert.NoError(cpu.Execute(MakeCodeImm(OP_JUMPZ, byte(r0), 7)))
	assert.Equal(uint32(7), cpu.Ip)
	cpu.Memory[r0] = 1
	assert.NoError(cpu.Execute(MakeCodeImm(OP_JUMPZ, byte(r0), 9)))
	assert.Equal(uint32(8), cpu.Ip)
}

func TestCode(t *testing.T) {
	assert := assert.New(t)

	code := MakeCode(OP_ADD, 0x12, 0x13, 0)
	assert.Equal(OP_ADD, code.Op())
	assert.Equal(0x12, code.RegA())
	assert.Equal(0x13, code.RegB())
	assert.Equal("ADD @18 @19", code.String())

	code = MakeCodeImm(OP_JUMPZ, 0x12, 0)
	assert.Equal(Code(0x0a_12_0058), code.Patch(0x58))
	assert.Equal("JUMPZ @18 0x0058", code.Patch(0x58).String())

	code = MakeCodeAddr(OP_CALL, 0)
	assert.Equal(Code(0x10_012345), code.Patch(0x12345))
	assert.Equal(uint32(0x12345), code.Patch(0x12345).Addr())

	assert.Equal("STOP", MakeCode(OP_STOP, 0, 0, 0).String())
	assert.Equal("FEND", OP_FEND.String())
	assert.False(CodeOp(0x0e).Valid())
	assert.Equal("CodeOp(0x0e) [0e 00 00 00]", MakeCode(0x0e, 0, 0, 0).String())
}
