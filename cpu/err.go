package cpu

import (
	"errors"

	"github.com/ezrec/hexvm/translate"
)

var f = translate.From

var (
	// Cpu errors
	ErrIpEmpty             = errors.New(f("ip empty"))
	ErrIpRange             = errors.New(f("ip out of range"))
	ErrStackEmpty          = errors.New(f("stack underflow"))
	ErrStackFull           = errors.New(f("stack overflow"))
	ErrRegisterRange       = errors.New(f("register out of range"))
	ErrStringRange         = errors.New(f("string out of range"))
	ErrArithmeticUnderflow = errors.New(f("arithmetic underflow"))
	ErrArithmeticOverflow  = errors.New(f("arithmetic overflow"))
	ErrConsole             = errors.New(f("console missing"))
	ErrConsoleInput        = errors.New(f("console input invalid"))
	ErrImageSize           = errors.New(f("image exceeds memory"))
	ErrImageHeader         = errors.New(f("image header invalid"))

	// Instruction decode errors
	ErrOpcodeUnknown = errors.New(f("unknown opcode"))

	// Assembler errors
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrFunctionDuplicate  = errors.New(f("function duplicated"))
	ErrFunctionSyntax     = errors.New(f("FBEGIN name ... FEND expected"))
	ErrVarDuplicate       = errors.New(f("variable duplicated"))
	ErrVarSyntax          = errors.New(f("name: \"text\" expected"))
	ErrSectionDuplicate   = errors.New(f("section duplicated"))
	ErrStartMissing       = errors.New(f("START section missing"))
	ErrStackSize          = errors.New(f("stack size invalid"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOpcodeValueMissing = errors.New(f("value missing"))
	ErrRegisterInvalid    = errors.New(f("register invalid"))
	ErrLiteralRange       = errors.New(f("literal out of range"))
	ErrAddressRange       = errors.New(f("address out of range"))
	ErrInstructionInvalid = errors.New(f("instruction invalid"))
)

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

type ErrFunctionMissing string

func (ef ErrFunctionMissing) Error() string {
	return f("function %v missing", string(ef))
}

type ErrVarMissing string

func (ev ErrVarMissing) Error() string {
	return f("variable %v missing", string(ev))
}

type ErrOpcode Code

func (eo ErrOpcode) Error() string {
	return f("bad opcode 0x%08x %v", uint32(eo), Code(eo).String())
}

func (eo ErrOpcode) Is(err error) (ok bool) {
	_, ok = err.(ErrOpcode)
	return
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}
