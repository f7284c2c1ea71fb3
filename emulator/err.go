package emulator

import (
	"github.com/ezrec/hexvm/cpu"
	"github.com/ezrec/hexvm/translate"
)

var f = translate.From

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	Address uint32
	Code    cpu.Code
	LineNo  int
	Err     error
}

func (err *ErrRuntime) Error() string {
	if err.LineNo == 0 {
		return f("0x%04x: %v: %v", err.Address, err.Code, err.Err)
	}
	return f("0x%04x: line %v: %v: %v", err.Address, err.LineNo, err.Code, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
