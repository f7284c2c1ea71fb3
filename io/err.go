package io

import (
	"errors"

	"github.com/ezrec/hexvm/translate"
)

var f = translate.From

var (
	// Channel errors
	ErrChannelClosed = errors.New(f("channel closed"))
)

// ErrInput is a console token that is not a value.
type ErrInput string

func (err ErrInput) Error() string {
	return f("'%v' is not a value", string(err))
}

// ErrRom locates a malformed line of a bytecode image.
type ErrRom struct {
	LineNo int
	Err    error
}

func (err *ErrRom) Error() string {
	return f("rom line %d %v", err.LineNo, err.Err)
}

func (err *ErrRom) Unwrap() error {
	return err.Err
}
