package io

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// Console provides the text console of the machine.
// It wraps an io.Reader for input and io.Writer for output.
type Console struct {
	Input  io.Reader
	Output io.Writer

	scanner *bufio.Scanner
	scanned io.Reader
}

var _ Channel = (*Console)(nil)

// Rewind drops buffered input, so the next read starts from Input.
func (cc *Console) Rewind() {
	cc.scanner = nil
	cc.scanned = nil
}

// WriteValue writes a decimal value and a newline.
func (cc *Console) WriteValue(value uint32) (err error) {
	if cc.Output == nil {
		err = ErrChannelClosed
		return
	}

	_, err = fmt.Fprintf(cc.Output, "%d\n", value)
	return
}

// WriteText writes text and a newline.
func (cc *Console) WriteText(text string) (err error) {
	if cc.Output == nil {
		err = ErrChannelClosed
		return
	}

	_, err = fmt.Fprintln(cc.Output, text)
	return
}

// ReadValue reads the next whitespace-delimited token as an unsigned
// 32-bit decimal value. io.EOF is returned when input is exhausted.
func (cc *Console) ReadValue() (value uint32, err error) {
	if cc.Input == nil {
		err = ErrChannelClosed
		return
	}

	if cc.scanner == nil || cc.scanned != cc.Input {
		cc.scanner = bufio.NewScanner(cc.Input)
		cc.scanner.Split(bufio.ScanWords)
		cc.scanned = cc.Input
	}

	if !cc.scanner.Scan() {
		err = cc.scanner.Err()
		if err == nil {
			err = io.EOF
		}
		return
	}

	token := cc.scanner.Text()
	v64, err := strconv.ParseUint(token, 10, 32)
	if err != nil {
		err = ErrInput(token)
		return
	}

	value = uint32(v64)
	return
}
