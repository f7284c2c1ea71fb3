// Package io provides the I/O channels of the hexvm machine: the console
// used by PRINT, PRINTSTR and READ, and the ROM holding a bytecode image in
// its line-oriented text form.
package io

// Channel defines the console interface used by the CPU.
// Values are unsigned decimal words, one per line on output.
type Channel interface {
	// Rewind drops any buffered input.
	Rewind()
	// WriteValue writes a value in decimal, followed by a newline.
	WriteValue(value uint32) error
	// WriteText writes a string, followed by a newline.
	WriteText(text string) error
	// ReadValue reads one whitespace-delimited decimal value.
	ReadValue() (value uint32, err error)
}
