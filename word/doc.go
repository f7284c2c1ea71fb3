// Package word implements the 32-bit word codec used by every memory cell
// of the hexvm image.
//
// A Word travels as exactly four big-endian bytes. Text is stored one
// character per Word, with the character code in the low two bytes, and the
// bytecode image is written one Word per line as four hexadecimal byte pairs.
package word
