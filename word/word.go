// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package word

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// Word is an unsigned 32-bit memory cell.
type Word uint32

const (
	SIZE = 4                // Bytes in a Word.
	MAX  = Word(0xffffffff) // Largest encodable Word.
)

// Encode a Word into its big-endian form.
func Encode(w Word) (data [SIZE]byte) {
	binary.BigEndian.PutUint32(data[:], uint32(w))
	return
}

// Decode is the inverse of Encode.
func Decode(data [SIZE]byte) Word {
	return Word(binary.BigEndian.Uint32(data[:]))
}

// FromBytes decodes a Word from the first SIZE bytes of a slice.
func FromBytes(data []byte) (w Word, err error) {
	if len(data) < SIZE {
		err = ErrShort
		return
	}

	w = Word(binary.BigEndian.Uint32(data))
	return
}

// FromInt converts an integer into a Word, failing if it does not fit.
func FromInt(value int64) (w Word, err error) {
	if value < 0 || value > int64(MAX) {
		err = ErrWordRange(value)
		return
	}

	w = Word(value)
	return
}

// EncodeText stores each character of text in its own Word.
func EncodeText(text string) (words []Word, err error) {
	words = make([]Word, 0, len(text))
	for _, r := range text {
		if r < 0 || r > 0xffff {
			err = ErrTextRange(r)
			words = nil
			return
		}
		words = append(words, Word(r))
	}

	return
}

// DecodeText is the inverse of EncodeText. Every Word is one character.
func DecodeText(words []Word) string {
	var sb strings.Builder
	for _, w := range words {
		sb.WriteRune(rune(w & 0xffff))
	}
	return sb.String()
}

// Format renders a Word as four space-separated hex byte pairs.
func Format(w Word) string {
	data := Encode(w)
	return fmt.Sprintf("%02x %02x %02x %02x", data[0], data[1], data[2], data[3])
}

// Parse is the inverse of Format.
func Parse(line string) (w Word, err error) {
	fields := strings.Fields(line)
	if len(fields) != SIZE {
		err = ErrCellSyntax(line)
		return
	}

	var data [SIZE]byte
	for n, field := range fields {
		if len(field) != 2 {
			err = ErrCellSyntax(line)
			return
		}
		var b uint64
		b, err = strconv.ParseUint(field, 16, 8)
		if err != nil {
			err = ErrCellSyntax(line)
			return
		}
		data[n] = byte(b)
	}

	w = Decode(data)
	return
}

// String returns the hex cell form of the Word.
func (w Word) String() string {
	return Format(w)
}
