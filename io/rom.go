package io

import (
	"bufio"
	"io"
	"strings"

	"github.com/ezrec/hexvm/word"
)

// Rom holds a bytecode image. Its text form is one cell per line,
// as four hexadecimal byte pairs.
type Rom struct {
	Data []word.Word
}

var (
	_ io.WriterTo   = (*Rom)(nil)
	_ io.ReaderFrom = (*Rom)(nil)
)

// WriteTo writes the image text.
func (rc *Rom) WriteTo(out io.Writer) (n int64, err error) {
	bw := bufio.NewWriter(out)
	for _, data := range rc.Data {
		var wrote int
		wrote, err = bw.WriteString(word.Format(data) + "\n")
		n += int64(wrote)
		if err != nil {
			return
		}
	}

	err = bw.Flush()
	return
}

// ReadFrom replaces the image with the text read from in.
// Blank lines are ignored.
func (rc *Rom) ReadFrom(in io.Reader) (n int64, err error) {
	scanner := bufio.NewScanner(in)

	rc.Data = rc.Data[:0]

	var lineno int
	for scanner.Scan() {
		lineno++
		line := scanner.Text()
		n += int64(len(line)) + 1

		if len(strings.TrimSpace(line)) == 0 {
			continue
		}

		var data word.Word
		data, err = word.Parse(line)
		if err != nil {
			err = &ErrRom{LineNo: lineno, Err: err}
			return
		}
		rc.Data = append(rc.Data, data)
	}

	err = scanner.Err()
	return
}
