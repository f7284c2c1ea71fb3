package word

import (
	"errors"

	"github.com/ezrec/hexvm/translate"
)

var f = translate.From

var (
	ErrShort = errors.New(f("short word"))
)

type ErrWordRange int64

func (err ErrWordRange) Error() string {
	return f("%d does not fit in a word", int64(err))
}

type ErrTextRange rune

func (err ErrTextRange) Error() string {
	return f("character %U does not fit in a word", rune(err))
}

type ErrCellSyntax string

func (err ErrCellSyntax) Error() string {
	return f("'%v' is not a cell", string(err))
}
