package cpu

import (
	"github.com/ezrec/hexvm/word"
)

// Stack is a window of the memory arena used for push, pop, call and return.
// Depth is the number of occupied cells; the stack pointer is the address of
// Cells[Depth].
type Stack struct {
	Cells []word.Word
	Depth int
}

// Push a value, returning false on overflow.
func (s *Stack) Push(value word.Word) (ok bool) {
	if s.Full() {
		return
	}

	s.Cells[s.Depth] = value
	s.Depth++
	return true
}

// Pop a value, returning false on underflow.
func (s *Stack) Pop() (value word.Word, ok bool) {
	value, ok = s.Peek()
	if ok {
		s.Depth--
	}
	return
}

func (s *Stack) Empty() bool {
	return s.Depth == 0
}

func (s *Stack) Full() bool {
	return s.Depth >= len(s.Cells)
}

// Peek returns the top of the stack.
func (s *Stack) Peek() (value word.Word, ok bool) {
	if s.Empty() {
		return
	}

	return s.Cells[s.Depth-1], true
}

// Reset empties the stack. The cells are left as they are.
func (s *Stack) Reset() {
	s.Depth = 0
}
