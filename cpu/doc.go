// Package cpu implements the virtual machine and assembler for the hexvm system.
//
// The machine has no separate register file: an instruction pointer, a stack
// pointer and a single word-addressed memory arena that holds the header, the
// stack, the registers, the string pool and the code. Registers and the stack
// are fixed windows into that arena.
//
// Register rN is not memory cell N. Registers start after the stack, at
// RegisterBase(stack capacity), so with the default 16 cell stack r0 is cell
// 18 (0x12) and r63 is cell 81. Instruction cells hold these absolute cell
// addresses, and images must be run with the stack capacity in their header.
//
// The assembler is a two pass assembler for a small line oriented language
// with VARS, FUNC and START sections, labels, and compile-time $(...)
// expression evaluation. Integer literals are decimal, or hexadecimal with a
// 0x prefix. Variable text is taken as written between the quotes.
package cpu
