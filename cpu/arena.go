package cpu

// Memory layout of an image. Addresses are cell indexes.
const (
	HEADER_IP    = 0 // Cell holding the entry instruction pointer.
	HEADER_STACK = 1 // Cell holding the stack capacity.
	HEADER_SIZE  = 2 // Cells reserved for the header.

	STACK_BASE     = HEADER_SIZE // First stack cell.
	STACK_LIMIT    = 16          // Default stack capacity.
	REGISTER_COUNT = 64          // Registers r0 .. r63.
	REGISTER_LIMIT = 0x100       // Register operands are a single byte.

	MEMORY_SIZE = 4096 // Default arena capacity.

	IP_HALT = uint32(0xffffffff) // Instruction pointer of a halted machine.
)

// RegisterBase returns the address of r0 for a stack capacity.
func RegisterBase(stackSize int) int {
	return STACK_BASE + stackSize
}

// StringBase returns the address of the string pool for a stack capacity.
func StringBase(stackSize int) int {
	return RegisterBase(stackSize) + REGISTER_COUNT
}
