package dfu

// WordLoader reads 32-bit words from memory.
type WordLoader interface {
	LoadWord(addr uintptr) uint32
}

// Vector is the start of a Cortex-M vector table.
type Vector struct {
	StackPointer uint32
	Entry        uint32
}

// ReadVector reads the initial stack pointer and the reset vector from the
// vector table at base. The contents are not validated.
func ReadVector(base uintptr, mem WordLoader) Vector {
	return Vector{
		StackPointer: mem.LoadWord(base),
		Entry:        mem.LoadWord(base + 4),
	}
}
