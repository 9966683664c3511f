package bootflag

// Register32 is a 32-bit memory mapped register. It is implemented by
// *volatile.Register32.
type Register32 interface {
	Get() uint32
	Set(value uint32)
}

// Register64 is a 64-bit memory cell.
type Register64 interface {
	Get() uint64
	Set(value uint64)
}

// Backup keeps the flag in a backup domain register. Only the low 32 bits
// of a value are stored. The register is dedicated to the flag, so there is
// no read-modify-write.
type Backup struct {
	Reg Register32
}

func (b Backup) Read() uint64 {
	return uint64(b.Reg.Get())
}

func (b Backup) Write(value uint64) {
	b.Reg.Set(uint32(value))
}

func (b Backup) Clear() {
	b.Reg.Set(0)
}

// Word keeps the flag in a 64-bit word of RAM.
type Word struct {
	Cell Register64
}

func (w Word) Read() uint64 {
	return w.Cell.Get()
}

func (w Word) Write(value uint64) {
	w.Cell.Set(value)
}

func (w Word) Clear() {
	w.Cell.Set(0)
}
