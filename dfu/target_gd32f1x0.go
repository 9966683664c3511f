//go:build tinygo && gd32f1x0

package dfu

import "github.com/tinygo-org/romdfu/bootflag"

const (
	romAddress = 0x1fff_ec00

	ramStart = 0x2000_0000
	ramSize  = 8 * 1024
)

// There is no backup register that is usable this early, so the flag lives
// in RAM. The heap ends at the top of RAM and initHeap zeroes the GC metadata
// at its end, heapSize/64 bytes, so the slot only survives startup while RAM
// is smaller than 64*RAMOffset (32KB).
var flagStore bootflag.Store = bootflag.Word{Cell: bootflag.MMIO64(ramStart + ramSize - bootflag.RAMOffset)}
