//go:build tinygo && cortexm

package dfu

import (
	"device/arm"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"
)

var platform Platform = cortexM{}

type cortexM struct{}

func (cortexM) DisableInterrupts() {
	interrupt.Disable()
}

func (cortexM) SystemReset() {
	arm.SystemReset()
}

func (cortexM) LoadWord(addr uintptr) uint32 {
	return volatile.LoadUint32((*uint32)(unsafe.Pointer(addr)))
}

// Jump switches to the ROM stack and branches to the ROM entry point. The
// current stack is abandoned.
func (cortexM) Jump(stackPointer, entry uint32) {
	arm.AsmFull(`
		mov sp, {sp}
		bx {entry}
	`, map[string]interface{}{
		"sp":    stackPointer,
		"entry": entry,
	})
}
