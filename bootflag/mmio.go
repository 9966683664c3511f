//go:build tinygo

package bootflag

import (
	"runtime/volatile"
	"unsafe"
)

// MMIO32 returns the 32-bit register at the given address.
func MMIO32(addr uintptr) Register32 {
	return (*volatile.Register32)(unsafe.Pointer(addr))
}

// MMIO64 returns the 64-bit word at the given address. The address must be
// 8-byte aligned.
func MMIO64(addr uintptr) Register64 {
	return mmio64(addr)
}

type mmio64 uintptr

func (a mmio64) Get() uint64 {
	return volatile.LoadUint64((*uint64)(unsafe.Pointer(uintptr(a))))
}

func (a mmio64) Set(value uint64) {
	volatile.StoreUint64((*uint64)(unsafe.Pointer(uintptr(a))), value)
}
