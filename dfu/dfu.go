// Package dfu reboots a chip into the USB DFU bootloader in its ROM.
//
// Many GD32 (and STM32) chips have a DFU capable bootloader in system
// memory. To start it from running firmware, the firmware writes a flag
// into a location that survives a reset and resets the chip. Very early on
// the next boot, CheckBootloader sees the flag, clears it, and jumps to the
// ROM using the initial stack pointer and reset vector stored at the start
// of the ROM.
//
// A typical program looks like this:
//
//	func main() {
//		dfu.CheckBootloader() // before anything else is initialized
//		...
//		if updateRequested {
//			dfu.EnterBootloader()
//		}
//	}
//
// On targets without a known ROM bootloader address both functions do
// nothing.
package dfu

import "github.com/tinygo-org/romdfu/bootflag"

// TouchBaud is the line coding baud rate that a host sets on the USB CDC
// port to ask for a reboot into the bootloader.
const TouchBaud = 1200

// Platform is implemented by the chip (or a simulation of it).
type Platform interface {
	WordLoader

	// DisableInterrupts masks all interrupts on the current core.
	DisableInterrupts()

	// SystemReset resets the whole chip. It does not return on hardware.
	SystemReset()

	// Jump sets the stack pointer and branches to entry. It does not
	// return on hardware.
	Jump(stackPointer, entry uint32)
}

// Bootloader requests and enters the ROM bootloader of a single chip.
type Bootloader struct {
	romAddress uintptr
	store      bootflag.Store
	platform   Platform
}

// New returns a Bootloader for the ROM at romAddress. A zero romAddress, or
// a nil store or platform, returns a Bootloader on which every method is a
// no-op.
func New(romAddress uintptr, store bootflag.Store, platform Platform) *Bootloader {
	return &Bootloader{
		romAddress: romAddress,
		store:      store,
		platform:   platform,
	}
}

// Configured returns whether the bootloader can be entered at all.
func (b *Bootloader) Configured() bool {
	return b.romAddress != 0 && b.store != nil && b.platform != nil
}

// ROMAddress returns the base address of the ROM bootloader, or 0 if
// unconfigured.
func (b *Bootloader) ROMAddress() uintptr {
	if !b.Configured() {
		return 0
	}
	return b.romAddress
}

// Request sets the flag and resets the chip. On hardware it does not
// return. If the reset does not happen, the caller continues with
// interrupts disabled.
func (b *Bootloader) Request() {
	if !b.Configured() {
		return
	}
	// No interrupt handler may run between writing the flag and the reset.
	b.platform.DisableInterrupts()
	b.store.Write(bootflag.Flag)
	b.platform.SystemReset()
}

// Pending returns whether the flag is currently set, without clearing it.
func (b *Bootloader) Pending() bool {
	if !b.Configured() {
		return false
	}
	return b.store.Read() == bootflag.Flag
}

// Check enters the ROM bootloader if the previous boot requested it, and
// returns otherwise. It must be called early in the startup sequence,
// before interrupts and peripherals are set up.
//
// Only an exact match with the flag counts as a request. The flag is
// cleared before the jump, so a reset from inside the ROM does not lead
// back here. If the ROM address is wrong the request is lost.
func (b *Bootloader) Check() {
	if !b.Configured() {
		return
	}
	if b.store.Read() != bootflag.Flag {
		return
	}
	b.store.Clear()
	vector := ReadVector(b.romAddress, b.platform)
	b.platform.Jump(vector.StackPointer, vector.Entry)
}

// SetLineCoding is called by the USB CDC driver when the host changes the
// line coding. The host requests the bootloader by opening the port at
// TouchBaud.
func (b *Bootloader) SetLineCoding(baud uint32) {
	if baud == TouchBaud {
		b.Request()
	}
}

var std = New(romAddress, flagStore, platform)

// EnterBootloader reboots into the ROM bootloader of the chip this program
// was built for. It does not return, unless no ROM bootloader is known for
// the target.
func EnterBootloader() {
	std.Request()
}

// CheckBootloader jumps into the ROM bootloader if EnterBootloader was
// called before the last reset.
func CheckBootloader() {
	std.Check()
}

// SetLineCoding forwards a USB CDC line coding change. See
// Bootloader.SetLineCoding.
func SetLineCoding(baud uint32) {
	std.SetLineCoding(baud)
}

// Default returns the Bootloader of the chip this program was built for.
func Default() *Bootloader {
	return std
}
