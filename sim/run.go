package sim

import "github.com/tinygo-org/romdfu/dfu"

// Firmware is the program running on a simulated chip. It is started from
// the beginning on every boot. The boot number starts at 1 and is only
// there to script a scenario: real firmware cannot know it.
type Firmware func(b *dfu.Bootloader, boot int)

// Outcome is how a simulation ended.
type Outcome struct {
	State  dfu.State
	Boots  int
	Vector dfu.Vector // set when State is BootloaderEntered
}

// Run boots the firmware, and boots it again after every system reset it
// causes, until it returns or jumps into the ROM.
func (c *Chip) Run(fw Firmware) (Outcome, error) {
	b := c.Bootloader()
	for i := 0; i < MaxBoots; i++ {
		c.boots++
		c.record(EventBoot, 0)
		out, reset := c.boot(fw, b)
		if !reset {
			out.Boots = i + 1
			return out, nil
		}
		c.Reset()
	}
	return Outcome{State: dfu.RebootRequested, Boots: MaxBoots}, ErrResetLoop
}

func (c *Chip) boot(fw Firmware, b *dfu.Bootloader) (out Outcome, reset bool) {
	defer func() {
		switch sig := recover().(type) {
		case nil:
		case resetSignal:
			reset = true
		case jumpSignal:
			out = Outcome{State: dfu.BootloaderEntered, Vector: sig.vector}
		default:
			panic(sig)
		}
	}()
	fw(b, c.boots)
	c.record(EventNormalStartup, 0)
	return Outcome{State: dfu.NormalBoot}, false
}

// RebootOnce is a firmware that checks for a pending request on every boot,
// and requests the bootloader on its first boot.
func RebootOnce(b *dfu.Bootloader, boot int) {
	b.Check()
	if boot == 1 {
		b.Request()
	}
}

// NeverRequest is a firmware that only checks for a pending request.
func NeverRequest(b *dfu.Bootloader, boot int) {
	b.Check()
}
