//go:build tinygo && gd32f30x

package dfu

import "github.com/tinygo-org/romdfu/bootflag"

// The GD32F30x keeps the flag in BKP_DATA1. The backup domain must have been
// unlocked (PMU_CTL.BKPWEN) by the time EnterBootloader is called.
const romAddress = 0x1fff_b000

var flagStore bootflag.Store = bootflag.Backup{Reg: bootflag.MMIO32(0x4000_6c08)}
