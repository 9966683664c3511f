//go:build tinygo && gd32e23x

package dfu

import "github.com/tinygo-org/romdfu/bootflag"

const romAddress = 0x1fff_ec00

// RTC_BKP1 on the GD32E23x.
var flagStore bootflag.Store = bootflag.Backup{Reg: bootflag.MMIO32(0x4000_2854)}
