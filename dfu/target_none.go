//go:build !(tinygo && (gd32f30x || gd32e23x || gd32f1x0))

package dfu

import "github.com/tinygo-org/romdfu/bootflag"

// The ROM bootloader address is not known for this target.
const romAddress = 0

var flagStore bootflag.Store
