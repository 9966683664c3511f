package dfu

// State is where a chip is in the reboot sequence. The RebootRequested
// state spans a reset.
type State uint8

const (
	NormalBoot State = iota
	RebootRequested
	BootloaderEntered
)

func (s State) String() string {
	switch s {
	case NormalBoot:
		return "normal boot"
	case RebootRequested:
		return "reboot requested"
	case BootloaderEntered:
		return "bootloader entered"
	default:
		return "invalid state"
	}
}
