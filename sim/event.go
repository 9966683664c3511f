package sim

import "fmt"

type EventKind uint8

const (
	EventPowerOn EventKind = iota
	EventReset
	EventBoot
	EventInterruptsOff
	EventFlagRead
	EventFlagWrite
	EventFlagClear
	EventSystemReset
	EventJump
	EventNormalStartup
)

var eventNames = [...]string{
	EventPowerOn:       "power on",
	EventReset:         "reset",
	EventBoot:          "boot",
	EventInterruptsOff: "interrupts off",
	EventFlagRead:      "flag read",
	EventFlagWrite:     "flag write",
	EventFlagClear:     "flag clear",
	EventSystemReset:   "system reset",
	EventJump:          "jump",
	EventNormalStartup: "normal startup",
}

func (k EventKind) String() string {
	if int(k) < len(eventNames) {
		return eventNames[k]
	}
	return fmt.Sprintf("EventKind(%d)", k)
}

// Event is a single step observed on the chip.
type Event struct {
	Boot  int
	Kind  EventKind
	Value uint64
}

func (e Event) String() string {
	switch e.Kind {
	case EventFlagRead, EventFlagWrite:
		return fmt.Sprintf("[boot %d] %s %#x", e.Boot, e.Kind, e.Value)
	case EventJump:
		return fmt.Sprintf("[boot %d] jump sp=0x%08x entry=0x%08x", e.Boot, uint32(e.Value>>32), uint32(e.Value))
	default:
		return fmt.Sprintf("[boot %d] %s", e.Boot, e.Kind)
	}
}
