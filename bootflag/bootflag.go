// Package bootflag stores the bootloader request flag in a slot that
// survives a system reset, but not a loss of power.
//
// Exactly one storage location is used per chip family. A location is
// either a register in the backup (battery) domain, or a 64-bit word near
// the top of RAM that the startup code does not touch.
package bootflag

import "errors"

// Flag is written to request a reboot into the ROM bootloader. It reads as
// "BT" in a memory dump.
const Flag = 0x4254

// RAMOffset is the distance of the RAM slot from the end of RAM.
const RAMOffset = 512

var ErrUnknownLocation = errors.New("bootflag: unknown storage location")

// Store is a single retained slot. Accesses go straight to the hardware,
// without buffering, so that the retention domain holds exactly what was
// written at the moment the chip resets.
type Store interface {
	// Read returns the raw content of the slot.
	Read() uint64

	// Write stores value verbatim, overwriting whatever was there.
	Write(value uint64)

	// Clear writes zero to the slot.
	Clear()
}

// Location selects where the flag is kept on a given chip family.
type Location uint8

const (
	// BackupData is a data register in the backup domain, for example
	// BKP_DATA1 on the GD32F30x.
	BackupData Location = iota + 1

	// RTCBackup is a backup register of the RTC block, for example
	// RTC_BKP1 on the GD32E23x.
	RTCBackup

	// RAM is a 64-bit word RAMOffset bytes below the end of RAM. The wider
	// word makes it unlikely that random RAM content after a power cycle
	// matches the flag.
	RAM
)

var locationNames = [...]string{
	BackupData: "backup-data",
	RTCBackup:  "rtc-backup",
	RAM:        "ram",
}

func (l Location) String() string {
	if int(l) < len(locationNames) && locationNames[l] != "" {
		return locationNames[l]
	}
	return "unknown"
}

// Width returns the number of bits stored at this location.
func (l Location) Width() int {
	if l == RAM {
		return 64
	}
	return 32
}

// ParseLocation returns the location with the given name, as returned by
// String.
func ParseLocation(name string) (Location, error) {
	for l, n := range locationNames {
		if n != "" && n == name {
			return Location(l), nil
		}
	}
	return 0, ErrUnknownLocation
}

// MarshalYAML implements yaml.Marshaler.
func (l Location) MarshalYAML() (interface{}, error) {
	if l.String() == "unknown" {
		return nil, ErrUnknownLocation
	}
	return l.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *Location) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	loc, err := ParseLocation(name)
	if err != nil {
		return err
	}
	*l = loc
	return nil
}
