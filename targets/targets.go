// Package targets describes the chips that have a ROM DFU bootloader: where
// the bootloader lives and where the request flag is kept.
package targets

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/inhies/go-bytesize"
	"github.com/tinygo-org/romdfu/bootflag"
	"gopkg.in/yaml.v2"
)

//go:embed targets.yaml
var defaultProfiles []byte

var (
	ErrNotFound         = errors.New("targets: no such target")
	ErrMissingName      = errors.New("targets: profile without a name")
	ErrDuplicateName    = errors.New("targets: duplicate profile name")
	ErrMissingStorage   = errors.New("targets: no storage location")
	ErrMissingRegister  = errors.New("targets: backup storage needs a register address")
	ErrUnalignedAddress = errors.New("targets: address is not aligned")
	ErrRAMTooSmall      = errors.New("targets: RAM too small for the flag slot")
	ErrRAMTooLarge      = errors.New("targets: RAM larger than the 32-bit address space")
	ErrHeapOverlap      = errors.New("targets: flag slot in RAM overlaps the GC metadata at the end of the heap")
	ErrEmptyProfile     = errors.New("targets: empty profile")
)

const (
	// MaxRAMSize is the size of the 32-bit address space.
	MaxRAMSize = 4 << 30

	// RAM storage needs less RAM than MaxSlotRAMSize, or the flag slot falls
	// into the GC metadata that the runtime zeroes at the top of RAM
	// (heapSize/64 bytes).
	MaxSlotRAMSize = 64 * bootflag.RAMOffset
)

// Profile is the bootloader layout of one chip (family).
type Profile struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	BuildTags   []string `yaml:"build-tags,omitempty"`

	// ROMAddress is the base of the ROM bootloader vector table. Zero means
	// entering the bootloader is not supported.
	ROMAddress uint64 `yaml:"rom-address,omitempty"`

	Storage  bootflag.Location `yaml:"storage"`
	Register uint64            `yaml:"register,omitempty"`

	RAMStart uint64 `yaml:"ram-start"`
	RAMSize  Size   `yaml:"ram-size"`
}

// Configured returns whether the chip can be rebooted into its ROM
// bootloader.
func (p *Profile) Configured() bool {
	return p.ROMAddress != 0
}

// FlagAddress returns the address of the flag slot.
func (p *Profile) FlagAddress() uint64 {
	if p.Storage == bootflag.RAM {
		return p.RAMStart + uint64(p.RAMSize) - bootflag.RAMOffset
	}
	return p.Register
}

// FlagWidth returns the width of the flag slot in bits.
func (p *Profile) FlagWidth() int {
	return p.Storage.Width()
}

func (p *Profile) String() string {
	if p.Description != "" {
		return p.Name + " (" + p.Description + ")"
	}
	return p.Name
}

func (p *Profile) validate() error {
	if p.Storage == 0 {
		return ErrMissingStorage
	}
	if uint64(p.RAMSize) > MaxRAMSize {
		return fmt.Errorf("%w: %s", ErrRAMTooLarge, p.RAMSize)
	}
	switch p.Storage {
	case bootflag.BackupData, bootflag.RTCBackup:
		if p.Register == 0 {
			return ErrMissingRegister
		}
		if p.Register%4 != 0 {
			return fmt.Errorf("%w: register %#x", ErrUnalignedAddress, p.Register)
		}
	case bootflag.RAM:
		if uint64(p.RAMSize) < bootflag.RAMOffset {
			return fmt.Errorf("%w: %s", ErrRAMTooSmall, p.RAMSize)
		}
		if uint64(p.RAMSize) >= MaxSlotRAMSize {
			return fmt.Errorf("%w: %s", ErrHeapOverlap, p.RAMSize)
		}
		if p.FlagAddress()%8 != 0 {
			return fmt.Errorf("%w: flag slot %#x", ErrUnalignedAddress, p.FlagAddress())
		}
	}
	if p.ROMAddress%4 != 0 {
		return fmt.Errorf("%w: ROM %#x", ErrUnalignedAddress, p.ROMAddress)
	}
	return nil
}

// Size is a memory size. In YAML it is written either as a number of bytes
// or with a unit, like "48KB".
type Size uint64

func (s Size) String() string {
	return bytesize.ByteSize(s).String()
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Size) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var n uint64
	if err := unmarshal(&n); err == nil {
		*s = Size(n)
		return nil
	}
	var text string
	if err := unmarshal(&text); err != nil {
		return err
	}
	b, err := bytesize.Parse(text)
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", text, err)
	}
	*s = Size(b)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (s Size) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

// Error is a problem with a single profile.
type Error struct {
	Filename string
	Index    int // position in the file, starting at 0
	Name     string
	Err      error
}

func (e *Error) Error() string {
	name := e.Name
	if name == "" {
		name = fmt.Sprintf("#%d", e.Index)
	}
	return fmt.Sprintf("%s: target %s: %s", e.Filename, name, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errors is a list of problems found in a single profile file.
type Errors []*Error

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "\n")
}

// Load reads a list of profiles from r. The filename is only used in error
// messages.
func Load(r io.Reader, filename string) ([]*Profile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var profiles []*Profile
	if err := yaml.UnmarshalStrict(data, &profiles); err != nil {
		return nil, &ParseError{Filename: filename, Err: err}
	}

	var errs Errors
	seen := map[string]bool{}
	for i, p := range profiles {
		if p == nil {
			errs = append(errs, &Error{Filename: filename, Index: i, Err: ErrEmptyProfile})
			continue
		}
		var err error
		switch {
		case p.Name == "":
			err = ErrMissingName
		case seen[p.Name]:
			err = ErrDuplicateName
		default:
			err = p.validate()
		}
		seen[p.Name] = true
		if err != nil {
			errs = append(errs, &Error{Filename: filename, Index: i, Name: p.Name, Err: err})
		}
	}
	if len(errs) != 0 {
		return nil, errs
	}
	return profiles, nil
}

// LoadFile reads a list of profiles from the given file.
func LoadFile(path string) ([]*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f, path)
}

// ParseError is returned when a profile file is not valid YAML or does not
// match the profile structure.
type ParseError struct {
	Filename string
	Err      error
}

func (e *ParseError) Error() string {
	return e.Filename + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Default returns the built-in profiles.
func Default() []*Profile {
	profiles, err := Load(bytes.NewReader(defaultProfiles), "targets.yaml")
	if err != nil {
		panic("targets: invalid built-in profiles: " + err.Error())
	}
	return profiles
}

// Find returns the profile with the given name.
func Find(profiles []*Profile, name string) (*Profile, error) {
	for _, p := range profiles {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}
