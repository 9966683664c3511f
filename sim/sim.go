// Package sim simulates a single chip across resets, so that the reboot
// sequence of package dfu can be run on a host.
//
// RAM, backup registers and the ROM are modelled separately. A system reset
// keeps the backup registers and the reserved RAM slot of the flag, and
// scrambles the rest of RAM the way startup code and the new stack would.
// A power cycle loses everything.
package sim

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/rand"

	"github.com/marcinbor85/gohex"
	"github.com/tinygo-org/romdfu/bootflag"
	"github.com/tinygo-org/romdfu/dfu"
	"github.com/tinygo-org/romdfu/targets"
)

// MaxBoots is the number of boots after which Run gives up.
const MaxBoots = 8

var ErrResetLoop = errors.New("sim: chip keeps resetting")

// Chip is a simulated chip. It implements dfu.Platform.
type Chip struct {
	profile *targets.Profile
	rng     *rand.Rand

	ram    []byte
	backup map[uint64]uint32
	rom    *gohex.Memory

	interrupts bool
	boots      int
	events     []Event
	log        io.Writer
}

// Compile-time check.
var _ dfu.Platform = (*Chip)(nil)

// New returns a chip in its power-on state. The seed makes the RAM noise
// reproducible.
func New(profile *targets.Profile, seed int64) *Chip {
	c := &Chip{
		profile: profile,
		rng:     rand.New(rand.NewSource(seed)),
		ram:     make([]byte, profile.RAMSize),
		rom:     gohex.NewMemory(),
	}
	c.PowerCycle()
	return c
}

// SetLog writes every event to w as it happens.
func (c *Chip) SetLog(w io.Writer) {
	c.log = w
}

// Profile returns the chip profile.
func (c *Chip) Profile() *targets.Profile {
	return c.profile
}

// PowerCycle removes and restores power. Nothing survives.
func (c *Chip) PowerCycle() {
	c.rng.Read(c.ram)
	c.backup = map[uint64]uint32{}
	c.interrupts = true
	c.record(EventPowerOn, 0)
}

// Reset resets the CPU and peripherals, like a reset pin or watchdog would.
func (c *Chip) Reset() {
	keep := make([]byte, 8)
	lo, hi := c.retainedRange()
	if lo >= 0 {
		copy(keep, c.ram[lo:hi])
	}
	c.rng.Read(c.ram)
	if lo >= 0 {
		copy(c.ram[lo:hi], keep)
	}
	c.interrupts = true
	c.record(EventReset, 0)
}

// retainedRange returns the part of c.ram that holds the flag, or -1 if the
// flag is kept in a register.
func (c *Chip) retainedRange() (lo, hi int) {
	if c.profile.Storage != bootflag.RAM {
		return -1, -1
	}
	lo = int(c.profile.FlagAddress() - c.profile.RAMStart)
	return lo, lo + 8
}

// LoadROM reads a ROM image in Intel HEX format.
func (c *Chip) LoadROM(r io.Reader) error {
	rom := gohex.NewMemory()
	if err := rom.ParseIntelHex(r); err != nil {
		return fmt.Errorf("sim: could not parse ROM image: %w", err)
	}
	c.rom = rom
	return nil
}

// SetVector writes the initial stack pointer and entry point of the ROM
// bootloader at the ROM address of the profile. It fails if the ROM image
// already has data there.
func (c *Chip) SetVector(stackPointer, entry uint32) error {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:], stackPointer)
	binary.LittleEndian.PutUint32(buf[4:], entry)
	return c.rom.AddBinary(uint32(c.profile.ROMAddress), buf)
}

// DumpROM writes the ROM image in Intel HEX format.
func (c *Chip) DumpROM(w io.Writer) error {
	return c.rom.DumpIntelHex(w, 16)
}

// InterruptsEnabled returns whether interrupts are currently enabled.
func (c *Chip) InterruptsEnabled() bool {
	return c.interrupts
}

// Events returns everything that happened since the chip was created.
func (c *Chip) Events() []Event {
	return c.events
}

func (c *Chip) record(kind EventKind, value uint64) {
	e := Event{Boot: c.boots, Kind: kind, Value: value}
	c.events = append(c.events, e)
	if c.log != nil {
		fmt.Fprintln(c.log, e)
	}
}

// Store returns the flag storage of the chip, as selected by the profile.
func (c *Chip) Store() bootflag.Store {
	var s bootflag.Store
	switch c.profile.Storage {
	case bootflag.BackupData, bootflag.RTCBackup:
		s = bootflag.Backup{Reg: &backupRegister{c, c.profile.Register}}
	case bootflag.RAM:
		s = bootflag.Word{Cell: &ramWord{c, c.profile.FlagAddress()}}
	default:
		return nil
	}
	return &tracedStore{Store: s, c: c}
}

// Bootloader returns a dfu.Bootloader wired to this chip.
func (c *Chip) Bootloader() *dfu.Bootloader {
	return dfu.New(uintptr(c.profile.ROMAddress), c.Store(), c)
}

// LoadWord reads a little-endian word from the ROM or RAM. Unmapped memory
// reads as all ones.
func (c *Chip) LoadWord(addr uintptr) uint32 {
	a := uint64(addr)
	if a >= c.profile.RAMStart && a+4 <= c.profile.RAMStart+uint64(len(c.ram)) {
		return binary.LittleEndian.Uint32(c.ram[a-c.profile.RAMStart:])
	}
	for _, seg := range c.rom.GetDataSegments() {
		start := uint64(seg.Address)
		if a >= start && a+4 <= start+uint64(len(seg.Data)) {
			return binary.LittleEndian.Uint32(seg.Data[a-start:])
		}
	}
	return 0xffff_ffff
}

func (c *Chip) DisableInterrupts() {
	c.interrupts = false
	c.record(EventInterruptsOff, 0)
}

// SystemReset unwinds the running firmware. It only works inside Run.
func (c *Chip) SystemReset() {
	c.record(EventSystemReset, 0)
	panic(resetSignal{})
}

// Jump unwinds the running firmware: control has left it. It only works
// inside Run.
func (c *Chip) Jump(stackPointer, entry uint32) {
	v := dfu.Vector{StackPointer: stackPointer, Entry: entry}
	c.record(EventJump, uint64(stackPointer)<<32|uint64(entry))
	panic(jumpSignal{v})
}

type resetSignal struct{}

type jumpSignal struct {
	vector dfu.Vector
}

type backupRegister struct {
	c    *Chip
	addr uint64
}

func (r *backupRegister) Get() uint32 {
	return r.c.backup[r.addr]
}

func (r *backupRegister) Set(value uint32) {
	r.c.backup[r.addr] = value
}

type ramWord struct {
	c    *Chip
	addr uint64
}

func (w *ramWord) Get() uint64 {
	return binary.LittleEndian.Uint64(w.c.ram[w.addr-w.c.profile.RAMStart:])
}

func (w *ramWord) Set(value uint64) {
	binary.LittleEndian.PutUint64(w.c.ram[w.addr-w.c.profile.RAMStart:], value)
}

type tracedStore struct {
	bootflag.Store
	c *Chip
}

func (s *tracedStore) Read() uint64 {
	v := s.Store.Read()
	s.c.record(EventFlagRead, v)
	return v
}

func (s *tracedStore) Write(value uint64) {
	s.c.record(EventFlagWrite, value)
	s.Store.Write(value)
}

func (s *tracedStore) Clear() {
	s.c.record(EventFlagClear, 0)
	s.Store.Clear()
}
