package dfu_test

import (
	"reflect"
	"testing"

	"github.com/tinygo-org/romdfu/bootflag"
	"github.com/tinygo-org/romdfu/dfu"
)

const testROM = 0x1fff_b000

// testPlatform records platform calls. SystemReset and Jump return, which
// is the degraded case on real hardware.
type testPlatform struct {
	mem    map[uintptr]uint32
	events []string
	jumps  []dfu.Vector
}

func newTestPlatform() *testPlatform {
	return &testPlatform{
		mem: map[uintptr]uint32{
			testROM:     0x2000_0c00,
			testROM + 4: 0x1fff_b4a1,
		},
	}
}

func (p *testPlatform) LoadWord(addr uintptr) uint32 {
	p.events = append(p.events, "load")
	return p.mem[addr]
}

func (p *testPlatform) DisableInterrupts() {
	p.events = append(p.events, "irq off")
}

func (p *testPlatform) SystemReset() {
	p.events = append(p.events, "reset")
}

func (p *testPlatform) Jump(stackPointer, entry uint32) {
	p.events = append(p.events, "jump")
	p.jumps = append(p.jumps, dfu.Vector{StackPointer: stackPointer, Entry: entry})
}

// testStore logs writes into the platform event list so that the order of
// flag and platform accesses can be checked.
type testStore struct {
	value uint64
	p     *testPlatform
}

func (s *testStore) Read() uint64 {
	s.p.events = append(s.p.events, "read")
	return s.value
}

func (s *testStore) Write(value uint64) {
	s.p.events = append(s.p.events, "write")
	s.value = value
}

func (s *testStore) Clear() {
	s.p.events = append(s.p.events, "clear")
	s.value = 0
}

func setup() (*dfu.Bootloader, *testStore, *testPlatform) {
	p := newTestPlatform()
	s := &testStore{p: p}
	return dfu.New(testROM, s, p), s, p
}

func TestRequest(t *testing.T) {
	b, s, p := setup()
	b.Request()
	if s.value != bootflag.Flag {
		t.Errorf("flag is %#x after Request, want %#x", s.value, bootflag.Flag)
	}
	want := []string{"irq off", "write", "reset"}
	if !reflect.DeepEqual(p.events, want) {
		t.Errorf("events %v, want %v", p.events, want)
	}
	if !b.Pending() {
		t.Error("Pending() = false after Request")
	}
}

func TestRequestThenCheck(t *testing.T) {
	b, s, p := setup()
	b.Request()
	p.events = nil

	b.Check()
	if s.value != 0 {
		t.Errorf("flag is %#x after Check, want 0", s.value)
	}
	want := []string{"read", "clear", "load", "load", "jump"}
	if !reflect.DeepEqual(p.events, want) {
		t.Errorf("events %v, want %v", p.events, want)
	}
	wantJumps := []dfu.Vector{{StackPointer: 0x2000_0c00, Entry: 0x1fff_b4a1}}
	if !reflect.DeepEqual(p.jumps, wantJumps) {
		t.Errorf("jumps %v, want %v", p.jumps, wantJumps)
	}
}

func TestCheckIgnoresOtherValues(t *testing.T) {
	values := []uint64{
		0,
		bootflag.Flag ^ 1,
		bootflag.Flag ^ 0x8000,
		bootflag.Flag | 1<<32,
		0x5442, // byte swapped
		0xffff_ffff_ffff_ffff,
		0xa5a5_a5a5,
	}
	for _, v := range values {
		b, s, p := setup()
		s.value = v
		b.Check()
		if s.value != v {
			t.Errorf("%#x: flag changed to %#x", v, s.value)
		}
		if len(p.jumps) != 0 {
			t.Errorf("%#x: jumped to %v", v, p.jumps)
		}
		if b.Pending() {
			t.Errorf("%#x: Pending() = true", v)
		}
	}
}

func TestCheckTwice(t *testing.T) {
	b, _, p := setup()
	b.Check()
	b.Check()
	if len(p.jumps) != 0 {
		t.Errorf("jumped without a request: %v", p.jumps)
	}

	// A request is consumed by the first check only.
	b.Request()
	b.Check()
	b.Check()
	if len(p.jumps) != 1 {
		t.Errorf("got %d jumps, want 1", len(p.jumps))
	}
}

func TestUnconfigured(t *testing.T) {
	p := newTestPlatform()
	s := &testStore{p: p}
	unconfigured := map[string]*dfu.Bootloader{
		"no rom":      dfu.New(0, s, p),
		"no store":    dfu.New(testROM, nil, p),
		"no platform": dfu.New(testROM, s, nil),
	}
	for name, b := range unconfigured {
		for _, v := range []uint64{0, bootflag.Flag} {
			s.value = v
			p.events = nil
			b.Request()
			b.Check()
			b.SetLineCoding(dfu.TouchBaud)
			if b.Configured() {
				t.Errorf("%s: Configured() = true", name)
			}
			if b.Pending() {
				t.Errorf("%s: Pending() = true", name)
			}
			if b.ROMAddress() != 0 {
				t.Errorf("%s: ROMAddress() = %#x", name, b.ROMAddress())
			}
			if s.value != v {
				t.Errorf("%s: flag changed from %#x to %#x", name, v, s.value)
			}
			if len(p.events) != 0 {
				t.Errorf("%s: unexpected events %v", name, p.events)
			}
		}
	}
}

func TestSetLineCoding(t *testing.T) {
	b, s, p := setup()
	for _, baud := range []uint32{9600, 115200, 250000} {
		b.SetLineCoding(baud)
	}
	if len(p.events) != 0 || s.value != 0 {
		t.Errorf("ordinary baud rates requested a reboot: %v", p.events)
	}
	b.SetLineCoding(dfu.TouchBaud)
	if s.value != bootflag.Flag {
		t.Errorf("flag is %#x after 1200 baud touch", s.value)
	}
}

func TestReadVector(t *testing.T) {
	p := newTestPlatform()
	v := dfu.ReadVector(testROM, p)
	if v.StackPointer != 0x2000_0c00 || v.Entry != 0x1fff_b4a1 {
		t.Errorf("ReadVector = %+v", v)
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[dfu.State]string{
		dfu.NormalBoot:        "normal boot",
		dfu.RebootRequested:   "reboot requested",
		dfu.BootloaderEntered: "bootloader entered",
		dfu.State(9):          "invalid state",
	} {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}

func TestDefaultHost(t *testing.T) {
	// No ROM bootloader is known when running tests on the host.
	if dfu.Default().Configured() {
		t.Fatal("default bootloader is configured on the host")
	}
	dfu.CheckBootloader()
	dfu.EnterBootloader()
	dfu.SetLineCoding(dfu.TouchBaud)
}
