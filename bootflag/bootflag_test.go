package bootflag_test

import (
	"testing"

	"github.com/tinygo-org/romdfu/bootflag"
	"gopkg.in/yaml.v2"
)

type reg32 uint32

func (r *reg32) Get() uint32      { return uint32(*r) }
func (r *reg32) Set(value uint32) { *r = reg32(value) }

type reg64 uint64

func (r *reg64) Get() uint64      { return uint64(*r) }
func (r *reg64) Set(value uint64) { *r = reg64(value) }

func stores() map[string]bootflag.Store {
	return map[string]bootflag.Store{
		"backup": bootflag.Backup{Reg: new(reg32)},
		"word":   bootflag.Word{Cell: new(reg64)},
	}
}

func TestRoundTrip(t *testing.T) {
	for name, store := range stores() {
		store.Write(bootflag.Flag)
		if got := store.Read(); got != bootflag.Flag {
			t.Errorf("%s: after Write got %#x, want %#x", name, got, bootflag.Flag)
		}
		store.Clear()
		if got := store.Read(); got != 0 {
			t.Errorf("%s: after Clear got %#x, want 0", name, got)
		}
	}
}

func TestWriteOverwrites(t *testing.T) {
	for name, store := range stores() {
		store.Write(0xdead_beef)
		store.Write(bootflag.Flag)
		if got := store.Read(); got != bootflag.Flag {
			t.Errorf("%s: got %#x, want %#x", name, got, bootflag.Flag)
		}
	}
}

func TestBackupTruncates(t *testing.T) {
	var r reg32
	store := bootflag.Backup{Reg: &r}
	store.Write(0x1_0000_4254)
	if uint32(r) != 0x4254 {
		t.Errorf("register holds %#x, want 0x4254", uint32(r))
	}
}

func TestWordKeepsUpperBits(t *testing.T) {
	var r reg64
	store := bootflag.Word{Cell: &r}
	store.Write(0x1_0000_4254)
	if got := store.Read(); got == bootflag.Flag {
		t.Errorf("64-bit word lost its upper bits: got %#x", got)
	}
}

func TestLocationNames(t *testing.T) {
	tests := []struct {
		loc   bootflag.Location
		name  string
		width int
	}{
		{bootflag.BackupData, "backup-data", 32},
		{bootflag.RTCBackup, "rtc-backup", 32},
		{bootflag.RAM, "ram", 64},
	}
	for _, tc := range tests {
		if got := tc.loc.String(); got != tc.name {
			t.Errorf("String() = %q, want %q", got, tc.name)
		}
		if got := tc.loc.Width(); got != tc.width {
			t.Errorf("%s: Width() = %d, want %d", tc.name, got, tc.width)
		}
		loc, err := bootflag.ParseLocation(tc.name)
		if err != nil || loc != tc.loc {
			t.Errorf("ParseLocation(%q) = %v, %v, want %v", tc.name, loc, err, tc.loc)
		}
	}
	if _, err := bootflag.ParseLocation("flash"); err != bootflag.ErrUnknownLocation {
		t.Errorf("ParseLocation(flash) error = %v, want %v", err, bootflag.ErrUnknownLocation)
	}
	if got := bootflag.Location(0).String(); got != "unknown" {
		t.Errorf("zero location String() = %q", got)
	}
}

func TestLocationYAML(t *testing.T) {
	var v struct {
		Storage bootflag.Location `yaml:"storage"`
	}
	if err := yaml.Unmarshal([]byte("storage: rtc-backup\n"), &v); err != nil {
		t.Fatal(err)
	}
	if v.Storage != bootflag.RTCBackup {
		t.Errorf("got %v, want rtc-backup", v.Storage)
	}
	if err := yaml.Unmarshal([]byte("storage: eeprom\n"), &v); err == nil {
		t.Error("expected an error for an unknown location")
	}

	v.Storage = bootflag.RTCBackup
	out, err := yaml.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "storage: rtc-backup\n" {
		t.Errorf("Marshal = %q", out)
	}
}
