package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/tinygo-org/romdfu/bootflag"
	"github.com/tinygo-org/romdfu/diagnostics"
	"github.com/tinygo-org/romdfu/dfu"
	"github.com/tinygo-org/romdfu/sim"
	"github.com/tinygo-org/romdfu/targets"
	"github.com/tinygo-org/romdfu/touch"
)

const (
	colorReset = "\x1b[0m"
	colorRed   = "\x1b[31m"
	colorGreen = "\x1b[32m"
	colorGray  = "\x1b[90m"
)

var (
	stdout = colorable.NewColorableStdout()
	stderr = colorable.NewColorableStderr()
)

func usage(command string) {
	switch command {
	default:
		fmt.Fprintln(os.Stderr, "romdfu: reboot GD32 chips into their ROM DFU bootloader")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "usage:")
		fmt.Fprintln(os.Stderr, "  romdfu <command> [arguments]")
		fmt.Fprintln(os.Stderr, "\ncommands:")
		fmt.Fprintln(os.Stderr, "  targets: list known chips")
		fmt.Fprintln(os.Stderr, "  info:    show the bootloader layout of a chip")
		fmt.Fprintln(os.Stderr, "  vector:  show the ROM vector in a ROM image")
		fmt.Fprintln(os.Stderr, "  sim:     simulate a reboot into the bootloader")
		fmt.Fprintln(os.Stderr, "  touch:   reboot a board into its bootloader with a 1200 baud touch")
		fmt.Fprintln(os.Stderr, "  help:    print this help text")
		if flag.Parsed() {
			fmt.Fprintln(os.Stderr, "\nflags:")
			flag.PrintDefaults()
		}
	}
}

// handleError prints the error in a readable form and exits.
func handleError(err error) {
	if err == nil {
		return
	}
	wd, getwdErr := os.Getwd()
	if getwdErr != nil {
		wd = ""
	}
	fmt.Fprint(stderr, colorRed)
	diagnostics.CreateDiagnostics(err).WriteTo(stderr, wd)
	fmt.Fprint(stderr, colorReset)
	os.Exit(1)
}

func loadProfiles(path string) ([]*targets.Profile, error) {
	if path == "" {
		return targets.Default(), nil
	}
	return targets.LoadFile(path)
}

func findProfile(path, name string) (*targets.Profile, error) {
	if name == "" {
		return nil, errors.New("no target set, use -target")
	}
	profiles, err := loadProfiles(path)
	if err != nil {
		return nil, err
	}
	return targets.Find(profiles, name)
}

func printTargets(w io.Writer, profiles []*targets.Profile) {
	for _, p := range profiles {
		status := colorGreen + "dfu" + colorReset
		if !p.Configured() {
			status = colorGray + "---" + colorReset
		}
		fmt.Fprintf(w, "%s %-12s %s\n", status, p.Name, p.Description)
	}
}

func printInfo(w io.Writer, p *targets.Profile) {
	fmt.Fprintf(w, "target:       %s\n", p.Name)
	if len(p.BuildTags) != 0 {
		fmt.Fprintf(w, "build tags:   %s\n", strings.Join(p.BuildTags, " "))
	}
	if p.Configured() {
		fmt.Fprintf(w, "rom address:  %#08x\n", p.ROMAddress)
	} else {
		fmt.Fprintf(w, "rom address:  none (reboot into the bootloader is disabled)\n")
	}
	fmt.Fprintf(w, "storage:      %s\n", p.Storage)
	fmt.Fprintf(w, "flag address: %#08x (%d bits)\n", p.FlagAddress(), p.FlagWidth())
	if p.RAMSize != 0 {
		fmt.Fprintf(w, "ram:          %#08x, %s\n", p.RAMStart, p.RAMSize)
	}
}

// newChip returns a simulated chip with the given ROM image loaded.
func newChip(p *targets.Profile, romPath string, seed int64) (*sim.Chip, error) {
	c := sim.New(p, seed)
	if romPath == "" {
		return c, nil
	}
	f, err := os.Open(romPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := c.LoadROM(f); err != nil {
		return nil, err
	}
	return c, nil
}

func parseWord(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 0, 32)
	return uint32(n), err
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "No command-line arguments supplied.")
		usage("")
		os.Exit(1)
	}
	command := os.Args[1]

	targetsPath := flag.String("targets", "", "YAML file with chip profiles (default: built in)")
	target := flag.String("target", "", "chip name, see 'romdfu targets'")
	romPath := flag.String("rom", "", "ROM image in Intel HEX format")
	sp := flag.String("sp", "", "initial stack pointer of the simulated ROM (-rom is used if unset)")
	entry := flag.String("entry", "", "entry point of the simulated ROM")
	powerCycle := flag.Bool("power-cycle", false, "power cycle the simulated chip instead of a reset")
	seed := flag.Int64("seed", 1, "seed for the power-on RAM content of the simulated chip")
	port := flag.String("port", "", "serial port of the board")
	wait := flag.Duration("wait", 3*time.Second, "time to wait for the serial port to disappear (0 to not wait)")
	execLine := flag.String("exec", "", "command to run after the touch, {port} is replaced by the port name")

	flag.CommandLine.Parse(os.Args[2:])

	switch command {
	case "targets":
		profiles, err := loadProfiles(*targetsPath)
		handleError(err)
		printTargets(stdout, profiles)
	case "info":
		p, err := findProfile(*targetsPath, *target)
		handleError(err)
		printInfo(stdout, p)
	case "vector":
		p, err := findProfile(*targetsPath, *target)
		handleError(err)
		if !p.Configured() {
			handleError(fmt.Errorf("target %s has no ROM bootloader", p.Name))
		}
		if *romPath == "" {
			handleError(errors.New("no ROM image, use -rom"))
		}
		c, err := newChip(p, *romPath, *seed)
		handleError(err)
		v := dfu.ReadVector(uintptr(p.ROMAddress), c)
		fmt.Fprintf(stdout, "stack pointer: %#08x\n", v.StackPointer)
		fmt.Fprintf(stdout, "entry point:   %#08x\n", v.Entry)
	case "sim":
		p, err := findProfile(*targetsPath, *target)
		handleError(err)
		c, err := newChip(p, *romPath, *seed)
		handleError(err)
		if *sp != "" || *entry != "" {
			spValue, err := parseWord(*sp)
			handleError(err)
			entryValue, err := parseWord(*entry)
			handleError(err)
			handleError(c.SetVector(spValue, entryValue))
		}
		handleError(runSim(stdout, c, *powerCycle))
	case "touch":
		if *port == "" {
			handleError(errors.New("no serial port, use -port"))
		}
		err := touch.Touch(*port, touch.Options{Wait: *wait})
		handleError(err)
		fmt.Fprintf(stdout, "%sbootloader requested on %s%s\n", colorGreen, *port, colorReset)
		if *execLine != "" {
			cmd, err := touch.Command(*execLine, *port)
			handleError(err)
			handleError(cmd.Run())
		}
	case "help":
		usage("")
	default:
		fmt.Fprintln(os.Stderr, "Unknown command:", command)
		usage("")
		os.Exit(1)
	}
}

// runSim runs request, reset (or power cycle) and check on the chip and
// prints what happened.
func runSim(w io.Writer, c *sim.Chip, powerCycle bool) error {
	c.SetLog(&prefixWriter{w: w, prefix: colorGray, suffix: colorReset})
	fw := sim.RebootOnce
	if powerCycle {
		// The supply drops out after the flag was written.
		c.Store().Write(bootflag.Flag)
		c.PowerCycle()
		fw = sim.NeverRequest
	}
	out, err := c.Run(fw)
	if err != nil {
		return err
	}
	color := colorGreen
	if out.State != dfu.BootloaderEntered {
		color = colorGray
	}
	fmt.Fprintf(w, "%s%s after %d boot(s)%s\n", color, out.State, out.Boots, colorReset)
	return nil
}

type prefixWriter struct {
	w      io.Writer
	prefix string
	suffix string
}

func (p *prefixWriter) Write(b []byte) (int, error) {
	line := strings.TrimSuffix(string(b), "\n")
	if _, err := fmt.Fprint(p.w, p.prefix+line+p.suffix+"\n"); err != nil {
		return 0, err
	}
	return len(b), nil
}
