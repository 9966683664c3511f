// Package touch asks a board to reboot into its bootloader over USB CDC, by
// briefly opening the serial port at 1200 baud.
package touch

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/shlex"
	"go.bug.st/serial"
)

// Baud is the baud rate that the firmware interprets as a reboot request.
const Baud = 1200

var (
	ErrBusy      = errors.New("touch: port is in use by another tool")
	ErrNoCommand = errors.New("touch: empty command")
	ErrTimeout   = errors.New("touch: port did not disappear")
)

type port interface {
	SetDTR(dtr bool) error
	Close() error
}

// These are replaced in tests.
var (
	openPort = func(name string, mode *serial.Mode) (port, error) {
		return serial.Open(name, mode)
	}
	listPorts = serial.GetPortsList
)

// Options change how Touch behaves. The zero value is usable.
type Options struct {
	// LockDir holds the lock files. It defaults to os.TempDir().
	LockDir string

	// Wait is how long to wait for the port to disappear after the touch.
	// Zero means do not wait.
	Wait time.Duration
}

// Touch opens portName at 1200 baud and closes it again. The firmware on the
// other end reboots into the bootloader, at which point the port goes away.
func Touch(portName string, opts Options) error {
	lock := flock.New(lockPath(opts.LockDir, portName))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("touch: could not lock %s: %w", portName, err)
	}
	if !locked {
		return fmt.Errorf("%w: %s", ErrBusy, portName)
	}
	defer lock.Unlock()

	p, err := openPort(portName, &serial.Mode{BaudRate: Baud})
	if err != nil {
		return fmt.Errorf("touch: could not open %s: %w", portName, err)
	}
	// Some CDC drivers only send the line coding when DTR drops.
	if err := p.SetDTR(false); err != nil {
		p.Close()
		return fmt.Errorf("touch: could not clear DTR on %s: %w", portName, err)
	}
	if err := p.Close(); err != nil {
		return fmt.Errorf("touch: could not close %s: %w", portName, err)
	}

	if opts.Wait > 0 {
		return waitGone(portName, opts.Wait)
	}
	return nil
}

func lockPath(dir, portName string) string {
	if dir == "" {
		dir = os.TempDir()
	}
	name := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(filepath.Base(portName))
	return filepath.Join(dir, "romdfu-"+name+".lock")
}

// waitGone polls the list of serial ports until portName is no longer in it.
func waitGone(portName string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		ports, err := listPorts()
		if err != nil {
			return fmt.Errorf("touch: could not list ports: %w", err)
		}
		found := false
		for _, p := range ports {
			if p == portName {
				found = true
				break
			}
		}
		if !found {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s", ErrTimeout, portName)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// Command returns the command to run after the touch, for example a
// dfu-util invocation. The command line is split like a shell would, and
// {port} is replaced with the serial port name.
func Command(line, portName string) (*exec.Cmd, error) {
	args, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("touch: could not parse command: %w", err)
	}
	if len(args) == 0 {
		return nil, ErrNoCommand
	}
	for i, arg := range args {
		args[i] = strings.ReplaceAll(arg, "{port}", portName)
	}
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd, nil
}
